package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func splitDataURI(t *testing.T, uri string) (string, []byte) {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, "data:"))
	header, payload, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ";base64,")
	require.True(t, found)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return header, decoded
}

func TestDataURIKeepsSmallImages(t *testing.T) {
	data := pngBytes(t, 40, 20)

	uri, err := NewPreprocessor(100).DataURI(data)
	require.NoError(t, err)

	mime, payload := splitDataURI(t, uri)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, payload)
}

func TestDataURIDownscalesLargeImages(t *testing.T) {
	data := pngBytes(t, 40, 20)

	uri, err := NewPreprocessor(10).DataURI(data)
	require.NoError(t, err)

	mime, payload := splitDataURI(t, uri)
	assert.Equal(t, "image/jpeg", mime)
	img, err := jpeg.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestDataURIWithoutLimit(t *testing.T) {
	data := pngBytes(t, 40, 20)

	uri, err := NewPreprocessor(0).DataURI(data)
	require.NoError(t, err)

	_, payload := splitDataURI(t, uri)
	assert.Equal(t, data, payload)
}

func TestDataURIFallsBackForNonImages(t *testing.T) {
	data := []byte("definitely not pixels")

	uri, err := NewPreprocessor(10).DataURI(data)
	require.NoError(t, err)

	mime, payload := splitDataURI(t, uri)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, data, payload)
}

// withHeaderSize rewrites the IHDR dimensions of an encoded PNG without touching its pixel data.
func withHeaderSize(t *testing.T, data []byte, width, height uint32) []byte {
	t.Helper()
	require.Equal(t, "IHDR", string(data[12:16]))
	out := bytes.Clone(data)
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDataURISkipsDecodeAbovePixelLimit(t *testing.T) {
	data := withHeaderSize(t, pngBytes(t, 1, 1), 12000, 12000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 12000, cfg.Width)

	p := NewPreprocessor(1024)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	uri, err := p.DataURI(data)
	runtime.ReadMemStats(&after)

	require.NoError(t, err)
	mime, payload := splitDataURI(t, uri)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, payload)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(10<<20))
}

func TestDataURIPixelLimitDisabled(t *testing.T) {
	p := NewPreprocessor(10)
	p.MaxPixels = 0

	uri, err := p.DataURI(pngBytes(t, 40, 20))

	require.NoError(t, err)
	mime, payload := splitDataURI(t, uri)
	assert.Equal(t, "image/jpeg", mime)
	img, err := jpeg.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}
