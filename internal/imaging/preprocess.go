package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

const (
	fallbackMIME     = "image/jpeg"
	defaultMaxPixels = 40_000_000
)

// Preprocessor turns raw upload bytes into a data URI the vision model accepts.
type Preprocessor struct {
	// MaxDimension bounds the longest side sent upstream. Zero disables downscaling.
	MaxDimension uint
	// MaxPixels caps the decoded area. Larger images are forwarded without being decoded.
	MaxPixels   int
	JPEGQuality int
}

func NewPreprocessor(maxDimension uint) *Preprocessor {
	return &Preprocessor{
		MaxDimension: maxDimension,
		MaxPixels:    defaultMaxPixels,
		JPEGQuality:  jpeg.DefaultQuality,
	}
}

// DataURI encodes data as `data:<mime>;base64,<payload>`, shrinking oversized images first.
func (p *Preprocessor) DataURI(data []byte) (string, error) {
	mime := detectImageMIME(data)
	payload := data

	if p.MaxDimension > 0 {
		shrunk, ok, err := p.downscale(data)
		if err != nil {
			return "", err
		}
		if ok {
			payload = shrunk
			mime = "image/jpeg"
		}
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload), nil
}

func (p *Preprocessor) downscale(data []byte) ([]byte, bool, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// extension checks let non-image payloads through; forward them unchanged
		return nil, false, nil
	}
	if uint(cfg.Width) <= p.MaxDimension && uint(cfg.Height) <= p.MaxDimension {
		return nil, false, nil
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(p.MaxPixels) {
		log.Printf("Skipping downscale of %dx%d %s image: exceeds %d pixel limit",
			cfg.Width, cfg.Height, format, p.MaxPixels)
		return nil, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, nil
	}
	bounds := img.Bounds()

	resized := resize.Thumbnail(p.MaxDimension, p.MaxDimension, img, resize.Lanczos3)
	log.Printf("Downscaled %s image from %dx%d to %dx%d",
		format, bounds.Dx(), bounds.Dy(), resized.Bounds().Dx(), resized.Bounds().Dy())

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.JPEGQuality}); err != nil {
		return nil, false, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), true, nil
}

func detectImageMIME(data []byte) string {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return fallbackMIME
	}
	return mime.String()
}
