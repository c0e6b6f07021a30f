package validator

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/geohint-api/internal/imaging"
	"github.com/Brownie44l1/geohint-api/internal/storage"
)

type fakeVisionModel struct {
	reply  string
	err    error
	calls  int
	prompt string
	image  string
	onCall func()
}

func (f *fakeVisionModel) DescribeImage(_ context.Context, prompt, imageURL string) (string, error) {
	f.calls++
	f.prompt = prompt
	f.image = imageURL
	if f.onCall != nil {
		f.onCall()
	}
	return f.reply, f.err
}

func newValidator(t *testing.T, fake *fakeVisionModel) (*Validator, string) {
	t.Helper()
	dir := t.TempDir()
	stager, err := storage.NewStager(dir)
	require.NoError(t, err)
	return New(fake, imaging.NewPreprocessor(0), stager), dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged upload left on disk")
}

func TestValidateDescription(t *testing.T) {
	fake := &fakeVisionModel{reply: "Sahara or Arabian Peninsula"}
	v, dir := newValidator(t, fake)
	fake.onCall = func() {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	}

	result, err := v.Validate(context.Background(), UploadRequest{
		Filename: "dune.jpg",
		File:     strings.NewReader("jpeg bytes"),
		Context:  "a desert landscape",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Description)
	assert.Equal(t, "Sahara or Arabian Peninsula", *result.Description)

	assert.Equal(t, 1, fake.calls)
	assert.Contains(t, fake.prompt, "represents a desert landscape.")
	assert.Contains(t, fake.prompt, "'INVALID'")
	assert.True(t, strings.HasPrefix(fake.image, "data:image/jpeg;base64,"))
	assertDirEmpty(t, dir)
}

func TestValidateInvalidClassification(t *testing.T) {
	fake := &fakeVisionModel{reply: "INVALID"}
	v, dir := newValidator(t, fake)

	result, err := v.Validate(context.Background(), UploadRequest{
		Filename: "beach.jpg",
		File:     strings.NewReader("jpeg bytes"),
		Context:  "a desert landscape",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Description)
	assertDirEmpty(t, dir)
}

func TestValidateUpstreamFailure(t *testing.T) {
	fake := &fakeVisionModel{err: errors.New("dial tcp: connection refused")}
	v, dir := newValidator(t, fake)

	result, err := v.Validate(context.Background(), UploadRequest{
		Filename: "dune.png",
		File:     strings.NewReader("png bytes"),
		Context:  "a desert landscape",
	})
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "connection refused")
	assertDirEmpty(t, dir)
}

func TestValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		req     UploadRequest
		wantErr error
	}{
		{"missing file", UploadRequest{Filename: "a.jpg", Context: "a desert"}, ErrMissingInput},
		{"missing context", UploadRequest{Filename: "a.jpg", File: strings.NewReader("x")}, ErrMissingInput},
		{"blank context", UploadRequest{Filename: "a.jpg", File: strings.NewReader("x"), Context: "  "}, ErrMissingInput},
		{"empty filename", UploadRequest{File: strings.NewReader("x"), Context: "a desert"}, ErrMissingInput},
		{"gif", UploadRequest{Filename: "a.gif", File: strings.NewReader("x"), Context: "a desert"}, ErrUnsupportedType},
		{"no extension", UploadRequest{Filename: "jpg", File: strings.NewReader("x"), Context: "a desert"}, ErrUnsupportedType},
		{"disguised", UploadRequest{Filename: "a.jpg.exe", File: strings.NewReader("x"), Context: "a desert"}, ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeVisionModel{reply: "anything"}
			v, dir := newValidator(t, fake)

			_, err := v.Validate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, fake.calls)
			assertDirEmpty(t, dir)
		})
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		reply string
		want  *string
	}{
		{"INVALID", nil},
		{"invalid", nil},
		{"  Invalid\n", nil},
		{"Sub-Saharan grasslands", ptr("Sub-Saharan grasslands")},
		{"INVALID region", ptr("INVALID region")},
		{" Andes foothills ", ptr(" Andes foothills ")},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got := Interpret(tt.reply)
			assert.Equal(t, tt.want, got.Description)
		})
	}
}

func TestAllowedFile(t *testing.T) {
	assert.True(t, AllowedFile("a.png"))
	assert.True(t, AllowedFile("a.JPG"))
	assert.True(t, AllowedFile("archive.tar.jpeg"))
	assert.False(t, AllowedFile("a.webp"))
	assert.False(t, AllowedFile("png"))
}

func ptr(s string) *string {
	return &s
}
