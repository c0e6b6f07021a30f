// Package validator checks that an uploaded image matches a caller-supplied context and asks a vision model
// for a short geographic hint about it.
package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/Brownie44l1/geohint-api/internal/model"
	"github.com/Brownie44l1/geohint-api/internal/storage"
)

const invalidToken = "INVALID"

const promptTemplate = "First, determine if this image represents %s. " +
	"If yes, describe what region(s) of the world would typically have architecture, vegetation, " +
	"or features like this in 1 short phrase (do not include yes or no). If no, respond with '" + invalidToken + "'."

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

var (
	ErrMissingInput    = errors.New("no file or context provided")
	ErrUnsupportedType = errors.New("invalid file type")
	ErrUpstreamFailure = errors.New("vision model request failed")
)

// VisionModel is satisfied by *model.Server.
type VisionModel interface {
	DescribeImage(ctx context.Context, prompt, imageURL string) (string, error)
}

// Encoder turns staged bytes into the image reference sent upstream.
type Encoder interface {
	DataURI(data []byte) (string, error)
}

type UploadRequest struct {
	Filename string
	File     io.Reader
	Context  string
}

type Validator struct {
	model   VisionModel
	encoder Encoder
	stager  *storage.Stager
}

func New(visionModel VisionModel, encoder Encoder, stager *storage.Stager) *Validator {
	return &Validator{
		model:   visionModel,
		encoder: encoder,
		stager:  stager,
	}
}

func (v *Validator) Validate(ctx context.Context, req UploadRequest) (*model.ValidationResult, error) {
	if err := checkInput(req); err != nil {
		return nil, err
	}

	staged, err := v.stager.Stage(req.Filename, req.File)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := staged.Release(); err != nil {
			log.Printf("Failed to remove staged file %s: %v", staged.Path(), err)
		}
	}()

	data, err := staged.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}
	imageURL, err := v.encoder.DataURI(data)
	if err != nil {
		return nil, err
	}

	reply, err := v.model.DescribeImage(ctx, BuildPrompt(req.Context), imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}
	log.Printf("Vision model reply for %q: %q", req.Context, reply)

	return Interpret(reply), nil
}

func BuildPrompt(contextText string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(contextText))
}

// Interpret maps the raw model reply to a result. The INVALID token is matched loosely; anything else is
// returned verbatim.
func Interpret(reply string) *model.ValidationResult {
	if strings.EqualFold(strings.TrimSpace(reply), invalidToken) {
		return &model.ValidationResult{}
	}
	return &model.ValidationResult{Description: &reply}
}

func checkInput(req UploadRequest) error {
	if req.File == nil || strings.TrimSpace(req.Context) == "" {
		return ErrMissingInput
	}
	if req.Filename == "" {
		return fmt.Errorf("%w: no selected file", ErrMissingInput)
	}
	if !AllowedFile(req.Filename) {
		return ErrUnsupportedType
	}
	return nil
}

// AllowedFile reports whether filename carries one of the accepted image extensions.
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return allowedExtensions[strings.ToLower(ext)]
}
