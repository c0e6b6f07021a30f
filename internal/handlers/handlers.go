package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Brownie44l1/geohint-api/internal/model"
	"github.com/Brownie44l1/geohint-api/internal/streetview"
	"github.com/Brownie44l1/geohint-api/internal/validator"
)

const (
	greeting      = "Welcome to the GeoHint API!"
	helloWorld    = "Hello, World!"
	haikuPrompt   = "Write a haiku about exploring an unfamiliar corner of the world. Reply with the haiku only."
	formMemory    = 10 << 20
	defaultLimit  = 10 << 20
	formFieldFile = "file"
	formFieldCtx  = "context"
)

type ImageValidator interface {
	Validate(ctx context.Context, req validator.UploadRequest) (*model.ValidationResult, error)
}

type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ImageFetcher interface {
	RandomImage(ctx context.Context) ([]byte, error)
}

type Options struct {
	MapStylePath   string
	MaxUploadBytes int64
}

type Handler struct {
	validator  ImageValidator
	textModel  TextModel
	streetView ImageFetcher
	options    Options
}

func NewHandler(imageValidator ImageValidator, textModel TextModel, streetView ImageFetcher, options Options) *Handler {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = defaultLimit
	}
	return &Handler{
		validator:  imageValidator,
		textModel:  textModel,
		streetView: streetView,
		options:    options,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, model.HealthResponse{Status: "healthy"})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, greeting)
}

func (h *Handler) HelloWorld(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, helloWorld)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	a, errA := strconv.Atoi(chi.URLParam(r, "a"))
	b, errB := strconv.Atoi(chi.URLParam(r, "b"))
	if err := errors.Join(errA, errB); err != nil {
		writeError(w, r, http.StatusBadRequest, "operands must be integers")
		return
	}
	if (b > 0 && a > math.MaxInt-b) || (b < 0 && a < math.MinInt-b) {
		writeError(w, r, http.StatusBadRequest, "result overflows integer range")
		return
	}
	render.JSON(w, r, model.AddResponse{Result: a + b})
}

func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusBadRequest, "upload too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, validator.ErrMissingInput.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := validator.UploadRequest{
		Context: firstValue(r.MultipartForm, formFieldCtx),
	}
	file, header, err := r.FormFile(formFieldFile)
	switch {
	case err == nil:
		defer file.Close()
		req.File = file
		req.Filename = header.Filename
		log.Printf("Received file: %s, size: %d bytes, context: %q", header.Filename, header.Size, req.Context)
	case !errors.Is(err, http.ErrMissingFile):
		writeError(w, r, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := h.validator.Validate(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("Image analysis error: %v", err)
		}
		writeError(w, r, status, err.Error())
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) Haiku(w http.ResponseWriter, r *http.Request) {
	haiku, err := h.textModel.Complete(r.Context(), haikuPrompt)
	if err != nil {
		log.Printf("Haiku generation error: %v", err)
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	render.JSON(w, r, model.HaikuResponse{Haiku: haiku})
}

func (h *Handler) RandomStreetView(w http.ResponseWriter, r *http.Request) {
	image, err := h.streetView.RandomImage(r.Context())
	if err != nil {
		log.Printf("Street view error: %v", err)
		message := "street view request failed"
		if errors.Is(err, streetview.ErrNoImagery) {
			message = streetview.ErrNoImagery.Error()
		}
		writeError(w, r, http.StatusInternalServerError, message)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

func (h *Handler) MapStyle(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.options.MapStylePath)
	if err != nil {
		log.Printf("Map style error: %v", err)
		writeError(w, r, http.StatusInternalServerError, "map style unavailable")
		return
	}
	if !json.Valid(data) {
		log.Printf("Map style at %s is not valid JSON", h.options.MapStylePath)
		writeError(w, r, http.StatusInternalServerError, "map style unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validator.ErrMissingInput), errors.Is(err, validator.ErrUnsupportedType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, model.ErrorResponse{Error: message})
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
