package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Brownie44l1/geohint-api/internal/config"
	"github.com/Brownie44l1/geohint-api/internal/handlers"
	"github.com/Brownie44l1/geohint-api/internal/imaging"
	"github.com/Brownie44l1/geohint-api/internal/model"
	"github.com/Brownie44l1/geohint-api/internal/storage"
	"github.com/Brownie44l1/geohint-api/internal/streetview"
	"github.com/Brownie44l1/geohint-api/internal/validator"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	modelServer, err := model.NewServer(model.Settings{
		APIKey:      cfg.GetString(config.KeyOpenAIAPIKey),
		BaseURL:     cfg.GetString(config.KeyOpenAIBaseURL),
		VisionModel: cfg.GetStringOrDefault(config.KeyVisionModel, "gpt-4o-mini"),
		TextModel:   cfg.GetStringOrDefault(config.KeyTextModel, "gpt-4o-mini"),
		MaxTokens:   cfg.GetIntOrDefault(config.KeyMaxTokens, 100),
	}, cfg.GetDurationOrDefault(config.KeyModelTimeout, 30*time.Second))
	if err != nil {
		log.Fatalf("Failed to initialize model server: %v", err)
	}

	uploadDir := cfg.GetStringOrDefault(config.KeyUploadDir, "uploads")
	stager, err := storage.NewStager(uploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	preprocessor := imaging.NewPreprocessor(uint(cfg.GetIntOrDefault(config.KeyMaxImageDimension, 2048)))
	imageValidator := validator.New(modelServer, preprocessor, stager)

	streetViewClient := streetview.NewClient(
		cfg.GetString(config.KeyGoogleMapsAPIKey),
		streetview.WithBaseURL(cfg.GetString(config.KeyStreetViewBaseURL)),
		streetview.WithMaxAttempts(cfg.GetIntOrDefault(config.KeyStreetViewMaxAttempts, streetview.DefaultMaxAttempts)),
		streetview.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	)

	handler := handlers.NewHandler(imageValidator, modelServer, streetViewClient, handlers.Options{
		MapStylePath:   cfg.GetStringOrDefault(config.KeyMapStylePath, "map-style.json"),
		MaxUploadBytes: int64(cfg.GetIntOrDefault(config.KeyMaxUploadBytes, 10<<20)),
	})
	router := handlers.NewRouter(handler)

	port := strconv.Itoa(cfg.GetIntOrDefault(config.KeyPort, 5000))

	log.Printf("Server starting on port %s", port)
	log.Printf("Vision model: %s, uploads staged in: %s", modelServer.Settings.VisionModel, stager.Dir())
	log.Println("Endpoints:")
	log.Println("  GET  /health                  - Health check")
	log.Println("  POST /analyze-image           - Validate an image against a context and get a hint")
	log.Println("  GET  /api/v1/hello-world      - Greeting")
	log.Println("  GET  /api/v1/add/{a}/{b}      - Integer addition")
	log.Println("  GET  /random-street-view      - Random Street View JPEG")
	log.Println("  GET  /haiku                   - Haiku from the text model")
	log.Println("  GET  /api/map-style           - Static map style JSON")
	log.Printf("Upload test: curl -X POST -F \"file=@dune.jpg\" -F \"context=a desert landscape\" http://localhost:%s/analyze-image", port)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
