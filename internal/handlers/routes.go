package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter wires every endpoint onto a chi router.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/", h.Index)
	r.Get("/health", h.Health)
	r.Get("/api/v1/hello-world", h.HelloWorld)
	r.Get("/api/v1/add/{a:-?[0-9]+}/{b:-?[0-9]+}", h.Add)
	r.Get("/api/map-style", h.MapStyle)
	r.Get("/random-street-view", h.RandomStreetView)
	r.Get("/haiku", h.Haiku)
	r.Post("/analyze-image", h.AnalyzeImage)

	return r
}
