package relay

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/scriptbridge/scriptbridge/internal/config"
)

// NewRouter creates and configures the relay router
func NewRouter(queue *Queue, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recovery(logger))
	r.Use(Logger(logger))
	r.Use(chimw.StripSlashes)

	// CORS (if enabled)
	if cfg.CORS.Enabled {
		r.Use(CORS(
			cfg.CORS.AllowedOrigins,
			cfg.CORS.AllowedMethods,
			cfg.CORS.AllowedHeaders,
			cfg.CORS.MaxAgeSeconds,
		))
	}

	h := NewHandler(queue, cfg, logger)

	// Bridge-facing wire contract
	r.Get("/ping", h.Ping)
	r.Get("/", h.FetchScript)
	r.Post("/", h.ReportOutput)

	// Producer-facing endpoints
	r.Post("/submit", h.Submit)
	r.Get("/status", h.Status)

	return r
}
