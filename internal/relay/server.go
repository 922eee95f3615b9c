package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/scriptbridge/scriptbridge/internal/config"
)

// Server wraps the relay's HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates and configures the relay server.
func NewServer(cfg *config.Config, queue *Queue, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Relay.Addr(),
			Handler:      NewRouter(queue, cfg, logger),
			ReadTimeout:  cfg.Relay.GetReadTimeout(),
			WriteTimeout: cfg.Relay.GetWriteTimeout(),
		},
		logger: logger.With(slog.String("component", "relay")),
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("Relay listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Relay shutting down")
	return s.httpServer.Shutdown(ctx)
}
