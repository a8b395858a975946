package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cohort-retention/pkg/config"
	"cohort-retention/pkg/logging"
)

// Server owns the HTTP listener lifecycle.
type Server struct {
	httpServer *http.Server
}

func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.httpServer.Addr).Msg("starting http server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info().Msg("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
