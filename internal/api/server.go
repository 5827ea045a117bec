// Package api serves the matcher and the scorer over JSON HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledgercheck/internal/config"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

// Server is the HTTP API server.
type Server struct {
	cfg        config.Config
	router     chi.Router
	httpServer *http.Server
	logger     *logrus.Logger
	runs       *runlog.Log
}

// NewServer creates a server using cfg for request defaults and limits.
// runs may be nil to skip the run log.
func NewServer(cfg *config.Config, runs *runlog.Log, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		cfg:    *cfg,
		router: chi.NewRouter(),
		logger: logger,
		runs:   runs,
	}

	s.router.Use(chimw.Recoverer)
	s.router.Use(runIDMiddleware)
	s.router.Use(requestLogger(s.logger))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Post("/reconcile", s.handleReconcile)
		r.Post("/reconcile/suggest", s.handleSuggest)
		r.Post("/anomalies", s.handleAnomalies)
	})

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens on the configured address until Shutdown. It returns nil at
// once if Shutdown already ran.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.cfg.Server.Addr).Info("starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
