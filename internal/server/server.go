// Package server assembles the realtime backend: REST entity CRUD, the
// token endpoint, and the websocket bridge into the hub.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/realsync/internal/server/auth"
	"github.com/iudanet/realsync/internal/server/handlers"
	"github.com/iudanet/realsync/internal/server/hub"
	"github.com/iudanet/realsync/internal/server/middleware"
	"github.com/iudanet/realsync/internal/server/storage"
)

// Config holds server configuration
type Config struct {
	Addr           string
	Version        string
	JWTSecret      []byte
	AccessTokenTTL time.Duration
}

// Server is the realtime backend HTTP server
type Server struct {
	logger *slog.Logger
	hub    *hub.Hub
	srv    *http.Server
}

// New creates a server wired to the given entity storage.
func New(logger *slog.Logger, cfg Config, st storage.EntityStorage) *Server {
	jwtConfig := auth.JWTConfig{
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	h := hub.New(logger)

	healthHandler := handlers.NewHealthHandler(logger, cfg.Version)
	tokenHandler := handlers.NewTokenHandler(logger, jwtConfig)
	entitiesHandler := handlers.NewEntitiesHandler(logger, st, h)
	wsHandler := handlers.NewWSHandler(logger, h, jwtConfig)

	authMW := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/token", tokenHandler.Token)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)

	mux.Handle("GET /api/v1/collections/{collection}/entities",
		authMW(http.HandlerFunc(entitiesHandler.List)))
	mux.Handle("POST /api/v1/collections/{collection}/entities",
		authMW(http.HandlerFunc(entitiesHandler.Create)))
	mux.Handle("GET /api/v1/collections/{collection}/entities/{id}",
		authMW(http.HandlerFunc(entitiesHandler.Get)))
	mux.Handle("PUT /api/v1/collections/{collection}/entities/{id}",
		authMW(http.HandlerFunc(entitiesHandler.Update)))
	mux.Handle("DELETE /api/v1/collections/{collection}/entities/{id}",
		authMW(http.HandlerFunc(entitiesHandler.Delete)))

	handler := middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(mux)

	return &Server{
		logger: logger,
		hub:    h,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Hub returns the server's pub/sub hub.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Handler returns the assembled HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
