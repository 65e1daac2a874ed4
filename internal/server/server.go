// Package server exposes the catalog over HTTP: ingest and preview,
// mix/artist/category reads, streaming redirects, reconciliation, and
// the operational endpoints (health, storage health, metrics, local
// blob serving).
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/ingest"
	"crate/internal/logging"
	"crate/internal/metrics"
	"crate/internal/reconcile"
	"crate/internal/storage"
)

// Version is stamped at build time.
var Version = "dev"

// Server is the catalog HTTP API.
type Server struct {
	bind       string
	cfg        *config.Config
	store      *catalog.Store
	pipeline   *ingest.Pipeline
	writer     *storage.Writer
	local      *storage.LocalTier
	reconciler *reconcile.Service
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds the server and its router.
func New(cfg *config.Config, store *catalog.Store, pipeline *ingest.Pipeline, writer *storage.Writer, local *storage.LocalTier, reconciler *reconcile.Service, logger *slog.Logger) *Server {
	s := &Server{
		bind:       strings.TrimSpace(cfg.Server.Bind),
		cfg:        cfg,
		store:      store,
		pipeline:   pipeline,
		writer:     writer,
		local:      local,
		reconciler: reconciler,
		logger:     logging.NewComponentLogger(logger, "api-server"),
	}

	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(requestLogger(s.logger))
	router.Use(metrics.Middleware(chiRoutePattern))
	router.Use(chimiddleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/mixes", s.handleIngest)
		r.Post("/mixes/preview", s.handlePreview)
		r.Get("/mixes", s.handleListMixes)
		r.Get("/mixes/{id}", s.handleGetMix)
		r.Delete("/mixes/{id}", s.handleDeleteMix)
		r.Get("/mixes/{id}/stream", s.handleStream)

		r.Get("/artists", s.handleListArtists)
		r.Get("/artists/{id}/mixes", s.handleArtistMixes)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)

		r.Get("/reconcile/orphans", s.handleOrphans)
		r.Post("/reconcile/cleanup", s.handleCleanup)
		r.Delete("/files/local/{id}", s.handleDeleteLocalFile)

		r.Get("/stats", s.handleStats)
		r.Get("/storage/health", s.handleStorageHealth)
	})

	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	prefix := s.cfg.Storage.UploadPrefix
	fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.Paths.LibraryDir)))
	router.Get(prefix+"/*", fileServer.ServeHTTP)

	return router
}

// chiRoutePattern resolves the matched route template for metric
// labels, keeping ID segments out of the label set.
func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

// Start binds the listener and serves in the background until ctx is
// canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
