// Package server implements the silversmith HTTP API server.
package server

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	_ "github.com/lakecraft/silversmith/internal/metrics"
	"github.com/lakecraft/silversmith/internal/state"
	"github.com/lakecraft/silversmith/internal/strategy"
	"github.com/lakecraft/silversmith/pkg/types"
)

// Runner triggers consolidation runs. *ingest.Coordinator satisfies it.
type Runner interface {
	Run(ctx context.Context, day time.Time) (types.RunReport, error)
	RunTables(ctx context.Context, day time.Time, tables []string) (types.RunReport, error)
}

// Server is the silversmith HTTP API server.
type Server struct {
	runner   Runner
	registry *strategy.Registry
	store    state.Store
	logger   *slog.Logger
	router   chi.Router
	addr     string
	srv      *http.Server
}

// New creates a new HTTP server.
func New(addr string, runner Runner, registry *strategy.Registry, store state.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runner:   runner,
		registry: registry,
		store:    store,
		logger:   logger,
		addr:     addr,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	s.router = r
	s.registerRoutes(r)
	return s
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{table}", s.handleGetTable)

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)

		r.Get("/watermarks", s.handleListWatermarks)

		r.Post("/ingest", s.handleIngest)
	})

	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // ingest runs respond synchronously
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("server listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
