// Package server exposes the scheduler and execution history over a
// REST API.
package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/goflux/internal/config"
	"github.com/me/goflux/internal/history"
	"github.com/me/goflux/internal/scheduler"
	"github.com/me/goflux/pkg/model"
)

// Server is the goflux REST API server. It owns the item channels that
// feed HTTP-registered sources into the Manager.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	manager   *scheduler.Manager
	store     history.Store

	mu    sync.Mutex
	feeds map[model.SourceID]*sourceFeed
}

// sourceFeed is the producer side of one HTTP-registered source.
// Closed feeds stay in the map until the Manager drains the source;
// pushing to them is a conflict, not a panic.
type sourceFeed struct {
	name   string
	items  chan scheduler.SourceItem
	closed bool
}

// New creates a Server with all routes registered. The manager must
// already be started before requests arrive.
func New(cfg config.ServerConfig, st history.Store, mgr *scheduler.Manager, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		manager:   mgr,
		store:     st,
		feeds:     make(map[model.SourceID]*sourceFeed),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		// Discovery
		r.Get("/", s.handleDiscovery)

		// Health
		r.Get("/health", s.handleHealth)

		// Sources
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/", s.handleCreateSource)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSource)
				r.Post("/jobs", s.handlePushJob)
				r.Delete("/", s.handleCloseSource)
			})
		})

		// Execution history
		r.Route("/executions", func(r chi.Router) {
			r.Get("/", s.handleListExecutions)
			r.Get("/{id}", s.handleGetExecution)
		})

		// SSE feed of execution records
		r.Route("/sse", func(r chi.Router) {
			r.Get("/executions", s.handleSSEExecutions)
		})
	})
}
