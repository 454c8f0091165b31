// Package http exposes the comparison engine over REST.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/handlers"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// RouterConfig holds the handlers and middleware the router mounts. Nil
// entries are skipped.
type RouterConfig struct {
	// Handlers
	HealthHandler  *handlers.HealthHandler
	DiffHandler    *handlers.DiffHandler
	HistoryHandler *handlers.HistoryHandler

	// Middleware, applied in this order after request ID and recovery.
	MetricsMiddleware   Middleware
	CORSMiddleware      Middleware
	LoggingMiddleware   Middleware
	RateLimitMiddleware Middleware
	// AuthMiddleware guards the /v1 routes only.
	AuthMiddleware Middleware

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the route tree:
//
//	GET    /health                        public
//	GET    /ready                         public
//	GET    /metrics                       public
//	POST   /v1/compare
//	GET    /v1/cache/stats
//	DELETE /v1/cache
//	GET    /v1/comparisons
//	GET    /v1/comparisons/{id}
//	GET    /v1/comparisons/{id}/report
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	for _, mw := range []Middleware{
		cfg.MetricsMiddleware,
		cfg.CORSMiddleware,
		cfg.LoggingMiddleware,
		cfg.RateLimitMiddleware,
	} {
		if mw != nil {
			r.Use(mw)
		}
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Health)
		r.Get("/ready", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware)
		}
		registerDiffRoutes(api, cfg.DiffHandler)
		registerHistoryRoutes(api, cfg.HistoryHandler)
	})

	return r
}

func registerDiffRoutes(r chi.Router, h *handlers.DiffHandler) {
	if h == nil {
		return
	}
	r.Post("/compare", h.Compare)
	r.Get("/cache/stats", h.CacheStats)
	r.Delete("/cache", h.ClearCache)
}

func registerHistoryRoutes(r chi.Router, h *handlers.HistoryHandler) {
	if h == nil {
		return
	}
	r.Route("/comparisons", func(cr chi.Router) {
		cr.Get("/", h.List)
		cr.Route("/{id}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Get("/report", h.Report)
		})
	})
}

//Personal.AI order the ending
