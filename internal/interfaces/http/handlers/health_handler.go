package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
)

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.ComponentName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// EngineStatus exposes the comparison engine's state. The diff service
// implements it.
type EngineStatus interface {
	CacheStats() cache.TieredStats
	OracleConfigured() bool
}

// HealthHandler serves the health and readiness endpoints.
type HealthHandler struct {
	engine   EngineStatus
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, engine EngineStatus, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		engine:   engine,
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string                    `json:"status"`
	Version          string                    `json:"version"`
	Uptime           string                    `json:"uptime"`
	OracleConfigured bool                      `json:"oracle_configured"`
	CacheStats       cache.TieredStats         `json:"cache_stats"`
	Components       map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck is the health of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Health handles GET /health. It always answers 200 while the process
// serves; failing dependencies turn the status to "degraded".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components := h.checkAll(ctx)
	resp := HealthResponse{
		Status:     "healthy",
		Version:    h.version,
		Uptime:     time.Since(h.startAt).Truncate(time.Second).String(),
		Components: components,
	}
	if h.engine != nil {
		resp.OracleConfigured = h.engine.OracleConfigured()
		resp.CacheStats = h.engine.CacheStats()
	}
	if !allHealthy(components) {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness handles GET /ready: 200 when the oracle is configured and every
// dependency is healthy, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components := h.checkAll(ctx)
	ready := allHealthy(components) && (h.engine == nil || h.engine.OracleConfigured())

	resp := struct {
		Status     string                    `json:"status"`
		Components map[string]ComponentCheck `json:"components,omitempty"`
	}{Status: "ready", Components: components}

	if !ready {
		resp.Status = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func allHealthy(components map[string]ComponentCheck) bool {
	for _, c := range components {
		if c.Status != "healthy" {
			return false
		}
	}
	return true
}

// checkAll runs all checkers concurrently.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	if len(h.checkers) == 0 {
		return nil
	}
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			cc := ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}

			mu.Lock()
			results[c.Name()] = cc
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

//Personal.AI order the ending
