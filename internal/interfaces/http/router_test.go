package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appDiff "github.com/turtacn/ContextDiff/internal/application/diff"
	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/handlers"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/middleware"
	"github.com/turtacn/ContextDiff/internal/testutil"
)

type emptyHistory struct{}

func (emptyHistory) Name() string                                                { return "memory" }
func (emptyHistory) Record(context.Context, *domainDiff.ComparisonRecord) error { return nil }
func (emptyHistory) FindByID(_ context.Context, id string) (*domainDiff.ComparisonRecord, error) {
	return &domainDiff.ComparisonRecord{ID: id}, nil
}
func (emptyHistory) List(context.Context, domainDiff.HistoryQuery) ([]*domainDiff.ComparisonRecord, error) {
	return []*domainDiff.ComparisonRecord{}, nil
}

func newTestRouter(t *testing.T, secret string, limiter *middleware.TokenBucketLimiter) http.Handler {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "contextdiff"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	stub := testutil.NewStubOracle(testutil.VerdictJSON(true, 0, "none"))
	svc := appDiff.NewService(appDiff.DefaultConfig(), stub,
		cache.NewTiered(cache.NewFingerprintCache(time.Hour, 10), nil, nil),
		appDiff.WithMetrics(metrics))

	cfg := RouterConfig{
		HealthHandler:     handlers.NewHealthHandler("test", svc),
		DiffHandler:       handlers.NewDiffHandler(svc, nil, 0),
		HistoryHandler:    handlers.NewHistoryHandler(emptyHistory{}, nil, nil),
		MetricsMiddleware: middleware.Metrics(metrics),
		CORSMiddleware:    middleware.CORS(middleware.DefaultCORSConfig()),
		LoggingMiddleware: middleware.RequestLogging(nil, middleware.DefaultLoggingConfig()),
		AuthMiddleware: middleware.RequireAccess(middleware.AuthConfig{
			APISecret:      secret,
			AllowedOrigins: []string{"https://app.contextdiff.io"},
		}, nil),
		MetricsCollector: collector,
	}
	if limiter != nil {
		cfg.RateLimitMiddleware = middleware.RateLimit(limiter, middleware.DefaultRateLimitConfig())
	}
	return NewRouter(cfg)
}

func do(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestNewRouter_RoutesRegistered(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "", nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/v1/compare", `{"original_text":"Same text.","generated_text":"Same text."}`, http.StatusOK},
		{http.MethodGet, "/v1/cache/stats", "", http.StatusOK},
		{http.MethodDelete, "/v1/cache", "", http.StatusOK},
		{http.MethodGet, "/v1/comparisons", "", http.StatusOK},
		{http.MethodGet, "/v1/comparisons/abc", "", http.StatusOK},
		{http.MethodGet, "/v1/comparisons/abc/report", "", http.StatusNotFound},
		{http.MethodGet, "/v1/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/v1/compare", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			t.Parallel()
			w := do(router, tc.method, tc.path, tc.body, nil)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestNewRouter_AuthGuardsV1Only(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "s3cret", nil)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/metrics", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/v1/cache/stats", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/v1/cache/stats", "",
		map[string]string{middleware.HeaderAPISecret: "s3cret"}).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/v1/cache/stats", "",
		map[string]string{"Origin": "https://app.contextdiff.io"}).Code)
}

func TestNewRouter_RateLimitSkipsHealth(t *testing.T) {
	t.Parallel()
	limiter := middleware.NewTokenBucketLimiter(1, 0, 0)
	router := newTestRouter(t, "", limiter)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/v1/cache/stats", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodGet, "/v1/cache/stats", "", nil).Code)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "", nil).Code)
	}
}

func TestNewRouter_CompareIdenticalTextsSkipsOracle(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "", nil)

	w := do(router, http.MethodPost, "/v1/compare", `{"original_text":"Same text.","generated_text":"Same text."}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(handlers.HeaderCache))
	assert.NotEmpty(t, w.Header().Get(handlers.HeaderComparisonID))
	assert.JSONEq(t, `{"summary":{"is_safe":true,"risk_score":0,"semantic_change_level":"NONE"},"changes":[]}`, w.Body.String())
}

func TestNewRouter_NilHandlersNoPanic(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		router := NewRouter(RouterConfig{})
		w := do(router, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

//Personal.AI order the ending
