package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "contextdiff"}, nil)
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/v1/comparisons/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/comparisons/"+id, nil))
	}

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `contextdiff_http_requests_total{method="GET",route="/v1/comparisons/{id}",status="404"} 3`)
	assert.Contains(t, string(body), "contextdiff_http_active_requests 0")
}

func TestMetrics_NilPassesThrough(t *testing.T) {
	t.Parallel()
	h := okHandler()
	w := httptest.NewRecorder()
	Metrics(nil)(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
