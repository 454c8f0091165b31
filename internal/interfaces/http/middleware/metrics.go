package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts, latencies and in-flight requests. Routes
// are labelled by their chi pattern so path parameters do not explode
// cardinality; unmatched requests are labelled "unmatched".
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			active := m.HTTPActiveRequests.WithLabelValues()
			active.Inc()
			defer active.Dec()

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			prometheus.RecordHTTPRequest(m, r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
