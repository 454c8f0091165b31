package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func TestRequestLogging_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		level  string
		msg    string
	}{
		{"success", http.StatusOK, "info", "HTTP request completed"},
		{"client error", http.StatusBadRequest, "warn", "HTTP request completed with client error"},
		{"server error", http.StatusBadGateway, "error", "HTTP request completed with server error"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			logger := testutil.NewMockLogger()
			handler := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(tc.status))

			r := httptest.NewRequest(http.MethodPost, "/v1/compare", nil)
			r.Header.Set("X-Forwarded-For", "203.0.113.9")
			handler.ServeHTTP(httptest.NewRecorder(), r)

			msg, ok := logger.Find(tc.level, tc.msg)
			require.True(t, ok)
			status, _ := msg.Field("status")
			assert.Equal(t, tc.status, status)
			bytes, _ := msg.Field("bytes")
			assert.Equal(t, int64(4), bytes)
			ip, _ := msg.Field("client_ip")
			assert.Equal(t, "203.0.113.9", ip)
		})
	}
}

func TestRequestLogging_SlowRequest(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	})
	handler := RequestLogging(logger, LoggingConfig{SlowThreshold: time.Millisecond})(slow)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/compare", nil))
	assert.True(t, logger.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()
	handler := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, logger.GetMessages())
}

func TestRequestLogging_RequestID(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()
	handler := chimw.RequestID(RequestLogging(logger, DefaultLoggingConfig())(statusHandler(http.StatusOK)))

	r := httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil)
	r.Header.Set("X-Request-Id", "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	msg, ok := logger.Find("info", "HTTP request completed")
	require.True(t, ok)
	id, _ := msg.Field("request_id")
	assert.Equal(t, "req-42", id)
}

//Personal.AI order the ending
