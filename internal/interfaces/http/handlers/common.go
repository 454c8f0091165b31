package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/middleware"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse = middleware.ErrorResponse

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps err to its status and writes the error body. Server-side
// failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	status, body := middleware.ErrorResponseFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String("code", body.Code),
			logging.Err(err))
	}
	writeJSON(w, status, body)
}

// parseIntQuery reads a non-negative integer query parameter.
func parseIntQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidParam(name + " must be a non-negative integer").WithDetail("got " + strconv.Quote(v))
	}
	return n, nil
}

//Personal.AI order the ending
