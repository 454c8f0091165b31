package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/turtacn/ContextDiff/pkg/errors"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponseFor maps err to its HTTP status and response body. Errors
// that are not AppErrors are reported as internal errors without their
// text.
func ErrorResponseFor(err error) (int, ErrorResponse) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{
			Code:    errors.ErrCodeInternal.String(),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		}
	}

	status := errors.HTTPStatusForCode(appErr.Code)
	resp := ErrorResponse{
		Code:    appErr.Code.String(),
		Message: appErr.Message,
	}
	if resp.Message == "" {
		resp.Message = errors.DefaultMessageForCode(appErr.Code)
	}
	if status < http.StatusInternalServerError {
		resp.Detail = appErr.Detail
	}
	return status, resp
}

func writeError(w http.ResponseWriter, err error) {
	status, body := ErrorResponseFor(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
