// Package oracle abstracts the language model that judges semantic
// differences. Backends return the model's raw text; decoding and span
// reconciliation happen in the diff domain.
package oracle

import (
	"context"
	stdliberrors "errors"

	"github.com/turtacn/ContextDiff/pkg/errors"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrOracleTimeout is returned when a single call exceeds its deadline.
	ErrOracleTimeout = stdliberrors.New("oracle call timed out")
	// ErrOracleRateLimited is returned when the provider throttles the caller.
	ErrOracleRateLimited = stdliberrors.New("oracle rate limited")
	// ErrOracleAPI covers transport failures and provider-side errors.
	ErrOracleAPI = stdliberrors.New("oracle api error")
	// ErrOracleResponseInvalid is returned when the provider answers with
	// nothing usable. It is never retried.
	ErrOracleResponseInvalid = stdliberrors.New("oracle response invalid")
	// ErrOracleUnavailable is returned once retries are exhausted or the
	// circuit breaker is open.
	ErrOracleUnavailable = stdliberrors.New("oracle unavailable")
	// ErrOracleNotConfigured is returned by the placeholder oracle used when
	// no provider credentials are configured.
	ErrOracleNotConfigured = stdliberrors.New("oracle not configured")
)

// TransientErrors lists the errors worth another attempt.
var TransientErrors = []error{ErrOracleTimeout, ErrOracleRateLimited, ErrOracleAPI}

// Request is a single oracle call.
type Request struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Oracle returns the raw model output for a request.
type Oracle interface {
	Analyze(ctx context.Context, req Request) (string, error)
	Name() string
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, req Request) (string, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Name implements Oracle.
func (Func) Name() string { return "func" }

// Code maps an oracle error to the application error code reported to
// callers. Exhausted retries report ErrCodeOracleUnavailable whatever the
// last cause was; a bare transient error keeps its own code.
func Code(err error) errors.ErrorCode {
	switch {
	case err == nil:
		return errors.CodeOK
	case stdliberrors.Is(err, ErrOracleNotConfigured):
		return errors.ErrCodeOracleNotConfigured
	case stdliberrors.Is(err, ErrOracleResponseInvalid):
		return errors.ErrCodeResponseInvalid
	case stdliberrors.Is(err, ErrOracleUnavailable):
		return errors.ErrCodeOracleUnavailable
	case stdliberrors.Is(err, ErrOracleRateLimited):
		return errors.ErrCodeOracleRateLimited
	case stdliberrors.Is(err, ErrOracleTimeout):
		return errors.ErrCodeOracleTimeout
	case stdliberrors.Is(err, ErrOracleAPI):
		return errors.ErrCodeOracleAPIError
	}
	return errors.CodeInternal
}

// Unconfigured is the oracle installed when no provider is configured. Every
// call fails with ErrOracleNotConfigured.
type Unconfigured struct{}

// Analyze implements Oracle.
func (Unconfigured) Analyze(context.Context, Request) (string, error) {
	return "", ErrOracleNotConfigured
}

// Name implements Oracle.
func (Unconfigured) Name() string { return "unconfigured" }
