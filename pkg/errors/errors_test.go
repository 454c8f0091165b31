package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"response invalid", errors.ErrCodeResponseInvalid, "oracle returned malformed JSON"},
		{"invalid param", errors.CodeInvalidParam, "original_text must not be empty"},
		{"rate limit", errors.CodeRateLimit, "too many requests"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeTextTooLong, "text too long").WithDetail("original_text")
	assert.Equal(t, "[DIFF_006] text too long: original_text", ae.Error())

	wrapped := errors.Wrap(fmt.Errorf("boom"), errors.ErrCodeOracleAPIError, "oracle failed")
	assert.Equal(t, "[DIFF_004] oracle failed: boom", wrapped.Error())
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "unused"))
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	t.Parallel()

	sentinel := stderrors.New("deadline")
	err := errors.Wrap(sentinel, errors.ErrCodeOracleTimeout, "oracle call timed out")

	assert.True(t, stderrors.Is(err, sentinel))
	assert.True(t, errors.IsCode(err, errors.ErrCodeOracleTimeout))
	assert.Equal(t, errors.ErrCodeOracleTimeout, errors.GetCode(err))
}

func TestWrap_UnknownCodeKeepsInnerCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeResponseInvalid, "bad json")
	outer := errors.Wrap(inner, errors.CodeUnknown, "chunk 2")

	assert.Equal(t, errors.ErrCodeResponseInvalid, errors.GetCode(outer))
}

func TestIsCode_SearchesNestedAppErrors(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeOracleRateLimited, "429")
	outer := errors.Wrap(inner, errors.ErrCodeOracleUnavailable, "retries exhausted")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeOracleUnavailable))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeOracleRateLimited))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeResponseInvalid))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.CodeInternal))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeInternal, errors.GetCode(errors.Internal("x")))
}

func TestWithDetail_NilSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.InvalidParam("bad sensitivity")
	derived := base.WithDetail("got \"extreme\"")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "got \"extreme\"", derived.Detail)
}

// ─────────────────────────────────────────────────────────────────────────────
// Codes
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPStatusForCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   errors.ErrorCode
		status int
	}{
		{errors.ErrCodeOracleUnavailable, http.StatusServiceUnavailable},
		{errors.ErrCodeOracleRateLimited, http.StatusServiceUnavailable},
		{errors.ErrCodeOracleTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeOracleAPIError, http.StatusBadGateway},
		{errors.ErrCodeResponseInvalid, http.StatusInternalServerError},
		{errors.ErrCodeTextTooLong, http.StatusRequestEntityTooLarge},
		{errors.ErrCodeQuotaExceeded, http.StatusPaymentRequired},
		{errors.CodeInvalidParam, http.StatusBadRequest},
		{errors.ErrorCode("NOPE_999"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.code), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.status, errors.HTTPStatusForCode(tc.code))
		})
	}
}

func TestClientServerClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsClientError(errors.ErrCodeTextTooLong))
	assert.False(t, errors.IsServerError(errors.ErrCodeTextTooLong))
	assert.True(t, errors.IsServerError(errors.ErrCodeOracleUnavailable))
	assert.Equal(t, "DIFF", errors.ModuleForCode(errors.ErrCodeResponseInvalid))
	assert.Equal(t, "COMMON", errors.ModuleForCode(errors.CodeInternal))
	assert.Equal(t, "unknown error", errors.DefaultMessageForCode("NOPE"))
}

//Personal.AI order the ending
