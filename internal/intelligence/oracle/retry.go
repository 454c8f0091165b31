package oracle

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// RetryPolicy governs how failed oracle calls are retried.
type RetryPolicy struct {
	MaxAttempts       int           `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `json:"initial_backoff" yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	CallTimeout       time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`
	RetryableErrors   []error       `json:"-" yaml:"-" mapstructure:"-"`
}

// DefaultRetryPolicy returns three attempts with exponential back-off from
// 2s to 10s, a 25s per-attempt timeout, and the transient errors retryable.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		CallTimeout:       25 * time.Second,
		RetryableErrors:   TransientErrors,
	}
}

// shouldRetry decides whether err is eligible for another attempt.
func shouldRetry(err error, policy RetryPolicy) bool {
	if err == nil {
		return false
	}
	// With no explicit list every error is retryable.
	if len(policy.RetryableErrors) == 0 {
		return true
	}
	for _, re := range policy.RetryableErrors {
		if stdliberrors.Is(err, re) {
			return true
		}
	}
	return false
}

// calculateBackoff returns the delay before the attempt-th retry using
// exponential back-off with ±25% jitter, capped at MaxBackoff.
func calculateBackoff(attempt int, policy RetryPolicy) time.Duration {
	if policy.InitialBackoff <= 0 {
		return 0
	}
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	base := float64(policy.InitialBackoff) * math.Pow(multiplier, float64(attempt))
	if policy.MaxBackoff > 0 && base > float64(policy.MaxBackoff) {
		base = float64(policy.MaxBackoff)
	}
	jitter := base * 0.25 * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// RetryOption configures a retrying oracle.
type RetryOption func(*retrying)

// WithRetryLogger sets the logger used to report failed attempts.
func WithRetryLogger(l logging.Logger) RetryOption {
	return func(r *retrying) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOnRetry registers a callback invoked before every retry.
func WithOnRetry(fn func(attempt int, err error)) RetryOption {
	return func(r *retrying) { r.onRetry = fn }
}

type retrying struct {
	next    Oracle
	policy  RetryPolicy
	logger  logging.Logger
	onRetry func(attempt int, err error)
}

// Retrying wraps next with bounded retries. Each attempt runs under
// policy.CallTimeout; an attempt that hits it fails with ErrOracleTimeout.
// Non-retryable errors are returned at once. When attempts run out the error
// wraps both ErrOracleUnavailable and the last cause.
func Retrying(next Oracle, policy RetryPolicy, opts ...RetryOption) Oracle {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	r := &retrying{next: next, policy: policy, logger: logging.NewNopLogger()}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Unwrap() Oracle { return r.next }

func (r *retrying) Analyze(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if r.onRetry != nil {
				r.onRetry(attempt, lastErr)
			}
			if err := sleep(ctx, calculateBackoff(attempt-1, r.policy)); err != nil {
				return "", err
			}
		}

		out, err := r.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		r.logger.Warn("oracle attempt failed",
			logging.String("oracle", r.next.Name()),
			logging.String("model", req.Model),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", r.policy.MaxAttempts),
			logging.Err(err))
		if !shouldRetry(err, r.policy) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrOracleUnavailable, r.policy.MaxAttempts, lastErr)
}

func (r *retrying) attempt(ctx context.Context, req Request) (string, error) {
	if r.policy.CallTimeout <= 0 {
		return r.next.Analyze(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.policy.CallTimeout)
	defer cancel()

	out, err := r.next.Analyze(callCtx, req)
	if err != nil && ctx.Err() == nil && stdliberrors.Is(callCtx.Err(), context.DeadlineExceeded) && !stdliberrors.Is(err, ErrOracleTimeout) {
		err = fmt.Errorf("%w: %w", ErrOracleTimeout, err)
	}
	return out, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
