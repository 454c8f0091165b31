package oracle

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int32

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}

// BreakerConfig configures a circuit breaker. A non-positive Threshold
// disables it.
type BreakerConfig struct {
	Threshold    int           `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	OpenDuration time.Duration `json:"open_duration" yaml:"open_duration" mapstructure:"open_duration"`
}

// Breaker fails calls fast with ErrOracleUnavailable after Threshold
// consecutive failures. After OpenDuration a single probe is let through;
// its success closes the breaker and its failure reopens it.
type Breaker struct {
	next             Oracle
	state            atomic.Int32
	consecutiveFails atomic.Int32
	threshold        int32
	openDuration     time.Duration
	lastOpenTime     atomic.Int64
	halfOpenPermits  atomic.Int32
	logger           logging.Logger
	onStateChange    func(from, to BreakerState)
	now              func() time.Time
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger sets the logger for state transitions.
func WithBreakerLogger(l logging.Logger) BreakerOption {
	return func(b *Breaker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStateChangeHook registers a callback for state transitions.
func WithStateChangeHook(fn func(from, to BreakerState)) BreakerOption {
	return func(b *Breaker) { b.onStateChange = fn }
}

// withClock replaces time.Now; used by tests.
func withClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Oracle, cfg BreakerConfig, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		next:         next,
		threshold:    int32(cfg.Threshold),
		openDuration: cfg.OpenDuration,
		logger:       logging.NewNopLogger(),
		now:          time.Now,
	}
	b.state.Store(int32(BreakerClosed))
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name implements Oracle.
func (b *Breaker) Name() string { return b.next.Name() }

// Unwrap returns the wrapped oracle.
func (b *Breaker) Unwrap() Oracle { return b.next }

// State returns the current state.
func (b *Breaker) State() BreakerState { return BreakerState(b.state.Load()) }

// Analyze implements Oracle.
func (b *Breaker) Analyze(ctx context.Context, req Request) (string, error) {
	if !b.allow() {
		return "", fmt.Errorf("%w: circuit breaker is open", ErrOracleUnavailable)
	}
	out, err := b.next.Analyze(ctx, req)
	switch {
	case err == nil:
		b.recordSuccess()
	case ctx.Err() != nil:
		// Caller cancellation says nothing about the provider. A cancelled
		// half-open probe hands its permit back so the next call can probe.
		if BreakerState(b.state.Load()) == BreakerHalfOpen {
			b.halfOpenPermits.Store(1)
		}
	default:
		b.recordFailure()
	}
	return out, err
}

func (b *Breaker) allow() bool {
	if b.threshold <= 0 {
		return true
	}
	switch BreakerState(b.state.Load()) {
	case BreakerClosed:
		return true
	case BreakerOpen:
		openedAt := time.Unix(0, b.lastOpenTime.Load())
		if b.now().Sub(openedAt) < b.openDuration {
			return false
		}
		if b.state.CompareAndSwap(int32(BreakerOpen), int32(BreakerHalfOpen)) {
			b.halfOpenPermits.Store(1)
			b.transition(BreakerOpen, BreakerHalfOpen)
		}
		return b.halfOpenPermits.Add(-1) >= 0
	case BreakerHalfOpen:
		return b.halfOpenPermits.Add(-1) >= 0
	}
	return false
}

func (b *Breaker) recordSuccess() {
	if b.threshold <= 0 {
		return
	}
	b.consecutiveFails.Store(0)
	if b.state.CompareAndSwap(int32(BreakerHalfOpen), int32(BreakerClosed)) {
		b.transition(BreakerHalfOpen, BreakerClosed)
	}
}

func (b *Breaker) recordFailure() {
	if b.threshold <= 0 {
		return
	}
	fails := b.consecutiveFails.Add(1)
	switch BreakerState(b.state.Load()) {
	case BreakerClosed:
		if fails >= b.threshold && b.state.CompareAndSwap(int32(BreakerClosed), int32(BreakerOpen)) {
			b.lastOpenTime.Store(b.now().UnixNano())
			b.transition(BreakerClosed, BreakerOpen)
		}
	case BreakerHalfOpen:
		if b.state.CompareAndSwap(int32(BreakerHalfOpen), int32(BreakerOpen)) {
			b.lastOpenTime.Store(b.now().UnixNano())
			b.transition(BreakerHalfOpen, BreakerOpen)
		}
	}
}

func (b *Breaker) transition(from, to BreakerState) {
	b.logger.Info("oracle circuit breaker state change",
		logging.String("oracle", b.next.Name()),
		logging.String("from", from.String()),
		logging.String("to", to.String()))
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
