package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// SharedTier is a cache shared between replicas.
type SharedTier interface {
	Get(ctx context.Context, key string) (*diff.DiffResult, bool, error)
	Set(ctx context.Context, key string, result *diff.DiffResult, ttl time.Duration) error
	Clear(ctx context.Context) (int64, error)
}

// Source tells where a cached verdict came from.
type Source string

const (
	SourceNone   Source = ""
	SourceLocal  Source = "local"
	SourceShared Source = "shared"
)

// TieredStats extends Stats with the shared tier's state.
type TieredStats struct {
	Stats
	SharedEnabled bool  `json:"shared_enabled"`
	SharedHits    int64 `json:"shared_hits"`
	SharedErrors  int64 `json:"shared_errors"`
}

// Tiered consults the local cache, then the shared tier. Shared-tier
// failures are logged and treated as misses.
type Tiered struct {
	local  *FingerprintCache
	shared SharedTier
	logger logging.Logger

	sharedHits   atomic.Int64
	sharedErrors atomic.Int64
}

// NewTiered combines local with an optional shared tier.
func NewTiered(local *FingerprintCache, shared SharedTier, logger logging.Logger) *Tiered {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Tiered{local: local, shared: shared, logger: logger}
}

// Get looks the inputs up in both tiers. A shared hit is copied into the
// local tier.
func (t *Tiered) Get(ctx context.Context, original, generated string, s diff.Sensitivity) (*diff.DiffResult, Source) {
	key := Key(original, generated, s)
	if r, ok := t.local.GetKey(key); ok {
		return r, SourceLocal
	}
	if t.shared == nil {
		return nil, SourceNone
	}
	r, ok, err := t.shared.Get(ctx, key)
	if err != nil {
		t.sharedErrors.Add(1)
		t.logger.Warn("shared verdict tier read failed", logging.Err(err))
		return nil, SourceNone
	}
	if !ok {
		return nil, SourceNone
	}
	t.sharedHits.Add(1)
	t.local.SetKey(key, r)
	return r, SourceShared
}

// Set stores the verdict in both tiers.
func (t *Tiered) Set(ctx context.Context, original, generated string, s diff.Sensitivity, result *diff.DiffResult) {
	key := Key(original, generated, s)
	t.local.SetKey(key, result)
	if t.shared == nil {
		return
	}
	if err := t.shared.Set(ctx, key, result, t.local.TTL()); err != nil {
		t.sharedErrors.Add(1)
		t.logger.Warn("shared verdict tier write failed", logging.Err(err))
	}
}

// Clear empties both tiers and returns the number of entries removed.
func (t *Tiered) Clear(ctx context.Context) (int64, error) {
	n := int64(t.local.Clear())
	t.sharedHits.Store(0)
	t.sharedErrors.Store(0)
	if t.shared == nil {
		return n, nil
	}
	m, err := t.shared.Clear(ctx)
	return n + m, err
}

// Stats reports local counters and shared-tier activity.
func (t *Tiered) Stats() TieredStats {
	return TieredStats{
		Stats:         t.local.Stats(),
		SharedEnabled: t.shared != nil,
		SharedHits:    t.sharedHits.Load(),
		SharedErrors:  t.sharedErrors.Load(),
	}
}
