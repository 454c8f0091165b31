// Package cache memoises comparison verdicts by a fingerprint of their
// inputs. The in-process FingerprintCache can be backed by a shared tier so
// that several replicas reuse each other's verdicts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

const (
	DefaultTTL     = time.Hour
	DefaultMaxSize = 1000
)

// Key is the hex SHA-256 of original, generated and sensitivity joined by '|'.
func Key(original, generated string, sensitivity diff.Sensitivity) string {
	sum := sha256.Sum256([]byte(original + "|" + generated + "|" + string(sensitivity)))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	result    *diff.DiffResult
	createdAt time.Time
	expiresAt time.Time
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Size       int     `json:"size"`
	MaxSize    int     `json:"max_size"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	Evictions  int64   `json:"evictions"`
	TTLSeconds int64   `json:"ttl_seconds"`
}

// FingerprintCache is a bounded in-memory TTL cache of verdicts. Stored and
// returned results are deep copies, so callers may modify them freely.
type FingerprintCache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	ttl       time.Duration
	maxSize   int
	hits      int64
	misses    int64
	evictions int64
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a FingerprintCache.
type Option func(*FingerprintCache)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *FingerprintCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *FingerprintCache) { c.now = now }
}

// NewFingerprintCache builds a cache. Non-positive arguments fall back to
// DefaultTTL and DefaultMaxSize.
func NewFingerprintCache(ttl time.Duration, maxSize int, opts ...Option) *FingerprintCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &FingerprintCache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		maxSize: maxSize,
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the entry lifetime.
func (c *FingerprintCache) TTL() time.Duration { return c.ttl }

// Get returns the cached verdict for the inputs.
func (c *FingerprintCache) Get(original, generated string, sensitivity diff.Sensitivity) (*diff.DiffResult, bool) {
	return c.GetKey(Key(original, generated, sensitivity))
}

// GetKey is Get by precomputed key. Expired entries are removed and count
// as misses.
func (c *FingerprintCache) GetKey(key string) (*diff.DiffResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	c.logger.Debug("verdict cache hit", logging.String("key", key[:16]))
	return e.result.Clone(), true
}

// Set stores a verdict for the inputs.
func (c *FingerprintCache) Set(original, generated string, sensitivity diff.Sensitivity, result *diff.DiffResult) {
	c.SetKey(Key(original, generated, sensitivity), result)
}

// SetKey is Set by precomputed key. When the cache is full, expired entries
// are purged first and then the oldest fifth is evicted.
func (c *FingerprintCache) SetKey(key string, result *diff.DiffResult) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.cleanupLocked()
	}
	now := c.now()
	c.entries[key] = &entry{result: result.Clone(), createdAt: now, expiresAt: now.Add(c.ttl)}
}

func (c *FingerprintCache) cleanupLocked() {
	now := c.now()
	expired := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			expired++
		}
	}
	evicted := 0
	if len(c.entries) >= c.maxSize {
		keys := make([]string, 0, len(c.entries))
		for k := range c.entries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return c.entries[keys[i]].createdAt.Before(c.entries[keys[j]].createdAt)
		})
		evicted = len(keys) / 5
		if evicted < 1 {
			evicted = 1
		}
		for _, k := range keys[:evicted] {
			delete(c.entries, k)
		}
	}
	c.evictions += int64(expired + evicted)
	c.logger.Info("verdict cache cleanup", logging.Int("expired", expired), logging.Int("evicted", evicted))
}

// Clear drops every entry, resets the counters and returns how many entries
// were removed.
func (c *FingerprintCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.hits, c.misses, c.evictions = 0, 0, 0
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *FingerprintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *FingerprintCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Size:       len(c.entries),
		MaxSize:    c.maxSize,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
		TTLSeconds: int64(c.ttl / time.Second),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
