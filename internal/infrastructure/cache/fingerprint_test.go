package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func verdict(risk int) *diff.DiffResult {
	return &diff.DiffResult{
		Summary: diff.DiffSummary{IsSafe: risk <= 40, RiskScore: risk, SemanticChangeLevel: diff.LevelMinor},
		Changes: []diff.ChangeItem{{ID: "c", Severity: diff.SeverityInfo, OriginalSpan: diff.NewSpan("a", 0, 1)}},
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	base := cache.Key("orig", "gen", diff.SensitivityMedium)
	assert.Len(t, base, 64)
	assert.Equal(t, base, cache.Key("orig", "gen", diff.SensitivityMedium))
	assert.NotEqual(t, base, cache.Key("orig!", "gen", diff.SensitivityMedium))
	assert.NotEqual(t, base, cache.Key("orig", "gen!", diff.SensitivityMedium))
	assert.NotEqual(t, base, cache.Key("orig", "gen", diff.SensitivityHigh))
	assert.Equal(t, "fc4ffd845adb0734eea12d9c8b7f0679ca3047ecc5a36c670ef80857846eaeb7", cache.Key("a", "b", diff.SensitivityLow))
}

func TestFingerprintCache_RoundTrip(t *testing.T) {
	t.Parallel()

	c := cache.NewFingerprintCache(time.Hour, 10)
	want := verdict(12)
	c.Set("o", "g", diff.SensitivityLow, want)

	got, ok := c.Get("o", "g", diff.SensitivityLow)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = c.Get("o", "g", diff.SensitivityHigh)
	assert.False(t, ok)
}

func TestFingerprintCache_IsolatesCopies(t *testing.T) {
	t.Parallel()

	c := cache.NewFingerprintCache(time.Hour, 10)
	stored := verdict(12)
	c.Set("o", "g", diff.SensitivityLow, stored)
	*stored.Changes[0].OriginalSpan.Start = 99
	stored.Summary.RiskScore = 99

	got, _ := c.Get("o", "g", diff.SensitivityLow)
	assert.Equal(t, 12, got.Summary.RiskScore)
	assert.Equal(t, 0, *got.Changes[0].OriginalSpan.Start)

	got.Changes[0].Description = "mutated"
	again, _ := c.Get("o", "g", diff.SensitivityLow)
	assert.Empty(t, again.Changes[0].Description)
}

func TestFingerprintCache_Expiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := cache.NewFingerprintCache(time.Minute, 10, cache.WithClock(clk.Now))
	c.Set("o", "g", diff.SensitivityMedium, verdict(1))

	clk.Advance(time.Minute)
	_, ok := c.Get("o", "g", diff.SensitivityMedium)
	assert.True(t, ok, "entry is valid up to and including its expiry instant")

	clk.Advance(time.Second)
	_, ok = c.Get("o", "g", diff.SensitivityMedium)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestFingerprintCache_EvictsOldestFifth(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := cache.NewFingerprintCache(time.Hour, 10, cache.WithClock(clk.Now))
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("o%d", i), "g", diff.SensitivityMedium, verdict(i))
		clk.Advance(time.Second)
	}
	require.Equal(t, 10, c.Len())

	c.Set("new", "g", diff.SensitivityMedium, verdict(50))

	assert.Equal(t, 9, c.Len())
	for _, gone := range []string{"o0", "o1"} {
		_, ok := c.Get(gone, "g", diff.SensitivityMedium)
		assert.False(t, ok, gone)
	}
	for _, kept := range []string{"o2", "o9", "new"} {
		_, ok := c.Get(kept, "g", diff.SensitivityMedium)
		assert.True(t, ok, kept)
	}
	assert.Equal(t, int64(2), c.Stats().Evictions)
}

func TestFingerprintCache_PurgesExpiredBeforeEvicting(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := cache.NewFingerprintCache(time.Minute, 3, cache.WithClock(clk.Now))
	c.Set("stale", "g", diff.SensitivityMedium, verdict(1))
	clk.Advance(2 * time.Minute)
	c.Set("a", "g", diff.SensitivityMedium, verdict(1))
	c.Set("b", "g", diff.SensitivityMedium, verdict(1))

	c.Set("c", "g", diff.SensitivityMedium, verdict(1))

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("a", "g", diff.SensitivityMedium)
	assert.True(t, ok, "fresh entries survive when purging expired ones frees room")
}

func TestFingerprintCache_OverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	c := cache.NewFingerprintCache(time.Hour, 2)
	c.Set("a", "g", diff.SensitivityMedium, verdict(1))
	c.Set("b", "g", diff.SensitivityMedium, verdict(1))
	c.Set("b", "g", diff.SensitivityMedium, verdict(2))

	assert.Equal(t, 2, c.Len())
	assert.Zero(t, c.Stats().Evictions)
}

func TestFingerprintCache_StatsAndClear(t *testing.T) {
	t.Parallel()

	c := cache.NewFingerprintCache(0, 0)
	c.Set("o", "g", diff.SensitivityMedium, verdict(1))
	c.Get("o", "g", diff.SensitivityMedium)
	c.Get("o", "g", diff.SensitivityMedium)
	c.Get("x", "g", diff.SensitivityMedium)
	c.Set("nil", "g", diff.SensitivityMedium, nil)

	s := c.Stats()
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, cache.DefaultMaxSize, s.MaxSize)
	assert.Equal(t, int64(3600), s.TTLSeconds)
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)

	assert.Equal(t, 1, c.Clear())
	assert.Equal(t, cache.Stats{MaxSize: cache.DefaultMaxSize, TTLSeconds: 3600}, c.Stats())
}

func TestFingerprintCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := cache.NewFingerprintCache(time.Hour, 50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("o%d", (w*200+i)%120)
				c.Set(key, "g", diff.SensitivityLow, verdict(i%100))
				c.Get(key, "g", diff.SensitivityLow)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
