package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	// Allow reports whether the request is allowed together with the
	// current limit state for the key.
	Allow(key string) (bool, RateLimitInfo)
}

// RateLimitInfo describes a key's bucket after a decision.
type RateLimitInfo struct {
	// Limit is the bucket capacity.
	Limit int
	// Remaining is the number of whole tokens left.
	Remaining int
	// ResetAt is when the next token becomes available.
	ResetAt time.Time
}

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	// KeyFunc extracts the rate limit key from a request. Defaults to the
	// client IP.
	KeyFunc func(r *http.Request) string
	// SkipPaths bypass rate limiting.
	SkipPaths []string
	// Metrics counts rejections when set.
	Metrics *prometheus.AppMetrics
}

// DefaultRateLimitConfig returns a config keyed by client IP that skips the
// health and metrics endpoints.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		KeyFunc:   ClientIP,
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ─────────────────────────────────────────────────────────────────────────────
// Token bucket
// ─────────────────────────────────────────────────────────────────────────────

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// TokenBucketLimiter keeps one bucket per key. A bucket holds
// requestsPerMinute+burst tokens and refills at requestsPerMinute/60 tokens
// per second.
type TokenBucketLimiter struct {
	mu       sync.RWMutex
	rate     float64
	capacity int
	buckets  map[string]*tokenBucket
	now      func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewTokenBucketLimiter creates a limiter. A positive cleanupInterval starts
// a goroutine that drops idle full buckets; call Stop to end it.
func NewTokenBucketLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		buckets:         make(map[string]*tokenBucket),
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	l.Update(requestsPerMinute, burst)

	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Update changes the rate and capacity. Existing buckets keep their tokens,
// clipped to the new capacity on their next refill.
func (l *TokenBucketLimiter) Update(requestsPerMinute, burst int) {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst < 0 {
		burst = 0
	}
	l.mu.Lock()
	l.rate = float64(requestsPerMinute) / 60
	l.capacity = requestsPerMinute + burst
	l.mu.Unlock()
}

// Allow takes one token from key's bucket if one is available.
func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := l.now()

	l.mu.RLock()
	rate, capacity := l.rate, l.capacity
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		bucket, exists = l.buckets[key]
		if !exists {
			bucket = &tokenBucket{tokens: float64(capacity), lastRefill: now}
			l.buckets[key] = bucket
		}
		l.mu.Unlock()
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens += elapsed * rate
	if bucket.tokens > float64(capacity) {
		bucket.tokens = float64(capacity)
	}
	bucket.lastRefill = now

	info := RateLimitInfo{Limit: capacity}
	if bucket.tokens >= 1.0 {
		bucket.tokens--
		info.Remaining = int(bucket.tokens)
		info.ResetAt = now.Add(time.Duration(float64(time.Second) / rate))
		return true, info
	}

	wait := (1.0 - bucket.tokens) / rate
	info.ResetAt = now.Add(time.Duration(wait * float64(time.Second)))
	return false, info
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *TokenBucketLimiter) cleanup() {
	threshold := l.now().Add(-l.cleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		if bucket.lastRefill.Before(threshold) {
			delete(l.buckets, key)
		}
		bucket.mu.Unlock()
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// BucketCount returns the number of tracked keys.
func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// RateLimit rejects requests over the limit with 429 and a Retry-After
// header. Every limited response carries X-RateLimit-* headers.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			allowed, info := limiter.Allow(keyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(time.Until(info.ResetAt).Seconds() + 0.999)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				if config.Metrics != nil {
					config.Metrics.RateLimitRejections.WithLabelValues().Inc()
				}
				writeError(w, errors.RateLimit("rate limit exceeded, please retry later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

//Personal.AI order the ending
