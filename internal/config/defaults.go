package config

import (
	"time"

	appDiff "github.com/turtacn/ContextDiff/internal/application/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/redis"
	"github.com/turtacn/ContextDiff/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8000
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultMaxBodySize     = 1 << 20
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitPerMinute = 60
	DefaultRateLimitBurst     = 10

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "contextdiff"

	DefaultDBHost = "localhost"
	DefaultDBPort = 5432
	DefaultDBName = "contextdiff"
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins. Booleans and values
// whose zero is meaningful are defaulted by the loader instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Oracle ────────────────────────────────────────────────────────────────
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = oracle.ProviderOpenAI
	}
	retry := oracle.DefaultRetryPolicy()
	if cfg.Oracle.Retry.MaxAttempts == 0 {
		cfg.Oracle.Retry.MaxAttempts = retry.MaxAttempts
	}
	if cfg.Oracle.Retry.InitialBackoff == 0 {
		cfg.Oracle.Retry.InitialBackoff = retry.InitialBackoff
	}
	if cfg.Oracle.Retry.MaxBackoff == 0 {
		cfg.Oracle.Retry.MaxBackoff = retry.MaxBackoff
	}
	if cfg.Oracle.Retry.BackoffMultiplier == 0 {
		cfg.Oracle.Retry.BackoffMultiplier = retry.BackoffMultiplier
	}
	if cfg.Oracle.Retry.CallTimeout == 0 {
		cfg.Oracle.Retry.CallTimeout = retry.CallTimeout
	}
	if cfg.Oracle.Retry.RetryableErrors == nil {
		cfg.Oracle.Retry.RetryableErrors = retry.RetryableErrors
	}
	if cfg.Oracle.Breaker.Threshold == 0 {
		cfg.Oracle.Breaker.Threshold = 5
	}
	if cfg.Oracle.Breaker.OpenDuration == 0 {
		cfg.Oracle.Breaker.OpenDuration = 30 * time.Second
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engine := appDiff.DefaultConfig()
	if cfg.Engine.SimilarityThreshold == 0 {
		cfg.Engine.SimilarityThreshold = engine.SimilarityThreshold
	}
	if cfg.Engine.ChunkThreshold == 0 {
		cfg.Engine.ChunkThreshold = engine.ChunkThreshold
	}
	if cfg.Engine.ChunkSize == 0 {
		cfg.Engine.ChunkSize = engine.ChunkSize
	}
	if cfg.Engine.MaxConcurrentChunks == 0 {
		cfg.Engine.MaxConcurrentChunks = engine.MaxConcurrentChunks
	}
	if cfg.Engine.AnalysisTimeout == 0 {
		cfg.Engine.AnalysisTimeout = engine.AnalysisTimeout
	}
	if cfg.Engine.MaxTextLength == 0 {
		cfg.Engine.MaxTextLength = engine.MaxTextLength
	}
	if cfg.Engine.FreeTierMaxTotal == 0 {
		cfg.Engine.FreeTierMaxTotal = engine.FreeTierMaxTotal
	}
	if cfg.Engine.DefaultModel == "" {
		cfg.Engine.DefaultModel = engine.DefaultModel
	}
	if cfg.Engine.PremiumModel == "" {
		cfg.Engine.PremiumModel = engine.PremiumModel
	}
	if cfg.Engine.MaxTokens == 0 {
		cfg.Engine.MaxTokens = engine.MaxTokens
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = cache.DefaultTTL
	}
	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = cache.DefaultMaxSize
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = redis.DefaultVerdictPrefix
	}
	if cfg.Cache.Redis.Client.Mode == "" {
		cfg.Cache.Redis.Client.Mode = "standalone"
	}

	// ── Auth ──────────────────────────────────────────────────────────────────
	if cfg.Auth.AllowedOrigins == nil {
		cfg.Auth.AllowedOrigins = []string{"*"}
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.RateLimit.CleanupInterval == 0 {
		cfg.RateLimit.CleanupInterval = 5 * time.Minute
	}

	// ── Recorder ──────────────────────────────────────────────────────────────
	if cfg.Recorder.SinkTimeout == 0 {
		cfg.Recorder.SinkTimeout = appDiff.DefaultSinkTimeout
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultDBHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultDBPort
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = DefaultDBName
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = kafka.TopicComparisonCompleted
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
