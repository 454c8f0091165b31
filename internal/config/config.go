// Package config defines the configuration of the ContextDiff service. The
// infrastructure sections reuse the config structs of the packages they
// configure, so there is one source of truth for every field.
package config

import (
	"fmt"
	"strings"
	"time"

	appDiff "github.com/turtacn/ContextDiff/internal/application/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/redis"
	"github.com/turtacn/ContextDiff/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// OracleConfig selects the model backend and its resilience wrappers.
type OracleConfig struct {
	Provider string               `mapstructure:"provider" yaml:"provider"` // openai | gemini
	APIKey   string               `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string               `mapstructure:"base_url" yaml:"base_url"`
	Retry    oracle.RetryPolicy   `mapstructure:"retry" yaml:"retry"`
	Breaker  oracle.BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// SharedCacheConfig enables the Redis verdict tier.
type SharedCacheConfig struct {
	Enabled bool              `mapstructure:"enabled" yaml:"enabled"`
	Prefix  string            `mapstructure:"prefix" yaml:"prefix"`
	Client  redis.RedisConfig `mapstructure:",squash" yaml:",inline"`
}

// CacheConfig holds the verdict cache settings.
type CacheConfig struct {
	TTL     time.Duration     `mapstructure:"ttl" yaml:"ttl"`
	MaxSize int               `mapstructure:"max_size" yaml:"max_size"`
	Redis   SharedCacheConfig `mapstructure:"redis" yaml:"redis"`
}

// AuthConfig guards the API. An empty APISecret leaves the API open.
// AllowedOrigins also drives CORS.
type AuthConfig struct {
	APISecret      string   `mapstructure:"api_secret" yaml:"api_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// RateLimitConfig is the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Path      string `mapstructure:"path" yaml:"path"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// RecorderConfig bounds each sink write.
type RecorderConfig struct {
	SinkTimeout time.Duration `mapstructure:"sink_timeout" yaml:"sink_timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig            `mapstructure:"server" yaml:"server"`
	Log       logging.LogConfig       `mapstructure:"log" yaml:"log"`
	Oracle    OracleConfig            `mapstructure:"oracle" yaml:"oracle"`
	Engine    appDiff.Config          `mapstructure:"engine" yaml:"engine"`
	Cache     CacheConfig             `mapstructure:"cache" yaml:"cache"`
	Auth      AuthConfig              `mapstructure:"auth" yaml:"auth"`
	RateLimit RateLimitConfig         `mapstructure:"ratelimit" yaml:"ratelimit"`
	Recorder  RecorderConfig          `mapstructure:"recorder" yaml:"recorder"`
	Postgres  postgres.PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Kafka     kafka.ProducerConfig    `mapstructure:"kafka" yaml:"kafka"`
	MinIO     minio.MinIOConfig       `mapstructure:"minio" yaml:"minio"`
	Metrics   MetricsConfig           `mapstructure:"metrics" yaml:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	switch strings.ToLower(c.Oracle.Provider) {
	case oracle.ProviderOpenAI, oracle.ProviderGemini:
	default:
		return fmt.Errorf("config: oracle.provider %q is invalid; expected openai|gemini", c.Oracle.Provider)
	}
	if c.Oracle.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: oracle.retry.max_attempts must be ≥ 1, got %d", c.Oracle.Retry.MaxAttempts)
	}

	e := c.Engine
	if e.SimilarityThreshold <= 0 || e.SimilarityThreshold > 1 {
		return fmt.Errorf("config: engine.similarity_threshold %.2f is out of range (0, 1]", e.SimilarityThreshold)
	}
	if e.ChunkSize > e.ChunkThreshold {
		return fmt.Errorf("config: engine.chunk_size %d exceeds engine.chunk_threshold %d", e.ChunkSize, e.ChunkThreshold)
	}
	if e.MaxTextLength < 0 || e.FreeTierMaxTotal < 0 {
		return fmt.Errorf("config: engine limits must be ≥ 0")
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("config: engine.temperature %.2f is out of range [0, 2]", e.Temperature)
	}

	if c.Cache.MaxSize < 1 {
		return fmt.Errorf("config: cache.max_size must be ≥ 1, got %d", c.Cache.MaxSize)
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Client.Addr == "" && len(c.Cache.Redis.Client.ClusterAddrs) == 0 {
		return fmt.Errorf("config: cache.redis.addr is required when the redis tier is enabled")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute < 1 || c.RateLimit.Burst < 0) {
		return fmt.Errorf("config: ratelimit.requests_per_minute must be ≥ 1 and ratelimit.burst ≥ 0")
	}

	if c.Postgres.Enabled {
		if c.Postgres.Host == "" {
			return fmt.Errorf("config: postgres.host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("config: postgres.database is required")
		}
	}
	if c.Kafka.Enabled {
		if err := kafka.ValidateProducerConfig(c.Kafka); err != nil {
			return fmt.Errorf("config: kafka: %w", err)
		}
	}
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config: metrics.path %q must start with /", c.Metrics.Path)
	}
	return nil
}

//Personal.AI order the ending
