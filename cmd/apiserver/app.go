package main

import (
	"context"
	"fmt"
	"time"

	appDiff "github.com/turtacn/ContextDiff/internal/application/diff"
	"github.com/turtacn/ContextDiff/internal/config"
	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/redis"
	"github.com/turtacn/ContextDiff/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContextDiff/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
	httpapi "github.com/turtacn/ContextDiff/internal/interfaces/http"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/handlers"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/middleware"
)

// app owns every long-lived component of the server process.
type app struct {
	logger logging.Logger
	server *httpapi.Server

	recorder *appDiff.Recorder
	limiter  *middleware.TokenBucketLimiter

	redisClient *redis.Client
	pgConn      *postgres.Connection
	producer    *kafka.Producer
	topics      *kafka.TopicManager

	oracleName string
	sinkCount  int
}

// newApp connects the optional backends and assembles the HTTP stack.
// Backends that are enabled but unreachable abort startup.
func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.closeBackends()
		}
	}()

	collector := prometheus.NewNoopCollector()
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}
	metrics := prometheus.NewAppMetrics(collector)

	analyzer, err := newOracle(ctx, cfg.Oracle, logger, metrics)
	if err != nil {
		return nil, err
	}
	a.oracleName = analyzer.Name()

	// Verdict cache: local tier always, Redis tier when enabled.
	var shared cache.SharedTier
	var checkers []handlers.HealthChecker
	if cfg.Cache.Redis.Enabled {
		a.redisClient, err = redis.NewClient(&cfg.Cache.Redis.Client, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		shared = redis.NewVerdictStore(a.redisClient, cfg.Cache.Redis.Prefix, logger)
		checkers = append(checkers, redisChecker(a.redisClient))
	}
	verdicts := cache.NewTiered(
		cache.NewFingerprintCache(cfg.Cache.TTL, cfg.Cache.MaxSize, cache.WithLogger(logger)),
		shared, logger)

	// Record sinks.
	var sinks []domainDiff.RecordSink
	var history domainDiff.HistoryRepository
	var reports handlers.ReportLinker

	if cfg.Postgres.Enabled {
		a.pgConn, err = postgres.NewConnection(cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.AutoMigrate {
			if err = a.pgConn.RunMigrations(); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		history = repositories.NewPostgresHistoryRepo(a.pgConn, logger)
		sinks = append(sinks, history)
		checkers = append(checkers, postgresChecker(a.pgConn))
	}

	if cfg.Kafka.Enabled {
		a.producer, err = kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		a.topics, err = kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		if cfg.Kafka.EnsureTopic {
			if err = a.topics.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Kafka.Topic)); err != nil {
				return nil, fmt.Errorf("ensure kafka topic: %w", err)
			}
		}
		sinks = append(sinks, kafka.NewEventSink(a.producer))
		checkers = append(checkers, kafkaChecker(a.topics, cfg.Kafka.Topic))
	}

	if cfg.MinIO.Enabled {
		var mc *minio.MinIOClient
		mc, err = minio.NewMinIOClient(&cfg.MinIO, logger)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		archive := minio.NewReportArchive(mc, logger)
		sinks = append(sinks, archive)
		reports = archive
		checkers = append(checkers, minioChecker(mc))
	}
	a.sinkCount = len(sinks)

	opts := []appDiff.Option{appDiff.WithLogger(logger), appDiff.WithMetrics(metrics)}
	if len(sinks) > 0 {
		a.recorder = appDiff.NewRecorder(cfg.Recorder.SinkTimeout, logger, metrics, sinks...)
		opts = append(opts, appDiff.WithRecorder(a.recorder))
	}
	service := appDiff.NewService(cfg.Engine, analyzer, verdicts, opts...)

	routerCfg := httpapi.RouterConfig{
		HealthHandler:     handlers.NewHealthHandler(version, service, checkers...),
		DiffHandler:       handlers.NewDiffHandler(service, logger, cfg.Server.MaxBodySize),
		LoggingMiddleware: middleware.RequestLogging(logger, middleware.DefaultLoggingConfig()),
		AuthMiddleware: middleware.RequireAccess(middleware.AuthConfig{
			APISecret:      cfg.Auth.APISecret,
			AllowedOrigins: cfg.Auth.AllowedOrigins,
		}, logger),
		Logger: logger,
	}
	if history != nil {
		routerCfg.HistoryHandler = handlers.NewHistoryHandler(history, reports, logger)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.Auth.AllowedOrigins
	routerCfg.CORSMiddleware = middleware.CORS(corsCfg)

	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.CleanupInterval)
		rlCfg := middleware.DefaultRateLimitConfig()
		rlCfg.Metrics = metrics
		routerCfg.RateLimitMiddleware = middleware.RateLimit(a.limiter, rlCfg)
	}

	if cfg.Metrics.Enabled {
		routerCfg.MetricsMiddleware = middleware.Metrics(metrics)
		routerCfg.MetricsCollector = collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	a.server = httpapi.NewServer(cfg.Server, httpapi.NewRouter(routerCfg), logger)
	return a, nil
}

// newOracle builds the provider and, when it is reachable, wraps it with
// retries and a circuit breaker that report into metrics.
func newOracle(ctx context.Context, cfg config.OracleConfig, logger logging.Logger, metrics *prometheus.AppMetrics) (oracle.Oracle, error) {
	provider, err := oracle.NewProvider(ctx, oracle.ProviderConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init oracle: %w", err)
	}
	if !oracle.Configured(provider) {
		return provider, nil
	}

	name := provider.Name()
	retrying := oracle.Retrying(provider, cfg.Retry,
		oracle.WithRetryLogger(logger),
		oracle.WithOnRetry(func(int, error) { prometheus.RecordOracleRetry(metrics) }))
	return oracle.NewBreaker(retrying, cfg.Breaker,
		oracle.WithBreakerLogger(logger),
		oracle.WithStateChangeHook(func(_, to oracle.BreakerState) {
			prometheus.SetBreakerState(metrics, name, int(to))
		})), nil
}

// reload applies the hot-reloadable settings from a changed config file.
func (a *app) reload(cfg *config.Config) {
	if a.limiter != nil && cfg.RateLimit.Enabled {
		a.limiter.Update(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		a.logger.Info("rate limit updated",
			logging.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute),
			logging.Int("burst", cfg.RateLimit.Burst))
	}
}

// shutdown stops accepting requests, drains the recorder, then closes the
// backends.
func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			a.logger.Error("HTTP server shutdown error", logging.Err(err))
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			a.logger.Warn("recorder did not drain", logging.Err(err))
		}
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	a.closeBackends()
}

type closer struct {
	name string
	fn   func() error
}

func (a *app) closeBackends() {
	var closers []closer
	if a.producer != nil {
		closers = append(closers, closer{"kafka producer", a.producer.Close})
	}
	if a.topics != nil {
		closers = append(closers, closer{"kafka topic manager", a.topics.Close})
	}
	if a.redisClient != nil {
		closers = append(closers, closer{"redis", a.redisClient.Close})
	}
	if a.pgConn != nil {
		closers = append(closers, closer{"postgres", a.pgConn.Close})
	}
	for _, c := range closers {
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", logging.String("component", c.name), logging.Err(err))
		}
	}
	a.producer, a.topics, a.redisClient, a.pgConn = nil, nil, nil, nil
}

//Personal.AI order the ending
