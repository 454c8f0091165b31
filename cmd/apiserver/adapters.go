package main

import (
	"context"
	"fmt"

	"github.com/turtacn/ContextDiff/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/redis"
	"github.com/turtacn/ContextDiff/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContextDiff/internal/interfaces/http/handlers"
)

// Adapters for HealthHandler

func postgresChecker(conn *postgres.Connection) handlers.HealthChecker {
	return handlers.CheckerFunc{ComponentName: "postgres", Fn: conn.HealthCheck}
}

func redisChecker(client *redis.Client) handlers.HealthChecker {
	return handlers.CheckerFunc{ComponentName: "redis", Fn: client.Ping}
}

func minioChecker(client *minio.MinIOClient) handlers.HealthChecker {
	return handlers.CheckerFunc{ComponentName: "minio", Fn: client.HealthCheck}
}

// topicChecker is the part of the Kafka topic manager the health check needs.
type topicChecker interface {
	TopicExists(ctx context.Context, name string) (bool, error)
}

func kafkaChecker(topics topicChecker, topic string) handlers.HealthChecker {
	return handlers.CheckerFunc{
		ComponentName: "kafka",
		Fn: func(ctx context.Context) error {
			ok, err := topics.TopicExists(ctx, topic)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("topic %q not found", topic)
			}
			return nil
		},
	}
}
