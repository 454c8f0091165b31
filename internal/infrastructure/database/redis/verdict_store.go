package redis

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// DefaultVerdictPrefix namespaces verdict keys.
const DefaultVerdictPrefix = "contextdiff:verdict:"

const scanBatch = 500

// VerdictStore keeps serialised verdicts in Redis under a key prefix.
type VerdictStore struct {
	client *Client
	prefix string
	logger logging.Logger
}

// NewVerdictStore builds a store. An empty prefix uses DefaultVerdictPrefix.
func NewVerdictStore(client *Client, prefix string, log logging.Logger) *VerdictStore {
	if prefix == "" {
		prefix = DefaultVerdictPrefix
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &VerdictStore{client: client, prefix: prefix, logger: log}
}

func (s *VerdictStore) fullKey(key string) string { return s.prefix + key }

// Get returns the verdict stored under key.
func (s *VerdictStore) Get(ctx context.Context, key string) (*diff.DiffResult, bool, error) {
	if s.client.isClosed() {
		return nil, false, ErrClientClosed
	}
	raw, err := s.client.rdb.Get(ctx, s.fullKey(key)).Bytes()
	if stdliberrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "reading verdict")
	}
	var result diff.DiffResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is dropped rather than served.
		s.client.rdb.Del(ctx, s.fullKey(key))
		return nil, false, errors.Wrap(err, errors.ErrCodeSerialization, "decoding verdict")
	}
	return &result, true, nil
}

// Set stores result under key for ttl.
func (s *VerdictStore) Set(ctx context.Context, key string, result *diff.DiffResult, ttl time.Duration) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding verdict")
	}
	if err := s.client.rdb.Set(ctx, s.fullKey(key), raw, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "writing verdict")
	}
	return nil
}

// Clear deletes every key under the prefix and returns how many went.
func (s *VerdictStore) Clear(ctx context.Context) (int64, error) {
	if s.client.isClosed() {
		return 0, ErrClientClosed
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := s.client.rdb.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "scanning verdicts")
		}
		if len(keys) > 0 {
			n, err := s.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "deleting verdicts")
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.logger.Info("shared verdict tier cleared", logging.Int64("deleted", deleted))
	return deleted, nil
}
