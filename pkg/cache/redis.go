package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps cache entries in Redis under a namespace.
type RedisStore struct {
	redis     *redis.Client
	namespace string
	logger    zerolog.Logger
}

// NewRedisStore creates a RedisStore. Entries are stored without TTL under
// keys prefixed with namespace.
func NewRedisStore(redisClient *redis.Client, namespace string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:     redisClient,
		namespace: namespace,
		logger:    logging.NewLogger(logging.ComponentCache).With().Str("namespace", namespace).Logger(),
	}
}

// Namespace returns the key namespace of this store.
func (s *RedisStore) Namespace() string {
	return s.namespace
}

func (s *RedisStore) redisKey(key CacheKey) string {
	return s.namespace + ":" + key.String()
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *RedisStore) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := s.redis.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Redis get failed")
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Invalid cache entry")
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores a cache entry without expiry.
func (s *RedisStore) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, s.redisKey(key), data, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Redis set failed")
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}
