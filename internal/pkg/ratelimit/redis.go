package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store shared across server instances. INCR keeps the
// read-modify-write atomic so concurrent requests cannot race past the limit.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment adds one to the key, creating it with the given TTL.
func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Only set the TTL when the key has none, so the window is anchored
	// at the first attempt.
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Get returns the current count, zero when absent.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TTL returns the remaining lifetime of the key, zero when absent.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		// -2 missing key, -1 no expiry
		return 0, nil
	}
	return ttl, nil
}

// Touch sets the key to one with the given TTL, overwriting any state.
func (s *RedisStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, key, 1, ttl).Err()
}

// Evict removes the key.
func (s *RedisStore) Evict(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
