package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbiznis/portal-auth/internal/repository"
)

// RedisStore implements repository.EphemeralStore backed by Redis. This is
// the implementation production deployments must use: the SetIfAbsent claim
// is only meaningful when every server instance shares the same backend.
type RedisStore struct {
	client redis.UniversalClient
}

var _ repository.EphemeralStore = (*RedisStore)(nil)

// NewRedisStore constructs a Redis-backed ephemeral store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get loads the value for key. Absent or expired keys return (nil, nil).
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return value, nil
}

// Set stores the value with a TTL, overwriting any existing value.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// SetIfAbsent atomically claims the key. Returns false when the key already
// holds a live value.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx: %w", err)
	}
	return ok, nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
