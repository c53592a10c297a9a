package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over a shared Redis instance.
// DeleteMatching walks the keyspace with cursor-based SCAN so it never
// blocks Redis the way KEYS would.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int, timeout time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}

	return &RedisStore{client: client, timeout: timeout}, nil
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the cached bytes for key; ok is false on miss
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value under key until ttl elapses
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Set(ctx, key, value, ttl).Err()
}

// DeleteMatching removes every entry whose key matches the pattern
func (s *RedisStore) DeleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		pageCtx, cancel := s.withTimeout(ctx)
		keys, next, err := s.client.Scan(pageCtx, cursor, pattern, 200).Result()
		cancel()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			delCtx, cancel := s.withTimeout(ctx)
			err := s.client.Del(delCtx, keys...).Err()
			cancel()
			if err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
