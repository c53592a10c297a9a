package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	viewKeyPrefix = "views:"
	likeKeyPrefix = "likes:"
)

// RedisStore implements Store and LikeStore over a shared Redis instance.
// Counters use INCR/GET/SETNX on views:<recordID>; likes use sets keyed
// likes:<recordID>.
type RedisStore struct {
	client           *redis.Client
	timeout          time.Duration
	incrementTimeout time.Duration
	scanCount        int64
}

var (
	_ Store     = (*RedisStore)(nil)
	_ LikeStore = (*RedisStore)(nil)
)

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Address          string
	Password         string
	DB               int
	Timeout          time.Duration // General op budget; callers fail open
	IncrementTimeout time.Duration // Tighter budget for the per-view increment path
	ScanCount        int64         // Page size for reconciliation SCAN
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	incrementTimeout := opts.IncrementTimeout
	if incrementTimeout <= 0 {
		incrementTimeout = timeout
	}
	scanCount := opts.ScanCount
	if scanCount <= 0 {
		scanCount = 200
	}

	return &RedisStore{
		client:           client,
		timeout:          timeout,
		incrementTimeout: incrementTimeout,
		scanCount:        scanCount,
	}, nil
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func viewKey(recordID string) string {
	return viewKeyPrefix + recordID
}

func likeKey(recordID string) string {
	return likeKeyPrefix + recordID
}

// Increment bumps the counter and returns the post-increment value
func (s *RedisStore) Increment(ctx context.Context, recordID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.incrementTimeout)
	defer cancel()
	return s.client.Incr(ctx, viewKey(recordID)).Result()
}

// Read returns the current value; ok is false when no entry exists
func (s *RedisStore) Read(ctx context.Context, recordID string) (int64, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, viewKey(recordID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt counter value for %s: %w", recordID, err)
	}
	return n, true, nil
}

// Seed sets the counter to baseline only if no entry exists (SETNX)
func (s *RedisStore) Seed(ctx context.Context, recordID string, baseline int64) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SetNX(ctx, viewKey(recordID), baseline, 0).Result()
}

// Reseed force-sets the counter baseline
func (s *RedisStore) Reseed(ctx context.Context, recordID string, baseline int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Set(ctx, viewKey(recordID), baseline, 0).Err()
}

// Scan visits every tracked counter entry using cursor-based SCAN
func (s *RedisStore) Scan(ctx context.Context, fn func(recordID string, value int64) error) error {
	var cursor uint64
	for {
		// One timeout budget per SCAN page, not per full enumeration
		pageCtx, cancel := s.withTimeout(ctx)
		keys, next, err := s.client.Scan(pageCtx, cursor, viewKeyPrefix+"*", s.scanCount).Result()
		cancel()
		if err != nil {
			return err
		}

		for _, key := range keys {
			recordID := strings.TrimPrefix(key, viewKeyPrefix)

			value, ok, err := s.Read(ctx, recordID)
			if err != nil {
				return err
			}
			if !ok {
				continue // Evicted between SCAN and GET
			}

			if err := fn(recordID, value); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// TrackedKeys returns the number of counter entries currently held
func (s *RedisStore) TrackedKeys(ctx context.Context) (int, error) {
	count := 0
	var cursor uint64
	for {
		pageCtx, cancel := s.withTimeout(ctx)
		keys, next, err := s.client.Scan(pageCtx, cursor, viewKeyPrefix+"*", s.scanCount).Result()
		cancel()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

// ToggleLike flips the viewer's like and returns the new state
func (s *RedisStore) ToggleLike(ctx context.Context, recordID, viewerID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := likeKey(recordID)
	member, err := s.client.SIsMember(ctx, key, viewerID).Result()
	if err != nil {
		return false, err
	}

	if member {
		if err := s.client.SRem(ctx, key, viewerID).Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.client.SAdd(ctx, key, viewerID).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// IsLiked reports whether the viewer has liked the record
func (s *RedisStore) IsLiked(ctx context.Context, recordID, viewerID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SIsMember(ctx, likeKey(recordID), viewerID).Result()
}

// LikeCount returns the number of likes on the record
func (s *RedisStore) LikeCount(ctx context.Context, recordID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SCard(ctx, likeKey(recordID)).Result()
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
