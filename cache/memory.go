package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/inkpress/inkpress/telemetry"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore implements Store on an in-process LRU.
// Suited to tests and single-instance deployments; invalidation is only
// visible within one process, so multi-instance setups need Redis.
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an LRU-bounded in-process cache
func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries < 1 {
		maxEntries = 1024
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &MemoryStore{entries: entries}, nil
}

// Get returns the cached bytes for key; ok is false on miss or expiry
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.entries.Remove(key)
		telemetry.CacheEntries.Set(float64(s.entries.Len()))
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key until ttl elapses
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	telemetry.CacheEntries.Set(float64(s.entries.Len()))
	return nil
}

// DeleteMatching removes every entry whose key matches the glob pattern
func (s *MemoryStore) DeleteMatching(ctx context.Context, pattern string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid cache pattern %q: %w", pattern, err)
	}

	for _, key := range s.entries.Keys() {
		if g.Match(key) {
			s.entries.Remove(key)
		}
	}
	telemetry.CacheEntries.Set(float64(s.entries.Len()))
	return nil
}

// Close is a no-op for the in-process backend
func (s *MemoryStore) Close() error {
	s.entries.Purge()
	return nil
}
