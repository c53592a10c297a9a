package counter

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore implements Store and LikeStore in process memory.
// Suited to tests and single-instance deployments; counters are shared
// only within one process, so multi-instance setups need the Redis backend.
type MemoryStore struct {
	counters *xsync.MapOf[string, *atomic.Int64]

	likeMu sync.RWMutex
	likes  map[string]map[string]struct{}
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ LikeStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-process counter store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: xsync.NewMapOf[string, *atomic.Int64](),
		likes:    make(map[string]map[string]struct{}),
	}
}

// Increment bumps the counter and returns the post-increment value
func (s *MemoryStore) Increment(ctx context.Context, recordID string) (int64, error) {
	c, _ := s.counters.LoadOrStore(recordID, &atomic.Int64{})
	return c.Add(1), nil
}

// Read returns the current value; ok is false when no entry exists
func (s *MemoryStore) Read(ctx context.Context, recordID string) (int64, bool, error) {
	c, ok := s.counters.Load(recordID)
	if !ok {
		return 0, false, nil
	}
	return c.Load(), true, nil
}

// Seed sets the counter to baseline only if no entry exists
func (s *MemoryStore) Seed(ctx context.Context, recordID string, baseline int64) (bool, error) {
	c := &atomic.Int64{}
	c.Store(baseline)
	_, loaded := s.counters.LoadOrStore(recordID, c)
	return !loaded, nil
}

// Reseed force-sets the counter baseline
func (s *MemoryStore) Reseed(ctx context.Context, recordID string, baseline int64) error {
	c := &atomic.Int64{}
	c.Store(baseline)
	s.counters.Store(recordID, c)
	return nil
}

// Scan visits every tracked counter entry
func (s *MemoryStore) Scan(ctx context.Context, fn func(recordID string, value int64) error) error {
	var scanErr error
	s.counters.Range(func(recordID string, c *atomic.Int64) bool {
		if err := fn(recordID, c.Load()); err != nil {
			scanErr = err
			return false
		}
		return true
	})
	return scanErr
}

// TrackedKeys returns the number of counter entries currently held
func (s *MemoryStore) TrackedKeys(ctx context.Context) (int, error) {
	count := 0
	s.counters.Range(func(string, *atomic.Int64) bool {
		count++
		return true
	})
	return count, nil
}

// ToggleLike flips the viewer's like and returns the new state
func (s *MemoryStore) ToggleLike(ctx context.Context, recordID, viewerID string) (bool, error) {
	s.likeMu.Lock()
	defer s.likeMu.Unlock()

	viewers := s.likes[recordID]
	if viewers == nil {
		viewers = make(map[string]struct{})
		s.likes[recordID] = viewers
	}

	if _, liked := viewers[viewerID]; liked {
		delete(viewers, viewerID)
		return false, nil
	}
	viewers[viewerID] = struct{}{}
	return true, nil
}

// IsLiked reports whether the viewer has liked the record
func (s *MemoryStore) IsLiked(ctx context.Context, recordID, viewerID string) (bool, error) {
	s.likeMu.RLock()
	defer s.likeMu.RUnlock()
	_, liked := s.likes[recordID][viewerID]
	return liked, nil
}

// LikeCount returns the number of likes on the record
func (s *MemoryStore) LikeCount(ctx context.Context, recordID string) (int64, error) {
	s.likeMu.RLock()
	defer s.likeMu.RUnlock()
	return int64(len(s.likes[recordID])), nil
}

// Close is a no-op for the in-process backend
func (s *MemoryStore) Close() error {
	return nil
}
