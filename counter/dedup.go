package counter

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	cuckoo "github.com/linvon/cuckoo-filter"
)

const (
	// Cuckoo filter configuration
	dedupBucketSize      = 4
	dedupFingerprintSize = 16 // 16-bit fingerprint keeps memory low; false positives only suppress a view
)

// DedupFilter suppresses repeat view counting for the same (record, viewer)
// pair within a rotation window. Process-local and best-effort: a restart or
// a second instance counts the pair again, which only inflates a non-critical
// signal. A false positive drops a single view, never corrupts state.
//
// Thread-safe for concurrent access.
type DedupFilter struct {
	mu        sync.Mutex
	filter    *cuckoo.Filter
	capacity  uint
	window    time.Duration
	rotatedAt time.Time
}

// NewDedupFilter creates a filter with the given bucket count that forgets
// all pairs every window. A window of zero disables dedup entirely.
func NewDedupFilter(capacity int, window time.Duration) *DedupFilter {
	if capacity < 1 {
		capacity = 1
	}
	f := &DedupFilter{
		capacity:  uint(capacity),
		window:    window,
		rotatedAt: time.Now(),
	}
	f.filter = cuckoo.NewFilter(dedupBucketSize, dedupFingerprintSize, f.capacity, cuckoo.TableTypePacked)
	return f
}

// ShouldCount reports whether this view should be counted. The first call
// for a pair within the window returns true and remembers the pair; repeats
// return false. An empty viewerID always counts (anonymous traffic carries
// no identity to dedup on).
func (f *DedupFilter) ShouldCount(recordID, viewerID string) bool {
	if f.window <= 0 || viewerID == "" {
		return true
	}

	h := pairHash(recordID, viewerID)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, h)

	f.mu.Lock()
	defer f.mu.Unlock()

	if time.Since(f.rotatedAt) >= f.window {
		f.filter = cuckoo.NewFilter(dedupBucketSize, dedupFingerprintSize, f.capacity, cuckoo.TableTypePacked)
		f.rotatedAt = time.Now()
	}

	if f.filter.Contain(buf) {
		return false
	}

	// Add can fail when the filter saturates; count the view rather than
	// silently dropping everything until rotation
	f.filter.Add(buf)
	return true
}

// pairHash combines record and viewer to avoid cross-record collisions
func pairHash(recordID, viewerID string) uint64 {
	h := xxhash.New()
	h.WriteString(recordID)
	h.WriteString(":")
	h.WriteString(viewerID)
	return h.Sum64()
}
