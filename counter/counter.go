// Package counter provides the volatile side of the view-count pipeline:
// per-record atomic counters, viewer like sets, and a best-effort dedup
// filter. Everything here is lossy by contract; the durable store holds the
// authoritative numbers and the reconciliation job closes the gap.
package counter

import "context"

// Store holds per-record view counters in a shared volatile store.
//
// A counter entry is the persisted baseline it was seeded from plus every
// view observed since. Entries are created lazily and are never reset by
// reconciliation; values only grow between passes.
type Store interface {
	// Increment bumps the counter and returns the post-increment value
	Increment(ctx context.Context, recordID string) (int64, error)

	// Read returns the current value. ok is false when no entry exists,
	// in which case callers fall back to the durable value.
	Read(ctx context.Context, recordID string) (value int64, ok bool, err error)

	// Seed sets the counter to baseline only if no entry exists. Race-safe:
	// backed by an atomic set-if-not-exists, never read-then-write. set
	// reports whether this call created the entry.
	Seed(ctx context.Context, recordID string, baseline int64) (set bool, err error)

	// Reseed force-sets the counter baseline. Used only by the
	// invalidation path after the durable count was written directly.
	Reseed(ctx context.Context, recordID string, baseline int64) error

	// Scan visits every tracked counter entry. Used by reconciliation;
	// values observed mid-pass are at least as fresh as enumeration time.
	Scan(ctx context.Context, fn func(recordID string, value int64) error) error

	// TrackedKeys returns the number of counter entries currently held
	TrackedKeys(ctx context.Context) (int, error)

	Close() error
}

// LikeStore tracks which viewers liked which records. Volatile and
// best-effort under the same fail-open policy as view counters.
type LikeStore interface {
	// ToggleLike flips the viewer's like and returns the new state
	ToggleLike(ctx context.Context, recordID, viewerID string) (liked bool, err error)

	// IsLiked reports whether the viewer has liked the record
	IsLiked(ctx context.Context, recordID, viewerID string) (bool, error)

	// LikeCount returns the number of likes on the record
	LikeCount(ctx context.Context, recordID string) (int64, error)
}
