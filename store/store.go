package store

import (
	"context"
	"fmt"
)

// Store is the contract over the authoritative relational store.
// All writes that must be atomic (version check-and-set, view count ratchet)
// are single conditional statements executed by the store itself, never
// read-then-write sequences in application code.
type Store interface {
	// GetRecord returns the record or (nil, nil) if the row is absent.
	// Soft-deleted rows ARE returned; callers decide how to surface them.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// GetRecordBySlug returns the record owned by ownerID with the given
	// slug, or (nil, nil) if absent.
	GetRecordBySlug(ctx context.Context, ownerID, slug string) (*Record, error)

	// ListRecords returns non-deleted records matching the filters,
	// newest first, windowed by page.
	ListRecords(ctx context.Context, filters ListFilters, page Page) ([]*Record, Pagination, error)

	// InsertRecord inserts a new record row
	InsertRecord(ctx context.Context, rec *Record) error

	// ConditionalUpdate applies the patch and bumps version by one, in a
	// single statement conditioned on version = expectedVersion. Returns
	// the number of rows affected; zero means another writer won.
	ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, patch Patch) (int64, error)

	// RatchetViewCount sets view_count to the larger of its current value
	// and candidate. Idempotent; repeated or out-of-order application can
	// never move the count backward. Returns the number of rows the driver
	// reports changed, which is zero when the ratchet was a no-op.
	RatchetViewCount(ctx context.Context, id string, candidate int64) (int64, error)

	// SlugExists reports whether ownerID already owns a record with slug
	SlugExists(ctx context.Context, ownerID, slug string) (bool, error)

	Close() error
}

// TransientError wraps a driver or network failure on the durable path.
// Callers may retry; the failure is never silently treated as success.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("durable store %s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}
