package content

import "fmt"

// NotFoundError indicates the record is absent or soft-deleted.
// Terminal; surfaced to callers as a 404-equivalent.
type NotFoundError struct {
	RecordID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %s not found", e.RecordID)
}

// ConflictError indicates a version mismatch: another writer committed
// between the caller's read and this mutation. Terminal; callers should
// refresh and retry, the subsystem never retries on their behalf.
type ConflictError struct {
	RecordID        string
	ExpectedVersion int64
	CurrentVersion  int64 // Zero when the conditional write lost the race after a matching read
}

func (e *ConflictError) Error() string {
	if e.CurrentVersion > 0 {
		return fmt.Sprintf("record %s version conflict: expected %d, current %d",
			e.RecordID, e.ExpectedVersion, e.CurrentVersion)
	}
	return fmt.Sprintf("record %s version conflict: expected %d, concurrent writer won",
		e.RecordID, e.ExpectedVersion)
}

// SlugExhaustionError indicates the slug disambiguation search hit its cap.
// A configuration-level failure: it means one owner holds over a hundred
// colliding slugs for the same base.
type SlugExhaustionError struct {
	OwnerID  string
	Base     string
	Attempts int
}

func (e *SlugExhaustionError) Error() string {
	return fmt.Sprintf("exhausted %d slug candidates for %q owned by %s",
		e.Attempts, e.Base, e.OwnerID)
}
