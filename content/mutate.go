package content

import (
	"context"
	"time"

	"github.com/inkpress/inkpress/store"
)

// MutationFn inspects the current record and produces the patch to apply.
// It runs after the version check but its result only commits if the
// conditional write still sees the expected version.
type MutationFn func(current *store.Record) (store.Patch, error)

// Mutator is the optimistic lock coordinator: version-stamped compare-and-
// swap over the durable store. The version check and the write are a single
// conditional statement executed by the store, so a second mutator cannot
// interleave between them; the earlier application-side read only exists to
// fail fast and to feed the mutation function.
type Mutator struct {
	store store.Store
}

// NewMutator creates a mutator over the given durable store
func NewMutator(s store.Store) *Mutator {
	return &Mutator{store: s}
}

// Mutate applies fn's patch to the record iff its version still equals
// expectedVersion, returning the updated record with its new version.
func (m *Mutator) Mutate(ctx context.Context, id string, expectedVersion int64, fn MutationFn) (*store.Record, error) {
	current, err := m.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Deleted {
		return nil, &NotFoundError{RecordID: id}
	}
	if current.Version != expectedVersion {
		return nil, &ConflictError{
			RecordID:        id,
			ExpectedVersion: expectedVersion,
			CurrentVersion:  current.Version,
		}
	}

	patch, err := fn(current)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		// Nothing to write; hand the record back without burning a version
		return current, nil
	}

	rows, err := m.store.ConditionalUpdate(ctx, id, expectedVersion, patch)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// The read above matched but another writer committed first
		return nil, &ConflictError{RecordID: id, ExpectedVersion: expectedVersion}
	}

	updated := *current
	applyPatch(&updated, patch)
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = time.Now().UnixMilli()
	return &updated, nil
}

func applyPatch(rec *store.Record, patch store.Patch) {
	if patch.Title != nil {
		rec.Title = *patch.Title
	}
	if patch.Body != nil {
		rec.Body = *patch.Body
	}
	if patch.Slug != nil {
		rec.Slug = *patch.Slug
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.PublishedAt != nil {
		rec.PublishedAt = *patch.PublishedAt
	}
	if patch.Deleted != nil {
		rec.Deleted = *patch.Deleted
	}
	if patch.ViewCount != nil {
		rec.ViewCount = *patch.ViewCount
	}
}
