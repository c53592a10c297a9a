package content

import (
	"context"
	"sort"
	"sync"

	"github.com/inkpress/inkpress/store"
)

// fakeStore is an in-memory store.Store for exercising the service and
// mutator without a database. Error fields inject failures per operation.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*store.Record

	getErr    error
	updateErr error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*store.Record)}
}

func (f *fakeStore) put(rec *store.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *rec
	f.records[rec.ID] = &clone
}

func (f *fakeStore) GetRecord(ctx context.Context, id string) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeStore) GetRecordBySlug(ctx context.Context, ownerID, slug string) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.OwnerID == ownerID && rec.Slug == slug {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListRecords(ctx context.Context, filters store.ListFilters, page store.Page) ([]*store.Record, store.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*store.Record
	for _, rec := range f.records {
		if rec.Deleted {
			continue
		}
		if filters.OwnerID != "" && rec.OwnerID != filters.OwnerID {
			continue
		}
		if filters.Status != "" && rec.Status != filters.Status {
			continue
		}
		clone := *rec
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt > matched[j].CreatedAt
	})

	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = 20
	}
	total := int64(len(matched))
	start := (page.Number - 1) * page.Size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}

	totalPages := total / int64(page.Size)
	if total%int64(page.Size) != 0 {
		totalPages++
	}
	return matched[start:end], store.Pagination{
		Page:       page.Number,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

func (f *fakeStore) InsertRecord(ctx context.Context, rec *store.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.put(rec)
	return nil
}

func (f *fakeStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, patch store.Patch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return 0, f.updateErr
	}

	rec, ok := f.records[id]
	if !ok || rec.Version != expectedVersion {
		return 0, nil
	}
	applyPatch(rec, patch)
	rec.Version++
	return 1, nil
}

func (f *fakeStore) RatchetViewCount(ctx context.Context, id string, candidate int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.ViewCount >= candidate {
		return 0, nil
	}
	rec.ViewCount = candidate
	return 1, nil
}

func (f *fakeStore) SlugExists(ctx context.Context, ownerID, slug string) (bool, error) {
	rec, err := f.GetRecordBySlug(ctx, ownerID, slug)
	return rec != nil, err
}

func (f *fakeStore) Close() error {
	return nil
}

var _ store.Store = (*fakeStore)(nil)
