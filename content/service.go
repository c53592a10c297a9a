package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/cache"
	"github.com/inkpress/inkpress/counter"
	"github.com/inkpress/inkpress/events"
	"github.com/inkpress/inkpress/id"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/telemetry"
)

// Service exposes the read and mutation operations of the content engine.
//
// Reads are cache-aside: check the cache, fall back to the durable store on
// miss, merge the live view count from the volatile counter store, and
// repopulate the cache. Writes go through the optimistic lock coordinator
// and invalidate affected cache entries before the result is acknowledged.
type Service struct {
	store    store.Store
	counters counter.Store
	likes    counter.LikeStore
	cache    cache.Store
	codec    cache.Codec
	inv      *Invalidator
	mutator  *Mutator
	fill     *cache.FillGroup
	dedup    *counter.DedupFilter
	hub      *events.Hub
	ids      id.Generator

	instanceID uint64
	listTTL    time.Duration
	recordTTL  time.Duration
}

// ServiceConfig wires a Service. Hub may be nil when event publishing is
// disabled; Dedup may be nil to count every view.
type ServiceConfig struct {
	Store      store.Store
	Counters   counter.Store
	Likes      counter.LikeStore
	Cache      cache.Store
	Codec      cache.Codec
	Dedup      *counter.DedupFilter
	Hub        *events.Hub
	IDs        id.Generator
	InstanceID uint64
	ListTTL    time.Duration
	RecordTTL  time.Duration
}

// NewService creates a content service over the given stores
func NewService(c ServiceConfig) *Service {
	listTTL := c.ListTTL
	if listTTL <= 0 {
		listTTL = time.Minute
	}
	recordTTL := c.RecordTTL
	if recordTTL <= 0 {
		recordTTL = 15 * time.Minute
	}

	return &Service{
		store:      c.Store,
		counters:   c.Counters,
		likes:      c.Likes,
		cache:      c.Cache,
		codec:      c.Codec,
		inv:        NewInvalidator(c.Cache, c.Counters),
		mutator:    NewMutator(c.Store),
		fill:       cache.NewFillGroup(),
		dedup:      c.Dedup,
		hub:        c.Hub,
		ids:        c.IDs,
		instanceID: c.InstanceID,
		listTTL:    listTTL,
		recordTTL:  recordTTL,
	}
}

// DisplayRecord is a record prepared for display: the durable row plus the
// volatile signals merged in.
type DisplayRecord struct {
	Record        *store.Record `json:"record"`
	LiveViewCount int64         `json:"live_view_count"`
	LikeCount     int64         `json:"like_count"`
	LikedByViewer bool          `json:"liked_by_viewer"`
}

// ListResult is a cached listing page
type ListResult struct {
	Records    []*store.Record  `json:"records" msgpack:"records"`
	Pagination store.Pagination `json:"pagination" msgpack:"pagination"`
}

// UpdateRequest carries the caller-mutable fields of a record
type UpdateRequest struct {
	Title   *string
	Body    *string
	Publish bool
}

// ReadRecordForDisplay returns the record with its live view count and like
// state for the viewer, bumping the view counter as a side effect. The
// counter bump and like lookups are best-effort; only durable-store failures
// propagate.
func (s *Service) ReadRecordForDisplay(ctx context.Context, recordID, viewerID string) (*DisplayRecord, error) {
	rec, err := s.cachedRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	display := &DisplayRecord{
		Record:        rec,
		LiveViewCount: s.bumpView(ctx, rec, viewerID),
	}

	if s.likes != nil {
		if count, err := s.likes.LikeCount(ctx, recordID); err == nil {
			display.LikeCount = count
		}
		if viewerID != "" {
			if liked, err := s.likes.IsLiked(ctx, recordID, viewerID); err == nil {
				display.LikedByViewer = liked
			}
		}
	}

	return display, nil
}

// cachedRecord loads a record cache-aside. Concurrent misses for the same
// record share one durable fetch through the fill group.
func (s *Service) cachedRecord(ctx context.Context, recordID string) (*store.Record, error) {
	key := cache.RecordKey(recordID)

	start := time.Now()
	data, ok, err := s.cache.Get(ctx, key)
	telemetry.CacheOpDurationSeconds.With("get").Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.CacheRequestsTotal.With("record", "error").Inc()
		log.Warn().Err(err).Str("record_id", recordID).Msg("Record cache read failed, forcing durable read")
	} else if ok {
		var rec store.Record
		if err := s.codec.Decode(data, &rec); err == nil {
			telemetry.CacheRequestsTotal.With("record", "hit").Inc()
			if rec.Deleted {
				return nil, &NotFoundError{RecordID: recordID}
			}
			return &rec, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
	}

	telemetry.CacheRequestsTotal.With("record", "miss").Inc()

	payload, err := s.fill.Do(key, func() ([]byte, error) {
		rec, err := s.store.GetRecord(ctx, recordID)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.Deleted {
			return nil, &NotFoundError{RecordID: recordID}
		}

		data, err := s.codec.Encode(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record for cache: %w", err)
		}
		if err := s.cache.Set(ctx, key, data, s.recordTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Record cache write failed")
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	var rec store.Record
	if err := s.codec.Decode(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record payload: %w", err)
	}
	return &rec, nil
}

// bumpView counts the view and returns the live count. Every failure on the
// volatile path falls back to the last known durable value: increments are
// best-effort signals, logged and dropped, never retried synchronously.
func (s *Service) bumpView(ctx context.Context, rec *store.Record, viewerID string) int64 {
	if s.dedup != nil && !s.dedup.ShouldCount(rec.ID, viewerID) {
		telemetry.ViewIncrementsTotal.With("deduped").Inc()
		return s.readLive(ctx, rec)
	}

	if _, ok, err := s.counters.Read(ctx, rec.ID); err != nil {
		telemetry.ViewIncrementsTotal.With("dropped").Inc()
		log.Warn().Err(err).Str("record_id", rec.ID).Msg("Counter read failed, dropping view increment")
		return s.readLive(ctx, rec)
	} else if !ok {
		if !s.seedCounter(ctx, rec.ID) {
			telemetry.ViewIncrementsTotal.With("dropped").Inc()
			return s.readLive(ctx, rec)
		}
	} else {
		telemetry.CounterSeedsTotal.With("present").Inc()
	}

	start := time.Now()
	live, err := s.counters.Increment(ctx, rec.ID)
	telemetry.CounterOpDurationSeconds.With("increment").Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.ViewIncrementsTotal.With("dropped").Inc()
		log.Warn().Err(err).Str("record_id", rec.ID).Msg("View increment failed, dropping")
		return s.readLive(ctx, rec)
	}

	telemetry.ViewIncrementsTotal.With("ok").Inc()
	return live
}

// seedCounter lazily creates the counter entry from a fresh durable read.
// The cached record's count can be a full TTL stale; seeding from it after
// a volatile-store flush would start the counter below the durable value
// and swallow the next increments. Seed stays a set-if-absent, so losing
// the race to a concurrent seeder or incrementer is harmless.
func (s *Service) seedCounter(ctx context.Context, recordID string) bool {
	fresh, err := s.store.GetRecord(ctx, recordID)
	if err != nil || fresh == nil {
		telemetry.CounterSeedsTotal.With("error").Inc()
		log.Warn().Err(err).Str("record_id", recordID).Msg("Baseline read failed, dropping view increment")
		return false
	}

	set, err := s.counters.Seed(ctx, recordID, fresh.ViewCount)
	if err != nil {
		telemetry.CounterSeedsTotal.With("error").Inc()
		log.Warn().Err(err).Str("record_id", recordID).Msg("Counter seed failed, dropping view increment")
		return false
	}
	if set {
		telemetry.CounterSeedsTotal.With("set").Inc()
	} else {
		telemetry.CounterSeedsTotal.With("present").Inc()
	}
	return true
}

// readLive reads the live counter, failing open to the durable value
func (s *Service) readLive(ctx context.Context, rec *store.Record) int64 {
	value, ok, err := s.counters.Read(ctx, rec.ID)
	if err != nil || !ok {
		telemetry.CounterReadFallbacksTotal.Inc()
		return rec.ViewCount
	}
	if value < rec.ViewCount {
		// A reseed lost a race with reconciliation; the durable value wins
		return rec.ViewCount
	}
	return value
}

// ListRecords returns a listing page cache-aside. Live view counts are
// merged in at fill time, so a cached page's counts age with its TTL.
func (s *Service) ListRecords(ctx context.Context, filters store.ListFilters, page store.Page) (*ListResult, error) {
	key := cache.ListKey(filters, page)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		telemetry.CacheRequestsTotal.With("list", "error").Inc()
		log.Warn().Err(err).Msg("List cache read failed, forcing durable read")
	} else if ok {
		var result ListResult
		if err := s.codec.Decode(data, &result); err == nil {
			telemetry.CacheRequestsTotal.With("list", "hit").Inc()
			return &result, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
	}

	telemetry.CacheRequestsTotal.With("list", "miss").Inc()

	payload, err := s.fill.Do(key, func() ([]byte, error) {
		records, pagination, err := s.store.ListRecords(ctx, filters, page)
		if err != nil {
			return nil, err
		}

		for _, rec := range records {
			if live, ok, err := s.counters.Read(ctx, rec.ID); err == nil && ok && live > rec.ViewCount {
				rec.ViewCount = live
			}
		}

		result := ListResult{Records: records, Pagination: pagination}
		data, err := s.codec.Encode(&result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode listing for cache: %w", err)
		}
		if err := s.cache.Set(ctx, key, data, s.listTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("List cache write failed")
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	var result ListResult
	if err := s.codec.Decode(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode listing payload: %w", err)
	}
	return &result, nil
}

// CreateRecord creates a draft record with a slug derived from the title
func (s *Service) CreateRecord(ctx context.Context, ownerID, title, body string) (*store.Record, error) {
	slug, err := disambiguateSlug(ctx, s.store, ownerID, Slugify(title), "")
	if err != nil {
		telemetry.MutationsTotal.With("create", mutationResult(err)).Inc()
		return nil, err
	}

	now := time.Now().UnixMilli()
	rec := &store.Record{
		ID:        strconv.FormatUint(s.ids.NextID(), 10),
		OwnerID:   ownerID,
		Title:     title,
		Body:      body,
		Slug:      slug,
		Status:    store.StatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.InsertRecord(ctx, rec); err != nil {
		telemetry.MutationsTotal.With("create", "error").Inc()
		return nil, err
	}

	s.inv.OnMutation(ctx, rec, nil)
	s.emit(events.KindCreated, rec)
	telemetry.MutationsTotal.With("create", "success").Inc()
	return rec, nil
}

// MutateRecord edits a record's mutable fields under optimistic locking.
// Invalidation runs after the durable write commits and before this
// function returns, so an acknowledged mutation is never shadowed by a
// pre-mutation cache entry that outlives it.
func (s *Service) MutateRecord(ctx context.Context, recordID string, expectedVersion int64, req UpdateRequest) (*store.Record, error) {
	start := time.Now()
	kind := events.KindEdited

	updated, err := s.mutator.Mutate(ctx, recordID, expectedVersion, func(current *store.Record) (store.Patch, error) {
		var patch store.Patch

		if req.Title != nil && *req.Title != current.Title {
			patch.Title = req.Title
			// Slugs follow the title only while drafting; published slugs
			// are frozen to preserve external links
			if current.Status == store.StatusDraft {
				slug, err := disambiguateSlug(ctx, s.store, current.OwnerID, Slugify(*req.Title), current.ID)
				if err != nil {
					return store.Patch{}, err
				}
				patch.Slug = &slug
			}
		}
		if req.Body != nil {
			patch.Body = req.Body
		}
		if req.Publish && current.Status == store.StatusDraft {
			status := store.StatusPublished
			publishedAt := time.Now().UnixMilli()
			patch.Status = &status
			patch.PublishedAt = &publishedAt
			kind = events.KindPublished
		}

		return patch, nil
	})

	mutKind := "edit"
	if kind == events.KindPublished {
		mutKind = "publish"
	}
	if err != nil {
		telemetry.MutationsTotal.With(mutKind, mutationResult(err)).Inc()
		return nil, err
	}
	if updated.Version == expectedVersion {
		// The request changed nothing; no write happened, so there is
		// nothing to invalidate or announce
		telemetry.MutationsTotal.With(mutKind, "noop").Inc()
		return updated, nil
	}

	s.inv.OnMutation(ctx, updated, nil)
	s.emit(kind, updated)

	telemetry.MutationsTotal.With(mutKind, "success").Inc()
	telemetry.MutationDurationSeconds.Observe(time.Since(start).Seconds())
	return updated, nil
}

// DeleteRecord tombstones a record under optimistic locking
func (s *Service) DeleteRecord(ctx context.Context, recordID string, expectedVersion int64) error {
	deleted := true
	updated, err := s.mutator.Mutate(ctx, recordID, expectedVersion, func(*store.Record) (store.Patch, error) {
		return store.Patch{Deleted: &deleted}, nil
	})
	if err != nil {
		telemetry.MutationsTotal.With("delete", mutationResult(err)).Inc()
		return err
	}

	s.inv.OnMutation(ctx, updated, nil)
	s.emit(events.KindDeleted, updated)
	telemetry.MutationsTotal.With("delete", "success").Inc()
	return nil
}

// OverrideViewCount writes the durable view count directly (an operator
// correction) and reseeds the volatile counter so it cannot report less
// than the new durable value.
func (s *Service) OverrideViewCount(ctx context.Context, recordID string, expectedVersion, count int64) (*store.Record, error) {
	if count < 0 {
		return nil, fmt.Errorf("view count must be non-negative")
	}

	updated, err := s.mutator.Mutate(ctx, recordID, expectedVersion, func(*store.Record) (store.Patch, error) {
		return store.Patch{ViewCount: &count}, nil
	})
	if err != nil {
		telemetry.MutationsTotal.With("override_views", mutationResult(err)).Inc()
		return nil, err
	}

	s.inv.OnMutation(ctx, updated, &count)
	telemetry.MutationsTotal.With("override_views", "success").Inc()
	return updated, nil
}

// ToggleLike flips the viewer's like on a record and returns the new state
func (s *Service) ToggleLike(ctx context.Context, recordID, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, fmt.Errorf("viewer identity is required to like a record")
	}

	// Confirm the record exists before touching the like set
	if _, err := s.cachedRecord(ctx, recordID); err != nil {
		return false, err
	}

	return s.likes.ToggleLike(ctx, recordID, viewerID)
}

func (s *Service) emit(kind events.Kind, rec *store.Record) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(events.Event{
		Kind:       kind,
		RecordID:   rec.ID,
		OwnerID:    rec.OwnerID,
		Slug:       rec.Slug,
		Version:    rec.Version,
		At:         time.Now().UnixMilli(),
		InstanceID: s.instanceID,
	})
}

func mutationResult(err error) string {
	var notFound *NotFoundError
	var conflict *ConflictError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &notFound):
		return "not_found"
	default:
		return "error"
	}
}
