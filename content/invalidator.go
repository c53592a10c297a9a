package content

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/cache"
	"github.com/inkpress/inkpress/counter"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/telemetry"
)

// Invalidator maps a committed mutation to the cache entries that must be
// dropped and the counter baselines that must be reseeded. It runs
// synchronously after the durable write commits and before the mutation is
// acknowledged; a concurrent reader may still repopulate the cache with
// pre-mutation data while the delete is in flight, which the short TTL
// bounds (see cache.Store).
//
// Cache failures here are logged, never propagated: a missed invalidation
// degrades freshness within the TTL window, while failing the mutation
// would lose a committed write's acknowledgment.
type Invalidator struct {
	cache    cache.Store
	counters counter.Store
}

// NewInvalidator creates an invalidator over the given stores
func NewInvalidator(c cache.Store, counters counter.Store) *Invalidator {
	return &Invalidator{cache: c, counters: counters}
}

// OnMutation drops the record's cache entry, every list entry, and the
// owner's list entries. reseedBaseline, when non-nil, force-seeds the
// volatile counter to the durable count that the mutation wrote directly.
func (inv *Invalidator) OnMutation(ctx context.Context, rec *store.Record, reseedBaseline *int64) {
	inv.drop(ctx, "record", cache.RecordPattern(rec.ID))
	inv.drop(ctx, "lists", cache.ListPattern())
	inv.drop(ctx, "owner", cache.OwnerListPattern(rec.OwnerID))

	if reseedBaseline != nil {
		if err := inv.counters.Reseed(ctx, rec.ID, *reseedBaseline); err != nil {
			log.Warn().Err(err).
				Str("record_id", rec.ID).
				Int64("baseline", *reseedBaseline).
				Msg("Failed to reseed counter baseline after direct count write")
		}
	}
}

func (inv *Invalidator) drop(ctx context.Context, scope, pattern string) {
	telemetry.CacheInvalidationsTotal.With(scope).Inc()
	if err := inv.cache.DeleteMatching(ctx, pattern); err != nil {
		log.Warn().Err(err).
			Str("pattern", pattern).
			Msg("Cache invalidation failed - stale entries expire with TTL")
	}
}
