// Package reconcile folds volatile view counters back into the durable
// store. Each pass enumerates the counters the volatile store tracks and
// ratchets the durable view_count up to the live value. Counters are never
// reset or decremented, so a pass that runs twice, or crashes halfway and
// reruns, converges to the same durable state.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/counter"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/telemetry"
)

// Reconciler periodically flushes live counters to the durable store
type Reconciler struct {
	counters counter.Store
	durable  store.Store
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewReconciler creates a reconciler flushing on the given interval
func NewReconciler(counters counter.Store, durable store.Store, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		counters: counters,
		durable:  durable,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the periodic reconciliation loop
func (r *Reconciler) Start() {
	go r.loop()
}

// Stop halts the loop and waits for an in-flight pass to finish
func (r *Reconciler) Stop() {
	r.once.Do(func() {
		close(r.stopCh)
	})
	<-r.doneCh
}

func (r *Reconciler) loop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if _, err := r.RunPass(context.Background()); err != nil {
				log.Error().Err(err).Msg("Reconciliation pass failed")
			}
		}
	}
}

// PassStats reports what a single reconciliation pass did
type PassStats struct {
	Scanned int
	Applied int
	Failed  int
}

// RunPass flushes every tracked counter once. A record that fails to
// persist is logged and skipped; its counter is untouched, so the next
// pass picks it up again. Per-record failures are reported in the stats;
// the error is non-nil only when enumeration itself fails or every
// ratchet failed.
func (r *Reconciler) RunPass(ctx context.Context) (PassStats, error) {
	start := time.Now()
	var stats PassStats

	err := r.counters.Scan(ctx, func(recordID string, value int64) error {
		stats.Scanned++
		rows, err := r.durable.RatchetViewCount(ctx, recordID, value)
		if err != nil {
			stats.Failed++
			telemetry.ReconcileRatchetsTotal.With("failed").Inc()
			log.Warn().Err(err).
				Str("record_id", recordID).
				Int64("value", value).
				Msg("Failed to persist view count, will retry next pass")
			return nil
		}
		if rows > 0 {
			stats.Applied++
			telemetry.ReconcileRatchetsTotal.With("applied").Inc()
		} else {
			telemetry.ReconcileRatchetsTotal.With("noop").Inc()
		}
		return nil
	})

	elapsed := time.Since(start)
	telemetry.ReconcileDurationSeconds.Observe(elapsed.Seconds())

	if err != nil {
		telemetry.ReconcilePassesTotal.With("error").Inc()
		return stats, fmt.Errorf("counter enumeration failed: %w", err)
	}
	if stats.Failed > 0 && stats.Failed == stats.Scanned {
		telemetry.ReconcilePassesTotal.With("error").Inc()
		return stats, fmt.Errorf("all %d ratchet writes failed", stats.Failed)
	}

	telemetry.ReconcilePassesTotal.With("success").Inc()
	log.Debug().
		Int("scanned", stats.Scanned).
		Int("applied", stats.Applied).
		Int("failed", stats.Failed).
		Dur("elapsed", elapsed).
		Msg("Reconciliation pass complete")
	return stats, nil
}
