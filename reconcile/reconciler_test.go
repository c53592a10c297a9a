package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/inkpress/inkpress/counter"
	"github.com/inkpress/inkpress/store"
)

func newTestStores(t *testing.T) (*counter.MemoryStore, *store.SQLStore) {
	t.Helper()
	durable, err := store.NewSQLStore(store.Options{
		Driver:       "sqlite3",
		DSN:          ":memory:",
		QueryTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to open durable store: %v", err)
	}
	t.Cleanup(func() { durable.Close() })
	return counter.NewMemoryStore(), durable
}

func insertRecord(t *testing.T, durable *store.SQLStore, id string, views int64) {
	t.Helper()
	now := time.Now().UnixMilli()
	err := durable.InsertRecord(context.Background(), &store.Record{
		ID:        id,
		OwnerID:   "alice",
		Title:     "Title",
		Slug:      "slug-" + id,
		Status:    store.StatusPublished,
		Version:   1,
		ViewCount: views,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestRunPass_FlushesCounters(t *testing.T) {
	counters, durable := newTestStores(t)
	ctx := context.Background()

	insertRecord(t, durable, "r1", 0)
	_, _ = counters.Seed(ctx, "r1", 0)
	for i := 0; i < 10; i++ {
		if _, err := counters.Increment(ctx, "r1"); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	r := NewReconciler(counters, durable, time.Minute)
	stats, err := r.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if stats.Scanned != 1 || stats.Applied != 1 || stats.Failed != 0 {
		t.Errorf("unexpected pass stats: %+v", stats)
	}

	rec, err := durable.GetRecord(ctx, "r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec.ViewCount != 10 {
		t.Errorf("expected persisted count 10, got %d", rec.ViewCount)
	}

	// The counter is never reset; increments during a pass survive it
	live, ok, _ := counters.Read(ctx, "r1")
	if !ok || live != 10 {
		t.Errorf("counter must survive reconciliation, got %d (ok=%v)", live, ok)
	}
}

func TestRunPass_Idempotent(t *testing.T) {
	counters, durable := newTestStores(t)
	ctx := context.Background()

	insertRecord(t, durable, "r1", 0)
	_ = counters.Reseed(ctx, "r1", 25)

	r := NewReconciler(counters, durable, time.Minute)
	if _, err := r.RunPass(ctx); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if _, err := r.RunPass(ctx); err != nil {
		t.Fatalf("repeat pass failed: %v", err)
	}

	rec, _ := durable.GetRecord(ctx, "r1")
	if rec.ViewCount != 25 {
		t.Errorf("repeat passes must converge, got %d", rec.ViewCount)
	}
}

func TestRunPass_NeverMovesCountBackward(t *testing.T) {
	counters, durable := newTestStores(t)
	ctx := context.Background()

	// Durable is ahead of the counter, e.g. after an operator correction
	insertRecord(t, durable, "r1", 100)
	_ = counters.Reseed(ctx, "r1", 40)

	r := NewReconciler(counters, durable, time.Minute)
	if _, err := r.RunPass(ctx); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	rec, _ := durable.GetRecord(ctx, "r1")
	if rec.ViewCount != 100 {
		t.Errorf("a stale counter must not lower the durable count, got %d", rec.ViewCount)
	}
}

func TestRunPass_ViewsArriveBetweenPasses(t *testing.T) {
	counters, durable := newTestStores(t)
	ctx := context.Background()

	insertRecord(t, durable, "r1", 0)
	_, _ = counters.Seed(ctx, "r1", 0)
	_, _ = counters.Increment(ctx, "r1")

	r := NewReconciler(counters, durable, time.Minute)
	if _, err := r.RunPass(ctx); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		_, _ = counters.Increment(ctx, "r1")
	}
	if _, err := r.RunPass(ctx); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	rec, _ := durable.GetRecord(ctx, "r1")
	if rec.ViewCount != 5 {
		t.Errorf("expected 5 after both passes, got %d", rec.ViewCount)
	}
}

func TestRunPass_SkipsUnknownRecords(t *testing.T) {
	counters, durable := newTestStores(t)
	ctx := context.Background()

	insertRecord(t, durable, "r1", 0)
	_ = counters.Reseed(ctx, "r1", 7)
	// A counter for a record the durable store never saw (e.g. deleted)
	_ = counters.Reseed(ctx, "ghost", 99)

	r := NewReconciler(counters, durable, time.Minute)
	stats, err := r.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	// The ghost update matches no row, which is a no-op, not a failure
	if stats.Scanned != 2 || stats.Failed != 0 {
		t.Errorf("unexpected pass stats: %+v", stats)
	}

	rec, _ := durable.GetRecord(ctx, "r1")
	if rec.ViewCount != 7 {
		t.Errorf("known record must still flush, got %d", rec.ViewCount)
	}
}

func TestStartStop(t *testing.T) {
	counters, durable := newTestStores(t)
	ctx := context.Background()

	insertRecord(t, durable, "r1", 0)
	_ = counters.Reseed(ctx, "r1", 3)

	r := NewReconciler(counters, durable, 10*time.Millisecond)
	r.Start()
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	rec, _ := durable.GetRecord(ctx, "r1")
	if rec.ViewCount != 3 {
		t.Errorf("expected the loop to flush, got %d", rec.ViewCount)
	}
}
