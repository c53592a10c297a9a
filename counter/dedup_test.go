package counter

import (
	"fmt"
	"testing"
	"time"
)

func TestDedupFilter_SuppressesRepeats(t *testing.T) {
	f := NewDedupFilter(1000, time.Hour)

	if !f.ShouldCount("r1", "viewer1") {
		t.Fatal("first view must count")
	}
	if f.ShouldCount("r1", "viewer1") {
		t.Error("repeat view within window must not count")
	}

	// Different viewer and different record are independent pairs
	if !f.ShouldCount("r1", "viewer2") {
		t.Error("different viewer must count")
	}
	if !f.ShouldCount("r2", "viewer1") {
		t.Error("same viewer on a different record must count")
	}
}

func TestDedupFilter_AnonymousAlwaysCounts(t *testing.T) {
	f := NewDedupFilter(1000, time.Hour)

	for i := 0; i < 5; i++ {
		if !f.ShouldCount("r1", "") {
			t.Fatal("anonymous views carry no identity and always count")
		}
	}
}

func TestDedupFilter_ZeroWindowDisables(t *testing.T) {
	f := NewDedupFilter(1000, 0)

	for i := 0; i < 5; i++ {
		if !f.ShouldCount("r1", "viewer1") {
			t.Fatal("zero window must disable dedup")
		}
	}
}

func TestDedupFilter_WindowRotationForgets(t *testing.T) {
	f := NewDedupFilter(1000, 10*time.Millisecond)

	if !f.ShouldCount("r1", "viewer1") {
		t.Fatal("first view must count")
	}

	time.Sleep(20 * time.Millisecond)

	if !f.ShouldCount("r1", "viewer1") {
		t.Error("view after rotation must count again")
	}
}

func TestDedupFilter_ManyPairs(t *testing.T) {
	f := NewDedupFilter(10000, time.Hour)

	// Cuckoo filters have a small false positive rate, so a fresh pair can
	// occasionally be suppressed; assert the overwhelming majority counts.
	counted := 0
	for i := 0; i < 1000; i++ {
		viewer := fmt.Sprintf("viewer-%d", i)
		if f.ShouldCount("r1", viewer) {
			counted++
		}
	}
	if counted < 990 {
		t.Errorf("expected nearly all fresh pairs to count, got %d/1000", counted)
	}
}
