package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s, err := NewMemoryStore(64)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	v, ok, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || string(v) != "v1" {
		t.Errorf("expected v1, got %q (ok=%v)", v, ok)
	}

	_, ok, err = s.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s, _ := NewMemoryStore(64)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), 10*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected entry to expire with TTL")
	}
}

func TestMemoryStore_DeleteMatching(t *testing.T) {
	s, _ := NewMemoryStore(64)
	ctx := context.Background()

	keys := []string{
		"inkpress:record:1",
		"inkpress:list:all:aa",
		"inkpress:list:o.alice:bb",
		"inkpress:list:o.bob:cc",
	}
	for _, k := range keys {
		if err := s.Set(ctx, k, []byte("x"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	// Drop only alice's list entries
	if err := s.DeleteMatching(ctx, "inkpress:list:o.alice:*"); err != nil {
		t.Fatalf("delete matching failed: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "inkpress:list:o.alice:bb"); ok {
		t.Error("alice's list entry should be gone")
	}
	if _, ok, _ := s.Get(ctx, "inkpress:list:o.bob:cc"); !ok {
		t.Error("bob's list entry should survive")
	}
	if _, ok, _ := s.Get(ctx, "inkpress:record:1"); !ok {
		t.Error("record entry should survive")
	}

	// Drop every list entry
	if err := s.DeleteMatching(ctx, "inkpress:list:*"); err != nil {
		t.Fatalf("delete matching failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "inkpress:list:all:aa"); ok {
		t.Error("list entries should be gone after wildcard delete")
	}
	if _, ok, _ := s.Get(ctx, "inkpress:record:1"); !ok {
		t.Error("record entry should still survive")
	}
}

func TestMemoryStore_EvictsAtCapacity(t *testing.T) {
	s, _ := NewMemoryStore(2)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), time.Minute)
	_ = s.Set(ctx, "b", []byte("2"), time.Minute)
	_ = s.Set(ctx, "c", []byte("3"), time.Minute)

	// Oldest entry is evicted, not errored
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("expected LRU eviction of the oldest key")
	}
	if _, ok, _ := s.Get(ctx, "c"); !ok {
		t.Error("newest key must survive")
	}
}
