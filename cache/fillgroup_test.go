package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFillGroup_SharesOneFill(t *testing.T) {
	g := NewFillGroup()

	var fills atomic.Int32
	started := make(chan struct{})
	gate := make(chan struct{})

	const callers = 10
	var wg sync.WaitGroup
	results := make([][]byte, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := g.Do("key", func() ([]byte, error) {
				if fills.Add(1) == 1 {
					close(started)
				}
				<-gate
				return []byte("filled"), nil
			})
			if err != nil {
				t.Errorf("fill failed: %v", err)
			}
			results[i] = v
		}(i)
	}

	// The first caller is blocked inside the fill; give the followers time
	// to queue up behind its promise before the gate opens.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := fills.Load(); n != 1 {
		t.Errorf("expected exactly one fill, got %d", n)
	}
	for i, v := range results {
		if string(v) != "filled" {
			t.Errorf("caller %d got %q", i, v)
		}
	}
}

func TestFillGroup_ErrorsPropagateToAllWaiters(t *testing.T) {
	g := NewFillGroup()
	boom := errors.New("durable store down")

	_, err := g.Do("key", func() ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fill error, got %v", err)
	}

	// A failed fill is not cached; the next caller runs fn again
	v, err := g.Do("key", func() ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || string(v) != "ok" {
		t.Errorf("expected retry to succeed, got %q %v", v, err)
	}
}

func TestFillGroup_DistinctKeysDoNotShare(t *testing.T) {
	g := NewFillGroup()

	var fills atomic.Int32
	for _, key := range []string{"a", "b", "c"} {
		if _, err := g.Do(key, func() ([]byte, error) {
			fills.Add(1)
			return []byte(key), nil
		}); err != nil {
			t.Fatalf("fill failed: %v", err)
		}
	}
	if fills.Load() != 3 {
		t.Errorf("distinct keys must each fill, got %d", fills.Load())
	}
}
