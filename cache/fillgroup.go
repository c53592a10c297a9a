package cache

import (
	"sync"

	"github.com/jizhuozhi/go-future"
)

// FillGroup collapses concurrent cache fills for the same key into one
// durable-store fetch. The first caller runs the fill function; everyone
// else arriving before it finishes waits on the same promise. Results are
// not retained past the fill, so the cache itself stays the only source of
// reuse.
type FillGroup struct {
	mu      sync.Mutex
	pending map[string]*future.Future[[]byte]
}

// NewFillGroup creates an empty fill group
func NewFillGroup() *FillGroup {
	return &FillGroup{
		pending: make(map[string]*future.Future[[]byte]),
	}
}

// Do returns the result of fn for key, running fn at most once across all
// concurrent callers of the same key.
func (g *FillGroup) Do(key string, fn func() ([]byte, error)) ([]byte, error) {
	g.mu.Lock()
	if f, ok := g.pending[key]; ok {
		g.mu.Unlock()
		return f.Get()
	}

	p := future.NewPromise[[]byte]()
	g.pending[key] = p.Future()
	g.mu.Unlock()

	value, err := fn()

	g.mu.Lock()
	delete(g.pending, key)
	g.mu.Unlock()

	p.Set(value, err)
	return value, err
}
