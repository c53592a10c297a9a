package id

import (
	"sync"
	"time"
)

// Generator provides unique record IDs.
// IDs are unique across instances and roughly time-ordered.
type Generator interface {
	NextID() uint64
}

const (
	timestampShift = 22
	instanceShift  = 10
	instanceMask   = 0xFFF // 12 bits of instance identity
	sequenceMask   = 0x3FF // 10 bits of per-millisecond sequence
)

// TimeGenerator generates unique 64-bit IDs.
// Format: (unix_ms << 22) | (instance_low_bits << 10) | sequence
// Thread-safe via an internal mutex.
type TimeGenerator struct {
	mu         sync.Mutex
	instanceID uint64
	lastMS     int64
	sequence   uint64
}

// NewTimeGenerator creates an ID generator bound to an instance identity
func NewTimeGenerator(instanceID uint64) *TimeGenerator {
	return &TimeGenerator{instanceID: instanceID & instanceMask}
}

// NextID generates a unique 64-bit ID.
// When a millisecond's sequence space is exhausted, it spins to the next
// millisecond rather than risking a duplicate.
func (g *TimeGenerator) NextID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now == g.lastMS {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			for now <= g.lastMS {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMS = now

	return uint64(now)<<timestampShift | g.instanceID<<instanceShift | g.sequence
}
