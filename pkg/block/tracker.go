package block

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Tracker remembers which rows have been written at least once.
type Tracker struct {
	b  *bitset.BitSet
	mu sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		// The bitset resizes automatically based on the maximum set bit.
		b: bitset.New(0),
	}
}

func (t *Tracker) Mark(row int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.b.Set(uint(row))
}

// Count returns the number of marked rows.
func (t *Tracker) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return int64(t.b.Count())
}
