package block

import (
	"fmt"
	"sync/atomic"
)

// Allocator hands out zero-filled buffers of exactly Size bytes.
type Allocator interface {
	Allocate() ([]byte, error)
	Release(b []byte) error
}

// HeapAllocator allocates blocks on the Go heap.
// A non-zero budget caps the number of blocks that can be live at once.
type HeapAllocator struct {
	budget int64
	live   atomic.Int64
}

var _ Allocator = (*HeapAllocator)(nil)

func NewHeapAllocator(budget int64) *HeapAllocator {
	return &HeapAllocator{
		budget: budget,
	}
}

func (h *HeapAllocator) Allocate() ([]byte, error) {
	live := h.live.Add(1)
	if h.budget > 0 && live > h.budget {
		h.live.Add(-1)

		return nil, fmt.Errorf("heap budget of %d blocks exhausted: %w", h.budget, ErrOutOfMemory)
	}

	return make([]byte, Size), nil
}

func (h *HeapAllocator) Release(b []byte) error {
	if b == nil {
		return nil
	}

	h.live.Add(-1)

	return nil
}

// Live returns the number of blocks handed out and not yet released.
func (h *HeapAllocator) Live() int64 {
	return h.live.Load()
}
