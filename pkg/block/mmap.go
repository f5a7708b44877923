package block

import (
	"fmt"

	"github.com/edsrzf/mmap-go"
)

// MmapAllocator backs every block with its own anonymous private mapping.
// The kernel hands the pages out zeroed, and a failed mapping surfaces as
// ErrOutOfMemory instead of a runtime panic.
type MmapAllocator struct{}

var _ Allocator = (*MmapAllocator)(nil)

func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{}
}

func (m *MmapAllocator) Allocate() ([]byte, error) {
	mm, err := mmap.MapRegion(nil, int(Size), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("error mapping block: %v: %w", err, ErrOutOfMemory)
	}

	return mm, nil
}

func (m *MmapAllocator) Release(b []byte) error {
	if b == nil {
		return nil
	}

	mm := mmap.MMap(b)

	err := mm.Unmap()
	if err != nil {
		return fmt.Errorf("error unmapping block: %w", err)
	}

	return nil
}
