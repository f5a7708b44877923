package cursor

import (
	"fmt"
	"math"
	"sync"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
)

type Whence int

const (
	// Start positions the cursor at an absolute offset.
	Start Whence = iota
	// Current moves the cursor relative to its current position.
	Current
	// End positions the cursor relative to the logical size of the store.
	End
)

func (w Whence) String() string {
	switch w {
	case Start:
		return "start"
	case Current:
		return "current"
	case End:
		return "end"
	default:
		return fmt.Sprintf("whence(%d)", int(w))
	}
}

// Cursor is a non-negative position guarded by its own lock.
type Cursor struct {
	mu       sync.Mutex
	position int64
}

func New() *Cursor {
	return &Cursor{}
}

func (c *Cursor) Position() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.position
}

// Seek repositions the cursor and returns the new position.
// For End the size is read before the cursor lock is taken, so an End seek
// can observe a size that concurrent growth has already made stale.
func (c *Cursor) Seek(whence Whence, value int64, size func() int64) (int64, error) {
	switch whence {
	case Start:
		if value < 0 {
			return 0, fmt.Errorf("seek to %d: %w", value, block.ErrInvalidOffset)
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		c.position = value

		return c.position, nil
	case End:
		end := size()

		c.mu.Lock()
		defer c.mu.Unlock()

		c.position = saturatingAdd(end, value)

		return c.position, nil
	case Current:
		c.mu.Lock()
		defer c.mu.Unlock()

		c.position = saturatingAdd(c.position, value)

		return c.position, nil
	default:
		return 0, fmt.Errorf("unknown %s: %w", whence, block.ErrInvalidOffset)
	}
}

// saturatingAdd adds a signed delta to a non-negative base, clamping the result to [0, math.MaxInt64].
func saturatingAdd(base, delta int64) int64 {
	if delta > 0 && base > math.MaxInt64-delta {
		return math.MaxInt64
	}

	if sum := base + delta; sum > 0 {
		return sum
	}

	return 0
}
