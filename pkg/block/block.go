package block

import (
	"errors"
	"fmt"
	"math"
)

// Size is the fixed size of every materialized block.
const Size int64 = 4096 // 4KB

var (
	// ErrOutOfMemory is returned when the store cannot grow or a block cannot be materialized.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrInvalidOffset is returned when an offset cannot be represented as a position in the store.
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrClosed is returned by a store whose blocks have been released.
	ErrClosed = errors.New("device is closed")
)

// Locate splits an absolute byte offset into the row and the offset inside that row.
func Locate(off int64) (row int64, intra int64, err error) {
	if off < 0 {
		return 0, 0, fmt.Errorf("offset %d: %w", off, ErrInvalidOffset)
	}

	row = off / Size
	if row > math.MaxInt {
		return 0, 0, fmt.Errorf("row %d is not addressable: %w", row, ErrInvalidOffset)
	}

	return row, off % Size, nil
}

// Offset returns the absolute byte offset of the first byte in row.
func Offset(row int64) int64 {
	return row * Size
}

// Resolve adds the caller relative offset to the cursor position.
func Resolve(off, position int64) (int64, error) {
	if off < 0 {
		return 0, fmt.Errorf("relative offset %d: %w", off, ErrInvalidOffset)
	}

	if position < 0 {
		return 0, fmt.Errorf("position %d: %w", position, ErrInvalidOffset)
	}

	if off > math.MaxInt64-position {
		return 0, fmt.Errorf("offset %d past position %d overflows: %w", off, position, ErrInvalidOffset)
	}

	return off + position, nil
}
