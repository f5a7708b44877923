package block

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultMaxRows caps the store at 1 GiB unless configured otherwise.
const DefaultMaxRows int64 = 262144

// Store is an append-only arena of Size blocks indexed by row.
// Rows are appended as empty placeholders and materialized on first access.
type Store struct {
	mu           sync.Mutex
	rows         [][]byte
	materialized int64

	allocator Allocator
	maxRows   int64
	written   *Tracker
	closed    bool
}

type Stats struct {
	// Rows is the number of rows in the index space, placeholders included.
	Rows int64
	// Materialized is the number of rows backed by a full block.
	Materialized int64
	// Written is the number of rows written at least once.
	Written int64
	// LogicalSize is Rows * Size.
	LogicalSize int64
}

func NewStore(allocator Allocator, maxRows int64) *Store {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	return &Store{
		allocator: allocator,
		maxRows:   maxRows,
		written:   NewTracker(),
	}
}

// FindBlock makes sure the row exists and is materialized, growing the store if needed.
// It returns the usable capacity of the block.
func (s *Store) FindBlock(row int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findBlock(row)
}

func (s *Store) findBlock(row int64) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	if row < 0 {
		return 0, fmt.Errorf("row %d: %w", row, ErrInvalidOffset)
	}

	if row >= s.maxRows {
		return 0, fmt.Errorf("row %d is past the limit of %d rows: %w", row, s.maxRows, ErrOutOfMemory)
	}

	if fill := row + 1 - int64(len(s.rows)); fill > 0 {
		s.rows = append(s.rows, make([][]byte, fill)...)
	}

	if int64(len(s.rows[row])) != Size {
		b, err := s.allocator.Allocate()
		if errors.Is(err, ErrOutOfMemory) {
			return 0, fmt.Errorf("failed to materialize row %d: %w", row, err)
		}

		if err != nil {
			return 0, fmt.Errorf("failed to materialize row %d: %w: %w", row, ErrOutOfMemory, err)
		}

		s.rows[row] = b
		s.materialized++
	}

	return Size, nil
}

// ReadBlock copies bytes of row starting at intra into p.
// The copy never crosses the end of the block.
func (s *Store) ReadBlock(row, intra int64, p []byte) (int, error) {
	if intra < 0 || intra >= Size {
		return 0, fmt.Errorf("intra block offset %d: %w", intra, ErrInvalidOffset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	capacity, err := s.findBlock(row)
	if err != nil {
		return 0, err
	}

	return copy(p, s.rows[row][intra:clamp(intra, int64(len(p)), capacity)]), nil
}

// WriteBlock copies p into row starting at intra.
// The copy never crosses the end of the block.
func (s *Store) WriteBlock(row, intra int64, p []byte) (int, error) {
	if intra < 0 || intra >= Size {
		return 0, fmt.Errorf("intra block offset %d: %w", intra, ErrInvalidOffset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	capacity, err := s.findBlock(row)
	if err != nil {
		return 0, err
	}

	n := copy(s.rows[row][intra:clamp(intra, int64(len(p)), capacity)], p)
	if n > 0 {
		s.written.Mark(row)
	}

	return n, nil
}

// LogicalSize counts every row as a full block.
func (s *Store) LogicalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.rows)) * Size
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Rows:         int64(len(s.rows)),
		Materialized: s.materialized,
		Written:      s.written.Count(),
		LogicalSize:  int64(len(s.rows)) * Size,
	}
}

// Close returns every block to the allocator.
// Accesses after Close fail with ErrClosed and never allocate.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var errs []error
	for i, b := range s.rows {
		if err := s.allocator.Release(b); err != nil {
			errs = append(errs, fmt.Errorf("failed to release row %d: %w", i, err))
		}
	}

	s.rows = nil
	s.materialized = 0
	s.written = NewTracker()

	return errors.Join(errs...)
}

// clamp returns the end of a transfer of length bytes starting at intra in a block of capacity bytes.
func clamp(intra, length, capacity int64) int64 {
	if length < capacity-intra {
		return intra + length
	}

	return capacity
}
