package block

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAllocator struct {
	after int
	calls int
}

func (f *failingAllocator) Allocate() ([]byte, error) {
	f.calls++
	if f.calls > f.after {
		return nil, errors.New("no memory left")
	}

	return make([]byte, Size), nil
}

func (f *failingAllocator) Release([]byte) error {
	return nil
}

func TestStoreFindBlockGrows(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	capacity, err := s.FindBlock(3)
	require.NoError(t, err)
	assert.Equal(t, Size, capacity)

	stats := s.Stats()
	assert.Equal(t, int64(4), stats.Rows)
	assert.Equal(t, int64(1), stats.Materialized)
	assert.Equal(t, int64(0), stats.Written)
	assert.Equal(t, 4*Size, s.LogicalSize())

	// Rows below the highest accessed one exist and materialize on access.
	capacity, err = s.FindBlock(1)
	require.NoError(t, err)
	assert.Equal(t, Size, capacity)
	assert.Equal(t, int64(2), s.Stats().Materialized)
	assert.Equal(t, 4*Size, s.LogicalSize())
}

func TestStoreFindBlockNeverShrinks(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	_, err := s.FindBlock(9)
	require.NoError(t, err)

	_, err = s.FindBlock(0)
	require.NoError(t, err)

	assert.Equal(t, 10*Size, s.LogicalSize())
}

func TestStoreEmptyLogicalSize(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	assert.Equal(t, int64(0), s.LogicalSize())
}

func TestStoreReadUntouchedIsZero(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	_, err := s.WriteBlock(2, 100, []byte{1, 2, 3})
	require.NoError(t, err)

	b := make([]byte, Size)
	n, err := s.ReadBlock(2, 0, b)
	require.NoError(t, err)
	require.Equal(t, int(Size), n)

	expected := make([]byte, Size)
	copy(expected[100:], []byte{1, 2, 3})
	assert.True(t, bytes.Equal(expected, b), "expected zero filled block around the written bytes")

	// Placeholder rows read back as zero once materialized.
	n, err = s.ReadBlock(0, 0, b)
	require.NoError(t, err)
	require.Equal(t, int(Size), n)
	assert.True(t, bytes.Equal(make([]byte, Size), b))
}

func TestStoreCopyClampsToBlock(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	data := bytes.Repeat([]byte{7}, 100)

	n, err := s.WriteBlock(0, Size-10, data)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	out := make([]byte, 100)
	n, err = s.ReadBlock(0, Size-10, out)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, data[:10], out[:10])

	assert.Equal(t, int64(1), s.Stats().Rows, "a clamped write must not touch the next row")
}

func TestStoreRowLimit(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 4)

	_, err := s.FindBlock(3)
	require.NoError(t, err)

	_, err = s.FindBlock(4)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 4*Size, s.LogicalSize(), "a rejected growth must not append rows")
}

func TestStoreAllocationFailure(t *testing.T) {
	alloc := &failingAllocator{after: 1}
	s := NewStore(alloc, 0)

	_, err := s.FindBlock(0)
	require.NoError(t, err)

	_, err = s.WriteBlock(5, 0, []byte{1})
	require.ErrorIs(t, err, ErrOutOfMemory)

	// The placeholders appended before the failure remain and are harmless.
	stats := s.Stats()
	assert.Equal(t, int64(6), stats.Rows)
	assert.Equal(t, int64(1), stats.Materialized)
	assert.Equal(t, int64(0), stats.Written)
}

func TestStoreInvalidIntraOffset(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	_, err := s.ReadBlock(0, Size, make([]byte, 1))
	require.ErrorIs(t, err, ErrInvalidOffset)

	_, err = s.WriteBlock(0, -1, []byte{1})
	require.ErrorIs(t, err, ErrInvalidOffset)

	_, err = s.FindBlock(-1)
	require.ErrorIs(t, err, ErrInvalidOffset)
}

func TestStoreWrittenTracking(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	_, err := s.WriteBlock(1, 0, []byte{1})
	require.NoError(t, err)

	_, err = s.WriteBlock(4, 0, nil)
	require.NoError(t, err)

	_, err = s.ReadBlock(3, 0, make([]byte, 1))
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, int64(5), stats.Rows)
	assert.Equal(t, int64(3), stats.Materialized)
	assert.Equal(t, int64(1), stats.Written)
}

func TestStoreClose(t *testing.T) {
	alloc := NewHeapAllocator(0)
	s := NewStore(alloc, 0)

	for row := int64(0); row < 8; row++ {
		_, err := s.WriteBlock(row, 0, []byte{byte(row)})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(8), alloc.Live())

	require.NoError(t, s.Close())
	assert.Equal(t, int64(0), alloc.Live())
	assert.Equal(t, int64(0), s.LogicalSize())
	assert.Equal(t, int64(0), s.Stats().Written)
}

func TestStoreConcurrentGrowth(t *testing.T) {
	s := NewStore(NewHeapAllocator(0), 0)

	const workers = 64

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(row int64) {
			defer wg.Done()

			n, err := s.WriteBlock(row, 0, []byte{byte(row)})
			if err != nil || n != 1 {
				t.Errorf("WriteBlock(%d) = %d, %v", row, n, err)
			}
		}(int64(i))
	}

	wg.Wait()

	assert.Equal(t, int64(workers)*Size, s.LogicalSize())

	for row := int64(0); row < workers; row++ {
		b := make([]byte, 1)
		_, err := s.ReadBlock(row, 0, b)
		require.NoError(t, err)
		assert.Equal(t, byte(row), b[0])
	}
}

func TestStoreAccessAfterClose(t *testing.T) {
	alloc := NewHeapAllocator(0)
	s := NewStore(alloc, 0)

	_, err := s.WriteBlock(0, 0, []byte{1})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.WriteBlock(3, 0, []byte{1})
	require.ErrorIs(t, err, ErrClosed)

	_, err = s.ReadBlock(0, 0, make([]byte, 1))
	require.ErrorIs(t, err, ErrClosed)

	_, err = s.FindBlock(0)
	require.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, int64(0), alloc.Live(), "a closed store must not allocate")
	assert.Equal(t, int64(0), s.LogicalSize())
}
