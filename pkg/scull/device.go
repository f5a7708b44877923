package scull

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
	"github.com/e2b-dev/infra/packages/scull/pkg/cursor"
)

var ErrClosed = block.ErrClosed

// Device is a growable store of fixed size blocks with a shared cursor.
// The store and the cursor are locked independently, so a read or write only
// guarantees atomicity within the single block it touches.
//
// The device is reference counted: the creator holds one reference and every
// handle returned by Open holds another. The blocks are released when the
// last reference is dropped.
type Device struct {
	id       uuid.UUID
	store    *block.Store
	cursor   *cursor.Cursor
	observer Observer

	refs      atomic.Int64
	closeOnce sync.Once
}

func New(allocator block.Allocator, maxRows int64, observer Observer) *Device {
	if observer == nil {
		observer = NoopObserver{}
	}

	d := &Device{
		id:       uuid.New(),
		store:    block.NewStore(allocator, maxRows),
		cursor:   cursor.New(),
		observer: observer,
	}
	d.refs.Store(1)

	return d
}

func (d *Device) ID() uuid.UUID {
	return d.id
}

// Read copies bytes starting at off past the cursor into p.
// It never reads past the end of the block the start offset falls into.
func (d *Device) Read(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	row, intra, err := d.locate(off)
	if err != nil {
		return 0, err
	}

	n, err := d.store.ReadBlock(row, intra, p)
	if err != nil {
		return 0, fmt.Errorf("failed to read row %d: %w", row, err)
	}

	return n, nil
}

// Write copies p to off past the cursor.
// It never writes past the end of the block the start offset falls into.
func (d *Device) Write(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	row, intra, err := d.locate(off)
	if err != nil {
		return 0, err
	}

	n, err := d.store.WriteBlock(row, intra, p)
	if err != nil {
		return 0, fmt.Errorf("failed to write row %d: %w", row, err)
	}

	return n, nil
}

// Seek moves the cursor and returns its new position.
func (d *Device) Seek(whence cursor.Whence, value int64) (int64, error) {
	if d.refs.Load() == 0 {
		return 0, ErrClosed
	}

	return d.cursor.Seek(whence, value, d.store.LogicalSize)
}

func (d *Device) locate(off int64) (row, intra int64, err error) {
	if d.refs.Load() == 0 {
		return 0, 0, ErrClosed
	}

	total, err := block.Resolve(off, d.cursor.Position())
	if err != nil {
		return 0, 0, err
	}

	return block.Locate(total)
}

func (d *Device) Position() int64 {
	return d.cursor.Position()
}

func (d *Device) LogicalSize() int64 {
	return d.store.LogicalSize()
}

func (d *Device) Stats() block.Stats {
	return d.store.Stats()
}

// Refs returns the number of live references, the creator's included.
func (d *Device) Refs() int64 {
	return d.refs.Load()
}

// Open returns a new handle sharing the device's store and cursor.
func (d *Device) Open() (*Handle, error) {
	for {
		refs := d.refs.Load()
		if refs == 0 {
			return nil, ErrClosed
		}

		if d.refs.CompareAndSwap(refs, refs+1) {
			return newHandle(d), nil
		}
	}
}

// Close drops the creator's reference.
func (d *Device) Close() error {
	var err error
	closed := false

	d.closeOnce.Do(func() {
		closed = true
		err = d.release()
	})

	if !closed {
		return ErrClosed
	}

	return err
}

func (d *Device) release() error {
	if d.refs.Add(-1) > 0 {
		return nil
	}

	err := d.store.Close()
	if err != nil {
		return fmt.Errorf("failed to release blocks: %w", err)
	}

	return nil
}
