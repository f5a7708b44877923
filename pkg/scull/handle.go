package scull

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
	"github.com/e2b-dev/infra/packages/scull/pkg/cursor"
)

// Handle is one open reference to a device.
// It reports every call to the device observer.
type Handle struct {
	device *Device
	closed atomic.Bool
}

var _ io.Seeker = (*Handle)(nil)

func newHandle(d *Device) *Handle {
	return &Handle{
		device: d,
	}
}

func (h *Handle) Read(p []byte, off int64) (n int, err error) {
	done := h.device.observer.Begin(Call{
		Device: h.device.id,
		Op:     OpRead,
		Offset: off,
		Length: int64(len(p)),
	})
	defer func() {
		done(int64(n), err)
	}()

	if h.closed.Load() {
		return 0, ErrClosed
	}

	return h.device.Read(p, off)
}

func (h *Handle) Write(p []byte, off int64) (n int, err error) {
	done := h.device.observer.Begin(Call{
		Device: h.device.id,
		Op:     OpWrite,
		Offset: off,
		Length: int64(len(p)),
	})
	defer func() {
		done(int64(n), err)
	}()

	if h.closed.Load() {
		return 0, ErrClosed
	}

	return h.device.Write(p, off)
}

// Seek implements io.Seeker over the device cursor.
func (h *Handle) Seek(offset int64, whence int) (pos int64, err error) {
	w, err := toWhence(whence)
	if err != nil {
		return 0, err
	}

	done := h.device.observer.Begin(Call{
		Device: h.device.id,
		Op:     OpSeek,
		Offset: offset,
		Whence: w,
	})
	defer func() {
		done(pos, err)
	}()

	if h.closed.Load() {
		return 0, ErrClosed
	}

	return h.device.Seek(w, offset)
}

func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	return h.device.release()
}

func toWhence(whence int) (cursor.Whence, error) {
	switch whence {
	case io.SeekStart:
		return cursor.Start, nil
	case io.SeekCurrent:
		return cursor.Current, nil
	case io.SeekEnd:
		return cursor.End, nil
	default:
		return 0, fmt.Errorf("unknown whence %d: %w", whence, block.ErrInvalidOffset)
	}
}
