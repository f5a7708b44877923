package nbd

import (
	"fmt"
	"io"

	"github.com/pojntfx/go-nbd/pkg/backend"

	"github.com/e2b-dev/infra/packages/scull/pkg/blockio"
	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
)

// Export presents a device handle as a fixed size NBD backend.
// Offsets are relative to the device cursor, like any other handle call.
type Export struct {
	handle *scull.Handle
	size   int64
}

var _ backend.Backend = (*Export)(nil)

func NewExport(handle *scull.Handle, size int64) *Export {
	return &Export{
		handle: handle,
		size:   size,
	}
}

func (e *Export) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= e.size {
		return 0, io.EOF
	}

	var short bool
	if int64(len(p)) > e.size-off {
		p = p[:e.size-off]
		short = true
	}

	n, err := blockio.ReadFull(e.handle, p, off)
	if err != nil {
		return n, fmt.Errorf("failed to read %d bytes at %d: %w", len(p), off, err)
	}

	if short {
		return n, io.EOF
	}

	return n, nil
}

func (e *Export) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || int64(len(p)) > e.size-off {
		return 0, fmt.Errorf("write of %d bytes at %d is past the export size %d", len(p), off, e.size)
	}

	n, err := blockio.WriteFull(e.handle, p, off)
	if err != nil {
		return n, fmt.Errorf("failed to write %d bytes at %d: %w", len(p), off, err)
	}

	return n, nil
}

func (e *Export) Size() (int64, error) {
	return e.size, nil
}

// Sync is a no-op, the device keeps everything in memory.
func (e *Export) Sync() error {
	return nil
}
