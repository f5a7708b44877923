package scull

import (
	"github.com/google/uuid"

	"github.com/e2b-dev/infra/packages/scull/pkg/cursor"
)

type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
	OpSeek  Op = "seek"
)

// Call describes a handle operation as it enters the device.
type Call struct {
	Device uuid.UUID
	Op     Op
	// Offset is the caller relative offset, or the seek value for seeks.
	Offset int64
	// Length is the size of the caller's buffer. Seeks leave it zero.
	Length int64
	Whence cursor.Whence
}

// Observer is notified when a handle operation starts.
// The returned function is called exactly once when the operation returns,
// with the bytes transferred (or the new cursor position for seeks).
type Observer interface {
	Begin(call Call) func(result int64, err error)
}

type NoopObserver struct{}

func (NoopObserver) Begin(Call) func(int64, error) {
	return func(int64, error) {}
}

type multiObserver []Observer

// MultiObserver fans every call out to all observers.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

func (m multiObserver) Begin(call Call) func(int64, error) {
	ends := make([]func(int64, error), 0, len(m))
	for _, o := range m {
		ends = append(ends, o.Begin(call))
	}

	return func(result int64, err error) {
		for _, end := range ends {
			end(result, err)
		}
	}
}
