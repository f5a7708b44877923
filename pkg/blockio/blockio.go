// Package blockio turns single-block transfers into full transfers by
// re-invoking them with an advanced offset.
package blockio

import (
	"io"
)

// Reader reads at most one block per call, starting at off.
type Reader interface {
	Read(p []byte, off int64) (int, error)
}

// Writer writes at most one block per call, starting at off.
type Writer interface {
	Write(p []byte, off int64) (int, error)
}

// ReadFull fills p starting at off.
// A call that makes no progress ends the transfer with io.ErrUnexpectedEOF.
func ReadFull(r Reader, p []byte, off int64) (int, error) {
	var n int
	for n < len(p) {
		m, err := r.Read(p[n:], off+int64(n))
		n += m

		if err != nil {
			return n, err
		}

		if m == 0 {
			return n, io.ErrUnexpectedEOF
		}
	}

	return n, nil
}

// WriteFull writes all of p starting at off.
// A call that makes no progress ends the transfer with io.ErrShortWrite.
func WriteFull(w Writer, p []byte, off int64) (int, error) {
	var n int
	for n < len(p) {
		m, err := w.Write(p[n:], off+int64(n))
		n += m

		if err != nil {
			return n, err
		}

		if m == 0 {
			return n, io.ErrShortWrite
		}
	}

	return n, nil
}
