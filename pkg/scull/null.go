package scull

import "io"

// Null discards every write and has nothing to read.
type Null struct{}

func (Null) Read([]byte, int64) (int, error) {
	return 0, io.EOF
}

func (Null) Write(p []byte, _ int64) (int, error) {
	return len(p), nil
}
