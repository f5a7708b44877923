package blockio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e2b-dev/infra/packages/scull/pkg/block"
	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
)

type stuckDevice struct{}

func (stuckDevice) Read([]byte, int64) (int, error) {
	return 0, nil
}

func (stuckDevice) Write([]byte, int64) (int, error) {
	return 0, nil
}

func TestFullTransferAcrossBlocks(t *testing.T) {
	d := scull.New(block.NewHeapAllocator(0), 0, nil)
	defer d.Close()

	data := make([]byte, 3*block.Size+123)
	for i := range data {
		data[i] = byte(i % 253)
	}

	off := block.Size - 7

	n, err := WriteFull(d, data, off)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	out := make([]byte, len(data))
	n, err = ReadFull(d, out, off)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.True(t, bytes.Equal(data, out))

	assert.Equal(t, 5*block.Size, d.LogicalSize())
}

func TestFullTransferStopsOnError(t *testing.T) {
	d := scull.New(block.NewHeapAllocator(1), 0, nil)
	defer d.Close()

	n, err := WriteFull(d, make([]byte, 2*block.Size), 0)
	require.ErrorIs(t, err, block.ErrOutOfMemory)
	assert.Equal(t, int(block.Size), n)
}

func TestFullTransferWithoutProgress(t *testing.T) {
	_, err := ReadFull(stuckDevice{}, make([]byte, 1), 0)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = WriteFull(stuckDevice{}, make([]byte, 1), 0)
	require.ErrorIs(t, err, io.ErrShortWrite)

	n, err := ReadFull(stuckDevice{}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFullTransferNull(t *testing.T) {
	n, err := WriteFull(scull.Null{}, make([]byte, 10000), 0)
	require.NoError(t, err)
	assert.Equal(t, 10000, n)

	_, err = ReadFull(scull.Null{}, make([]byte, 10), 0)
	require.ErrorIs(t, err, io.EOF)
}
