package block

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		off   int64
		row   int64
		intra int64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{Size - 1, 0, Size - 1},
		{Size, 1, 0},
		{Size + 1, 1, 1},
		{10*Size + 17, 10, 17},
	}

	for _, tt := range tests {
		row, intra, err := Locate(tt.off)
		require.NoError(t, err)
		assert.Equal(t, tt.row, row, "row of %d", tt.off)
		assert.Equal(t, tt.intra, intra, "intra offset of %d", tt.off)
		assert.Equal(t, tt.off, Offset(row)+intra)
	}
}

func TestLocateNegative(t *testing.T) {
	_, _, err := Locate(-1)
	require.ErrorIs(t, err, ErrInvalidOffset)
}

func TestResolve(t *testing.T) {
	total, err := Resolve(10, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(4106), total)

	_, err = Resolve(-1, 0)
	require.ErrorIs(t, err, ErrInvalidOffset)

	_, err = Resolve(1, math.MaxInt64)
	require.ErrorIs(t, err, ErrInvalidOffset)

	total, err = Resolve(0, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), total)
}
