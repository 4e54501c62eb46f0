package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexLayout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Index(0, false, 0, 0))
	assert.Equal(t, 1, Index(0, false, 0, 1))
	assert.Equal(t, CountBuckets, Index(0, false, 1, 0))
	assert.Equal(t, Upcards*CountBuckets, Index(0, true, 0, 0))
	assert.Equal(t, SoftStates*Upcards*CountBuckets, Index(1, false, 0, 0))
	assert.Equal(t, Cells-1, Index(21, true, 9, 11))
	assert.Equal(t, 5280, Cells)
}

func TestIndexClampsCoordinates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Index(21, false, 3, 5), Index(25, false, 3, 5))
	assert.Equal(t, Index(0, true, 0, 0), Index(-4, true, -1, -7))
	assert.Equal(t, Index(10, false, 9, 11), Index(10, false, 40, 99))
}

func TestStateAtRoundTrip(t *testing.T) {
	t.Parallel()

	for idx := 0; idx < Cells; idx += 37 {
		s := StateAt(idx)
		require.Equal(t, idx, s.Index(), "state %+v", s)
	}
	s := StateAt(Index(16, false, 8, 7))
	assert.Equal(t, State{Total: 16, Upcard: 8, Count: 7}, s)
	assert.Equal(t, 2.0, s.TrueCount())
}

func TestCountIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tc   float64
		want int
	}{
		{0, 5},
		{0.49, 5},
		{0.5, 6},
		{-0.5, 4},
		{-0.49, 5},
		{2.5, 8},
		{-2.5, 2},
		{6, 11},
		{40, 11},
		{-5, 0},
		{-12.7, 0},
		{math.Inf(1), 11},
		{math.Inf(-1), 0},
		{math.NaN(), 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountIndex(tt.tc), "tc=%v", tt.tc)
	}
}

func TestGridSetCloneEqual(t *testing.T) {
	t.Parallel()

	g := &Grid{}
	g.Set(16, false, 8, 5, CodeStand)
	assert.Equal(t, CodeStand, g.At(16, false, 8, 5))
	assert.Equal(t, CodeStand, g.Cells()[Index(16, false, 8, 5)])

	c := g.Clone()
	assert.True(t, g.Equal(c))
	c.Set(16, false, 8, 5, CodeHit)
	assert.False(t, g.Equal(c))
	assert.Equal(t, CodeStand, g.At(16, false, 8, 5))

	var nilGrid *Grid
	assert.True(t, nilGrid.Equal(nil))
	assert.False(t, nilGrid.Equal(g))
}
