// Package policy holds the 4-D decision and win-rate tables shared by the
// simulator, the table generator and downstream firmware, and the oracle that
// turns a table lookup into a blackjack action.
//
// Both tables are indexed by [player total 0..21][soft 0/1][dealer upcard
// index 0..9][true-count bucket 0..11] and stored flat in row-major order, so
// the layout is bit-identical to a C array of the same shape.
package policy

import (
	"math"
)

const (
	Totals       = 22
	SoftStates   = 2
	Upcards      = 10
	CountBuckets = 12

	// Cells is the number of entries in a table.
	Cells = Totals * SoftStates * Upcards * CountBuckets

	// CountOffset shifts a rounded true count into a bucket index, so bucket
	// 0 covers true counts of -5 and below and bucket 11 covers +6 and above.
	CountOffset = 5

	// MaxTotal is the clamp for player totals; busted hands land on it.
	MaxTotal = Totals - 1
)

// Dims is the table shape in index order.
var Dims = [4]int{Totals, SoftStates, Upcards, CountBuckets}

// Grid is a dense table of small integers in the shared 4-D layout.
type Grid struct {
	cells [Cells]uint8
}

// State names one cell of a table.
type State struct {
	Total  int
	Soft   bool
	Upcard int // dealer upcard index, see card.DealerIndex
	Count  int // true-count bucket
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Index computes the flat offset of a cell. Every coordinate is clamped into
// range rather than rejected; unreachable cells hold sentinel values.
func Index(total int, soft bool, upcard, count int) int {
	t := clamp(total, 0, MaxTotal)
	s := 0
	if soft {
		s = 1
	}
	u := clamp(upcard, 0, Upcards-1)
	c := clamp(count, 0, CountBuckets-1)
	return ((t*SoftStates+s)*Upcards+u)*CountBuckets + c
}

// StateAt is the inverse of Index for in-range offsets.
func StateAt(idx int) State {
	idx = clamp(idx, 0, Cells-1)
	c := idx % CountBuckets
	idx /= CountBuckets
	u := idx % Upcards
	idx /= Upcards
	s := idx % SoftStates
	t := idx / SoftStates
	return State{Total: t, Soft: s == 1, Upcard: u, Count: c}
}

// Index returns the flat offset of the state.
func (s State) Index() int {
	return Index(s.Total, s.Soft, s.Upcard, s.Count)
}

// TrueCount returns the true count a bucket represents.
func (s State) TrueCount() float64 {
	return float64(s.Count - CountOffset)
}

// CountIndex converts a true count into a bucket: round half away from zero,
// shift by CountOffset, clamp to [0, CountBuckets-1].
func CountIndex(trueCount float64) int {
	if math.IsNaN(trueCount) {
		return CountOffset
	}
	if math.IsInf(trueCount, 0) {
		if trueCount > 0 {
			return CountBuckets - 1
		}
		return 0
	}
	return clamp(int(math.Round(trueCount))+CountOffset, 0, CountBuckets-1)
}

// At returns the value stored for a cell.
func (g *Grid) At(total int, soft bool, upcard, count int) uint8 {
	return g.cells[Index(total, soft, upcard, count)]
}

// Set stores a value for a cell.
func (g *Grid) Set(total int, soft bool, upcard, count int, v uint8) {
	g.cells[Index(total, soft, upcard, count)] = v
}

// Cells exposes the flat backing array in layout order.
func (g *Grid) Cells() []uint8 {
	return g.cells[:]
}

// Equal reports whether two grids hold identical values.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.cells == other.cells
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	c := *g
	return &c
}
