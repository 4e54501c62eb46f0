package policy

import "github.com/lox/blackjack/internal/card"

// HandState is the view of a player hand the oracle needs.
type HandState interface {
	Total() int
	Soft() bool
	IsPair() bool
}

// Oracle answers decisions from a read-only policy table.
type Oracle struct {
	table *Grid
}

// NewOracle wraps a policy table. The table must not be modified afterwards;
// one oracle may be shared by any number of workers.
func NewOracle(table *Grid) *Oracle {
	return &Oracle{table: table}
}

// Table returns the underlying policy table.
func (o *Oracle) Table() *Grid { return o.table }

// Code returns the raw table entry for a hand.
func (o *Oracle) Code(h HandState, upcard card.Rank, countIndex int) Code {
	return o.table.At(h.Total(), h.Soft(), card.DealerIndex(upcard), countIndex)
}

// Action looks up and decodes the decision for a hand against a dealer
// upcard at the given true-count bucket. Rule legality (doubling after a hit,
// hand limits) is enforced by the round engine, not here.
func (o *Oracle) Action(h HandState, upcard card.Rank, countIndex int) Action {
	return Decode(o.Code(h, upcard, countIndex), h.IsPair())
}
