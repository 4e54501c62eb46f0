package shoe

import (
	rand "math/rand/v2"

	"github.com/lox/blackjack/internal/card"
)

// Infinite draws each card independently with single-deck probabilities, as
// if from a shoe that never depletes. The table generator uses it so that
// cell results do not depend on shoe state.
type Infinite struct {
	rng     *rand.Rand
	running int
	decks   float64
	drawn   int
}

// NewInfinite returns an infinite source. decks is the nominal deck count
// used to convert the running count into a true count.
func NewInfinite(decks int, rng *rand.Rand) *Infinite {
	if decks < 1 {
		decks = 1
	}
	return &Infinite{rng: rng, decks: float64(decks)}
}

// Draw picks one of the 13 faces uniformly; J/Q/K fold into ten.
func (s *Infinite) Draw() card.Rank {
	face := s.rng.IntN(13) + 1
	var r card.Rank
	switch {
	case face == 1:
		r = card.Ace
	case face >= 10:
		r = card.Ten
	default:
		r = card.Rank(face)
	}
	s.running += r.HiLo()
	s.drawn++
	return r
}

// TrueCount divides the running count by the nominal deck count.
func (s *Infinite) TrueCount() float64 {
	return float64(s.running) / s.decks
}

// RunningCount returns the Hi-Lo count of every card drawn so far.
func (s *Infinite) RunningCount() int { return s.running }

// Drawn returns the number of cards drawn so far.
func (s *Infinite) Drawn() int { return s.drawn }
