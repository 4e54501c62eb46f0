// Package shoe implements the multi-deck card pool that persists across
// rounds of a simulation run, together with its Hi-Lo running count.
package shoe

import (
	"math"
	rand "math/rand/v2"

	"github.com/lox/blackjack/internal/card"
)

// MinDecksRemaining floors the decks-remaining estimate used for the true count.
const MinDecksRemaining = 0.5

// Shoe is a shuffled sequence of decks*52 ranks with a draw cursor. It is not
// safe for concurrent use; each simulation worker owns its own shoe.
type Shoe struct {
	cards       []card.Rank
	cursor      int
	running     int
	decks       int
	threshold   int
	reshuffles  int
	penetration float64
	rng         *rand.Rand
}

// New builds and shuffles a shoe. The reshuffle threshold is the first cursor
// position at or beyond penetration*size. decks below 1 are treated as 1 and
// penetration outside (0,1] as 1.
func New(decks int, penetration float64, rng *rand.Rand) *Shoe {
	if decks < 1 {
		decks = 1
	}
	if penetration <= 0 || penetration > 1 {
		penetration = 1
	}
	s := &Shoe{
		cards:       make([]card.Rank, 0, decks*card.CardsPerDeck),
		decks:       decks,
		penetration: penetration,
		rng:         rng,
	}
	for d := 0; d < decks; d++ {
		s.cards = append(s.cards, card.DeckComposition()...)
	}
	size := len(s.cards)
	s.threshold = int(math.Ceil(float64(size) * penetration))
	if s.threshold < 1 {
		s.threshold = 1
	}
	if s.threshold > size {
		s.threshold = size
	}
	s.shuffle()
	return s
}

// shuffle permutes the full pool and resets the cursor and running count.
func (s *Shoe) shuffle() {
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
	s.cursor = 0
	s.running = 0
}

// Reshuffle forces a reshuffle regardless of the cursor position.
func (s *Shoe) Reshuffle() {
	s.shuffle()
	s.reshuffles++
}

// Draw returns the next rank, reshuffling first when the cursor has reached
// the penetration threshold. A reshuffle may therefore happen mid-round; the
// running count restarts from zero when it does.
func (s *Shoe) Draw() card.Rank {
	if s.cursor >= s.threshold {
		s.Reshuffle()
	}
	r := s.cards[s.cursor]
	s.cursor++
	s.running += r.HiLo()
	return r
}

// TrueCount is the running count divided by the decks remaining, with the
// decks-remaining estimate floored at MinDecksRemaining.
func (s *Shoe) TrueCount() float64 {
	remaining := float64(s.Remaining()) / card.CardsPerDeck
	if remaining < MinDecksRemaining {
		remaining = MinDecksRemaining
	}
	return float64(s.running) / remaining
}

// RunningCount returns the Hi-Lo running count since the last shuffle.
func (s *Shoe) RunningCount() int { return s.running }

// Cursor returns the number of cards dealt since the last shuffle.
func (s *Shoe) Cursor() int { return s.cursor }

// Len returns the total number of cards in the shoe.
func (s *Shoe) Len() int { return len(s.cards) }

// Remaining returns the number of undealt cards.
func (s *Shoe) Remaining() int { return len(s.cards) - s.cursor }

// Threshold returns the cursor position that triggers a reshuffle.
func (s *Shoe) Threshold() int { return s.threshold }

// Decks returns the number of decks in the shoe.
func (s *Shoe) Decks() int { return s.decks }

// Penetration returns the configured penetration fraction.
func (s *Shoe) Penetration() float64 { return s.penetration }

// Reshuffles returns how many times the shoe was reshuffled after construction.
func (s *Shoe) Reshuffles() int { return s.reshuffles }
