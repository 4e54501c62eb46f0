// Package card defines blackjack card ranks. Suits never affect play, so a
// card is fully described by its blackjack value.
package card

import (
	"fmt"
	"strconv"
	"strings"
)

// Rank is a card's blackjack value before soft/hard resolution: 2..10 for
// number and face cards, 11 for an Ace.
type Rank uint8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Ace   Rank = 11
)

// CardsPerDeck is the size of a single standard deck.
const CardsPerDeck = 52

// UpcardCount is the number of distinct dealer upcard indices.
const UpcardCount = 10

// Valid reports whether r is a playable rank.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// HiLo returns the Hi-Lo count weight: +1 for 2-6, 0 for 7-9, -1 for tens and Aces.
func (r Rank) HiLo() int {
	switch {
	case r >= Two && r <= Six:
		return 1
	case r >= Ten:
		return -1
	default:
		return 0
	}
}

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	default:
		if r.Valid() {
			return strconv.Itoa(int(r))
		}
		return "?"
	}
}

// ParseRank accepts "A", "K", "Q", "J", "T" or a number from 2 to 11.
func ParseRank(s string) (Rank, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "ACE":
		return Ace, nil
	case "K", "Q", "J", "T":
		return Ten, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < int(Two) || n > int(Ace) {
		return 0, fmt.Errorf("invalid card rank %q", s)
	}
	return Rank(n), nil
}

// DealerIndex maps an upcard to its table index: 2..10 -> 0..8, Ace -> 9.
// Out-of-range ranks are clamped.
func DealerIndex(r Rank) int {
	switch {
	case r >= Ace:
		return 9
	case r <= Two:
		return 0
	default:
		return int(r) - 2
	}
}

// FromDealerIndex is the inverse of DealerIndex. Indices outside 0..9 are clamped.
func FromDealerIndex(i int) Rank {
	switch {
	case i >= 9:
		return Ace
	case i <= 0:
		return Two
	default:
		return Rank(i + 2)
	}
}

// DeckComposition returns the 52 ranks of one deck: 2-9 four times each,
// sixteen tens (10/J/Q/K) and four Aces.
func DeckComposition() []Rank {
	out := make([]Rank, 0, CardsPerDeck)
	for suit := 0; suit < 4; suit++ {
		for r := Two; r <= Nine; r++ {
			out = append(out, r)
		}
		for i := 0; i < 4; i++ {
			out = append(out, Ten)
		}
		out = append(out, Ace)
	}
	return out
}
