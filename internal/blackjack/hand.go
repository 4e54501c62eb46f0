// Package blackjack implements the rules engine: hands with soft-ace
// resolution and the round state machine that plays a policy against a
// dealer who draws to 17.
package blackjack

import (
	"strings"

	"github.com/lox/blackjack/internal/card"
)

const bustLimit = 21

// Hand is an ordered set of cards with a derived total. The zero value is
// an empty hand with no bet; use NewHand for a one-unit hand.
type Hand struct {
	cards []card.Rank
	bet   int
	total int
	aces  int // aces still counted as 11
}

// NewHand returns an empty hand carrying a one-unit bet.
func NewHand() Hand {
	return Hand{bet: 1}
}

// AddCard appends a card and reduces aces from 11 to 1 while the total
// exceeds 21.
func (h *Hand) AddCard(r card.Rank) {
	h.cards = append(h.cards, r)
	h.total += int(r)
	if r == card.Ace {
		h.aces++
	}
	for h.total > bustLimit && h.aces > 0 {
		h.total -= 10
		h.aces--
	}
}

// Total is the best total after ace reduction.
func (h *Hand) Total() int { return h.total }

// Soft reports whether an ace is still counted as 11.
func (h *Hand) Soft() bool { return h.aces > 0 }

// IsPair reports whether the hand is exactly two cards of equal blackjack
// value. All ten-valued cards share card.Ten, so K+Q is a pair.
func (h *Hand) IsPair() bool {
	return len(h.cards) == 2 && h.cards[0] == h.cards[1]
}

// IsBlackjack reports a two-card 21.
func (h *Hand) IsBlackjack() bool {
	return len(h.cards) == 2 && h.total == bustLimit
}

// Busted reports a total over 21.
func (h *Hand) Busted() bool { return h.total > bustLimit }

// Len is the number of cards held.
func (h *Hand) Len() int { return len(h.cards) }

// Cards returns the cards in draw order. The slice aliases the hand.
func (h *Hand) Cards() []card.Rank { return h.cards }

// Bet is the hand's stake in units.
func (h *Hand) Bet() int { return h.bet }

// reset empties the hand for reuse, keeping its backing array.
func (h *Hand) reset(bet int) {
	h.cards = h.cards[:0]
	h.bet = bet
	h.total = 0
	h.aces = 0
}

// splitOff removes the second card and returns it. The caller adds a
// replacement card to each resulting hand.
func (h *Hand) splitOff() card.Rank {
	second := h.cards[1]
	first := h.cards[0]
	h.reset(h.bet)
	h.AddCard(first)
	return second
}

func (h *Hand) String() string {
	var sb strings.Builder
	for i, c := range h.cards {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}
