package blackjack

import (
	"errors"
	"fmt"
)

// Rules are the table conditions a simulation runs under.
type Rules struct {
	Decks           int
	HitSoft17       bool
	BlackjackPayout float64
	Penetration     float64

	// MaxHands caps the number of hands a split sequence may create. A
	// split requested at the cap is played as a hit.
	MaxHands int

	// OneCardOnAceSplit locks both hands of an Ace split after their
	// replacement card. When false only the hand being played stops; the
	// sibling is played out normally.
	OneCardOnAceSplit bool
}

// DefaultRules returns six decks, dealer hits soft 17, 3:2 blackjacks, 75%
// penetration, up to four hands, one card on split Aces.
func DefaultRules() Rules {
	return Rules{
		Decks:             6,
		HitSoft17:         true,
		BlackjackPayout:   1.5,
		Penetration:       0.75,
		MaxHands:          4,
		OneCardOnAceSplit: true,
	}
}

// Validate checks the rules are playable.
func (r Rules) Validate() error {
	if r.Decks < 1 {
		return errors.New("decks must be >= 1")
	}
	if r.Penetration <= 0 || r.Penetration > 1 {
		return fmt.Errorf("penetration must be in (0, 1], got %g", r.Penetration)
	}
	if r.BlackjackPayout < 0 {
		return errors.New("blackjack payout cannot be negative")
	}
	if r.MaxHands < 1 {
		return errors.New("max hands must be >= 1")
	}
	return nil
}

func (r Rules) String() string {
	s17 := "S17"
	if r.HitSoft17 {
		s17 = "H17"
	}
	return fmt.Sprintf("%dD %s BJ %.2g pen %.0f%% max %d hands", r.Decks, s17, r.BlackjackPayout, r.Penetration*100, r.MaxHands)
}
