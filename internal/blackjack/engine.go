package blackjack

import (
	"fmt"

	"github.com/lox/blackjack/internal/card"
	"github.com/lox/blackjack/internal/policy"
)

const dealerStandTotal = 17

// CardSource supplies cards and the count used to pick the policy column.
// *shoe.Shoe and *shoe.Infinite both satisfy it.
type CardSource interface {
	Draw() card.Rank
	TrueCount() float64
}

// Result is a hand's settlement against the dealer.
type Result int8

const (
	Loss Result = -1
	Push Result = 0
	Win  Result = 1
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "push"
	}
}

// HandOutcome is the settlement of one player hand.
type HandOutcome struct {
	Total   int
	Soft    bool
	Bet     int
	Doubled bool
	Busted  bool
	Result  Result
	Profit  float64
}

// Outcome summarises a finished round. Hands aliases engine scratch space
// and is only valid until the next round on the same engine.
type Outcome struct {
	Profit          float64
	Wagered         int
	PlayerBlackjack bool
	DealerBlackjack bool
	Hands           []HandOutcome
	Doubles         int
	Splits          int
	DealerTotal     int
	DealerBust      bool
	CardsDrawn      int
}

// Result reports the round as a whole by the sign of its profit.
func (o *Outcome) Result() Result {
	switch {
	case o.Profit > 0:
		return Win
	case o.Profit < 0:
		return Loss
	default:
		return Push
	}
}

type seat struct {
	hand      Hand
	canDouble bool
	locked    bool
	doubled   bool
}

// Engine plays rounds against a policy. It reuses its buffers between
// rounds, so one engine must not be shared between goroutines; the oracle
// may be.
type Engine struct {
	rules  Rules
	oracle *policy.Oracle

	seats   []seat
	pending []int
	dealer  Hand
	results []HandOutcome

	src   CardSource
	drawn int
}

// NewEngine validates the rules and returns an engine bound to oracle.
func NewEngine(rules Rules, oracle *policy.Oracle) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if oracle == nil {
		return nil, fmt.Errorf("policy oracle is required")
	}
	return &Engine{
		rules:   rules,
		oracle:  oracle,
		seats:   make([]seat, 0, rules.MaxHands),
		pending: make([]int, 0, rules.MaxHands),
		results: make([]HandOutcome, 0, rules.MaxHands),
	}, nil
}

// Rules returns the rules the engine plays under.
func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) draw() card.Rank {
	e.drawn++
	return e.src.Draw()
}

func (e *Engine) begin(src CardSource) {
	e.src = src
	e.drawn = 0
	e.seats = e.seats[:0]
	e.pending = e.pending[:0]
	e.results = e.results[:0]
	e.dealer.reset(0)
}

func (e *Engine) addSeat(bet int) int {
	if len(e.seats) < cap(e.seats) {
		e.seats = e.seats[:len(e.seats)+1]
	} else {
		e.seats = append(e.seats, seat{})
	}
	i := len(e.seats) - 1
	s := &e.seats[i]
	s.hand.reset(bet)
	s.canDouble = true
	s.locked = false
	s.doubled = false
	e.pending = append(e.pending, i)
	return i
}

// PlayRound deals and plays one full round from src: naturals are settled
// immediately, otherwise the player hands are played from a work queue that
// splits push onto, then the dealer draws and every hand is settled.
func (e *Engine) PlayRound(src CardSource) Outcome {
	e.begin(src)
	first := e.addSeat(1)

	// p1, d1, p2, d2; d1 is the upcard.
	e.seats[first].hand.AddCard(e.draw())
	e.dealer.AddCard(e.draw())
	e.seats[first].hand.AddCard(e.draw())
	e.dealer.AddCard(e.draw())

	player := &e.seats[first].hand
	playerBJ, dealerBJ := player.IsBlackjack(), e.dealer.IsBlackjack()
	if playerBJ || dealerBJ {
		return e.settleNaturals(playerBJ, dealerBJ)
	}
	return e.play()
}

// PlayForced plays a round whose player cards and dealer upcard are fixed.
// Only the dealer's hole card and later cards come from src, and naturals
// are not checked, so a forced two-card 21 is played out like any 21.
func (e *Engine) PlayForced(src CardSource, playerCards []card.Rank, upcard card.Rank) Outcome {
	e.begin(src)
	first := e.addSeat(1)
	for _, c := range playerCards {
		e.seats[first].hand.AddCard(c)
	}
	e.dealer.AddCard(upcard)
	e.dealer.AddCard(e.draw())
	return e.play()
}

func (e *Engine) settleNaturals(playerBJ, dealerBJ bool) Outcome {
	s := &e.seats[0]
	out := HandOutcome{Total: s.hand.Total(), Soft: s.hand.Soft(), Bet: s.hand.Bet()}
	switch {
	case playerBJ && dealerBJ:
		out.Result = Push
	case playerBJ:
		out.Result = Win
		out.Profit = float64(s.hand.Bet()) * e.rules.BlackjackPayout
	default:
		out.Result = Loss
		out.Profit = -float64(s.hand.Bet())
	}
	e.results = append(e.results, out)
	return Outcome{
		Profit:          out.Profit,
		Wagered:         s.hand.Bet(),
		PlayerBlackjack: playerBJ,
		DealerBlackjack: dealerBJ,
		Hands:           e.results,
		DealerTotal:     e.dealer.Total(),
		CardsDrawn:      e.drawn,
	}
}

func (e *Engine) play() Outcome {
	var doubles, splits int
	upcard := e.dealer.Cards()[0]

	// Splits append to pending while it is being drained.
	for head := 0; head < len(e.pending); head++ {
		d, s := e.playHand(e.pending[head], upcard)
		doubles += d
		splits += s
	}

	// The dealer completes the hand even when every player hand has busted,
	// so card consumption does not depend on the player's luck.
	for e.dealerHits() {
		e.dealer.AddCard(e.draw())
	}

	out := Outcome{
		Hands:       e.results,
		Doubles:     doubles,
		Splits:      splits,
		DealerTotal: e.dealer.Total(),
		DealerBust:  e.dealer.Busted(),
	}
	for i := range e.seats {
		ho := e.settle(&e.seats[i])
		out.Profit += ho.Profit
		out.Wagered += ho.Bet
		e.results = append(e.results, ho)
	}
	out.Hands = e.results
	out.CardsDrawn = e.drawn
	return out
}

func (e *Engine) dealerHits() bool {
	t := e.dealer.Total()
	if t < dealerStandTotal {
		return true
	}
	return t == dealerStandTotal && e.dealer.Soft() && e.rules.HitSoft17
}

// playHand runs the decision loop for one hand and returns the number of
// doubles and splits it made. Splits append new seats and queue them.
func (e *Engine) playHand(idx int, upcard card.Rank) (doubles, splits int) {
	for {
		s := &e.seats[idx]
		if s.locked || s.hand.Total() >= bustLimit {
			return doubles, splits
		}

		action := e.oracle.Action(&s.hand, upcard, policy.CountIndex(e.src.TrueCount()))
		switch action {
		case policy.Double:
			if !s.canDouble || s.hand.Len() != 2 {
				action = policy.Hit
			}
		case policy.Split:
			if !s.hand.IsPair() || len(e.seats) >= e.rules.MaxHands {
				action = policy.Hit
			}
		}

		switch action {
		case policy.Stand:
			return doubles, splits
		case policy.Double:
			s.hand.bet *= 2
			s.doubled = true
			s.hand.AddCard(e.draw())
			return doubles + 1, splits
		case policy.Split:
			splits++
			if e.split(idx) {
				return doubles, splits
			}
		default:
			s.hand.AddCard(e.draw())
			s.canDouble = false
		}
	}
}

// split moves the second card of seat idx into a new queued seat and deals
// a replacement card to each. It reports whether the current hand's turn is
// over, which only happens when Aces were split.
func (e *Engine) split(idx int) bool {
	aces := e.seats[idx].hand.Cards()[0] == card.Ace
	bet := e.seats[idx].hand.Bet()
	second := e.seats[idx].hand.splitOff()

	sib := e.addSeat(bet)
	// addSeat may grow the slice, so take pointers afterwards.
	cur, other := &e.seats[idx], &e.seats[sib]
	other.hand.AddCard(second)

	cur.hand.AddCard(e.draw())
	other.hand.AddCard(e.draw())
	cur.canDouble = true

	if !aces {
		return false
	}
	cur.locked = true
	if e.rules.OneCardOnAceSplit {
		other.locked = true
	}
	return true
}

func (e *Engine) settle(s *seat) HandOutcome {
	h := &s.hand
	bet := float64(h.Bet())
	out := HandOutcome{
		Total:   h.Total(),
		Soft:    h.Soft(),
		Bet:     h.Bet(),
		Doubled: s.doubled,
		Busted:  h.Busted(),
	}
	switch {
	case h.Busted():
		out.Result = Loss
	case e.dealer.Busted():
		out.Result = Win
	case h.Total() > e.dealer.Total():
		out.Result = Win
	case h.Total() < e.dealer.Total():
		out.Result = Loss
	default:
		out.Result = Push
	}
	out.Profit = float64(out.Result) * bet
	return out
}
