package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/card"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/shoe"
)

// scriptedSource deals a fixed sequence and fails the test if the engine
// asks for more.
type scriptedSource struct {
	t     *testing.T
	cards []card.Rank
	pos   int
	tc    float64
}

func script(t *testing.T, cards ...card.Rank) *scriptedSource {
	return &scriptedSource{t: t, cards: cards}
}

func (s *scriptedSource) Draw() card.Rank {
	if s.pos >= len(s.cards) {
		s.t.Fatalf("scripted source exhausted after %d cards", s.pos)
	}
	c := s.cards[s.pos]
	s.pos++
	return c
}

func (s *scriptedSource) TrueCount() float64 { return s.tc }

// gridWhere builds a policy table from a function of the cell.
func gridWhere(fn func(total int, soft bool) policy.Code) *policy.Grid {
	g := &policy.Grid{}
	for total := 0; total < policy.Totals; total++ {
		for _, soft := range []bool{false, true} {
			for up := 0; up < policy.Upcards; up++ {
				for c := 0; c < policy.CountBuckets; c++ {
					g.Set(total, soft, up, c, fn(total, soft))
				}
			}
		}
	}
	return g
}

func standAll(int, bool) policy.Code { return policy.CodeStand }

func newEngine(t *testing.T, rules Rules, g *policy.Grid) *Engine {
	t.Helper()
	e, err := NewEngine(rules, policy.NewOracle(g))
	require.NoError(t, err)
	return e
}

func TestPlayerBlackjackPaysImmediately(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), policy.Basic())
	src := script(t, card.Ace, card.Six, card.Ten, card.Ten)

	out := e.PlayRound(src)
	assert.Equal(t, 1.5, out.Profit)
	assert.True(t, out.PlayerBlackjack)
	assert.False(t, out.DealerBlackjack)
	assert.Equal(t, 4, out.CardsDrawn)
	assert.Equal(t, 4, src.pos)
	require.Len(t, out.Hands, 1)
	assert.Equal(t, Win, out.Hands[0].Result)
}

func TestBlackjackAgainstBlackjackPushes(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), policy.Basic())
	orders := [][]card.Rank{
		{card.Ace, card.Ten, card.Ten, card.Ace},
		{card.Ten, card.Ace, card.Ace, card.Ten},
		{card.Ace, card.Ace, card.Ten, card.Ten},
	}
	for _, cards := range orders {
		out := e.PlayRound(script(t, cards...))
		assert.Equal(t, 0.0, out.Profit, "deal %v", cards)
		assert.True(t, out.PlayerBlackjack)
		assert.True(t, out.DealerBlackjack)
		assert.Equal(t, Push, out.Result())
	}
}

func TestDealerBlackjackTakesBet(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), policy.Basic())
	out := e.PlayRound(script(t, card.Ten, card.Ace, card.Nine, card.Ten))
	assert.Equal(t, -1.0, out.Profit)
	assert.True(t, out.DealerBlackjack)
	assert.Equal(t, 4, out.CardsDrawn)
}

func TestStandOnSixteenDealerBusts(t *testing.T) {
	t.Parallel()

	g := gridWhere(func(int, bool) policy.Code { return policy.CodeHit })
	for c := 0; c < policy.CountBuckets; c++ {
		g.Set(16, false, card.DealerIndex(card.Ten), c, policy.CodeStand)
	}
	e := newEngine(t, DefaultRules(), g)

	// Player T,6 against dealer T,2; the dealer draws a Ten to 22.
	out := e.PlayRound(script(t, card.Ten, card.Ten, card.Six, card.Two, card.Ten))
	assert.Equal(t, 1.0, out.Profit)
	assert.True(t, out.DealerBust)
	assert.Equal(t, 22, out.DealerTotal)
	assert.Equal(t, 5, out.CardsDrawn)
}

func TestDealerSoftSeventeen(t *testing.T) {
	t.Parallel()

	deal := []card.Rank{card.Ten, card.Ace, card.Seven, card.Six, card.Four}

	h17 := newEngine(t, DefaultRules(), gridWhere(standAll))
	src := script(t, deal...)
	out := h17.PlayRound(src)
	assert.Equal(t, 5, out.CardsDrawn)
	assert.Equal(t, 21, out.DealerTotal)
	assert.Equal(t, -1.0, out.Profit)

	rules := DefaultRules()
	rules.HitSoft17 = false
	s17 := newEngine(t, rules, gridWhere(standAll))
	src = script(t, deal...)
	out = s17.PlayRound(src)
	assert.Equal(t, 4, out.CardsDrawn)
	assert.Equal(t, 17, out.DealerTotal)
	assert.Equal(t, 0.0, out.Profit)
}

func TestDoubleDrawsOneCardAndDoublesBet(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), gridWhere(func(int, bool) policy.Code { return policy.CodeDouble }))
	out := e.PlayRound(script(t, card.Five, card.Ten, card.Six, card.Seven, card.Ten))
	assert.Equal(t, 2.0, out.Profit)
	assert.Equal(t, 2, out.Wagered)
	assert.Equal(t, 1, out.Doubles)
	require.Len(t, out.Hands, 1)
	assert.True(t, out.Hands[0].Doubled)
	assert.Equal(t, 21, out.Hands[0].Total)
}

func TestDoubleAfterHitIsPlayedAsHit(t *testing.T) {
	t.Parallel()

	g := gridWhere(func(total int, soft bool) policy.Code {
		switch {
		case total == 5 && !soft:
			return policy.CodeHit
		case total >= 19:
			return policy.CodeStand
		default:
			return policy.CodeDouble
		}
	})
	e := newEngine(t, DefaultRules(), g)

	// 2,3 hits to 9; the double request on three cards becomes a hit to 19.
	out := e.PlayRound(script(t, card.Two, card.Ten, card.Three, card.Seven, card.Four, card.Ten))
	assert.Equal(t, 1.0, out.Profit)
	assert.Equal(t, 1, out.Wagered)
	assert.Equal(t, 0, out.Doubles)
	assert.Equal(t, 6, out.CardsDrawn)
}

func splitEights(total int, soft bool) policy.Code {
	if total == 16 && !soft {
		return policy.CodeSplitOrStand
	}
	return policy.CodeStand
}

func TestSplitHandsArePlayedFromQueue(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), gridWhere(splitEights))

	// 8,8 splits; the first hand catches another 8 and splits again.
	out := e.PlayRound(script(t,
		card.Eight, card.Ten, card.Eight, card.Seven,
		card.Eight, card.Two, // first split: 8,8 and 8,2
		card.Three, card.Ten, // second split: 8,3 and 8,T
	))
	assert.Equal(t, 2, out.Splits)
	assert.Equal(t, 3, out.Wagered)
	assert.Equal(t, 8, out.CardsDrawn)
	require.Len(t, out.Hands, 3)
	assert.Equal(t, []int{11, 10, 18}, []int{out.Hands[0].Total, out.Hands[1].Total, out.Hands[2].Total})
	assert.Equal(t, -1.0, out.Profit)
}

func TestSplitAtHandLimitIsPlayedAsHit(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.MaxHands = 2
	e := newEngine(t, rules, gridWhere(splitEights))

	out := e.PlayRound(script(t,
		card.Eight, card.Ten, card.Eight, card.Seven,
		card.Eight, card.Two,
		card.Five, // 8,8 again but at the limit: hit to 21
	))
	assert.Equal(t, 1, out.Splits)
	require.Len(t, out.Hands, 2)
	assert.Equal(t, 21, out.Hands[0].Total)
	assert.Equal(t, 0.0, out.Profit)
	assert.Equal(t, 7, out.CardsDrawn)
}

func aceSplitGrid() *policy.Grid {
	return gridWhere(func(total int, soft bool) policy.Code {
		switch {
		case total == 12 && soft:
			return policy.CodeSplitOrHit
		case total >= 17:
			return policy.CodeStand
		default:
			return policy.CodeHit
		}
	})
}

func TestAceSplitOneCardEach(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), aceSplitGrid())
	out := e.PlayRound(script(t, card.Ace, card.Ten, card.Ace, card.Seven, card.Two, card.Three))

	assert.Equal(t, 1, out.Splits)
	require.Len(t, out.Hands, 2)
	assert.Equal(t, 13, out.Hands[0].Total)
	assert.Equal(t, 14, out.Hands[1].Total)
	assert.Equal(t, -2.0, out.Profit)
	assert.Equal(t, 6, out.CardsDrawn)
}

func TestAceSplitSiblingPlaysOnWhenUnlocked(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.OneCardOnAceSplit = false
	e := newEngine(t, rules, aceSplitGrid())
	out := e.PlayRound(script(t, card.Ace, card.Ten, card.Ace, card.Seven, card.Two, card.Three, card.Four))

	require.Len(t, out.Hands, 2)
	assert.Equal(t, 13, out.Hands[0].Total)
	assert.Equal(t, 18, out.Hands[1].Total)
	assert.Equal(t, 0.0, out.Profit)
	assert.Equal(t, 7, out.CardsDrawn)
}

func TestPlayForcedSkipsNaturals(t *testing.T) {
	t.Parallel()

	e := newEngine(t, DefaultRules(), gridWhere(standAll))

	out := e.PlayForced(script(t, card.Two, card.Ten), []card.Rank{card.Ten, card.Six}, card.Ten)
	assert.Equal(t, 1.0, out.Profit)
	assert.Equal(t, 2, out.CardsDrawn)

	// A forced soft 21 against a dealer blackjack is a push, not a natural.
	out = e.PlayForced(script(t, card.Ten), []card.Rank{card.Ace, card.Ten}, card.Ace)
	assert.False(t, out.PlayerBlackjack)
	assert.False(t, out.DealerBlackjack)
	assert.Equal(t, 0.0, out.Profit)
}

func TestSettlementIsConsistent(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	e := newEngine(t, rules, policy.Basic())
	s := shoe.New(rules.Decks, rules.Penetration, randutil.New(42))

	for i := 0; i < 20000; i++ {
		out := e.PlayRound(s)
		var sum float64
		var wagered int
		for _, h := range out.Hands {
			sum += h.Profit
			wagered += h.Bet
			if !out.PlayerBlackjack {
				require.Contains(t, []float64{-float64(h.Bet), 0, float64(h.Bet)}, h.Profit)
			}
			if h.Busted {
				require.Equal(t, Loss, h.Result)
			}
		}
		require.Equal(t, out.Profit, sum)
		require.Equal(t, out.Wagered, wagered)
		require.LessOrEqual(t, len(out.Hands), rules.MaxHands)
		require.GreaterOrEqual(t, out.CardsDrawn, 4)
	}
}

func TestNewEngineRejectsBadInput(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.Decks = 0
	_, err := NewEngine(rules, policy.NewOracle(policy.Basic()))
	assert.Error(t, err)

	_, err = NewEngine(DefaultRules(), nil)
	assert.Error(t, err)
}
