package tablegen

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/card"
	"github.com/lox/blackjack/internal/policy"
)

const reachableCells = (18 + 10) * policy.Upcards * policy.CountBuckets

func generate(t *testing.T, mutate func(*Config)) *Result {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Samples = 20
	cfg.Clock = quartz.NewMock(t)
	if mutate != nil {
		mutate(&cfg)
	}
	gen, err := New(cfg)
	require.NoError(t, err)
	res, err := gen.Generate(context.Background())
	require.NoError(t, err)
	return res
}

func TestCompositionReachesCell(t *testing.T) {
	t.Parallel()

	for total := 0; total < policy.Totals; total++ {
		for _, soft := range []bool{false, true} {
			cards := Composition(total, soft)
			if total < minTotal || (soft && total < 12) {
				assert.Nil(t, cards, "total %d soft %v", total, soft)
				continue
			}
			require.NotNil(t, cards, "total %d soft %v", total, soft)
			h := blackjack.NewHand()
			for _, c := range cards {
				require.True(t, c.Valid(), "total %d soft %v card %d", total, soft, c)
				h.AddCard(c)
			}
			assert.Equal(t, total, h.Total(), "cards %v", cards)
			assert.Equal(t, soft, h.Soft(), "cards %v", cards)
		}
	}
}

func TestCompositionPairs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []card.Rank{card.Ace, card.Ace}, Composition(12, true))
	assert.Equal(t, []card.Rank{card.Five, card.Five}, Composition(10, false))
	assert.Equal(t, []card.Rank{card.Nine, card.Two}, Composition(11, false))
	assert.Equal(t, []card.Rank{card.Ten, card.Ten}, Composition(20, false))
	assert.Equal(t, []card.Rank{card.Ten, card.Nine, card.Two}, Composition(21, false))
}

func TestGenerateIsIndependentOfWorkerCount(t *testing.T) {
	t.Parallel()

	one := generate(t, func(c *Config) { c.Workers = 1 })
	four := generate(t, func(c *Config) { c.Workers = 4 })

	assert.True(t, one.Table.Equal(four.Table))

	encode := func(g *policy.Grid) []byte {
		var buf bytes.Buffer
		require.NoError(t, policy.Encode(&buf, g, policy.EncodeOptions{Format: policy.FormatHeader, Kind: policy.KindWinRate}))
		return buf.Bytes()
	}
	assert.Equal(t, encode(one.Table), encode(four.Table))
	assert.Equal(t, reachableCells, one.Cells)
	assert.Equal(t, int64(reachableCells*20), one.Rounds)
}

func TestGenerateRepeatsForSameSeed(t *testing.T) {
	t.Parallel()

	a := generate(t, func(c *Config) { c.Source = SourceShoe; c.Workers = 2 })
	b := generate(t, func(c *Config) { c.Source = SourceShoe; c.Workers = 3 })
	assert.True(t, a.Table.Equal(b.Table))

	other := generate(t, func(c *Config) { c.Source = SourceShoe; c.Seed = 7 })
	assert.False(t, a.Table.Equal(other.Table))
}

func TestGenerateLeavesUnreachableCellsZero(t *testing.T) {
	t.Parallel()

	res := generate(t, func(c *Config) { c.Workers = 2 })
	require.NoError(t, policy.KindWinRate.Validate(res.Table))

	for up := 0; up < policy.Upcards; up++ {
		for c := 0; c < policy.CountBuckets; c++ {
			for total := 0; total < minTotal; total++ {
				assert.Zero(t, res.Table.At(total, false, up, c))
			}
			for total := 0; total < 12; total++ {
				assert.Zero(t, res.Table.At(total, true, up, c))
			}
		}
	}
}

func TestStrongHandsScoreHigher(t *testing.T) {
	t.Parallel()

	res := generate(t, func(c *Config) { c.Samples = 400; c.Workers = 4 })
	neutral := policy.CountIndex(0)
	strong := res.Table.At(20, false, card.DealerIndex(card.Six), neutral)
	weak := res.Table.At(16, false, card.DealerIndex(card.Ten), neutral)
	assert.Greater(t, strong, weak)
	assert.Greater(t, strong, uint8(60))
}

func TestProgressPerTotal(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var events []Progress
	generate(t, func(c *Config) {
		c.Samples = 2
		c.Workers = 3
		c.OnProgress = func(p Progress) {
			mu.Lock()
			events = append(events, p)
			mu.Unlock()
		}
	})

	require.Len(t, events, policy.MaxTotal-minTotal+1)
	seen := map[int]bool{}
	for _, p := range events {
		seen[p.Total] = true
		assert.Equal(t, reachableCells, p.Cells)
	}
	assert.Len(t, seen, policy.MaxTotal-minTotal+1)
	assert.Equal(t, reachableCells, events[len(events)-1].CellsDone)
}

func TestGenerateHonoursCancellation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Workers = 2
	gen, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())
	bad := []func(*Config){
		func(c *Config) { c.Samples = 0 },
		func(c *Config) { c.Workers = 0 },
		func(c *Config) { c.Policy = nil },
		func(c *Config) { c.Source = "deck" },
		func(c *Config) { c.Rules.MaxHands = 0 },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		_, err := New(c)
		assert.Error(t, err, "case %d", i)
	}
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	s, err := ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceInfinite, s)
	s, err = ParseSource("Shoe")
	require.NoError(t, err)
	assert.Equal(t, SourceShoe, s)
	_, err = ParseSource("deck")
	assert.Error(t, err)
}
