// Package tablegen builds the win-rate table by playing a fixed number of
// rounds from every reachable (total, soft, upcard, count) starting state.
package tablegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/card"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/shoe"
	"github.com/lox/blackjack/internal/statistics"
)

// DefaultSamples is the number of rounds simulated per cell.
const DefaultSamples = 2000

// minTotal is the lowest total a two-card hand can reach.
const minTotal = 4

// Source selects where cells draw their cards from.
type Source string

const (
	// SourceInfinite draws each card uniformly from the 13 ranks.
	SourceInfinite Source = "infinite"
	// SourceShoe draws from a freshly shuffled finite shoe per cell.
	SourceShoe Source = "shoe"
)

// ParseSource parses a card source name.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceInfinite:
		return SourceInfinite, nil
	case SourceShoe:
		return SourceShoe, nil
	}
	return "", fmt.Errorf("unknown card source %q (want infinite or shoe)", s)
}

// Config holds configuration for table generation.
type Config struct {
	Samples int
	Workers int
	Seed    int64
	Rules   blackjack.Rules
	Policy  *policy.Grid
	Source  Source

	Logger     zerolog.Logger
	Clock      quartz.Clock
	OnProgress func(Progress)
}

// DefaultConfig returns the reference sample count with the built-in
// policy and a single worker.
func DefaultConfig() Config {
	return Config{
		Samples: DefaultSamples,
		Workers: 1,
		Seed:    42,
		Rules:   blackjack.DefaultRules(),
		Policy:  policy.Basic(),
		Source:  SourceInfinite,
		Logger:  zerolog.Nop(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Samples <= 0 {
		return errors.New("samples must be > 0")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if c.Policy == nil {
		return errors.New("policy table is required")
	}
	if _, err := ParseSource(string(c.Source)); err != nil {
		return err
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

// Progress is emitted each time every cell of one player total is done.
type Progress struct {
	Total     int
	CellsDone int
	Cells     int
	Elapsed   time.Duration
}

// Result is a generated win-rate table.
type Result struct {
	ID      uuid.UUID
	Table   *policy.Grid
	Cells   int // cells simulated
	Rounds  int64
	Samples int
	Seed    int64
	Source  Source
	Elapsed time.Duration
}

// Generator builds win-rate tables.
type Generator struct {
	config Config
	oracle *policy.Oracle
}

// New validates config and creates a generator.
func New(config Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Source == "" {
		config.Source = SourceInfinite
	}
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	return &Generator{config: config, oracle: policy.NewOracle(config.Policy)}, nil
}

// Composition returns the forced starting cards for a cell, or nil when no
// two-card hand reaches it.
func Composition(total int, soft bool) []card.Rank {
	if total < minTotal || total > policy.MaxTotal {
		return nil
	}
	if soft {
		switch {
		case total < 12:
			return nil
		case total == 12:
			return []card.Rank{card.Ace, card.Ace}
		default:
			return []card.Rank{card.Ace, card.Rank(total - 11)}
		}
	}
	switch {
	case total == policy.MaxTotal:
		return []card.Rank{card.Ten, card.Nine, card.Two}
	case total >= 12:
		return []card.Rank{card.Ten, card.Rank(total - 10)}
	case total%2 == 0:
		return []card.Rank{card.Rank(total / 2), card.Rank(total / 2)}
	default:
		return []card.Rank{card.Rank(total - 2), card.Two}
	}
}

// pinnedCount reports a fixed true count so every decision in a cell reads
// the cell's own count column.
type pinnedCount struct {
	src interface{ Draw() card.Rank }
	tc  float64
}

func (p pinnedCount) Draw() card.Rank    { return p.src.Draw() }
func (p pinnedCount) TrueCount() float64 { return p.tc }

type progressTracker struct {
	mu        sync.Mutex
	remaining [policy.Totals]int
	done      int
	cells     int
	start     time.Time
	clock     quartz.Clock
	logger    zerolog.Logger
	observe   func(Progress)
}

func (t *progressTracker) cellDone(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.remaining[total]--
	if t.remaining[total] != 0 {
		return
	}
	p := Progress{Total: total, CellsDone: t.done, Cells: t.cells, Elapsed: t.clock.Now().Sub(t.start)}
	t.logger.Info().
		Int("total", total).
		Int("cells_done", p.CellsDone).
		Int("cells", p.Cells).
		Msg("Processed total")
	if t.observe != nil {
		t.observe(p)
	}
}

// Generate simulates every reachable cell. Each cell draws from its own
// stream seeded by the run seed and the cell's flat index, so the table is
// identical for any worker count.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	cfg := g.config
	start := cfg.Clock.Now()
	logger := cfg.Logger.With().Int("workers", cfg.Workers).Int64("seed", cfg.Seed).Logger()

	var cells []int
	tr := &progressTracker{start: start, clock: cfg.Clock, logger: logger, observe: cfg.OnProgress}
	for idx := 0; idx < policy.Cells; idx++ {
		st := policy.StateAt(idx)
		if Composition(st.Total, st.Soft) == nil {
			continue
		}
		cells = append(cells, idx)
		tr.remaining[st.Total]++
	}
	tr.cells = len(cells)
	logger.Info().
		Int("cells", len(cells)).
		Int("samples", cfg.Samples).
		Str("source", string(cfg.Source)).
		Msg("Starting table generation")

	table := &policy.Grid{}
	work := make(chan int)
	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(work)
		for _, idx := range cells {
			select {
			case work <- idx:
			case <-egctx.Done():
				return egctx.Err()
			}
		}
		return nil
	})

	var mu sync.Mutex
	for w := 0; w < cfg.Workers; w++ {
		eg.Go(func() error {
			engine, err := blackjack.NewEngine(cfg.Rules, g.oracle)
			if err != nil {
				return err
			}
			for idx := range work {
				if err := egctx.Err(); err != nil {
					return err
				}
				st := policy.StateAt(idx)
				score := g.simulateCell(engine, idx, st)
				mu.Lock()
				table.Set(st.Total, st.Soft, st.Upcard, st.Count, uint8(score))
				mu.Unlock()
				tr.cellDone(st.Total)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:      uuid.New(),
		Table:   table,
		Cells:   len(cells),
		Rounds:  int64(len(cells)) * int64(cfg.Samples),
		Samples: cfg.Samples,
		Seed:    cfg.Seed,
		Source:  cfg.Source,
		Elapsed: cfg.Clock.Now().Sub(start),
	}
	logger.Info().
		Str("run_id", res.ID.String()).
		Int64("rounds", res.Rounds).
		Dur("elapsed", res.Elapsed).
		Msg("Table generation complete")
	return res, nil
}

// simulateCell plays cfg.Samples forced rounds for one cell and returns the
// integer mean of 100 per win, 50 per push and 0 per loss.
func (g *Generator) simulateCell(engine *blackjack.Engine, idx int, st policy.State) int {
	cfg := g.config
	rng := randutil.New(randutil.Derive(cfg.Seed, uint64(idx)))

	var draw interface{ Draw() card.Rank }
	switch cfg.Source {
	case SourceShoe:
		draw = shoe.New(cfg.Rules.Decks, cfg.Rules.Penetration, rng)
	default:
		draw = shoe.NewInfinite(cfg.Rules.Decks, rng)
	}
	src := pinnedCount{src: draw, tc: st.TrueCount()}

	player := Composition(st.Total, st.Soft)
	upcard := card.FromDealerIndex(st.Upcard)

	stats := &statistics.Statistics{}
	for i := 0; i < cfg.Samples; i++ {
		out := engine.PlayForced(src, player, upcard)
		stats.Add(statistics.RoundResult{Profit: out.Profit, Wagered: out.Wagered})
	}
	return stats.WinScore()
}
