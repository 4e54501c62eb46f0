// Package simulator estimates the expected value of a policy by playing
// many rounds from persistent shoes, one shoe per worker.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/shoe"
	"github.com/lox/blackjack/internal/statistics"
)

const (
	DefaultRounds        = 10_000_000
	DefaultProgressEvery = 1_000_000

	// flushEvery bounds how many rounds a worker plays between progress
	// updates and cancellation checks.
	flushEvery = 1 << 14
)

// Config holds configuration for an EV run.
type Config struct {
	Rounds        int
	Workers       int
	Seed          int64
	Rules         blackjack.Rules
	Policy        *policy.Grid
	ProgressEvery int // 0 disables progress reporting

	Logger     zerolog.Logger
	Clock      quartz.Clock
	OnProgress func(Progress)
}

// DefaultConfig returns a single-worker run of DefaultRounds rounds under
// the default rules with the built-in policy.
func DefaultConfig() Config {
	return Config{
		Rounds:        DefaultRounds,
		Workers:       1,
		Seed:          42,
		Rules:         blackjack.DefaultRules(),
		Policy:        policy.Basic(),
		ProgressEvery: DefaultProgressEvery,
		Logger:        zerolog.Nop(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Rounds <= 0 {
		return errors.New("rounds must be > 0")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if c.ProgressEvery < 0 {
		return errors.New("progress interval cannot be negative")
	}
	if c.Policy == nil {
		return errors.New("policy table is required")
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

// Progress is a checkpoint emitted while a run is in flight.
type Progress struct {
	Rounds       int
	Total        int
	EV           float64 // mean profit per round so far
	Elapsed      time.Duration
	RoundsPerSec float64
}

// Result is a completed EV run.
type Result struct {
	ID         uuid.UUID
	Rounds     int
	Workers    int
	Seed       int64
	Rules      blackjack.Rules
	Stats      *statistics.Statistics
	Reshuffles int
	Started    time.Time
	Elapsed    time.Duration
}

// Simulator runs EV simulations.
type Simulator struct {
	config Config
	oracle *policy.Oracle
}

// New validates config and creates a simulator.
func New(config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	return &Simulator{config: config, oracle: policy.NewOracle(config.Policy)}, nil
}

type tracker struct {
	mu      sync.Mutex
	rounds  int
	sum     float64
	every   int
	total   int
	start   time.Time
	clock   quartz.Clock
	logger  zerolog.Logger
	observe func(Progress)
}

// add records finished rounds and emits a checkpoint each time the
// combined count crosses a multiple of the progress interval.
func (t *tracker) add(rounds int, sum float64) {
	if t.every <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.rounds
	t.rounds += rounds
	t.sum += sum
	if before/t.every == t.rounds/t.every {
		return
	}

	elapsed := t.clock.Now().Sub(t.start)
	p := Progress{
		Rounds:  t.rounds,
		Total:   t.total,
		EV:      t.sum / float64(t.rounds),
		Elapsed: elapsed,
	}
	if elapsed > 0 {
		p.RoundsPerSec = float64(t.rounds) / elapsed.Seconds()
	}
	t.logger.Info().
		Int("rounds", p.Rounds).
		Int("total", p.Total).
		Float64("ev_pct", p.EV*100).
		Float64("rounds_per_sec", p.RoundsPerSec).
		Msg("Progress")
	if t.observe != nil {
		t.observe(p)
	}
}

// Run plays the configured number of rounds. Each worker owns a shoe seeded
// from the run seed and its index and plays a fixed quota, so the result
// depends only on the seed and worker count. Per-worker statistics merge
// in worker order.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	cfg := s.config
	start := cfg.Clock.Now()
	logger := cfg.Logger.With().Int("workers", cfg.Workers).Int64("seed", cfg.Seed).Logger()
	logger.Info().Int("rounds", cfg.Rounds).Str("rules", cfg.Rules.String()).Msg("Starting EV simulation")

	tr := &tracker{
		every:   cfg.ProgressEvery,
		total:   cfg.Rounds,
		start:   start,
		clock:   cfg.Clock,
		logger:  logger,
		observe: cfg.OnProgress,
	}

	perWorker := cfg.Rounds / cfg.Workers
	remainder := cfg.Rounds % cfg.Workers
	partials := make([]*statistics.Statistics, cfg.Workers)
	reshuffles := make([]int, cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		quota := perWorker
		if w < remainder {
			quota++
		}
		g.Go(func() error {
			engine, err := blackjack.NewEngine(cfg.Rules, s.oracle)
			if err != nil {
				return err
			}
			src := shoe.New(cfg.Rules.Decks, cfg.Rules.Penetration, randutil.New(randutil.Derive(cfg.Seed, uint64(w))))
			stats, err := runWorker(gctx, engine, src, quota, tr)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			partials[w] = stats
			reshuffles[w] = src.Reshuffles()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		ID:      uuid.New(),
		Rounds:  cfg.Rounds,
		Workers: cfg.Workers,
		Seed:    cfg.Seed,
		Rules:   cfg.Rules,
		Stats:   &statistics.Statistics{},
		Started: start,
	}
	for w, p := range partials {
		result.Stats.Merge(p)
		result.Reshuffles += reshuffles[w]
	}
	result.Elapsed = cfg.Clock.Now().Sub(start)

	if err := result.Stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	logger.Info().
		Str("run_id", result.ID.String()).
		Float64("ev_pct", result.Stats.EVPercent()).
		Dur("elapsed", result.Elapsed).
		Msg("EV simulation complete")
	return result, nil
}

func runWorker(ctx context.Context, engine *blackjack.Engine, src *shoe.Shoe, quota int, tr *tracker) (*statistics.Statistics, error) {
	stats := &statistics.Statistics{}
	pending, pendingSum := 0, 0.0
	for i := 0; i < quota; i++ {
		out := engine.PlayRound(src)
		stats.Add(RoundResult(&out))
		pending++
		pendingSum += out.Profit

		if pending == flushEvery || i == quota-1 {
			tr.add(pending, pendingSum)
			pending, pendingSum = 0, 0
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return stats, nil
}

// RoundResult converts an engine outcome into a statistics record.
func RoundResult(out *blackjack.Outcome) statistics.RoundResult {
	return statistics.RoundResult{
		Profit:          out.Profit,
		Wagered:         out.Wagered,
		PlayerBlackjack: out.PlayerBlackjack,
		DealerBlackjack: out.DealerBlackjack,
		Hands:           len(out.Hands),
		Doubles:         out.Doubles,
		Splits:          out.Splits,
	}
}
