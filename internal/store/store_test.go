package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/lox/blackjack/internal/statistics"
	"github.com/lox/blackjack/internal/tablegen"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndGetRun(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	run := Run{
		ID:          uuid.NewString(),
		Mode:        ModeEV,
		StartedAt:   started,
		Duration:    1500 * time.Millisecond,
		Seed:        42,
		Rounds:      10_000_000,
		Workers:     8,
		Decks:       6,
		HitSoft17:   true,
		Payout:      1.5,
		Penetration: 0.75,
		EVPercent:   -0.62,
		WinRate:     0.43,
		LossRate:    0.48,
		PushRate:    0.09,
	}
	require.NoError(t, s.InsertRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.InsertRun(ctx, run), "duplicate id")
}

func TestInsertRunValidates(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	assert.Error(t, s.InsertRun(context.Background(), Run{Mode: ModeEV}))
	assert.Error(t, s.InsertRun(context.Background(), Run{ID: "x", Mode: "poker"}))
}

func TestListRunsOrdersAndFilters(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, mode := range []string{ModeEV, ModeTable, ModeEV} {
		require.NoError(t, s.InsertRun(ctx, Run{
			ID:        uuid.NewString(),
			Mode:      mode,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Seed:      int64(i),
		}))
	}

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 1, 0}, []int64{all[0].Seed, all[1].Seed, all[2].Seed})

	ev, err := s.ListRuns(ctx, ModeEV, 0)
	require.NoError(t, err)
	assert.Len(t, ev, 2)

	latest, err := s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, int64(2), latest[0].Seed)
}

func TestFromResults(t *testing.T) {
	t.Parallel()

	stats := &statistics.Statistics{}
	stats.Add(statistics.RoundResult{Profit: 1, Wagered: 1})
	stats.Add(statistics.RoundResult{Profit: -1, Wagered: 1})
	ev := &simulator.Result{
		ID:      uuid.New(),
		Rounds:  2,
		Workers: 1,
		Seed:    9,
		Rules:   blackjack.DefaultRules(),
		Stats:   stats,
		Started: time.Now(),
	}
	run := FromEV(ev)
	assert.Equal(t, ModeEV, run.Mode)
	assert.Equal(t, ev.ID.String(), run.ID)
	assert.Equal(t, 0.5, run.WinRate)

	cfg := tablegen.DefaultConfig()
	tr := &tablegen.Result{ID: uuid.New(), Table: &policy.Grid{}, Rounds: 100, Seed: 3}
	run = FromTable(tr, cfg, time.Now(), "table.h")
	assert.Equal(t, ModeTable, run.Mode)
	assert.Equal(t, "table.h", run.Output)
	assert.Equal(t, int64(100), run.Rounds)

	s := openTemp(t)
	require.NoError(t, s.InsertRun(context.Background(), run))
}
