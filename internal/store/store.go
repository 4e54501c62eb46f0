// Package store records completed runs in a SQLite ledger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/blackjack/internal/simulator"
	"github.com/lox/blackjack/internal/tablegen"
)

// ErrNotFound is returned when a run id is not in the ledger.
var ErrNotFound = errors.New("run not found")

const (
	ModeEV    = "ev"
	ModeTable = "table"
)

// Run is one ledger row.
type Run struct {
	ID          string
	Mode        string
	StartedAt   time.Time
	Duration    time.Duration
	Seed        int64
	Rounds      int64
	Workers     int
	Decks       int
	HitSoft17   bool
	Payout      float64
	Penetration float64
	EVPercent   float64 // EV runs only
	WinRate     float64
	LossRate    float64
	PushRate    float64
	Output      string // table runs only
}

// FromEV builds a ledger row for an EV run.
func FromEV(r *simulator.Result) Run {
	s := r.Stats
	return Run{
		ID:          r.ID.String(),
		Mode:        ModeEV,
		StartedAt:   r.Started,
		Duration:    r.Elapsed,
		Seed:        r.Seed,
		Rounds:      int64(r.Rounds),
		Workers:     r.Workers,
		Decks:       r.Rules.Decks,
		HitSoft17:   r.Rules.HitSoft17,
		Payout:      r.Rules.BlackjackPayout,
		Penetration: r.Rules.Penetration,
		EVPercent:   s.EVPercent(),
		WinRate:     s.WinRate(),
		LossRate:    s.LossRate(),
		PushRate:    s.PushRate(),
	}
}

// FromTable builds a ledger row for a table generation run.
func FromTable(r *tablegen.Result, cfg tablegen.Config, started time.Time, output string) Run {
	return Run{
		ID:          r.ID.String(),
		Mode:        ModeTable,
		StartedAt:   started,
		Duration:    r.Elapsed,
		Seed:        r.Seed,
		Rounds:      r.Rounds,
		Workers:     cfg.Workers,
		Decks:       cfg.Rules.Decks,
		HitSoft17:   cfg.Rules.HitSoft17,
		Payout:      cfg.Rules.BlackjackPayout,
		Penetration: cfg.Rules.Penetration,
		Output:      output,
	}
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("empty sqlite database path")
	}
	if path != ":memory:" {
		parent := filepath.Dir(path)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pragmas := []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    mode          TEXT NOT NULL,
    started_at_ms INTEGER NOT NULL,
    duration_ms   INTEGER NOT NULL,
    seed          INTEGER NOT NULL,
    rounds        INTEGER NOT NULL,
    workers       INTEGER NOT NULL,
    decks         INTEGER NOT NULL,
    hit_soft_17   INTEGER NOT NULL,
    payout        REAL NOT NULL,
    penetration   REAL NOT NULL,
    ev_pct        REAL NOT NULL DEFAULT 0,
    win_rate      REAL NOT NULL DEFAULT 0,
    loss_rate     REAL NOT NULL DEFAULT 0,
    push_rate     REAL NOT NULL DEFAULT 0,
    output        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_idx ON runs (started_at_ms DESC);
`)
	if err != nil {
		return fmt.Errorf("migrate runs table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertRun records a completed run.
func (s *Store) InsertRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	if r.Mode != ModeEV && r.Mode != ModeTable {
		return fmt.Errorf("unknown run mode %q", r.Mode)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (
    id, mode, started_at_ms, duration_ms, seed, rounds, workers, decks,
    hit_soft_17, payout, penetration, ev_pct, win_rate, loss_rate, push_rate, output
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, r.ID, r.Mode, r.StartedAt.UTC().UnixMilli(), r.Duration.Milliseconds(), r.Seed, r.Rounds, r.Workers, r.Decks,
		r.HitSoft17, r.Payout, r.Penetration, r.EVPercent, r.WinRate, r.LossRate, r.PushRate, r.Output)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

const selectRuns = `
SELECT id, mode, started_at_ms, duration_ms, seed, rounds, workers, decks,
       hit_soft_17, payout, penetration, ev_pct, win_rate, loss_rate, push_rate, output
FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var startedMs, durationMs int64
	err := row.Scan(&r.ID, &r.Mode, &startedMs, &durationMs, &r.Seed, &r.Rounds, &r.Workers, &r.Decks,
		&r.HitSoft17, &r.Payout, &r.Penetration, &r.EVPercent, &r.WinRate, &r.LossRate, &r.PushRate, &r.Output)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.UnixMilli(startedMs).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}

// GetRun returns a single run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns returns the most recent runs first. An empty mode lists every
// mode; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, mode string, limit int) ([]Run, error) {
	query := selectRuns
	var args []any
	if mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, mode)
	}
	query += ` ORDER BY started_at_ms DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
