package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/lox/blackjack/internal/store"
)

// EVCmd runs an EV simulation.
type EVCmd struct {
	RuleFlags `embed:""`

	Rounds        int    `help:"rounds to simulate (0 => config)" short:"n"`
	Workers       int    `help:"parallel workers, each with its own shoe (0 => config)"`
	Seed          *int64 `help:"random seed; 0 uses time seed"`
	ProgressEvery int    `help:"log progress every N rounds (0 => config)"`
	Policy        string `help:"policy table file (.json or .csv); built-in when empty" type:"path"`
	Format        string `help:"report format (summary|json|toml)" default:"summary"`
	Output        string `help:"write the report to a file instead of stdout" short:"o" type:"path"`
	DB            string `name:"db" help:"SQLite run ledger to record the run in" type:"path"`
}

func (cmd *EVCmd) Run(env *appEnv) error {
	cfg := env.config
	format, err := simulator.ParseOutputFormat(cmd.Format)
	if err != nil {
		return err
	}
	rules, err := cmd.RuleFlags.apply(cfg.Rules)
	if err != nil {
		return err
	}
	table, policyName, err := loadPolicy(cmd.Policy, cfg.Policy)
	if err != nil {
		return err
	}

	seed := cfg.EV.Seed
	if cmd.Seed != nil {
		seed = *cmd.Seed
	}
	seed = randutil.Resolve(seed)

	simCfg := simulator.Config{
		Rounds:        firstNonZero(cmd.Rounds, cfg.EV.Rounds, simulator.DefaultRounds),
		Workers:       firstNonZero(cmd.Workers, cfg.EV.Workers, 1),
		Seed:          seed,
		Rules:         rules,
		Policy:        table,
		ProgressEvery: firstNonZero(cmd.ProgressEvery, cfg.EV.ProgressEvery),
		Logger:        env.logger.With().Str("policy", policyName).Logger(),
	}
	sim, err := simulator.New(simCfg)
	if err != nil {
		return err
	}

	// Open the report destination before simulating so a bad path fails fast.
	var out *fileutil.AtomicFile
	if cmd.Output != "" {
		out, err = fileutil.CreateAtomic(cmd.Output, 0o644)
		if err != nil {
			return fmt.Errorf("open report output: %w", err)
		}
		defer out.Abort()
	}

	result, err := sim.Run(env.ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if out != nil {
		// Report files hold plain text, whatever the terminal supports.
		lipgloss.SetColorProfile(termenv.Ascii)
		if err := simulator.WriteReport(out, result, format); err != nil {
			return err
		}
		if err := out.Commit(); err != nil {
			return err
		}
		env.logger.Info().Str("path", out.Path()).Msg("Report written")
	} else if err := simulator.WriteReport(os.Stdout, result, format); err != nil {
		return err
	}

	return recordRun(env, cmd.DB, store.FromEV(result))
}

// recordRun appends a run to the ledger named by the flag or the config.
func recordRun(env *appEnv, flag string, run store.Run) error {
	path := firstNonZero(flag, env.config.Database)
	if path == "" {
		return nil
	}
	ledger, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer ledger.Close()

	if err := ledger.InsertRun(env.ctx, run); err != nil {
		return err
	}
	env.logger.Info().Str("run_id", run.ID).Str("db", path).Msg("Run recorded")
	return nil
}
