package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/store"
	"github.com/lox/blackjack/internal/tablegen"
)

// GenTableCmd generates the win-rate table.
type GenTableCmd struct {
	RuleFlags `embed:""`

	Samples int    `help:"rounds simulated per cell (0 => config)"`
	Workers int    `help:"parallel workers (0 => config, then CPU count)"`
	Seed    *int64 `help:"random seed; 0 uses time seed"`
	Source  string `help:"card source (infinite|shoe)"`
	Policy  string `help:"policy table file (.json or .csv); built-in when empty" type:"path"`
	Out     string `help:"output path (default from config)" short:"o" type:"path"`
	Format  string `help:"output format (header|go|json|csv); inferred from the extension when empty"`
	Name    string `help:"array or variable name in generated source" default:"blackjack_winrates"`
	Package string `help:"package name for Go output" default:"tables"`
	DB      string `name:"db" help:"SQLite run ledger to record the run in" type:"path"`
}

func (cmd *GenTableCmd) Run(env *appEnv) error {
	cfg := env.config
	rules, err := cmd.RuleFlags.apply(cfg.Rules)
	if err != nil {
		return err
	}
	source, err := tablegen.ParseSource(firstNonZero(cmd.Source, cfg.Table.Source))
	if err != nil {
		return err
	}
	table, policyName, err := loadPolicy(cmd.Policy, cfg.Policy)
	if err != nil {
		return err
	}

	outPath := firstNonZero(cmd.Out, cfg.Table.Output)
	if outPath == "" {
		return fmt.Errorf("no output path: pass --out or set table.output")
	}
	format, err := policy.ParseFormat(firstNonZero(cmd.Format, cfg.Table.Format), outPath)
	if err != nil {
		return err
	}

	seed := cfg.Table.Seed
	if cmd.Seed != nil {
		seed = *cmd.Seed
	}
	seed = randutil.Resolve(seed)

	genCfg := tablegen.Config{
		Samples: firstNonZero(cmd.Samples, cfg.Table.Samples, tablegen.DefaultSamples),
		Workers: resolveWorkers(firstNonZero(cmd.Workers, cfg.Table.Workers)),
		Seed:    seed,
		Rules:   rules,
		Policy:  table,
		Source:  source,
		Logger:  env.logger.With().Str("policy", policyName).Logger(),
	}
	gen, err := tablegen.New(genCfg)
	if err != nil {
		return err
	}

	// The destination is opened before any simulation so an unwritable
	// path fails immediately.
	out, err := fileutil.CreateAtomic(outPath, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open %s for writing: %w", outPath, err)
	}
	defer out.Abort()

	started := time.Now()
	result, err := gen.Generate(env.ctx)
	if err != nil {
		return fmt.Errorf("table generation failed: %w", err)
	}

	opts := policy.EncodeOptions{
		Format:  format,
		Kind:    policy.KindWinRate,
		Name:    cmd.Name,
		Package: cmd.Package,
		Meta: map[string]string{
			"seed":    strconv.FormatInt(seed, 10),
			"samples": strconv.Itoa(genCfg.Samples),
			"source":  string(source),
			"policy":  policyName,
			"rules":   rules.String(),
		},
	}
	if err := policy.Encode(out, result.Table, opts); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	if err := out.Commit(); err != nil {
		return err
	}
	env.logger.Info().
		Str("path", outPath).
		Str("format", string(format)).
		Int("cells", result.Cells).
		Msg("Done! Generated win-rate table")

	return recordRun(env, cmd.DB, store.FromTable(result, genCfg, started, outPath))
}
