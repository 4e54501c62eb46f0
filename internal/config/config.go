// Package config loads run parameters from an HCL file layered over
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/lox/blackjack/internal/tablegen"
)

// File is the on-disk HCL shape. Omitted attributes keep their defaults.
type File struct {
	Rules    *RulesBlock `hcl:"rules,block"`
	EV       *EVBlock    `hcl:"ev,block"`
	Table    *TableBlock `hcl:"table,block"`
	Policy   string      `hcl:"policy,optional"`
	Database string      `hcl:"database,optional"`
}

// RulesBlock configures table rules.
type RulesBlock struct {
	Decks             int     `hcl:"decks,optional"`
	HitSoft17         *bool   `hcl:"hit_soft_17,optional"`
	BlackjackPayout   float64 `hcl:"blackjack_payout,optional"`
	Penetration       float64 `hcl:"penetration,optional"`
	MaxHands          int     `hcl:"max_hands,optional"`
	OneCardOnAceSplit *bool   `hcl:"one_card_on_ace_split,optional"`
}

// EVBlock configures EV simulations.
type EVBlock struct {
	Rounds        int    `hcl:"rounds,optional"`
	Workers       int    `hcl:"workers,optional"`
	Seed          *int64 `hcl:"seed,optional"`
	ProgressEvery int    `hcl:"progress_every,optional"`
}

// TableBlock configures win-rate table generation.
type TableBlock struct {
	Samples int    `hcl:"samples,optional"`
	Workers int    `hcl:"workers,optional"`
	Seed    *int64 `hcl:"seed,optional"`
	Source  string `hcl:"source,optional"`
	Output  string `hcl:"output,optional"`
	Format  string `hcl:"format,optional"`
}

// EVSettings are resolved EV simulation parameters.
type EVSettings struct {
	Rounds        int
	Workers       int
	Seed          int64
	ProgressEvery int
}

// TableSettings are resolved table generation parameters.
type TableSettings struct {
	Samples int
	Workers int
	Seed    int64
	Source  string
	Output  string
	Format  string
}

// Config is the fully resolved configuration.
type Config struct {
	Rules    blackjack.Rules
	EV       EVSettings
	Table    TableSettings
	Policy   string
	Database string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Rules: blackjack.DefaultRules(),
		EV: EVSettings{
			Rounds:        simulator.DefaultRounds,
			Workers:       1,
			Seed:          42,
			ProgressEvery: simulator.DefaultProgressEvery,
		},
		Table: TableSettings{
			Samples: tablegen.DefaultSamples,
			Workers: runtime.NumCPU(),
			Seed:    42,
			Source:  string(tablegen.SourceInfinite),
			Output:  "win_rate_table.h",
		},
	}
}

// Load reads an HCL configuration file. A missing file yields defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies it over the defaults.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var f File
	diags = gohcl.DecodeBody(file.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	cfg.apply(&f)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) apply(f *File) {
	if r := f.Rules; r != nil {
		if r.Decks != 0 {
			c.Rules.Decks = r.Decks
		}
		if r.HitSoft17 != nil {
			c.Rules.HitSoft17 = *r.HitSoft17
		}
		if r.BlackjackPayout != 0 {
			c.Rules.BlackjackPayout = r.BlackjackPayout
		}
		if r.Penetration != 0 {
			c.Rules.Penetration = r.Penetration
		}
		if r.MaxHands != 0 {
			c.Rules.MaxHands = r.MaxHands
		}
		if r.OneCardOnAceSplit != nil {
			c.Rules.OneCardOnAceSplit = *r.OneCardOnAceSplit
		}
	}
	if e := f.EV; e != nil {
		if e.Rounds != 0 {
			c.EV.Rounds = e.Rounds
		}
		if e.Workers != 0 {
			c.EV.Workers = e.Workers
		}
		if e.Seed != nil {
			c.EV.Seed = *e.Seed
		}
		if e.ProgressEvery != 0 {
			c.EV.ProgressEvery = e.ProgressEvery
		}
	}
	if t := f.Table; t != nil {
		if t.Samples != 0 {
			c.Table.Samples = t.Samples
		}
		if t.Workers != 0 {
			c.Table.Workers = t.Workers
		}
		if t.Seed != nil {
			c.Table.Seed = *t.Seed
		}
		if t.Source != "" {
			c.Table.Source = t.Source
		}
		if t.Output != "" {
			c.Table.Output = t.Output
		}
		if t.Format != "" {
			c.Table.Format = t.Format
		}
	}
	if f.Policy != "" {
		c.Policy = f.Policy
	}
	if f.Database != "" {
		c.Database = f.Database
	}
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if c.EV.Rounds < 0 {
		return errors.New("ev: rounds cannot be negative")
	}
	if c.EV.Workers < 0 {
		return errors.New("ev: workers cannot be negative")
	}
	if c.EV.ProgressEvery < 0 {
		return errors.New("ev: progress interval cannot be negative")
	}
	if c.Table.Samples < 0 {
		return errors.New("table: samples cannot be negative")
	}
	if c.Table.Workers < 0 {
		return errors.New("table: workers cannot be negative")
	}
	if _, err := tablegen.ParseSource(c.Table.Source); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	return nil
}
