package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lox/blackjack/internal/config"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Config  string           `help:"HCL configuration file (missing file => defaults)" default:"bjsim.hcl" env:"BJSIM_CONFIG"`
	Debug   bool             `help:"enable debug logging" env:"BJSIM_DEBUG"`
	LogJSON bool             `name:"log-json" help:"emit structured JSON logs" env:"BJSIM_LOG_JSON"`

	EV       EVCmd       `cmd:"" name:"ev" help:"Estimate the expected value of a policy by Monte Carlo simulation"`
	GenTable GenTableCmd `cmd:"gen-table" help:"Generate the 4-D win-rate table"`
	Policy   PolicyCmd   `cmd:"" help:"Work with policy tables"`
	Lookup   LookupCmd   `cmd:"" help:"Look up the action and win rate for a hand, as firmware would"`
	Runs     RunsCmd     `cmd:"" help:"List runs recorded in the ledger"`
	Trace    TraceCmd    `cmd:"" help:"Play a few rounds and print each one"`
}

// appEnv carries resolved globals into command Run methods.
type appEnv struct {
	ctx    context.Context
	logger zerolog.Logger
	config *config.Config
}

func main() {
	// A .env file is optional; kong reads BJSIM_* variables afterwards.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bjsim"),
		kong.Description("Blackjack round simulator: EV estimation and win-rate table generation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	var logger zerolog.Logger
	if cli.LogJSON {
		logger = SetupStructuredLogger(cli.Debug)
	} else {
		logger = SetupLogger(cli.Debug)
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		kctx.FatalIfErrorf(fmt.Errorf("load config: %w", err))
	}
	logger.Debug().Str("path", cli.Config).Str("rules", cfg.Rules.String()).Msg("Configuration loaded")

	env := &appEnv{
		ctx:    SetupSignalHandlerWithLogger(logger),
		logger: logger,
		config: cfg,
	}
	err = kctx.Run(env)
	kctx.FatalIfErrorf(err)
}
