package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/card"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/shoe"
)

// TraceCmd plays a handful of rounds and prints each one, for checking rule
// handling by eye.
type TraceCmd struct {
	RuleFlags `embed:""`

	Rounds int    `help:"rounds to play" short:"n" default:"20"`
	Seed   int64  `help:"random seed; 0 uses time seed" default:"1"`
	Policy string `help:"policy table file; built-in when empty" type:"path"`
}

// recordingSource remembers every card drawn from the wrapped source.
type recordingSource struct {
	blackjack.CardSource
	drawn []card.Rank
}

func (r *recordingSource) Draw() card.Rank {
	c := r.CardSource.Draw()
	r.drawn = append(r.drawn, c)
	return c
}

func (cmd *TraceCmd) Run(env *appEnv) error {
	rules, err := cmd.RuleFlags.apply(env.config.Rules)
	if err != nil {
		return err
	}
	table, policyName, err := loadPolicy(cmd.Policy, env.config.Policy)
	if err != nil {
		return err
	}
	engine, err := blackjack.NewEngine(rules, policy.NewOracle(table))
	if err != nil {
		return err
	}

	seed := randutil.Resolve(cmd.Seed)
	s := shoe.New(rules.Decks, rules.Penetration, randutil.New(seed))
	src := &recordingSource{CardSource: s}

	logger := log.NewWithOptions(os.Stdout, log.Options{Prefix: "trace"})
	logger.Info("Tracing rounds", "rules", rules.String(), "policy", policyName, "seed", seed)

	var total float64
	for i := 0; i < cmd.Rounds; i++ {
		if err := env.ctx.Err(); err != nil {
			return err
		}
		src.drawn = src.drawn[:0]
		running, tc := s.RunningCount(), s.TrueCount()
		out := engine.PlayRound(src)
		total += out.Profit

		logger.Info("Round",
			"n", i+1,
			"rc", running,
			"tc", policy.CountIndex(tc)-policy.CountOffset,
			"cards", rankList(src.drawn),
			"dealer", dealerLabel(out),
		)
		for h, ho := range out.Hands {
			logger.Info("  Hand",
				"hand", h+1,
				"total", ho.Total,
				"soft", ho.Soft,
				"bet", ho.Bet,
				"doubled", ho.Doubled,
				"result", ho.Result,
				"profit", ho.Profit,
			)
		}
		level := log.InfoLevel
		if out.Profit <= -2 || out.Profit >= 2 {
			level = log.WarnLevel
		}
		logger.Log(level, "  Settled", "profit", out.Profit, "running", total)
	}
	return nil
}

func rankList(ranks []card.Rank) string {
	parts := make([]string, len(ranks))
	for i, r := range ranks {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

func dealerLabel(out blackjack.Outcome) string {
	switch {
	case out.DealerBlackjack:
		return "blackjack"
	case out.DealerBust:
		return "bust"
	default:
		return strconv.Itoa(out.DealerTotal)
	}
}
