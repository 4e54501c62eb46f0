package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjack/internal/card"
	"github.com/lox/blackjack/internal/policy"
)

// LookupCmd answers a single decision the way the display firmware does:
// every coordinate is clamped into the table rather than rejected.
type LookupCmd struct {
	Total    int    `arg:"" help:"player total"`
	Upcard   string `arg:"" help:"dealer upcard (2-10, J, Q, K, A)"`
	Soft     bool   `help:"the hand holds an ace counted as 11"`
	Pair     bool   `help:"the hand is a splittable pair"`
	TC       int    `name:"tc" help:"true count" default:"0"`
	Policy   string `help:"policy table file; built-in when empty" type:"path"`
	WinRates string `name:"winrates" help:"win-rate table (.json or .csv) to report alongside the action" type:"path"`
}

func (cmd *LookupCmd) Run(env *appEnv) error {
	up, err := card.ParseRank(cmd.Upcard)
	if err != nil {
		return err
	}
	table, _, err := loadPolicy(cmd.Policy, env.config.Policy)
	if err != nil {
		return err
	}

	count := policy.CountIndex(float64(cmd.TC))
	upIdx := card.DealerIndex(up)
	code := table.At(cmd.Total, cmd.Soft, upIdx, count)
	action := policy.Decode(code, cmd.Pair)

	fmt.Fprintf(os.Stdout, "%s v %s at tc %+d: %s (code %d, %s)\n",
		handLabel(cmd.Total, cmd.Soft, cmd.Pair), up, count-policy.CountOffset, action, code, codeLabel(code))

	if cmd.WinRates == "" {
		return nil
	}
	rates, err := policy.Load(cmd.WinRates, policy.KindWinRate)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "win rate: %d%%\n", rates.At(cmd.Total, cmd.Soft, upIdx, count))
	return nil
}

func handLabel(total int, soft, pair bool) string {
	switch {
	case pair:
		return fmt.Sprintf("pair totalling %d", total)
	case soft:
		return fmt.Sprintf("soft %d", total)
	default:
		return fmt.Sprintf("hard %d", total)
	}
}

func codeLabel(code policy.Code) string {
	switch code {
	case policy.CodeHit:
		return "hit"
	case policy.CodeStand, policy.CodeStandAlias:
		return "stand"
	case policy.CodeDouble:
		return "double"
	case policy.CodeSplitOrHit:
		return "split else hit"
	case policy.CodeSplitOrStand:
		return "split else stand"
	case policy.CodeSplitOrDouble:
		return "split else double"
	}
	return "unknown"
}
