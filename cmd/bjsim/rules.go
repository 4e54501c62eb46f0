package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/policy"
)

// RuleFlags override the configured rules. Zero values leave the
// configuration untouched.
type RuleFlags struct {
	Decks       int     `help:"number of decks in the shoe"`
	Soft17      string  `name:"soft17" help:"dealer soft 17 rule (hit|stand)"`
	Payout      float64 `help:"blackjack payout multiplier"`
	Penetration float64 `help:"fraction of the shoe dealt before reshuffling"`
	MaxHands    int     `help:"maximum hands a split sequence may create"`
	AceSplit    string  `name:"ace-split" help:"split Aces draw one card each (one) or play on normally (free)"`
}

func (f RuleFlags) apply(r blackjack.Rules) (blackjack.Rules, error) {
	if f.Decks != 0 {
		r.Decks = f.Decks
	}
	if f.Soft17 != "" {
		hit, err := parseSoft17(f.Soft17)
		if err != nil {
			return r, err
		}
		r.HitSoft17 = hit
	}
	if f.Payout != 0 {
		r.BlackjackPayout = f.Payout
	}
	if f.Penetration != 0 {
		r.Penetration = f.Penetration
	}
	if f.MaxHands != 0 {
		r.MaxHands = f.MaxHands
	}
	if f.AceSplit != "" {
		one, err := parseAceSplit(f.AceSplit)
		if err != nil {
			return r, err
		}
		r.OneCardOnAceSplit = one
	}
	if err := r.Validate(); err != nil {
		return r, fmt.Errorf("invalid rules: %w", err)
	}
	return r, nil
}

func parseSoft17(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit", "h17":
		return true, nil
	case "stand", "s17":
		return false, nil
	default:
		return false, fmt.Errorf("invalid soft17 rule %q (want hit or stand)", s)
	}
}

func parseAceSplit(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one":
		return true, nil
	case "free":
		return false, nil
	default:
		return false, fmt.Errorf("invalid ace-split rule %q (want one or free)", s)
	}
}

// firstNonZero returns the first argument that is not zero.
func firstNonZero[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// resolveWorkers maps 0 to the CPU count.
func resolveWorkers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// loadPolicy reads the policy table named by the flag, then the config,
// falling back to the built-in policy.
func loadPolicy(flag, configured string) (*policy.Grid, string, error) {
	path := firstNonZero(flag, configured)
	g, err := policy.LoadOrBasic(path)
	if err != nil {
		return nil, "", fmt.Errorf("load policy: %w", err)
	}
	if path == "" {
		path = "built-in"
	}
	return g, path, nil
}
