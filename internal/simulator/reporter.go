package simulator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// OutputFormat selects how a finished run is rendered.
type OutputFormat string

const (
	OutputSummary OutputFormat = "summary"
	OutputJSON    OutputFormat = "json"
	OutputTOML    OutputFormat = "toml"
)

// ParseOutputFormat parses a report format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputSummary:
		return OutputSummary, nil
	case OutputJSON:
		return OutputJSON, nil
	case OutputTOML:
		return OutputTOML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want summary, json or toml)", s)
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	playerEdgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	houseEdgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
)

// Report is the serialisable form of a Result.
type Report struct {
	RunID    string        `json:"run_id" toml:"run_id"`
	Mode     string        `json:"mode" toml:"mode"`
	Started  time.Time     `json:"started" toml:"started"`
	Duration float64       `json:"duration_seconds" toml:"duration_seconds"`
	Config   ReportConfig  `json:"configuration" toml:"configuration"`
	Results  ReportResults `json:"results" toml:"results"`
}

// ReportConfig records the parameters a run used.
type ReportConfig struct {
	Rounds            int     `json:"rounds" toml:"rounds"`
	Workers           int     `json:"workers" toml:"workers"`
	Seed              int64   `json:"seed" toml:"seed"`
	Decks             int     `json:"decks" toml:"decks"`
	HitSoft17         bool    `json:"hit_soft_17" toml:"hit_soft_17"`
	BlackjackPayout   float64 `json:"blackjack_payout" toml:"blackjack_payout"`
	Penetration       float64 `json:"penetration" toml:"penetration"`
	MaxHands          int     `json:"max_hands" toml:"max_hands"`
	OneCardOnAceSplit bool    `json:"one_card_on_ace_split" toml:"one_card_on_ace_split"`
}

// ReportResults holds the aggregate statistics of a run.
type ReportResults struct {
	EVPercent        float64 `json:"ev_pct" toml:"ev_pct"`
	EVPerWagered     float64 `json:"ev_per_wagered" toml:"ev_per_wagered"`
	CI95Low          float64 `json:"ci95_low_pct" toml:"ci95_low_pct"`
	CI95High         float64 `json:"ci95_high_pct" toml:"ci95_high_pct"`
	StdDev           float64 `json:"std_dev" toml:"std_dev"`
	WinRate          float64 `json:"win_rate" toml:"win_rate"`
	LossRate         float64 `json:"loss_rate" toml:"loss_rate"`
	PushRate         float64 `json:"push_rate" toml:"push_rate"`
	Median           float64 `json:"median" toml:"median"`
	P05              float64 `json:"p05" toml:"p05"`
	P95              float64 `json:"p95" toml:"p95"`
	PlayerBlackjacks int     `json:"player_blackjacks" toml:"player_blackjacks"`
	DealerBlackjacks int     `json:"dealer_blackjacks" toml:"dealer_blackjacks"`
	Doubles          int     `json:"doubles" toml:"doubles"`
	Splits           int     `json:"splits" toml:"splits"`
	Wagered          int64   `json:"wagered" toml:"wagered"`
	Reshuffles       int     `json:"reshuffles" toml:"reshuffles"`
	Verdict          string  `json:"verdict" toml:"verdict"`
}

// Verdict summarises who holds the edge.
func Verdict(evPercent float64) string {
	if evPercent < 0 {
		return "The house has the edge."
	}
	return "The player has the edge."
}

// NewReport converts a result into its serialisable form.
func NewReport(r *Result) Report {
	s := r.Stats
	lo, hi := s.ConfidenceInterval95()
	return Report{
		RunID:    r.ID.String(),
		Mode:     "ev",
		Started:  r.Started.UTC(),
		Duration: r.Elapsed.Seconds(),
		Config: ReportConfig{
			Rounds:            r.Rounds,
			Workers:           r.Workers,
			Seed:              r.Seed,
			Decks:             r.Rules.Decks,
			HitSoft17:         r.Rules.HitSoft17,
			BlackjackPayout:   r.Rules.BlackjackPayout,
			Penetration:       r.Rules.Penetration,
			MaxHands:          r.Rules.MaxHands,
			OneCardOnAceSplit: r.Rules.OneCardOnAceSplit,
		},
		Results: ReportResults{
			EVPercent:        s.EVPercent(),
			EVPerWagered:     s.EVPerWagered(),
			CI95Low:          lo * 100,
			CI95High:         hi * 100,
			StdDev:           s.StdDev(),
			WinRate:          s.WinRate(),
			LossRate:         s.LossRate(),
			PushRate:         s.PushRate(),
			Median:           s.Median(),
			P05:              s.Percentile(0.05),
			P95:              s.Percentile(0.95),
			PlayerBlackjacks: s.PlayerBlackjacks,
			DealerBlackjacks: s.DealerBlackjacks,
			Doubles:          s.Doubles,
			Splits:           s.Splits,
			Wagered:          s.Wagered,
			Reshuffles:       r.Reshuffles,
			Verdict:          Verdict(s.EVPercent()),
		},
	}
}

// WriteReport renders a result to w.
func WriteReport(w io.Writer, r *Result, format OutputFormat) error {
	report := NewReport(r)
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case OutputTOML:
		return toml.NewEncoder(w).Encode(report)
	case OutputSummary, "":
		_, err := io.WriteString(w, renderSummary(report))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderSummary(r Report) string {
	res := r.Results
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
	}

	lines := []string{
		titleStyle.Render("FINAL RESULTS"),
		row("Run", r.RunID),
		row("Total rounds", fmt.Sprintf("%d", r.Config.Rounds)),
		row("Rules", fmt.Sprintf("%dD H17=%t BJ %.2f pen %.0f%%", r.Config.Decks, r.Config.HitSoft17, r.Config.BlackjackPayout, r.Config.Penetration*100)),
		row("Win rate", fmt.Sprintf("%.4f%%", res.WinRate*100)),
		row("Loss rate", fmt.Sprintf("%.4f%%", res.LossRate*100)),
		row("Push rate", fmt.Sprintf("%.4f%%", res.PushRate*100)),
		row("Expected value (EV)", fmt.Sprintf("%.4f%%", res.EVPercent)),
		row("95% CI", fmt.Sprintf("[%.4f%%, %.4f%%]", res.CI95Low, res.CI95High)),
		row("EV per unit wagered", fmt.Sprintf("%.4f%%", res.EVPerWagered*100)),
		row("Std dev", fmt.Sprintf("%.4f units", res.StdDev)),
		row("Blackjacks (P/D)", fmt.Sprintf("%d / %d", res.PlayerBlackjacks, res.DealerBlackjacks)),
		row("Doubles / splits", fmt.Sprintf("%d / %d", res.Doubles, res.Splits)),
		row("Reshuffles", fmt.Sprintf("%d", res.Reshuffles)),
		row("Elapsed", (time.Duration(r.Duration * float64(time.Second))).Round(time.Millisecond).String()),
	}
	style := houseEdgeStyle
	if res.EVPercent >= 0 {
		style = playerEdgeStyle
	}
	lines = append(lines, style.Render("Verdict: "+res.Verdict))
	return strings.Join(lines, "\n") + "\n"
}
