package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/blackjack/internal/store"
)

// RunsCmd lists the run ledger.
type RunsCmd struct {
	DB    string `name:"db" help:"SQLite run ledger (default from config)" type:"path"`
	Mode  string `help:"only list runs of this mode (ev|table)"`
	Limit int    `help:"maximum runs to list (0 => all)" default:"20"`
}

var (
	runsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	runsCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func (cmd *RunsCmd) Run(env *appEnv) error {
	path := firstNonZero(cmd.DB, env.config.Database)
	if path == "" {
		return fmt.Errorf("no ledger: pass --db or set database in the config")
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(env.ctx, cmd.Mode, cmd.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "MODE", "STARTED", "TOOK", "ROUNDS", "RULES", "SEED", "EV%", "WIN%", "RESULT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return runsHeaderStyle
			}
			return runsCellStyle
		})
	for _, r := range runs {
		t.Row(runRow(r)...)
	}
	_, err = fmt.Fprintln(os.Stdout, t.Render())
	return err
}

func runRow(r store.Run) []string {
	soft17 := "S17"
	if r.HitSoft17 {
		soft17 = "H17"
	}
	ev, result := "-", r.Output
	if r.Mode == store.ModeEV {
		ev = fmt.Sprintf("%+.3f", r.EVPercent)
		result = fmt.Sprintf("L %.1f%% P %.1f%%", r.LossRate*100, r.PushRate*100)
	}
	return []string{
		shortID(r.ID),
		r.Mode,
		r.StartedAt.Local().Format(time.DateTime),
		r.Duration.Round(time.Millisecond).String(),
		strconv.FormatInt(r.Rounds, 10),
		fmt.Sprintf("%dD %s %.1f", r.Decks, soft17, r.Payout),
		strconv.FormatInt(r.Seed, 10),
		ev,
		fmt.Sprintf("%.1f", r.WinRate*100),
		result,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
