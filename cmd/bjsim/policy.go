package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/policy"
)

// PolicyCmd groups policy table utilities.
type PolicyCmd struct {
	Export   PolicyExportCmd   `cmd:"" help:"Write a policy table in any supported format"`
	Validate PolicyValidateCmd `cmd:"" help:"Check a table file against the schema and value ranges"`
}

type PolicyExportCmd struct {
	Policy  string `help:"policy table file to convert; built-in when empty" type:"path"`
	Out     string `help:"output path; stdout when empty" short:"o" type:"path"`
	Format  string `help:"output format (header|go|json|csv); inferred from --out when empty"`
	Name    string `help:"array or variable name in generated source" default:"blackjack_policy"`
	Package string `help:"package name for Go output" default:"tables"`
}

func (cmd *PolicyExportCmd) Run(env *appEnv) error {
	table, name, err := loadPolicy(cmd.Policy, env.config.Policy)
	if err != nil {
		return err
	}

	formatName := cmd.Format
	if formatName == "" && cmd.Out == "" {
		formatName = string(policy.FormatJSON)
	}
	format, err := policy.ParseFormat(formatName, cmd.Out)
	if err != nil {
		return err
	}
	opts := policy.EncodeOptions{
		Format:  format,
		Kind:    policy.KindPolicy,
		Name:    cmd.Name,
		Package: cmd.Package,
		Meta:    map[string]string{"source": name},
	}

	if cmd.Out == "" {
		return policy.Encode(os.Stdout, table, opts)
	}
	out, err := fileutil.CreateAtomic(cmd.Out, 0o644)
	if err != nil {
		return err
	}
	defer out.Abort()
	if err := policy.Encode(out, table, opts); err != nil {
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}
	env.logger.Info().Str("path", cmd.Out).Str("format", string(format)).Str("source", name).Msg("Policy exported")
	return nil
}

type PolicyValidateCmd struct {
	Kind string `help:"table kind (policy|winrate)" default:"policy"`
	File string `arg:"" help:"table file (.json or .csv)" type:"existingfile"`
}

func (cmd *PolicyValidateCmd) Run(env *appEnv) error {
	kind, err := policy.ParseKind(cmd.Kind)
	if err != nil {
		return err
	}
	table, err := policy.Load(cmd.File, kind)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.File, err)
	}
	return describeTable(os.Stdout, cmd.File, kind, table)
}

// describeTable prints a short census of a valid table.
func describeTable(w io.Writer, path string, kind policy.Kind, table *policy.Grid) error {
	counts := make(map[uint8]int)
	for _, v := range table.Cells() {
		counts[v]++
	}
	if _, err := fmt.Fprintf(w, "%s: valid %s table, %d cells\n", path, kind, policy.Cells); err != nil {
		return err
	}
	if kind != policy.KindPolicy {
		return nil
	}
	for _, code := range []policy.Code{
		policy.CodeHit, policy.CodeStand, policy.CodeDouble, policy.CodeStandAlias,
		policy.CodeSplitOrHit, policy.CodeSplitOrStand, policy.CodeSplitOrDouble,
	} {
		if _, err := fmt.Fprintf(w, "  %2d %-16s %6d\n", code, codeLabel(code), counts[code]); err != nil {
			return err
		}
	}
	return nil
}
