package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tagrules/internal/rule"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	ConfigPath string
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Print the configured rules",
		Long: `Parse every configured rule, compile its query for its entity type and
print it in canonical form. No library is opened.

Exit codes:
  0 - Every rule is valid
  1 - One or more rule queries do not compile
  2 - Command error (config missing, a rule does not parse)

Examples:
  tagrules test --config rules.yaml
  tagrules test --config rules.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the rules config (.yaml or .cue)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// ruleReport describes one configured rule.
type ruleReport struct {
	Index int
	Rule  *rule.Rule
	Err   error
}

func (r ruleReport) canonical() map[string]any {
	deletions := r.Rule.Deletions
	if deletions == nil {
		deletions = []string{}
	}
	query := r.Rule.Query
	if query == nil {
		query = []string{}
	}

	out := map[string]any{
		"index":     r.Index,
		"entity":    r.Rule.Entity.String(),
		"query":     query,
		"mutations": r.Rule.Mutations,
		"deletions": deletions,
		"valid":     r.Err == nil,
	}
	if r.Rule.Source != "" {
		out["source"] = r.Rule.Source
	}
	if r.Err != nil {
		out["error"] = r.Err.Error()
	}
	return out
}

func runTest(opts *TestOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    w,
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "load config", err)
	}

	compiler := cfg.Compiler()
	reports := make([]ruleReport, 0, len(cfg.ParsedRules()))
	invalid := 0
	for i, r := range cfg.ParsedRules() {
		_, err := r.Compile(compiler, r.Entity)
		if err != nil {
			invalid++
		}
		reports = append(reports, ruleReport{Index: i + 1, Rule: r, Err: err})
	}

	if opts.Format == "json" {
		data := make([]any, len(reports))
		for i, r := range reports {
			data[i] = r.canonical()
		}
		status := "ok"
		if invalid > 0 {
			status = "error"
		}
		if err := formatter.Canonical(status, "", data); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			fmt.Fprintf(w, "%d. %s\n", r.Index, r.Rule)
			if r.Err != nil {
				fmt.Fprintf(w, "   error: %v\n", r.Err)
			}
		}
		fmt.Fprintf(w, "%d %s", len(reports), plural(len(reports), "rule", "rules"))
		if invalid > 0 {
			fmt.Fprintf(w, ", %d invalid", invalid)
		}
		fmt.Fprintln(w)
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d rules are invalid", invalid, len(reports)))
	}
	return nil
}
