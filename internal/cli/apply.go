package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagrules/internal/config"
	"github.com/roach88/tagrules/internal/engine"
	"github.com/roach88/tagrules/internal/library"
	"github.com/roach88/tagrules/internal/log"
	"github.com/roach88/tagrules/internal/session"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	DBPath      string
	ConfigPath  string
	Yes         bool
	ShowChanges bool
	Policy      string
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the configured rules to the library",
		Long: `Apply every configured rule to the library in one batch.

Rules run in config order. Each record is changed through a single
in-memory instance, so a later rule sees and can override an earlier
rule's change. Changes are shown, confirmed and then stored in one
transaction.

Exit codes:
  0 - Changes stored, nothing to change, or the prompt was declined
  1 - The run aborted or storing failed
  2 - Command error (config or library not usable)

Examples:
  tagrules apply --db library.db --config rules.yaml
  tagrules apply --db library.db --config rules.yaml --yes
  tagrules apply --db library.db --config rules.cue --policy besteffort --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the library database")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the rules config (.yaml or .cue)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "store without asking")
	cmd.Flags().BoolVar(&opts.ShowChanges, "show-changes", true, "show each record's changes (overrides showchanges)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "failure policy, failfast or besteffort (overrides policy)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// applyReport is the outcome of apply, rendered for json output.
type applyReport struct {
	Modified []library.Summary
	Skipped  []string
	Stored   bool
}

func (r applyReport) canonical() map[string]any {
	skipped := make([]any, len(r.Skipped))
	for i, s := range r.Skipped {
		skipped[i] = s
	}
	return map[string]any{
		"modified": library.CanonicalSummaries(r.Modified),
		"skipped":  skipped,
		"stored":   r.Stored,
	}
}

func runApply(opts *ApplyOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
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

	policy := cfg.FailurePolicy()
	if opts.Policy != "" {
		policy, err = engine.ParsePolicy(opts.Policy)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid --policy", err)
		}
	}

	showChanges := cfg.ShowChanges
	if cmd.Flags().Changed("show-changes") {
		showChanges = opts.ShowChanges
	}

	lib, err := openLibrary(opts.DBPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLibrary, "open library", err)
	}
	defer lib.Close()

	logger := log.WithContext(ctx)
	sess := session.New[library.Model](lib, session.WithLogger(logger))
	eng := engine.New[library.Model](
		engine.WithCompiler(cfg.Compiler()),
		engine.WithPolicy(policy),
		engine.WithLogger(logger),
	)

	formatter.VerboseLog("Running %d rules in session %s", len(cfg.ParsedRules()), sess.ID())

	res, err := eng.Run(ctx, cfg.ParsedRules(), sess)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRun, "apply rules", err)
	}

	models := res.Modified.Records()
	report := applyReport{
		Modified: library.Summarize(models),
		Skipped:  make([]string, 0, len(res.Errors)),
	}
	for _, rerr := range res.Errors {
		report.Skipped = append(report.Skipped, rerr.Error())
	}

	if opts.Format != "json" {
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "Skipped: %s\n", s)
		}
	}

	if len(report.Modified) == 0 {
		if opts.Format == "json" {
			return formatter.Canonical("ok", sess.ID(), report.canonical())
		}
		fmt.Fprintln(w, "No changes to make.")
		return nil
	}

	if showChanges && opts.Format != "json" {
		color := isTerminal(w)
		for _, s := range report.Modified {
			fmt.Fprint(w, renderSummary(s, color))
		}
	}

	if cfg.Confirm && !opts.Yes {
		ok, err := confirm(cmd.InOrStdin(), formatter.GetErrWriter(),
			fmt.Sprintf("Really modify %d %s (Y/n)? ", len(report.Modified), plural(len(report.Modified), "record", "records")))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "read confirmation", err)
		}
		if !ok {
			if opts.Format == "json" {
				return formatter.Canonical("ok", sess.ID(), report.canonical())
			}
			fmt.Fprintln(w, "Nothing stored.")
			return nil
		}
	}

	if err := lib.Store(ctx, models...); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "store changes", err)
	}
	report.Stored = true

	if opts.Format == "json" {
		return formatter.Canonical("ok", sess.ID(), report.canonical())
	}
	fmt.Fprintf(w, "Modified %d %s.\n", len(report.Modified), plural(len(report.Modified), "record", "records"))
	return nil
}

// loadConfig reads the config file, reporting a missing file plainly.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return config.Load(path)
}

// openLibrary opens an existing library. It never creates one.
func openLibrary(path string) (*library.Library, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("library not found: %s", path)
	}
	return library.Open(path)
}

// confirm asks a yes/no question that defaults to yes. EOF counts as no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		eof := errors.Is(err, io.EOF)

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			if eof {
				return false, nil
			}
			return true, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if eof {
			return false, nil
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
