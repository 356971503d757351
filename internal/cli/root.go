package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagrules/internal/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	LogLevel  string
	LogFormat string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tagrules CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tagrules",
		Short: "Apply declarative modification rules to a music library",
		Long: `tagrules applies rules like "genre:rock genre=Rock" to the albums and
items of a music library. Every matching rule is applied to each record
exactly once per batch, and changes from several rules to the same record
are merged before anything is stored.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			level := opts.LogLevel
			if opts.Verbose {
				level = string(log.LevelDebug)
			}
			handler, err := log.NewHandler(cmd.ErrOrStderr(), level, opts.LogFormat)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid logging flags", err)
			}

			logger := slog.New(handler)
			cmd.SetContext(log.NewContext(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (implies --log-level debug)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", string(log.LevelInfo),
		fmt.Sprintf("log level (%s)", strings.Join(log.AllLevels, "|")))
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", string(log.FormatText),
		fmt.Sprintf("log format (%s)", strings.Join(log.AllFormats, "|")))

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
