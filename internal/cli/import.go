package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tagrules/internal/engine"
	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/library"
	"github.com/roach88/tagrules/internal/log"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DBPath     string
	ConfigPath string
	Entity     string
	Init       bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <records.yaml>",
		Short: "Add new records, applying the rules to each first",
		Long: `Add new albums or items to the library from a YAML list of field maps.

When the config sets onimport, every rule whose query matches a new record
is applied to it, in config order, before the record is stored. Rules are
matched against the record itself, not the library.

Exit codes:
  0 - Every record was added
  1 - A rule or the library rejected a record (records before it are kept)
  2 - Command error (config, library or input not usable)

Examples:
  tagrules import --db library.db --config rules.yaml new-items.yaml
  tagrules import --db library.db --config rules.yaml --entity album albums.yaml
  tagrules import --db new.db --config rules.yaml --init items.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the library database")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the rules config (.yaml or .cue)")
	cmd.Flags().StringVar(&opts.Entity, "entity", ir.Item.String(), "entity type of the records (album|item)")
	cmd.Flags().BoolVar(&opts.Init, "init", false, "create the library if it does not exist")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// readRecords decodes a YAML sequence of field maps.
func readRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var records []map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	return records, nil
}

func runImport(opts *ImportOptions, inputPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    w,
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	entity, err := ir.ParseEntityType(opts.Entity)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "invalid --entity", err)
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "load config", err)
	}

	records, err := readRecords(inputPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "read records", err)
	}

	models := make([]*library.Model, 0, len(records))
	for i, fields := range records {
		m, err := library.ModelFromFields(entity, fields)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("record %d", i), err)
		}
		models = append(models, m)
	}

	var lib *library.Library
	if opts.Init {
		lib, err = library.Open(opts.DBPath)
	} else {
		lib, err = openLibrary(opts.DBPath)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLibrary, "open library", err)
	}
	defer lib.Close()

	logger := log.WithContext(ctx)
	eng := engine.New[library.Model](
		engine.WithCompiler(cfg.Compiler()),
		engine.WithLogger(logger),
	)

	imported := make([]any, 0, len(models))
	applied := 0
	for i, m := range models {
		if cfg.OnImport {
			n, err := eng.Import(cfg.ParsedRules(), m)
			if err != nil {
				return formatter.Fail(ExitFailure, ErrCodeRun, fmt.Sprintf("record %d", i), err)
			}
			applied += n
		}

		if err := lib.Add(ctx, m); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, fmt.Sprintf("record %d", i), err)
		}
		logger.Debug("record imported", "entity", entity, "id", m.ID())

		imported = append(imported, map[string]any{
			"id":     m.ID(),
			"fields": m.Fields(),
		})
	}

	if opts.Format == "json" {
		return formatter.Canonical("ok", "", map[string]any{
			"entity":   entity.String(),
			"imported": imported,
			"applied":  applied,
		})
	}

	fmt.Fprintf(w, "Imported %d %s", len(models), plural(len(models), entity.String(), entity.String()+"s"))
	if cfg.OnImport {
		fmt.Fprintf(w, " (%d rule %s)", applied, plural(applied, "application", "applications"))
	}
	fmt.Fprintln(w, ".")
	return nil
}
