package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/txtag/internal/classify"
	"github.com/roach88/txtag/internal/config"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/store"
	"github.com/roach88/txtag/internal/tagger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	IBAN       string
	Backend    string // overrides store.backend
	DBPath     string // overrides store.path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the txtag CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "txtag",
		Short: "txtag - tag and categorize bank transactions",
		Long: `Store bank transactions per account and tag or categorize them with
stored rules, ad-hoc rules and manual overrides.

Categories are priority-gated: a rule only overwrites a category written
at a lower priority, so manual choices survive later rule runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitFailure, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: $TXTAG_CONFIG or ./txtag.yaml)")
	cmd.PersistentFlags().StringVar(&opts.IBAN, "iban", "", "account collection (default: account.iban)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (bolt|sqlite), overrides store.backend")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file, overrides store.path")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTruncateCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewIBANsCommand(opts))
	cmd.AddCommand(NewMetaCommand(opts))
	cmd.AddCommand(NewGroupCommand(opts))
	cmd.AddCommand(NewTagCommand(opts))
	cmd.AddCommand(NewCatCommand(opts))
	cmd.AddCommand(NewTagAndCatCommand(opts))
	cmd.AddCommand(NewCustomCommand(opts))
	cmd.AddCommand(NewManualCommand(opts))
	cmd.AddCommand(NewRemoveTagsCommand(opts))
	cmd.AddCommand(NewRemoveCatCommand(opts))
	cmd.AddCommand(NewClassifyCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stderr in the selected format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	code := GetExitCode(err)
	f := &OutputFormatter{Format: format, Writer: stderr}
	_ = f.Error(ErrorCode(err), err.Error(), nil)
	return code
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// session bundles the configuration, store and tagger of one command run.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	tagger *tagger.Tagger
	iban   string
}

// open loads configuration and opens the store.
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "load config", err)
	}
	if o.Backend != "" {
		cfg.Store.Backend = o.Backend
	}
	if o.DBPath != "" {
		cfg.Store.Path = o.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitFailure, "invalid flags", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, o.Verbose)
	st, err := store.Open(cmd.Context(), cfg.Store, store.WithLogger(logger))
	if err != nil {
		if store.IsLockTimeout(err) {
			return nil, WrapExitError(ExitCommandError, "database is locked by another process", err)
		}
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}

	iban := o.IBAN
	if iban == "" {
		iban = cfg.Account.IBAN
	}
	return &session{
		cfg:    cfg,
		logger: logger,
		store:  st,
		tagger: tagger.New(st,
			tagger.WithLogger(logger),
			tagger.WithClassifier(classify.NewRandom(cfg.Classifier.Categories)),
		),
		iban: iban,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// account returns the collection commands work on.
func (s *session) account() (string, error) {
	if s.iban == "" {
		return "", NewExitError(ExitFailure, "no account given: pass --iban or set account.iban")
	}
	return s.iban, nil
}

// newLogger builds the stderr text logger. --verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// commandError maps an operation error onto an exit code: bad input exits
// with ExitFailure, everything else with ExitCommandError.
func commandError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case queryir.IsValidationError(err), metadata.IsSchemaError(err), tagger.IsRuleNotFound(err):
		return WrapExitError(ExitFailure, op, err)
	default:
		return WrapExitError(ExitCommandError, op, err)
	}
}
