package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	SkipParse bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import transaction records",
		Long: `Import transaction records from a JSON or YAML file (or stdin).

Records are identified by date_tx, amount and text_tx. The stored
parsers run over text_tx first. Records already stored are skipped, so importing the
same export twice is harmless.

Examples:
  txtag import --iban DE89370400440532013000 export.json
  cat export.json | txtag import -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipParse, "skip-parse", false, "do not run the stored parsers")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	docs, err := decodeDocuments(data)
	if err != nil {
		return commandError("import", err)
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	iban, err := s.account()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !opts.SkipParse {
		if docs, err = s.tagger.Parse(ctx, docs); err != nil {
			return commandError("parse", err)
		}
	}
	res, err := s.store.Insert(ctx, iban, docs...)
	if err != nil {
		return commandError("import", err)
	}
	return opts.formatter(cmd).Success(insertedView(res))
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "select",
		Short: "List records matching a filter",
		Long: `List records of an account or IBAN group matching a filter.

Examples:
  txtag select --where "amount < -100"
  txtag select --iban household --where "text_tx like edeka"
  txtag select --filter '[{key: {parsed: Mandatsreferenz}, value: M1111111}]'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.build()
			if err != nil {
				return commandError("select", err)
			}
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			iban, err := s.account()
			if err != nil {
				return err
			}
			docs, err := s.store.Select(cmd.Context(), iban, filter)
			if err != nil {
				return commandError("select", err)
			}
			return rootOpts.formatter(cmd).Success(recordsView(docs))
		},
	}

	filters.register(cmd)
	return cmd
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	filterFlags
	Set   string
	Merge bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set fields on records matching a filter",
		Long: `Set fields on every record matching a filter.

With --merge, list fields such as tags are unioned with the stored value
instead of replaced; a merge update needs a filter.

Examples:
  txtag update --set '{category: Miete}' --where "text_tx like miete"
  txtag update --merge --set '{tags: [Urlaub]}' --where "date_tx >= 1690000000"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "fields to set, as a JSON or YAML object")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "union list fields instead of replacing them")
	opts.filterFlags.register(cmd)
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command) error {
	raw, err := decodeValue([]byte(opts.Set))
	if err != nil {
		return commandError("update", queryir.NewValidationError("set", err.Error()))
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return commandError("update", queryir.NewValidationError("set", "expected an object"))
	}
	filter, err := opts.build()
	if err != nil {
		return commandError("update", err)
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	iban, err := s.account()
	if err != nil {
		return err
	}
	res, err := s.store.Update(cmd.Context(), iban, ir.Document(data), filter, opts.Merge)
	if err != nil {
		return commandError("update", err)
	}
	return opts.formatter(cmd).Success(updatedView(res))
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete records matching a filter",
		Long: `Delete records matching a filter. A filter is required; use
truncate to empty an account.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.build()
			if err != nil {
				return commandError("delete", err)
			}
			if filter.IsEmpty() {
				return NewExitError(ExitFailure, "delete needs a filter; use truncate to remove every record")
			}
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			iban, err := s.account()
			if err != nil {
				return err
			}
			res, err := s.store.Delete(cmd.Context(), iban, filter)
			if err != nil {
				return commandError("delete", err)
			}
			return rootOpts.formatter(cmd).Success(deletedView(res))
		},
	}

	filters.register(cmd)
	return cmd
}

// NewTruncateCommand creates the truncate command.
func NewTruncateCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:           "truncate",
		Short:         "Remove every record of an account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitFailure, "truncate removes every record; pass --yes to confirm")
			}
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			iban, err := s.account()
			if err != nil {
				return err
			}
			res, err := s.store.Truncate(cmd.Context(), iban)
			if err != nil {
				return commandError("truncate", err)
			}
			return rootOpts.formatter(cmd).Success(deletedView(res))
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removing every record")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "stats <field>",
		Short: "Show count, minimum and maximum of a numeric field",
		Long: `Show count, minimum and maximum of a numeric field over the records
matching a filter.

Example:
  txtag stats amount --where "category == Lebensmittel"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.build()
			if err != nil {
				return commandError("stats", err)
			}
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			iban, err := s.account()
			if err != nil {
				return err
			}
			res, err := s.store.Stats(cmd.Context(), iban, args[0], filter)
			if err != nil {
				return commandError("stats", err)
			}
			return rootOpts.formatter(cmd).Success(statsView(res))
		},
	}

	filters.register(cmd)
	return cmd
}

// NewIBANsCommand creates the ibans command.
func NewIBANsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ibans",
		Short:         "List accounts with stored records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ibans, err := s.store.ListIBANs(cmd.Context())
			if err != nil {
				return commandError("ibans", err)
			}
			return rootOpts.formatter(cmd).Success(listView(ibans))
		},
	}
}
