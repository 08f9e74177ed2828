package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/store"
)

// NewMetaCommand creates the meta command group.
func NewMetaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Manage rules, parsers and config records",
		Long: `Manage metadata: tagging rules, text parsers and config records
such as priorities and IBAN groups.`,
	}

	cmd.AddCommand(newMetaListCommand(rootOpts))
	cmd.AddCommand(newMetaGetCommand(rootOpts))
	cmd.AddCommand(newMetaSetCommand(rootOpts))
	cmd.AddCommand(newMetaImportCommand(rootOpts))
	return cmd
}

func newMetaListCommand(rootOpts *RootOptions) *cobra.Command {
	var metatype string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List metadata records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if metatype != "" && !ir.IsMetatype(metatype) {
				return NewExitError(ExitFailure, fmt.Sprintf("unknown metatype %q: must be rule, parser or config", metatype))
			}
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var docs []ir.Document
			if metatype == "" {
				docs, err = s.store.FilterMetadata(cmd.Context(), queryir.Filter{})
			} else {
				docs, err = s.store.MetadataByType(cmd.Context(), metatype)
			}
			if err != nil {
				return commandError("meta list", err)
			}
			return rootOpts.formatter(cmd).Success(recordsView(docs))
		},
	}

	cmd.Flags().StringVarP(&metatype, "type", "t", "", "only records of this metatype (rule|parser|config)")
	return cmd
}

func newMetaGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <uuid>",
		Short:         "Show one metadata record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			doc, err := s.store.GetMetadata(cmd.Context(), args[0])
			if err != nil {
				return commandError("meta get", err)
			}
			if doc == nil {
				return NewExitError(ExitFailure, fmt.Sprintf("metadata record %s not found", args[0]))
			}
			return rootOpts.formatter(cmd).Success(recordsView{doc})
		},
	}
}

func newMetaSetCommand(rootOpts *RootOptions) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "set <record>",
		Short: "Save a metadata record given inline",
		Long: `Save a metadata record given as inline JSON or YAML. The uuid is
derived from metatype and name when missing.

Example:
  txtag meta set '{metatype: rule, name: Rent, category: Miete,
    filter: [{key: text_tx, compare: like, value: miete}]}' --overwrite`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := metadata.Decode([]byte(args[0]))
			if err != nil {
				return commandError("meta set", err)
			}
			return saveMetadata(rootOpts, cmd, docs, overwrite)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace a stored record with the same uuid")
	return cmd
}

func newMetaImportCommand(rootOpts *RootOptions) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import metadata records from a JSON or YAML file",
		Long: `Import metadata records from a JSON or YAML file. Every record is
validated before anything is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := metadata.LoadFile(args[0])
			if err != nil {
				return commandError("meta import", err)
			}
			return saveMetadata(rootOpts, cmd, docs, overwrite)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace stored records with the same uuid")
	return cmd
}

func saveMetadata(rootOpts *RootOptions, cmd *cobra.Command, docs []ir.Document, overwrite bool) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	f := rootOpts.formatter(cmd)
	total := store.Inserted{}
	for _, doc := range docs {
		res, err := s.store.SetMetadata(cmd.Context(), doc, overwrite)
		if err != nil {
			return commandError("save metadata", err)
		}
		if res.Inserted == 0 {
			f.VerboseLog("kept stored record %s (%s)", doc.UUID(), doc.String(ir.FieldName))
		}
		total.Inserted += res.Inserted
	}
	return f.Success(insertedView(total))
}
