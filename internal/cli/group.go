package cli

import (
	"github.com/spf13/cobra"
)

// NewGroupCommand creates the group command group.
func NewGroupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage IBAN groups",
		Long: `Manage IBAN groups. A group name can be passed to --iban wherever
records are selected; the selection then spans every account in the group.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "add <name> <iban>...",
		Short:         "Add accounts to a group, creating it if needed",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.store.AddIBANGroup(cmd.Context(), args[0], args[1:]); err != nil {
				return commandError("group add", err)
			}
			ibans, err := s.store.GroupIBANs(cmd.Context(), args[0])
			if err != nil {
				return commandError("group add", err)
			}
			return rootOpts.formatter(cmd).Success(listView(ibans))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "show <name>",
		Short:         "List the accounts of a group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ibans, err := s.store.GroupIBANs(cmd.Context(), args[0])
			if err != nil {
				return commandError("group show", err)
			}
			return rootOpts.formatter(cmd).Success(listView(ibans))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List group names",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			names, err := s.store.ListGroups(cmd.Context())
			if err != nil {
				return commandError("group list", err)
			}
			return rootOpts.formatter(cmd).Success(listView(names))
		},
	})

	return cmd
}
