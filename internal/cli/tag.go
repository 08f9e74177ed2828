package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/tagger"
)

// prioFlags are the priority overrides of categorizing commands.
type prioFlags struct {
	prio    int
	prioSet int
	dryRun  bool
}

func (p *prioFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.prio, "prio", 0, "priority gate: only records below it are categorized")
	cmd.Flags().IntVar(&p.prioSet, "prio-set", 0, "priority written to categorized records (default: the gate)")
	cmd.Flags().BoolVarP(&p.dryRun, "dry-run", "n", false, "report matches without writing")
}

// pointers returns the overrides the user actually set.
func (p *prioFlags) pointers(cmd *cobra.Command) (prio, prioSet *int) {
	if cmd.Flags().Changed("prio") {
		v := p.prio
		prio = &v
	}
	if cmd.Flags().Changed("prio-set") {
		v := p.prioSet
		prioSet = &v
	}
	return prio, prioSet
}

// runTagger opens a session and runs fn against the selected account.
func runTagger(rootOpts *RootOptions, cmd *cobra.Command, op string, dryRun bool, fn func(s *session, iban string) (tagger.Result, error)) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	iban, err := s.account()
	if err != nil {
		return err
	}
	res, err := fn(s, iban)
	if err != nil {
		return commandError(op, err)
	}
	return rootOpts.formatter(cmd).Success(resultView{Result: res, DryRun: dryRun})
}

// NewTagCommand creates the tag command.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rule   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Apply the tags of stored rules",
		Long: `Apply the tags of one stored rule, or of every rule that has tags.
Tags are merged into the tags a record already carries.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagger(rootOpts, cmd, "tag", dryRun, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.Tag(cmd.Context(), iban, rule, dryRun)
			})
		},
	}

	cmd.Flags().StringVarP(&rule, "rule", "r", "", "apply only this rule")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report matches without writing")
	return cmd
}

// NewCatCommand creates the cat command.
func NewCatCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rule  string
		prios prioFlags
	)

	cmd := &cobra.Command{
		Use:   "cat",
		Short: "Apply the categories of stored rules",
		Long: `Apply the category of one stored rule, or of every rule that has a
category. A record is only categorized while its priority is below the
rule's gate, so a manual category is never overwritten by a rule.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prio, prioSet := prios.pointers(cmd)
			return runTagger(rootOpts, cmd, "cat", prios.dryRun, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.Categorize(cmd.Context(), iban, tagger.CategorizeOptions{
					RuleName: rule,
					Prio:     prio,
					PrioSet:  prioSet,
					DryRun:   prios.dryRun,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&rule, "rule", "r", "", "apply only this rule")
	prios.register(cmd)
	return cmd
}

// NewTagAndCatCommand creates the tag-and-cat command.
func NewTagAndCatCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tagRule string
		catRule string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "tag-and-cat",
		Short: "Apply tags and categories of stored rules",
		Long: `Apply tags and categories in one pass. Without rule names every
stored rule runs in priority order, tags before category, so a later
rule can match on tags an earlier rule set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagger(rootOpts, cmd, "tag-and-cat", dryRun, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.TagAndCat(cmd.Context(), iban, tagRule, catRule, dryRun)
			})
		},
	}

	cmd.Flags().StringVar(&tagRule, "tag-rule", "", "tagging rule to apply")
	cmd.Flags().StringVar(&catRule, "cat-rule", "", "categorization rule to apply")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report matches without writing")
	return cmd
}

// CustomOptions holds flags for the custom command.
type CustomOptions struct {
	*RootOptions
	filterFlags
	prioFlags
	Tags     []string
	Category string
	Parsed   []string
}

// NewCustomCommand creates the custom command.
func NewCustomCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CustomOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Apply an ad-hoc rule",
		Long: `Apply a rule given on the command line without storing it.

Examples:
  txtag custom --category Miete --where "text_tx like miete" --prio 10
  txtag custom --tag Verein --parsed "Gläubiger-ID=^DE70"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCustom(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Tags, "tag", "t", nil, "tag to add, repeatable")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category to set")
	cmd.Flags().StringArrayVar(&opts.Parsed, "parsed", nil, `parsed value regex "key=regex", repeatable`)
	opts.filterFlags.register(cmd)
	opts.prioFlags.register(cmd)
	return cmd
}

func runCustom(opts *CustomOptions, cmd *cobra.Command) error {
	filter, err := opts.build()
	if err != nil {
		return commandError("custom", err)
	}
	rule := tagger.CustomRule{
		Tags:    opts.Tags,
		Filters: filter.Conditions,
		Multi:   filter.Multi,
		DryRun:  opts.dryRun,
	}
	if opts.Category != "" {
		rule.Category = &opts.Category
	}
	for _, kv := range opts.Parsed {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return commandError("custom", queryir.NewValidationError("parsed", fmt.Sprintf("expected key=regex, got %q", kv)))
		}
		rule.ParsedKeys = append(rule.ParsedKeys, key)
		rule.ParsedVals = append(rule.ParsedVals, val)
	}
	rule.Prio, rule.PrioSet = opts.pointers(cmd)

	return runTagger(opts.RootOptions, cmd, "custom", opts.dryRun, func(s *session, iban string) (tagger.Result, error) {
		return s.tagger.TagOrCatCustom(cmd.Context(), iban, rule)
	})
}

// NewManualCommand creates the manual command.
func NewManualCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tags      []string
		category  string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "manual <uuid>",
		Short: "Set tags or the category of one record",
		Long: `Set tags and/or the category of one record. The category is written
at the manual priority, above every rule.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat *string
			if cmd.Flags().Changed("category") {
				cat = &category
			}
			return runTagger(rootOpts, cmd, "manual", false, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.SetManualTagAndCat(cmd.Context(), iban, args[0], tags, cat, overwrite)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag to set, repeatable")
	cmd.Flags().StringVar(&category, "category", "", "category to set")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace the record's tags instead of merging")
	return cmd
}

// NewRemoveTagsCommand creates the remove-tags command.
func NewRemoveTagsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove-tags <uuid>",
		Short:         "Clear the tags of one record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagger(rootOpts, cmd, "remove-tags", false, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.RemoveTags(cmd.Context(), iban, args[0])
			})
		},
	}
}

// NewRemoveCatCommand creates the remove-cat command.
func NewRemoveCatCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-cat <uuid>",
		Short: "Clear the category of one record",
		Long: `Clear the category of one record and reset its priority, so rules
may categorize it again.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagger(rootOpts, cmd, "remove-cat", false, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.RemoveCat(cmd.Context(), iban, args[0])
			})
		},
	}
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	var prios prioFlags

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Categorize uncategorized records automatically",
		Long: `Ask the classifier for a category for every uncategorized record
below the priority gate. The classifier picks from classifier.categories.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prio, prioSet := prios.pointers(cmd)
			return runTagger(rootOpts, cmd, "classify", prios.dryRun, func(s *session, iban string) (tagger.Result, error) {
				return s.tagger.Classify(cmd.Context(), iban, tagger.CategorizeOptions{
					Prio:    prio,
					PrioSet: prioSet,
					DryRun:  prios.dryRun,
				})
			})
		},
	}

	prios.register(cmd)
	return cmd
}
