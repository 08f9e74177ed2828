package tagger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/txtag/internal/classify"
	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/store"
)

// Store is the part of store.Store the tagger reads and writes through.
type Store interface {
	Select(ctx context.Context, collection string, filter queryir.Filter) ([]ir.Document, error)
	Update(ctx context.Context, collection string, data ir.Document, filter queryir.Filter, merge bool) (store.Updated, error)
	MetadataByType(ctx context.Context, metatype string) ([]ir.Document, error)
	Priorities(ctx context.Context) (metadata.Priorities, error)
	IsGroup(ctx context.Context, name string) (bool, error)
}

var _ Store = (*store.Store)(nil)

// Tagger applies stored and ad-hoc rules to transaction records.
type Tagger struct {
	store      Store
	classifier classify.Classifier
	logger     *slog.Logger
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithClassifier sets the classifier used by Classify.
func WithClassifier(c classify.Classifier) Option {
	return func(t *Tagger) {
		t.classifier = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tagger) {
		t.logger = logger
	}
}

// New returns a Tagger working on st.
func New(st Store, opts ...Option) *Tagger {
	t := &Tagger{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CategorizeOptions control a priority-gated categorization run.
type CategorizeOptions struct {
	// RuleName restricts the run to one rule. Empty applies all rules.
	RuleName string

	// Prio overrides the gate of every applied rule.
	Prio *int

	// PrioSet overrides the priority written to categorized records.
	PrioSet *int

	DryRun bool
}

// rules returns the stored rules accepted by keep, ordered by priority and
// then name. With a name, only that rule is returned, or ErrRuleNotFound.
func (t *Tagger) rules(ctx context.Context, name string, defaults metadata.Priorities, keep func(metadata.Rule) bool) ([]metadata.Rule, error) {
	docs, err := t.store.MetadataByType(ctx, ir.MetaRule)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	var rules []metadata.Rule
	for _, doc := range docs {
		r, err := metadata.DecodeRule(doc)
		if err != nil {
			if name != "" && doc.String(ir.FieldName) == name {
				return nil, err
			}
			t.logger.Warn("skipping invalid rule", "rule", doc.String(ir.FieldName), "error", err)
			continue
		}
		if !keep(r) {
			continue
		}
		if name != "" {
			if r.Name == name {
				return []metadata.Rule{r}, nil
			}
			continue
		}
		rules = append(rules, r)
	}
	if name != "" {
		return nil, fmt.Errorf("%w: %q", ErrRuleNotFound, name)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		pi, pj := gate(rules[i], defaults), gate(rules[j], defaults)
		if pi != pj {
			return pi < pj
		}
		return rules[i].Name < rules[j].Name
	})
	return rules, nil
}

// gate is the priority a rule runs at when the caller does not override it.
func gate(r metadata.Rule, defaults metadata.Priorities) int {
	if r.Prio != nil {
		return *r.Prio
	}
	return defaults.Rule
}

// priorities resolves the gate and the written priority of one run.
// Caller values win over rule values, which win over defaults.
func priorities(r metadata.Rule, prio, prioSet *int, defaults metadata.Priorities) (int, int) {
	p := gate(r, defaults)
	if prio != nil {
		p = *prio
	}
	set := p
	switch {
	case prioSet != nil:
		set = *prioSet
	case r.PrioSet != nil:
		set = *r.PrioSet
	}
	return p, set
}

// writable rejects writes addressed to an IBAN group. Groups fan out on
// reads only, so a write must name one account.
func (t *Tagger) writable(ctx context.Context, iban string) error {
	group, err := t.store.IsGroup(ctx, iban)
	if err != nil {
		return err
	}
	if group {
		return queryir.NewValidationError("iban",
			fmt.Sprintf("%q is an IBAN group; writes need an account, or use a dry run", iban))
	}
	return nil
}

func hasTags(r metadata.Rule) bool     { return r.HasTags() }
func hasCategory(r metadata.Rule) bool { return r.HasCategory() }
func anyRule(metadata.Rule) bool       { return true }

// applyTags unions tags into every record matching the conditions.
func (t *Tagger) applyTags(ctx context.Context, iban, name string, tags []string, filter queryir.Filter, dryRun bool, c *collector) error {
	c.rule(name)
	if !dryRun {
		if err := t.writable(ctx, iban); err != nil {
			return err
		}
	}
	matched, err := t.store.Select(ctx, iban, filter)
	if err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	c.matched(name, uuids(matched))
	if dryRun || len(matched) == 0 {
		t.logger.Debug("tag rule evaluated", "rule", name, "matched", len(matched), "dry_run", dryRun)
		return nil
	}

	res, err := t.store.Update(ctx, iban, ir.Document{ir.FieldTags: stringsToAny(tags)}, filter, true)
	c.updated(res.Updated)
	if err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	t.logger.Info("tags applied", "rule", name, "tags", tags, "updated", res.Updated)
	return nil
}

// applyCategory sets category on every record matching the conditions
// whose priority is below prio, and raises their priority to prioSet.
func (t *Tagger) applyCategory(ctx context.Context, iban, name, category string, filter queryir.Filter, prio, prioSet int, dryRun bool, c *collector) error {
	c.rule(name)
	if !dryRun {
		if err := t.writable(ctx, iban); err != nil {
			return err
		}
	}
	gated := queryir.Filter{
		Conditions: append(append([]queryir.Condition{}, filter.Conditions...),
			queryir.Where(ir.FieldPriority, queryir.Lt, prio)),
		Multi: filter.Multi,
	}

	matched, err := t.store.Select(ctx, iban, gated)
	if err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	c.matched(name, uuids(matched))
	if dryRun || len(matched) == 0 {
		t.logger.Debug("category rule evaluated", "rule", name, "matched", len(matched), "prio", prio, "dry_run", dryRun)
		return nil
	}

	res, err := t.store.Update(ctx, iban, ir.Document{
		ir.FieldCategory: category,
		ir.FieldPriority: prioSet,
	}, gated, false)
	c.updated(res.Updated)
	if err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	t.logger.Info("category applied", "rule", name, "category", category, "prio", prio, "prio_set", prioSet, "updated", res.Updated)
	return nil
}

func ruleFilter(r metadata.Rule) queryir.Filter {
	return queryir.Filter{Conditions: r.Conditions(), Multi: r.Multi}
}

// Tag applies the tags of one named rule, or of every rule with tags.
func (t *Tagger) Tag(ctx context.Context, iban, ruleName string, dryRun bool) (Result, error) {
	defaults, err := t.store.Priorities(ctx)
	if err != nil {
		return Result{}, err
	}
	rules, err := t.rules(ctx, ruleName, defaults, hasTags)
	if err != nil {
		return Result{}, err
	}

	c := newCollector()
	for _, r := range rules {
		if err := t.applyTags(ctx, iban, r.Name, r.Tags, ruleFilter(r), dryRun, c); err != nil {
			return c.result(), err
		}
	}
	return c.result(), nil
}

// Categorize applies the category of one named rule, or of every rule with
// a category, subject to the priority gate.
func (t *Tagger) Categorize(ctx context.Context, iban string, opts CategorizeOptions) (Result, error) {
	defaults, err := t.store.Priorities(ctx)
	if err != nil {
		return Result{}, err
	}
	rules, err := t.rules(ctx, opts.RuleName, defaults, hasCategory)
	if err != nil {
		return Result{}, err
	}

	c := newCollector()
	for _, r := range rules {
		prio, prioSet := priorities(r, opts.Prio, opts.PrioSet, defaults)
		if err := t.applyCategory(ctx, iban, r.Name, *r.Category, ruleFilter(r), prio, prioSet, opts.DryRun, c); err != nil {
			return c.result(), err
		}
	}
	return c.result(), nil
}

// TagAndCat applies a named tagging rule and a named categorization rule.
// When neither is named, every stored rule is applied in priority order,
// tags before category for each rule.
func (t *Tagger) TagAndCat(ctx context.Context, iban, tagRule, catRule string, dryRun bool) (Result, error) {
	defaults, err := t.store.Priorities(ctx)
	if err != nil {
		return Result{}, err
	}

	var tagging, categorizing []metadata.Rule
	if tagRule == "" && catRule == "" {
		all, err := t.rules(ctx, "", defaults, anyRule)
		if err != nil {
			return Result{}, err
		}
		c := newCollector()
		for _, r := range all {
			if err := t.applyRule(ctx, iban, r, defaults, dryRun, c); err != nil {
				return c.result(), err
			}
		}
		return c.result(), nil
	}

	if tagRule != "" {
		if tagging, err = t.rules(ctx, tagRule, defaults, hasTags); err != nil {
			return Result{}, err
		}
	}
	if catRule != "" {
		if categorizing, err = t.rules(ctx, catRule, defaults, hasCategory); err != nil {
			return Result{}, err
		}
	}

	c := newCollector()
	for _, r := range tagging {
		if err := t.applyTags(ctx, iban, r.Name, r.Tags, ruleFilter(r), dryRun, c); err != nil {
			return c.result(), err
		}
	}
	for _, r := range categorizing {
		prio, prioSet := priorities(r, nil, nil, defaults)
		if err := t.applyCategory(ctx, iban, r.Name, *r.Category, ruleFilter(r), prio, prioSet, dryRun, c); err != nil {
			return c.result(), err
		}
	}
	return c.result(), nil
}

func (t *Tagger) applyRule(ctx context.Context, iban string, r metadata.Rule, defaults metadata.Priorities, dryRun bool, c *collector) error {
	if r.HasTags() {
		if err := t.applyTags(ctx, iban, r.Name, r.Tags, ruleFilter(r), dryRun, c); err != nil {
			return err
		}
	}
	if r.HasCategory() {
		prio, prioSet := priorities(r, nil, nil, defaults)
		if err := t.applyCategory(ctx, iban, r.Name, *r.Category, ruleFilter(r), prio, prioSet, dryRun, c); err != nil {
			return err
		}
	}
	return nil
}

func uuids(docs []ir.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UUID())
	}
	return ids
}

func stringsToAny(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}
