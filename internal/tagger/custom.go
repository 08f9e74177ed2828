package tagger

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
)

// CustomRuleName labels ad-hoc rules in a Result.
const CustomRuleName = "custom"

// CustomRule is a rule built by the caller and applied without being
// stored.
type CustomRule struct {
	Category *string
	Tags     []string

	Filters    []queryir.Condition
	ParsedKeys []string
	ParsedVals []string
	Multi      queryir.Multi

	Prio    *int
	PrioSet *int
	DryRun  bool
}

// conditions returns the filters followed by one regex condition on
// parsed per key/value pair.
func (r CustomRule) conditions() ([]queryir.Condition, error) {
	if len(r.ParsedKeys) != len(r.ParsedVals) {
		return nil, queryir.NewValidationError("parsed",
			fmt.Sprintf("got %d parsed keys but %d values", len(r.ParsedKeys), len(r.ParsedVals)))
	}
	conds := append([]queryir.Condition{}, r.Filters...)
	for i, key := range r.ParsedKeys {
		conds = append(conds, queryir.WhereNested(ir.FieldParsed, key, queryir.Regex, r.ParsedVals[i]))
	}
	if len(conds) == 0 {
		return nil, queryir.NewValidationError("filter", "custom rule needs at least one condition")
	}
	return conds, nil
}

// TagOrCatCustom applies an ad-hoc rule: its tags are merged into every
// match and its category is written subject to the priority gate.
func (t *Tagger) TagOrCatCustom(ctx context.Context, iban string, rule CustomRule) (Result, error) {
	hasCategory := rule.Category != nil && *rule.Category != ""
	if len(rule.Tags) == 0 && !hasCategory {
		return Result{}, queryir.NewValidationError("rule", "custom rule needs tags or a category")
	}
	conds, err := rule.conditions()
	if err != nil {
		return Result{}, err
	}
	multi, err := queryir.ParseMulti(string(rule.Multi))
	if err != nil {
		return Result{}, err
	}
	filter := queryir.Filter{Conditions: conds, Multi: multi}

	c := newCollector()
	if len(rule.Tags) > 0 {
		if err := t.applyTags(ctx, iban, CustomRuleName, rule.Tags, filter, rule.DryRun, c); err != nil {
			return c.result(), err
		}
	}
	if hasCategory {
		defaults, err := t.store.Priorities(ctx)
		if err != nil {
			return c.result(), err
		}
		prio, prioSet := priorities(metadata.Rule{}, rule.Prio, rule.PrioSet, defaults)
		if err := t.applyCategory(ctx, iban, CustomRuleName, *rule.Category, filter, prio, prioSet, rule.DryRun, c); err != nil {
			return c.result(), err
		}
	}
	return c.result(), nil
}
