package metadata

import (
	"fmt"
	"math"
	"sort"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// Rule is a decoded tagging/categorization rule.
type Rule struct {
	UUID     string
	Name     string
	Tags     []string
	Category *string
	Filter   []queryir.Condition
	Parsed   map[string]string // parsed key -> regex
	Multi    queryir.Multi
	Prio     *int // gate: only records with priority < Prio are categorized
	PrioSet  *int // priority written on categorization; defaults to Prio
}

// HasTags reports whether applying the rule adds tags.
func (r Rule) HasTags() bool {
	return len(r.Tags) > 0
}

// HasCategory reports whether applying the rule sets a category.
func (r Rule) HasCategory() bool {
	return r.Category != nil && *r.Category != ""
}

// Conditions returns the rule's filter followed by one regex condition per
// parsed entry, in key order.
func (r Rule) Conditions() []queryir.Condition {
	conds := make([]queryir.Condition, 0, len(r.Filter)+len(r.Parsed))
	conds = append(conds, r.Filter...)
	keys := make([]string, 0, len(r.Parsed))
	for k := range r.Parsed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conds = append(conds, queryir.WhereNested(ir.FieldParsed, k, queryir.Regex, r.Parsed[k]))
	}
	return conds
}

// DecodeRule converts a stored rule record into a Rule.
//
// A filter that is a single condition object rather than a list is
// rejected with a ValidationError, as is a rule with no conditions at all.
func DecodeRule(doc ir.Document) (Rule, error) {
	if mt := doc.String(ir.FieldMetatype); mt != ir.MetaRule {
		return Rule{}, fmt.Errorf("decode rule: metatype is %q, not %q", mt, ir.MetaRule)
	}
	r := Rule{
		UUID: doc.UUID(),
		Name: doc.String(ir.FieldName),
		Tags: doc.Strings(ir.FieldTags),
	}

	if c, ok := doc[ir.FieldCategory].(string); ok && c != "" {
		r.Category = &c
	}

	filter, err := queryir.ParseConditions(doc["filter"], true)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	r.Filter = filter

	if parsed := doc.Map(ir.FieldParsed); len(parsed) > 0 {
		r.Parsed = make(map[string]string, len(parsed))
		for k, v := range parsed {
			s, ok := v.(string)
			if !ok {
				return Rule{}, queryir.NewValidationError("parsed", fmt.Sprintf("rule %q: parsed.%s must be a string", r.Name, k))
			}
			r.Parsed[k] = s
		}
	}

	if r.Multi, err = queryir.ParseMulti(doc.String("multi")); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	if r.Prio, err = optionalPriority(doc, "prio"); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	if r.PrioSet, err = optionalPriority(doc, "prio_set"); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", r.Name, err)
	}

	if len(r.Filter) == 0 && len(r.Parsed) == 0 {
		return Rule{}, queryir.NewValidationError("filter", fmt.Sprintf("rule %q has no conditions", r.Name))
	}
	return r, nil
}

func optionalPriority(doc ir.Document, field string) (*int, error) {
	v, ok := doc[field]
	if !ok || v == nil {
		return nil, nil
	}
	p, err := priorityValue(v)
	if err != nil {
		return nil, queryir.NewValidationError(field, err.Error())
	}
	return &p, nil
}

func priorityValue(v any) (int, error) {
	f, ok := ir.ToFloat(v)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("priority must be a non-negative integer, got %v", v)
	}
	return int(f), nil
}
