package querymatch

import (
	"fmt"
	"strings"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/pattern"
	"github.com/roach88/txtag/internal/queryir"
)

// Func reports whether a document matches.
type Func func(doc ir.Document) bool

// MatchAll matches every document.
func MatchAll(ir.Document) bool { return true }

// Compile converts a predicate into a matcher.
// A nil predicate compiles to MatchAll.
func Compile(p queryir.Predicate) (Func, error) {
	if p == nil {
		return MatchAll, nil
	}

	switch pred := p.(type) {
	case queryir.Match:
		return compileMatch(pred.Condition)
	case *queryir.Match:
		return compileMatch(pred.Condition)
	case queryir.And:
		return compileAnd(pred.Predicates)
	case *queryir.And:
		return compileAnd(pred.Predicates)
	case queryir.Or:
		return compileOr(pred.Predicates)
	case *queryir.Or:
		return compileOr(pred.Predicates)
	default:
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileAll(preds []queryir.Predicate) ([]Func, error) {
	funcs := make([]Func, 0, len(preds))
	for i, p := range preds {
		f, err := Compile(p)
		if err != nil {
			return nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		funcs = append(funcs, f)
	}
	return funcs, nil
}

func compileAnd(preds []queryir.Predicate) (Func, error) {
	funcs, err := compileAll(preds)
	if err != nil {
		return nil, err
	}
	return func(doc ir.Document) bool {
		for _, f := range funcs {
			if !f(doc) {
				return false
			}
		}
		return true
	}, nil
}

func compileOr(preds []queryir.Predicate) (Func, error) {
	funcs, err := compileAll(preds)
	if err != nil {
		return nil, err
	}
	return func(doc ir.Document) bool {
		for _, f := range funcs {
			if f(doc) {
				return true
			}
		}
		return false
	}, nil
}

func compileMatch(c queryir.Condition) (Func, error) {
	c, err := c.Normalize()
	if err != nil {
		return nil, err
	}
	path := c.Key.Path()

	switch c.Compare {
	case queryir.Eq:
		want := c.Value
		return func(doc ir.Document) bool {
			return equals(lookup(doc, path), want)
		}, nil

	case queryir.Ne:
		want := c.Value
		return func(doc ir.Document) bool {
			return !equals(lookup(doc, path), want)
		}, nil

	case queryir.Lt, queryir.Le, queryir.Gt, queryir.Ge:
		return compileOrdering(path, c.Compare, c.Value), nil

	case queryir.Like:
		needle := pattern.Fold(c.Value.(string))
		return func(doc ir.Document) bool {
			s, ok := lookup(doc, path).(string)
			return ok && strings.Contains(pattern.Fold(s), needle)
		}, nil

	case queryir.Regex:
		re, err := pattern.Compile(c.Value.(string))
		if err != nil {
			return nil, err
		}
		return func(doc ir.Document) bool {
			s, ok := lookup(doc, path).(string)
			return ok && re.MatchString(s)
		}, nil

	case queryir.In:
		set := newValueSet(c.Value.([]any))
		return func(doc ir.Document) bool {
			return set.containsAny(sequence(lookup(doc, path)))
		}, nil

	case queryir.NotIn:
		set := newValueSet(c.Value.([]any))
		return func(doc ir.Document) bool {
			return !set.containsAny(sequence(lookup(doc, path)))
		}, nil

	case queryir.All:
		set := newValueSet(c.Value.([]any))
		return func(doc ir.Document) bool {
			return set.containedIn(sequence(lookup(doc, path)))
		}, nil

	default:
		return nil, queryir.NewValidationError("compare", fmt.Sprintf("unknown comparator %q", c.Compare))
	}
}

// lookup follows path from the document root. A missing field yields nil.
func lookup(doc ir.Document, path []string) any {
	var cur any = map[string]any(doc)
	for _, name := range path {
		m, ok := asObject(cur)
		if !ok {
			return nil
		}
		cur = m[name]
	}
	return cur
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case ir.Document:
		return m, true
	}
	return nil, false
}

// equals treats a missing field as null. A numeric string also equals the
// number it parses to.
func equals(stored, want any) bool {
	if want == nil {
		return stored == nil
	}
	if s, ok := want.(string); ok {
		if f, ok := ir.ParseNumber(s); ok {
			if n, ok := ir.ToFloat(stored); ok {
				return n == f
			}
		}
	}
	return ir.Equal(stored, want)
}

func compileOrdering(path []string, cmp queryir.Compare, value any) Func {
	test := func(c int) bool {
		switch cmp {
		case queryir.Lt:
			return c < 0
		case queryir.Le:
			return c <= 0
		case queryir.Gt:
			return c > 0
		default:
			return c >= 0
		}
	}

	if want, ok := value.(float64); ok {
		return func(doc ir.Document) bool {
			got, ok := ir.ToFloat(lookup(doc, path))
			if !ok {
				return false
			}
			switch {
			case got < want:
				return test(-1)
			case got > want:
				return test(1)
			default:
				return test(0)
			}
		}
	}

	want := value.(string)
	return func(doc ir.Document) bool {
		got, ok := lookup(doc, path).(string)
		return ok && test(strings.Compare(got, want))
	}
}

// sequence views a stored value as a list of elements. Scalars are
// one-element sequences; null, missing fields and objects are empty.
func sequence(v any) []any {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case map[string]any, ir.Document:
		return nil
	default:
		return []any{s}
	}
}
