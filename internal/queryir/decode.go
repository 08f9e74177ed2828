package queryir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseConditions decodes conditions from a generic JSON/YAML value, as
// found in stored rule documents or request bodies.
//
// raw may be nil (no conditions), a single condition object, or a list of
// condition objects. When list is true, a single object is rejected with a
// ValidationError: callers use this where the schema declares a list.
func ParseConditions(raw any, list bool) ([]Condition, error) {
	switch v := raw.(type) {
	case nil:
		return []Condition{}, nil
	case []any:
		conds := make([]Condition, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, NewValidationError("filter", fmt.Sprintf("condition %d: expected an object, got %T", i, item))
			}
			c, err := conditionFromMap(m)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i, err)
			}
			conds = append(conds, c)
		}
		return conds, nil
	case map[string]any:
		if list {
			return nil, NewValidationError("filter", "expected a list of conditions, got a single object")
		}
		c, err := conditionFromMap(v)
		if err != nil {
			return nil, err
		}
		return []Condition{c}, nil
	default:
		return nil, NewValidationError("filter", fmt.Sprintf("unsupported condition type %T", raw))
	}
}

func conditionFromMap(m map[string]any) (Condition, error) {
	rawKey, ok := m["key"]
	if !ok {
		return Condition{}, NewValidationError("key", "condition has no key")
	}
	key, err := keyFromValue(rawKey)
	if err != nil {
		return Condition{}, err
	}
	c := Condition{Key: key, Value: m["value"]}
	if rawCmp, ok := m["compare"]; ok && rawCmp != nil {
		s, ok := rawCmp.(string)
		if !ok {
			return Condition{}, NewValidationError("compare", fmt.Sprintf("expected a string, got %T", rawCmp))
		}
		c.Compare = Compare(s)
	}
	return c, nil
}

// ParseExpr parses a one-line condition of the form "key compare value",
// e.g. "amount < -100" or "parsed.Mandatsreferenz == M1111111".
//
// The value is decoded as JSON when possible (numbers, lists, null, true)
// and taken verbatim otherwise, so "text_tx like EDEKA München" needs no
// quoting.
func ParseExpr(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	key, rest, ok := strings.Cut(expr, " ")
	if !ok || key == "" {
		return Condition{}, NewValidationError("expr", fmt.Sprintf("expected \"key compare value\", got %q", expr))
	}
	rest = strings.TrimSpace(rest)
	cmp, value, _ := strings.Cut(rest, " ")
	if cmp == "" {
		return Condition{}, NewValidationError("expr", fmt.Sprintf("missing comparator in %q", expr))
	}
	c := Condition{Key: ParseKey(key), Compare: Compare(cmp), Value: parseLiteral(strings.TrimSpace(value))}
	return c.Normalize()
}

func parseLiteral(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
