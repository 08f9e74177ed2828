package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/pattern"
)

// Normalize validates c and returns it in the canonical form both backend
// compilers expect:
//
//   - an empty comparator becomes ==
//   - the value is mapped onto the JSON data model (see ir.Normalize)
//   - ordering comparators coerce numeric strings to float64; == and !=
//     keep the string, and the compilers match it against numbers too
//   - in/notin/all operands become a []any of scalars
//
// Normalize is idempotent.
func (c Condition) Normalize() (Condition, error) {
	if c.Compare == "" {
		c.Compare = Eq
	}
	if !c.Compare.Valid() {
		return Condition{}, NewValidationError("compare", fmt.Sprintf("unknown comparator %q", c.Compare))
	}
	if err := validateKey(c.Key); err != nil {
		return Condition{}, err
	}

	value, err := ir.Normalize(c.Value)
	if err != nil {
		return Condition{}, NewValidationError("value", fmt.Sprintf("%s: %v", c.Key, err))
	}

	switch {
	case c.Compare.IsOrdering():
		if f, ok := ir.ParseNumber(value); ok {
			value = f
		} else if _, ok := value.(string); !ok {
			return Condition{}, NewValidationError("value",
				fmt.Sprintf("%s %s: ordering needs a number or string, got %T", c.Key, c.Compare, value))
		}

	case c.Compare == Like:
		if _, ok := value.(string); !ok {
			return Condition{}, NewValidationError("value",
				fmt.Sprintf("%s like: substring must be a string, got %T", c.Key, value))
		}

	case c.Compare == Regex:
		expr, ok := value.(string)
		if !ok {
			return Condition{}, NewValidationError("value",
				fmt.Sprintf("%s regex: pattern must be a string, got %T", c.Key, value))
		}
		if _, err := pattern.Compile(expr); err != nil {
			return Condition{}, NewValidationError("value", fmt.Sprintf("%s regex: %v", c.Key, err))
		}

	case c.Compare.IsSet():
		seq, err := setOperand(value)
		if err != nil {
			return Condition{}, NewValidationError("value", fmt.Sprintf("%s %s: %v", c.Key, c.Compare, err))
		}
		value = seq
	}

	c.Value = value
	return c, nil
}

func validateKey(k Key) error {
	if strings.TrimSpace(k.Field) == "" {
		return NewValidationError("key", "field name is required")
	}
	if strings.ContainsRune(k.Field, '"') || strings.ContainsRune(k.Parent, '"') {
		return NewValidationError("key", fmt.Sprintf("%s: field names must not contain double quotes", k))
	}
	return nil
}

// setOperand turns the supplied value of in/notin/all into a list of
// non-null scalars. A scalar becomes a one-element list.
func setOperand(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		for i, e := range v {
			if e == nil {
				return nil, fmt.Errorf("element %d: null is not a member value", i)
			}
			if !ir.IsScalar(e) {
				return nil, fmt.Errorf("element %d: expected a scalar, got %T", i, e)
			}
		}
		return v, nil
	case map[string]any:
		return nil, fmt.Errorf("expected a scalar or a list, got an object")
	case nil:
		return nil, fmt.Errorf("null is not a member value")
	default:
		return []any{v}, nil
	}
}
