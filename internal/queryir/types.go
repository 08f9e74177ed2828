package queryir

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txtag/internal/ir"
)

// Compare is a condition comparator.
type Compare string

// Supported comparators.
const (
	Eq    Compare = "=="
	Ne    Compare = "!="
	Lt    Compare = "<"
	Le    Compare = "<="
	Gt    Compare = ">"
	Ge    Compare = ">="
	Like  Compare = "like"
	Regex Compare = "regex"
	In    Compare = "in"
	NotIn Compare = "notin"
	All   Compare = "all"
)

// Comparators lists every supported comparator in a stable order.
var Comparators = []Compare{Eq, Ne, Lt, Le, Gt, Ge, Like, Regex, In, NotIn, All}

// Valid reports whether c is a supported comparator.
func (c Compare) Valid() bool {
	for _, known := range Comparators {
		if c == known {
			return true
		}
	}
	return false
}

// IsOrdering reports whether c is one of <, <=, >, >=.
func (c Compare) IsOrdering() bool {
	switch c {
	case Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// IsSet reports whether c is one of the sequence comparators in, notin, all.
func (c Compare) IsSet() bool {
	switch c {
	case In, NotIn, All:
		return true
	}
	return false
}

// Multi is the logical mode combining a list of conditions.
type Multi string

// Logical modes.
const (
	MultiAnd Multi = "AND"
	MultiOr  Multi = "OR"
)

// ParseMulti parses a logical mode case-insensitively. Empty means AND.
func ParseMulti(s string) (Multi, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return MultiAnd, nil
	case "OR":
		return MultiOr, nil
	default:
		return "", NewValidationError("multi", fmt.Sprintf("unknown logical mode %q", s))
	}
}

// Key addresses a document field. A Key with a Parent addresses a field
// inside the nested object stored under Parent (e.g. parsed.Mandatsreferenz).
//
// In JSON and YAML a Key is either a plain string or a single-entry
// object {parent: child}.
type Key struct {
	Parent string
	Field  string
}

// FieldKey returns a top-level Key.
func FieldKey(field string) Key {
	return Key{Field: field}
}

// NestedKey returns a Key addressing child inside parent.
func NestedKey(parent, child string) Key {
	return Key{Parent: parent, Field: child}
}

// IsNested reports whether the key addresses a field inside a nested object.
func (k Key) IsNested() bool {
	return k.Parent != ""
}

// IsPriority reports whether the key is the top-level priority field.
func (k Key) IsPriority() bool {
	return !k.IsNested() && k.Field == ir.FieldPriority
}

// Path returns the lookup path from the document root.
func (k Key) Path() []string {
	if k.IsNested() {
		return []string{k.Parent, k.Field}
	}
	return []string{k.Field}
}

// String renders the key in dotted form.
func (k Key) String() string {
	return strings.Join(k.Path(), ".")
}

// ParseKey parses a dotted key. Only the first dot separates parent and
// child, so parsed.Some.Key addresses "Some.Key" inside parsed.
func ParseKey(s string) Key {
	if parent, child, ok := strings.Cut(s, "."); ok && parent != "" && child != "" {
		return NestedKey(parent, child)
	}
	return FieldKey(s)
}

// MarshalJSON implements json.Marshaler.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsNested() {
		return json.Marshal(map[string]string{k.Parent: k.Field})
	}
	return json.Marshal(k.Field)
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Key) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := keyFromValue(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (k Key) MarshalYAML() (any, error) {
	if k.IsNested() {
		return map[string]string{k.Parent: k.Field}, nil
	}
	return k.Field, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Key) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := keyFromValue(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func keyFromValue(raw any) (Key, error) {
	switch v := raw.(type) {
	case string:
		return FieldKey(v), nil
	case map[string]any:
		if len(v) != 1 {
			return Key{}, NewValidationError("key", "nested key must have exactly one parent")
		}
		for parent, child := range v {
			s, ok := child.(string)
			if !ok {
				return Key{}, NewValidationError("key", fmt.Sprintf("nested key %q: child must be a string", parent))
			}
			return NestedKey(parent, s), nil
		}
	}
	return Key{}, NewValidationError("key", fmt.Sprintf("unsupported key type %T", raw))
}

// Condition is a single filter clause.
type Condition struct {
	Key     Key     `json:"key" yaml:"key"`
	Value   any     `json:"value" yaml:"value"`
	Compare Compare `json:"compare,omitempty" yaml:"compare,omitempty"`
}

// Where builds a condition on a top-level field. A dotted field is not
// split; use WhereNested or ParseKey for nested keys.
func Where(field string, cmp Compare, value any) Condition {
	return Condition{Key: FieldKey(field), Compare: cmp, Value: value}
}

// WhereNested builds a condition on a field inside a nested object.
func WhereNested(parent, child string, cmp Compare, value any) Condition {
	return Condition{Key: NestedKey(parent, child), Compare: cmp, Value: value}
}

// String renders the condition for logs and error messages.
func (c Condition) String() string {
	cmp := c.Compare
	if cmp == "" {
		cmp = Eq
	}
	return fmt.Sprintf("%s %s %v", c.Key, cmp, c.Value)
}

// Filter is a request-level composite: an ordered list of conditions plus
// the logical mode combining them. The zero Filter matches every record.
type Filter struct {
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Multi      Multi       `json:"multi,omitempty" yaml:"multi,omitempty"`
}

// AllOf returns a Filter requiring every condition.
func AllOf(conds ...Condition) Filter {
	return Filter{Conditions: conds, Multi: MultiAnd}
}

// AnyOf returns a Filter requiring at least one condition.
// Priority conditions are still ANDed; see Compose.
func AnyOf(conds ...Condition) Filter {
	return Filter{Conditions: conds, Multi: MultiOr}
}

// UUIDIn returns an OR-composed list of uuid-equality conditions.
func UUIDIn(uuids ...string) Filter {
	conds := make([]Condition, 0, len(uuids))
	for _, id := range uuids {
		conds = append(conds, Where(ir.FieldUUID, Eq, id))
	}
	return AnyOf(conds...)
}

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// Predicate composes the filter into a predicate tree.
// An empty filter yields a nil predicate, which matches everything.
func (f Filter) Predicate() (Predicate, error) {
	return Compose(f.Conditions, f.Multi)
}
