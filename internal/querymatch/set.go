package querymatch

import (
	"encoding/json"

	"github.com/roach88/txtag/internal/ir"
)

// valueSet is the order-independent, hashable form of a sequence operand.
type valueSet map[string]struct{}

func newValueSet(values []any) valueSet {
	set := make(valueSet, len(values))
	for _, v := range values {
		set[hashKey(v)] = struct{}{}
	}
	return set
}

// hashKey maps a value onto a comparable key. Keys are prefixed by kind so
// the string "1" and the number 1 stay distinct.
func hashKey(v any) string {
	if f, ok := ir.ToFloat(v); ok {
		return "n:" + ir.FormatNumber(f)
	}
	switch val := v.(type) {
	case nil:
		return "z:"
	case bool:
		if val {
			return "b:true"
		}
		return "b:false"
	case string:
		return "s:" + val
	default:
		raw, _ := json.Marshal(val)
		return "j:" + string(raw)
	}
}

func (s valueSet) containsAny(elems []any) bool {
	for _, e := range elems {
		if e == nil {
			continue
		}
		if _, ok := s[hashKey(e)]; ok {
			return true
		}
	}
	return false
}

func (s valueSet) containedIn(elems []any) bool {
	if len(s) == 0 {
		return true
	}
	seen := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		seen[hashKey(e)] = struct{}{}
	}
	for k := range s {
		if _, ok := seen[k]; !ok {
			return false
		}
	}
	return true
}
