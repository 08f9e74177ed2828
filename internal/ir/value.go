package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize converts v into the JSON data model by round-tripping it through
// encoding/json. Typed slices, typed maps, structs and integer types all
// come back as []any, map[string]any and float64.
//
// NaN and infinities cannot be represented and are rejected.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := marshalCompact(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// NormalizeDocument is Normalize for documents.
func NormalizeDocument(d Document) (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	raw, err := d.MarshalCompact()
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return DecodeDocument(raw)
}

// MustNormalize is like Normalize but panics on error.
// Use only in tests or with literal inputs.
func MustNormalize(v any) any {
	out, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return out
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToFloat returns v as float64 if v has a numeric Go type.
// Strings are not parsed; see ParseNumber.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseNumber is ToFloat extended to strings holding a finite decimal number.
func ParseNumber(v any) (float64, bool) {
	if f, ok := ToFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders f in the shortest form that round-trips.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsScalar reports whether v is nil, a bool, a number or a string.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string:
		return true
	default:
		_, ok := ToFloat(v)
		return ok
	}
}

// Equal reports structural equality of two normalized values.
// Numbers compare by value regardless of Go type; sequences compare
// element-wise in order; objects compare by key set and values.
func Equal(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}
	switch va := a.(type) {
	case nil:
		return b == nil
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !Equal(va[i], vb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		vb, ok := asMap(b)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, ea := range va {
			eb, present := vb[k]
			if !present || !Equal(ea, eb) {
				return false
			}
		}
		return true
	case Document:
		return Equal(map[string]any(va), b)
	default:
		return false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}
