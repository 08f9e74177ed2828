package ir

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is a schemaless record as held by a store collection.
//
// After Normalize, values are restricted to the JSON data model:
// nil, bool, float64, string, []any and map[string]any. Both storage
// backends persist documents as JSON, so a document read back from either
// backend has exactly these dynamic types.
type Document map[string]any

// Well-known field names shared by transaction and metadata records.
const (
	FieldUUID     = "uuid"
	FieldDateTx   = "date_tx"
	FieldValuta   = "valuta"
	FieldTextTx   = "text_tx"
	FieldAmount   = "amount"
	FieldIBAN     = "iban"
	FieldCurrency = "currency"
	FieldArt      = "art"
	FieldParsed   = "parsed"
	FieldCategory = "category"
	FieldTags     = "tags"
	FieldPriority = "priority"

	FieldMetatype = "metatype"
	FieldName     = "name"
)

// UUID returns the record identifier, or "" when absent.
func (d Document) UUID() string {
	s, _ := d[FieldUUID].(string)
	return s
}

// String returns the string stored under key, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Number returns the numeric value stored under key.
func (d Document) Number(key string) (float64, bool) {
	return ToFloat(d[key])
}

// Strings returns the string elements of the sequence stored under key.
// Non-string elements are skipped.
func (d Document) Strings(key string) []string {
	out := []string{}
	seq, _ := d[key].([]any)
	for _, v := range seq {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if ss, ok := d[key].([]string); ok {
		out = append(out, ss...)
	}
	return out
}

// Map returns the nested object stored under key.
func (d Document) Map(key string) map[string]any {
	m, _ := d[key].(map[string]any)
	return m
}

// Keys returns the document's field names in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = cloneValue(e)
		}
		return m
	case Document:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// MarshalCompact encodes the document as JSON with sorted keys and no HTML
// escaping. Both backends store this encoding.
func (d Document) MarshalCompact() ([]byte, error) {
	return marshalCompact(map[string]any(d))
}

// DecodeDocument parses a JSON object into a Document.
func DecodeDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("decode document: not a JSON object")
	}
	return d, nil
}
