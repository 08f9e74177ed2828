package metadata

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txtag/internal/ir"
)

//go:embed packaged/*.yaml
var packagedFS embed.FS

// Packaged returns the built-in rule, parser and config definitions that
// every store is bootstrapped with, in file then document order. Each
// record carries its derived uuid.
func Packaged() ([]ir.Document, error) {
	entries, err := fs.ReadDir(packagedFS, "packaged")
	if err != nil {
		return nil, fmt.Errorf("read packaged metadata: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var docs []ir.Document
	for _, name := range names {
		data, err := packagedFS.ReadFile(path.Join("packaged", name))
		if err != nil {
			return nil, fmt.Errorf("read packaged metadata %s: %w", name, err)
		}
		batch, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("packaged metadata %s: %w", name, err)
		}
		docs = append(docs, batch...)
	}
	return docs, nil
}

// LoadFile reads metadata records from a YAML or JSON file holding either
// one record or a list of records.
func LoadFile(filename string) ([]ir.Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	docs, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load metadata %s: %w", filename, err)
	}
	return docs, nil
}

// Decode parses YAML (and therefore JSON) metadata, fills in missing
// uuids and validates every record against the schema.
func Decode(data []byte) ([]ir.Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case nil:
		return []ir.Document{}, nil
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, fmt.Errorf("parse metadata: expected a record or a list of records, got %T", raw)
	}

	docs := make([]ir.Document, 0, len(items))
	for i, item := range items {
		doc, err := NewRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// NewRecord normalizes a decoded value into a validated metadata document
// with its uuid set.
func NewRecord(v any) (ir.Document, error) {
	norm, err := ir.Normalize(v)
	if err != nil {
		return nil, err
	}
	m, ok := norm.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", norm)
	}
	doc := ir.Document(m)
	if err := Validate(doc); err != nil {
		return nil, err
	}
	ir.EnsureMetadataID(doc)
	return doc, nil
}
