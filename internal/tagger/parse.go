package tagger

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
)

// Parse runs every stored parser over the booking text of docs and returns
// copies with the extracted values added to parsed. Values already in
// parsed are overwritten by a matching parser and kept otherwise.
func (t *Tagger) Parse(ctx context.Context, docs []ir.Document) ([]ir.Document, error) {
	records, err := t.store.MetadataByType(ctx, ir.MetaParser)
	if err != nil {
		return nil, fmt.Errorf("load parsers: %w", err)
	}
	parsers := make([]metadata.Parser, 0, len(records))
	for _, rec := range records {
		p, err := metadata.DecodeParser(rec)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
	}

	out := make([]ir.Document, 0, len(docs))
	hits := 0
	for _, d := range docs {
		doc := d.Clone()
		parsed := doc.Map(ir.FieldParsed)
		if parsed == nil {
			parsed = map[string]any{}
			// Typed fixtures may carry map[string]string.
			if m, ok := doc[ir.FieldParsed].(map[string]string); ok {
				for k, v := range m {
					parsed[k] = v
				}
			}
		}
		text := doc.String(ir.FieldTextTx)
		for _, p := range parsers {
			if v, ok := p.Extract(text); ok {
				parsed[p.Name] = v
				hits++
			}
		}
		doc[ir.FieldParsed] = parsed
		out = append(out, doc)
	}
	t.logger.Debug("parsed records", "records", len(docs), "parsers", len(parsers), "values", hits)
	return out, nil
}
