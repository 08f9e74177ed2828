package metadata

import (
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/pattern"
)

// Parser extracts one value from a booking text and stores it under
// parsed[Name].
type Parser struct {
	UUID  string
	Name  string
	Regex string
}

// DecodeParser converts a stored parser record into a Parser.
func DecodeParser(doc ir.Document) (Parser, error) {
	if mt := doc.String(ir.FieldMetatype); mt != ir.MetaParser {
		return Parser{}, fmt.Errorf("decode parser: metatype is %q, not %q", mt, ir.MetaParser)
	}
	p := Parser{UUID: doc.UUID(), Name: doc.String(ir.FieldName), Regex: doc.String("regex")}
	if _, err := pattern.Compile(p.Regex); err != nil {
		return Parser{}, fmt.Errorf("parser %q: %w", p.Name, err)
	}
	return p, nil
}

// Extract returns the first capture group of the parser's pattern in text,
// or the whole match when the pattern has no groups.
func (p Parser) Extract(text string) (string, bool) {
	re, err := pattern.Compile(p.Regex)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}
