package metadata

import (
	"fmt"
	"strings"

	"github.com/roach88/txtag/internal/ir"
)

// PrioritiesName is the name of the config record holding the default
// rule and manual priorities.
const PrioritiesName = "priorities"

// GroupPrefix prefixes the name of every IBAN group config record.
const GroupPrefix = "group:"

// Priorities are the priorities used when a caller does not supply one.
type Priorities struct {
	Rule   int `json:"rule"`
	Manual int `json:"manual"`
}

// DefaultPriorities returns the priorities used when no config record exists.
func DefaultPriorities() Priorities {
	return Priorities{Rule: 1, Manual: 99}
}

// DecodePriorities reads a priorities config record. Missing fields keep
// their defaults.
func DecodePriorities(doc ir.Document) (Priorities, error) {
	p := DefaultPriorities()
	if doc == nil {
		return p, nil
	}
	for field, dst := range map[string]*int{"rule": &p.Rule, "manual": &p.Manual} {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		n, err := priorityValue(v)
		if err != nil {
			return Priorities{}, fmt.Errorf("priorities.%s: %w", field, err)
		}
		*dst = n
	}
	return p, nil
}

// Group is a named set of accounts that can be selected together.
type Group struct {
	Name  string   `json:"name"`
	IBANs []string `json:"ibans"`
}

// GroupRecordName returns the metadata name of group name.
func GroupRecordName(name string) string {
	return GroupPrefix + name
}

// Document renders the group as a config record.
func (g Group) Document() ir.Document {
	ibans := make([]any, 0, len(g.IBANs))
	for _, iban := range g.IBANs {
		ibans = append(ibans, iban)
	}
	return ir.Document{
		ir.FieldUUID:     ir.GroupID(g.Name),
		ir.FieldMetatype: ir.MetaConfig,
		ir.FieldName:     GroupRecordName(g.Name),
		"groupname":      g.Name,
		"ibans":          ibans,
	}
}

// DecodeGroup reads an IBAN group config record.
func DecodeGroup(doc ir.Document) (Group, error) {
	name := doc.String("groupname")
	if name == "" {
		name = strings.TrimPrefix(doc.String(ir.FieldName), GroupPrefix)
	}
	if name == "" {
		return Group{}, fmt.Errorf("decode group: record has no group name")
	}
	return Group{Name: name, IBANs: doc.Strings("ibans")}, nil
}

// Union returns the IBANs of g followed by any of ibans not already
// present, without duplicates.
func (g Group) Union(ibans []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, iban := range append(append([]string{}, g.IBANs...), ibans...) {
		if iban == "" || seen[iban] {
			continue
		}
		seen[iban] = true
		out = append(out, iban)
	}
	return out
}
