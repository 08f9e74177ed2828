// Package metadata defines the metadata records that drive tagging: rules,
// parsers and config entries.
//
// Records are plain documents stored in the metadata collection:
//
//	{uuid, metatype: rule|parser|config, name, ...}
//
// Every record is validated against an embedded CUE schema (schema.cue)
// before it is accepted, whether it comes from the packaged defaults
// (Packaged), a user file (LoadFile) or a caller. A record without a uuid
// gets one derived from (metatype, name), so saving the same definition
// twice addresses the same record.
//
// # Rules
//
//	metatype: rule
//	name: Supermarkets
//	tags: [Supermarkt]
//	category: Lebensmittel
//	filter:
//	  - {key: text_tx, compare: regex, value: (EDEKA|Penny)}
//	parsed: {Gläubiger-ID: DE7000100000077777}
//	multi: AND
//	prio: 1
//	prio_set: 2
//
// filter must be a list. Each parsed entry adds a regex condition on the
// nested parsed field.
//
// # Parsers
//
//	metatype: parser
//	name: Mandatsreferenz
//	regex: Mandatsref\:\s?([A-z0-9]*)
//
// The first capture group becomes parsed[name].
//
// # Config
//
// The record named "priorities" holds the default rule and manual
// priorities. Records named "group:<name>" hold IBAN groups.
package metadata
