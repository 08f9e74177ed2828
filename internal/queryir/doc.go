// Package queryir provides the backend-agnostic condition model for txtag.
//
// Callers describe what they want with Conditions (a key, a comparator and a
// value) combined into a Filter with a logical mode. Compose turns a Filter
// into a Predicate tree, which each storage backend compiles into its own
// native query representation.
//
// ARCHITECTURE:
//
//	[Filter / Conditions] → Compose → [Predicate tree] → querysql   (SQLite JSON1)
//	                                                   → querymatch (Go matcher over bbolt documents)
//
// Both compilers implement the same comparator semantics, so Store callers
// never need to know which backend they run against.
//
// COMPARATORS:
//
//	==, !=            structural equality; a missing field equals null
//	<, <=, >, >=      ordering; string values that parse as numbers compare numerically
//	like              case-insensitive substring
//	regex             unanchored pattern search (RE2 syntax)
//	in, notin, all    set membership over a sequence field; a scalar field
//	                  counts as a one-element sequence, a missing or null
//	                  field as an empty one
//
// PRIORITY GATE:
//
// A condition on the top-level priority field is never combined with the
// requested logical mode. Compose extracts it and ANDs it onto the combined
// rest of the list, so [priority < 1, text like A, text like B] with OR means
//
//	priority < 1 AND (text like A OR text like B)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, which keeps the type switches
// in both compilers exhaustive.
//
// Example:
//
//	switch p := pred.(type) {
//	case Match:
//	    // atomic condition
//	case And, Or:
//	    // composition
//	}
package queryir
