package queryir

import "github.com/roach88/txtag/internal/ir"

// Query represents an abstract statement against one collection.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter over documents.
//
// This is a sealed interface - only types in this package implement it.
// A nil Predicate matches every document.
//
// Predicate types:
//   - Match: one atomic condition
//   - And: all predicates must be true (empty = true)
//   - Or: at least one predicate must be true (empty = false)
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads the documents of a collection that satisfy Filter.
//
// Semantics:
//
//	SELECT doc FROM <collection> WHERE <filter> ORDER BY insertion
type Select struct {
	Collection string
	Filter     Predicate // nil = every document
}

func (Select) queryNode() {}

// Update overwrites the top-level fields in Set on every matching document.
// Fields not named in Set are left untouched; a nil value stores null.
type Update struct {
	Collection string
	Filter     Predicate
	Set        ir.Document
}

func (Update) queryNode() {}

// Delete removes every matching document.
type Delete struct {
	Collection string
	Filter     Predicate
}

func (Delete) queryNode() {}

// Match is an atomic predicate wrapping one normalized Condition.
type Match struct {
	Condition Condition
}

func (Match) predicateNode() {}

// And is a conjunction of predicates.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction of predicates.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}
