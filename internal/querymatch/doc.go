// Package querymatch compiles queryir predicates into Go matcher functions.
//
// It is the query compiler for storage backends without native query
// operators (the bbolt file store): the backend decodes each document and
// asks the compiled Func whether it matches.
//
// Sequence operands of in, notin and all are converted once, at compile
// time, into an order-independent hashable set, so matching a document is
// a map lookup per stored element.
package querymatch
