// Package store is the CRUD surface for transaction and metadata records.
//
// A Store wraps one Backend, chosen once from configuration:
//   - boltstore: a bbolt file locked per call, filters evaluated in Go
//   - sqlitestore: a SQLite table of JSON documents, filters compiled to SQL
//
// Both backends see the same queryir.Predicate and must agree on every
// comparator. Everything above the backend lives here.
//
// # Write Path
//
//   - Insert fills the uuid and default fields, drops records whose uuid is
//     already stored (checked in chunks) or repeated in the batch, and skips
//     the backend write entirely when nothing is left.
//   - Update with merge set-unions sequence fields per record. It is not
//     atomic across the matched set: a failure midway leaves earlier records
//     updated.
//   - Conflicts are reported through counts, never errors.
//
// # Metadata
//
// Rules, parsers and config entries live in the "metadata" collection.
// Open bootstraps the packaged definitions insert-if-absent, so records a
// user has edited are never overwritten.
//
// # Groups
//
// An IBAN group is a config record naming several collections. Select and
// Stats on a group name fan out over its members.
package store
