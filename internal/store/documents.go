package store

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// Select returns the records of collection matching filter, in insertion
// order. An empty filter returns every record. When collection names an
// IBAN group, the records of each member collection are returned in the
// group's IBAN order.
func (s *Store) Select(ctx context.Context, collection string, filter queryir.Filter) ([]ir.Document, error) {
	p, err := filter.Predicate()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	collections, err := s.resolve(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}

	docs := []ir.Document{}
	for _, c := range collections {
		found, err := s.backend.Find(ctx, c, p)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", collection, err)
		}
		docs = append(docs, found...)
	}
	return docs, nil
}

// resolve expands a group name into its member collections.
// Any other name, including the metadata collection, resolves to itself.
func (s *Store) resolve(ctx context.Context, collection string) ([]string, error) {
	if collection == MetadataCollection {
		return []string{collection}, nil
	}
	doc, err := s.groupRecord(ctx, collection)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return []string{collection}, nil
	}
	return doc.Strings("ibans"), nil
}

// Insert writes records to collection and reports how many landed.
//
// Missing uuids and default fields are filled first. Records whose uuid is
// already stored, or that repeat an earlier record of the same batch, are
// dropped silently. When nothing is left, the backend is not written.
func (s *Store) Insert(ctx context.Context, collection string, docs ...ir.Document) (Inserted, error) {
	if collection == "" {
		return Inserted{}, queryir.NewValidationError("collection", "collection is required")
	}

	seen := make(map[string]bool, len(docs))
	batch := make([]ir.Document, 0, len(docs))
	for i, d := range docs {
		doc, err := s.prepare(collection, d)
		if err != nil {
			return Inserted{}, fmt.Errorf("insert %s: record %d: %w", collection, i, err)
		}
		if seen[doc.UUID()] {
			continue
		}
		seen[doc.UUID()] = true
		batch = append(batch, doc)
	}

	stored, err := s.existing(ctx, collection, batch)
	if err != nil {
		return Inserted{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	fresh := batch[:0]
	for _, doc := range batch {
		if !stored[doc.UUID()] {
			fresh = append(fresh, doc)
		}
	}
	if len(fresh) == 0 {
		s.logger.Debug("insert skipped", "collection", collection, "candidates", len(docs))
		return Inserted{}, nil
	}

	n, err := s.backend.InsertMany(ctx, collection, fresh)
	if err != nil {
		return Inserted{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	s.logger.Info("records inserted", "collection", collection, "candidates", len(docs), "inserted", n)
	return Inserted{Inserted: n}, nil
}

// prepare normalizes a copy of d and fills its uuid and, for transaction
// records, the fields every stored transaction carries.
func (s *Store) prepare(collection string, d ir.Document) (ir.Document, error) {
	doc, err := ir.NormalizeDocument(d)
	if err != nil {
		return nil, err
	}

	if collection == MetadataCollection {
		if ir.EnsureMetadataID(doc) == "" {
			return nil, fmt.Errorf("metadata record needs a uuid or a metatype and name")
		}
		return doc, nil
	}

	if doc.UUID() == "" {
		id, err := ir.TransactionID(doc)
		if err != nil {
			return nil, err
		}
		doc[ir.FieldUUID] = id
	}
	if _, ok := doc[ir.FieldPriority]; !ok {
		doc[ir.FieldPriority] = 0.0
	}
	if doc[ir.FieldTags] == nil {
		doc[ir.FieldTags] = []any{}
	}
	if _, ok := doc[ir.FieldCategory]; !ok {
		doc[ir.FieldCategory] = nil
	}
	if doc[ir.FieldParsed] == nil {
		doc[ir.FieldParsed] = map[string]any{}
	}
	return doc, nil
}

// existing returns the uuids of docs already stored in collection.
// The lookup is split into chunks so no single query grows unbounded.
func (s *Store) existing(ctx context.Context, collection string, docs []ir.Document) (map[string]bool, error) {
	stored := map[string]bool{}
	for start := 0; start < len(docs); start += existenceChunk {
		end := min(start+existenceChunk, len(docs))
		ids := make([]string, 0, end-start)
		for _, doc := range docs[start:end] {
			ids = append(ids, doc.UUID())
		}
		p, err := queryir.UUIDIn(ids...).Predicate()
		if err != nil {
			return nil, err
		}
		found, err := s.backend.Find(ctx, collection, p)
		if err != nil {
			return nil, err
		}
		for _, doc := range found {
			stored[doc.UUID()] = true
		}
	}
	return stored, nil
}

// Update writes data to the records of collection matching filter.
//
// Without merge, one bulk update overwrites the fields of data on every
// match; an empty filter matches every record. With merge, the filter must
// not be empty. Every match is then updated on its own, addressed by its
// uuid, and any field whose stored value is a sequence receives the set
// union of stored and new values instead of being overwritten.
//
// CRITICAL: a merge update is not atomic. If one record fails, the error
// is returned together with the count of records already updated.
func (s *Store) Update(ctx context.Context, collection string, data ir.Document, filter queryir.Filter, merge bool) (Updated, error) {
	if _, ok := data[ir.FieldUUID]; ok {
		return Updated{}, queryir.NewValidationError(ir.FieldUUID, "uuid cannot be updated")
	}
	set, err := ir.NormalizeDocument(data)
	if err != nil {
		return Updated{}, fmt.Errorf("update %s: %w", collection, err)
	}
	if len(set) == 0 {
		return Updated{}, queryir.NewValidationError("data", "nothing to update")
	}

	if !merge {
		p, err := filter.Predicate()
		if err != nil {
			return Updated{}, fmt.Errorf("update %s: %w", collection, err)
		}
		n, err := s.backend.UpdateMany(ctx, collection, p, set)
		if err != nil {
			return Updated{}, fmt.Errorf("update %s: %w", collection, err)
		}
		return Updated{Updated: n}, nil
	}

	if filter.IsEmpty() {
		return Updated{}, queryir.NewValidationError("filter", "a merge update requires a filter")
	}
	p, err := filter.Predicate()
	if err != nil {
		return Updated{}, fmt.Errorf("update %s: %w", collection, err)
	}
	matched, err := s.backend.Find(ctx, collection, p)
	if err != nil {
		return Updated{}, fmt.Errorf("update %s: %w", collection, err)
	}

	res := Updated{}
	for _, doc := range matched {
		one, err := queryir.Single(queryir.Where(ir.FieldUUID, queryir.Eq, doc.UUID()))
		if err != nil {
			return res, err
		}
		n, err := s.backend.UpdateMany(ctx, collection, one, mergeFields(doc, set))
		if err != nil {
			return res, fmt.Errorf("update %s: record %s: %w", collection, doc.UUID(), err)
		}
		res.Updated += n
	}
	s.logger.Debug("merge update", "collection", collection, "matched", len(matched), "updated", res.Updated)
	return res, nil
}

// mergeFields returns the values to write into doc: sequences stored in doc
// are unioned with the new value, every other field is taken from set.
func mergeFields(doc, set ir.Document) ir.Document {
	out := make(ir.Document, len(set))
	for field, value := range set {
		stored, ok := doc[field].([]any)
		if !ok {
			out[field] = value
			continue
		}
		out[field] = union(stored, value)
	}
	return out
}

// union appends the elements of value not yet in stored, keeping stored
// order first. A non-sequence value is treated as a single element. Null
// elements are never added, so a null value leaves stored unchanged.
func union(stored []any, value any) []any {
	incoming, ok := value.([]any)
	if !ok {
		incoming = []any{value}
	}
	out := make([]any, 0, len(stored)+len(incoming))
	for _, v := range stored {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	for _, v := range incoming {
		if v != nil && !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func containsValue(seq []any, v any) bool {
	for _, e := range seq {
		if ir.Equal(e, v) {
			return true
		}
	}
	return false
}

// Delete removes the records of collection matching filter. An empty
// filter deletes every record.
func (s *Store) Delete(ctx context.Context, collection string, filter queryir.Filter) (Deleted, error) {
	p, err := filter.Predicate()
	if err != nil {
		return Deleted{}, fmt.Errorf("delete %s: %w", collection, err)
	}
	n, err := s.backend.DeleteMany(ctx, collection, p)
	if err != nil {
		return Deleted{}, fmt.Errorf("delete %s: %w", collection, err)
	}
	return Deleted{Deleted: n}, nil
}

// Truncate drops collection entirely.
func (s *Store) Truncate(ctx context.Context, collection string) (Deleted, error) {
	n, err := s.backend.Drop(ctx, collection)
	if err != nil {
		return Deleted{}, fmt.Errorf("truncate %s: %w", collection, err)
	}
	s.logger.Info("collection truncated", "collection", collection, "deleted", n)
	return Deleted{Deleted: n}, nil
}
