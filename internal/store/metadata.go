package store

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
)

// GetMetadata returns the metadata record with the given uuid, or nil when
// there is none.
func (s *Store) GetMetadata(ctx context.Context, uuid string) (ir.Document, error) {
	p, err := queryir.Single(queryir.Where(ir.FieldUUID, queryir.Eq, uuid))
	if err != nil {
		return nil, err
	}
	docs, err := s.backend.Find(ctx, MetadataCollection, p)
	if err != nil {
		return nil, fmt.Errorf("get metadata %s: %w", uuid, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// FilterMetadata returns the metadata records matching filter. An empty
// filter returns all of them.
func (s *Store) FilterMetadata(ctx context.Context, filter queryir.Filter) ([]ir.Document, error) {
	p, err := filter.Predicate()
	if err != nil {
		return nil, fmt.Errorf("filter metadata: %w", err)
	}
	docs, err := s.backend.Find(ctx, MetadataCollection, p)
	if err != nil {
		return nil, fmt.Errorf("filter metadata: %w", err)
	}
	return docs, nil
}

// MetadataByType returns the metadata records of one metatype.
func (s *Store) MetadataByType(ctx context.Context, metatype string) ([]ir.Document, error) {
	return s.FilterMetadata(ctx, queryir.AllOf(queryir.Where(ir.FieldMetatype, queryir.Eq, metatype)))
}

// SetMetadata validates entry and saves it. With overwrite, any record with
// the same uuid is replaced; without it, an existing record wins and
// nothing is written.
func (s *Store) SetMetadata(ctx context.Context, entry ir.Document, overwrite bool) (Inserted, error) {
	doc, err := metadata.NewRecord(map[string]any(entry))
	if err != nil {
		return Inserted{}, fmt.Errorf("set metadata: %w", err)
	}

	if overwrite {
		p, err := queryir.Single(queryir.Where(ir.FieldUUID, queryir.Eq, doc.UUID()))
		if err != nil {
			return Inserted{}, err
		}
		if _, err := s.backend.DeleteMany(ctx, MetadataCollection, p); err != nil {
			return Inserted{}, fmt.Errorf("set metadata %s: %w", doc.UUID(), err)
		}
	}
	return s.Insert(ctx, MetadataCollection, doc)
}

// Priorities returns the configured default priorities, falling back to
// metadata.DefaultPriorities when no priorities record is stored.
func (s *Store) Priorities(ctx context.Context) (metadata.Priorities, error) {
	docs, err := s.FilterMetadata(ctx, queryir.AllOf(
		queryir.Where(ir.FieldMetatype, queryir.Eq, ir.MetaConfig),
		queryir.Where(ir.FieldName, queryir.Eq, metadata.PrioritiesName),
	))
	if err != nil {
		return metadata.Priorities{}, err
	}
	if len(docs) == 0 {
		return metadata.DefaultPriorities(), nil
	}
	return metadata.DecodePriorities(docs[0])
}
