package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
)

// groupRecord returns the config record of group name, or nil.
func (s *Store) groupRecord(ctx context.Context, name string) (ir.Document, error) {
	if name == "" {
		return nil, nil
	}
	docs, err := s.FilterMetadata(ctx, queryir.AllOf(
		queryir.Where(ir.FieldMetatype, queryir.Eq, ir.MetaConfig),
		queryir.Where(ir.FieldName, queryir.Eq, metadata.GroupRecordName(name)),
	))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// AddIBANGroup adds ibans to group name, creating the group if needed.
// IBANs already in the group are kept in their original order.
func (s *Store) AddIBANGroup(ctx context.Context, name string, ibans []string) (Inserted, error) {
	if name == "" {
		return Inserted{}, queryir.NewValidationError("group", "group name is required")
	}
	existing, err := s.groupRecord(ctx, name)
	if err != nil {
		return Inserted{}, fmt.Errorf("add group %s: %w", name, err)
	}

	group := metadata.Group{Name: name}
	if existing != nil {
		if group, err = metadata.DecodeGroup(existing); err != nil {
			return Inserted{}, fmt.Errorf("add group %s: %w", name, err)
		}
		// An imported record may carry another uuid; replace it entirely.
		if existing.UUID() != ir.GroupID(name) {
			p, err := queryir.Single(queryir.Where(ir.FieldUUID, queryir.Eq, existing.UUID()))
			if err != nil {
				return Inserted{}, err
			}
			if _, err := s.backend.DeleteMany(ctx, MetadataCollection, p); err != nil {
				return Inserted{}, fmt.Errorf("add group %s: %w", name, err)
			}
		}
	}

	merged := metadata.Group{Name: name, IBANs: group.Union(ibans)}
	res, err := s.SetMetadata(ctx, merged.Document(), true)
	if err != nil {
		return Inserted{}, fmt.Errorf("add group %s: %w", name, err)
	}
	s.logger.Info("group saved", "group", name, "ibans", len(merged.IBANs))
	return res, nil
}

// GroupIBANs returns the IBANs of group name, or an empty list when the
// group does not exist.
func (s *Store) GroupIBANs(ctx context.Context, name string) ([]string, error) {
	doc, err := s.groupRecord(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", name, err)
	}
	if doc == nil {
		return []string{}, nil
	}
	group, err := metadata.DecodeGroup(doc)
	if err != nil {
		return nil, err
	}
	return group.IBANs, nil
}

// IsGroup reports whether name is a stored IBAN group.
func (s *Store) IsGroup(ctx context.Context, name string) (bool, error) {
	doc, err := s.groupRecord(ctx, name)
	if err != nil {
		return false, fmt.Errorf("group %s: %w", name, err)
	}
	return doc != nil, nil
}

// ListGroups returns the names of all IBAN groups, sorted.
func (s *Store) ListGroups(ctx context.Context) ([]string, error) {
	docs, err := s.FilterMetadata(ctx, queryir.AllOf(
		queryir.Where(ir.FieldMetatype, queryir.Eq, ir.MetaConfig),
		queryir.Where(ir.FieldName, queryir.Regex, "^"+regexp.QuoteMeta(metadata.GroupPrefix)),
	))
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		group, err := metadata.DecodeGroup(doc)
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		names = append(names, group.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ListIBANs returns the names of all non-empty account collections.
// The metadata collection is not an account and is left out.
func (s *Store) ListIBANs(ctx context.Context) ([]string, error) {
	names, err := s.backend.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ibans: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != MetadataCollection {
			out = append(out, name)
		}
	}
	return out, nil
}
