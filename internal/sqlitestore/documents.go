package sqlitestore

import (
	"context"
	"fmt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/querysql"
)

// Find returns the documents of collection matching filter, in insertion
// order. A nil filter returns the whole collection.
func (s *Store) Find(ctx context.Context, collection string, filter queryir.Predicate) ([]ir.Document, error) {
	query, params, err := s.compiler.Compile(queryir.Select{Collection: collection, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	s.logger.Debug("sqlite find", "collection", collection, "sql", query)

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []ir.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("find %s: scan: %w", collection, err)
		}
		doc, err := ir.DecodeDocument([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return docs, nil
}

// InsertMany writes docs in one transaction. Documents whose uuid already
// exists in the collection are skipped by the UNIQUE constraint; the
// returned count covers only the rows that landed.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []ir.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert %s: begin: %w", collection, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (collection, uuid, doc) VALUES (?, ?, ?) ON CONFLICT (collection, uuid) DO NOTHING",
		querysql.Table))
	if err != nil {
		return 0, fmt.Errorf("insert %s: prepare: %w", collection, err)
	}
	defer stmt.Close()

	inserted := 0
	for i, doc := range docs {
		id := doc.UUID()
		if id == "" {
			return 0, fmt.Errorf("insert %s: document %d has no uuid", collection, i)
		}
		raw, err := doc.MarshalCompact()
		if err != nil {
			return 0, fmt.Errorf("insert %s: document %s: %w", collection, id, err)
		}
		res, err := stmt.ExecContext(ctx, collection, id, string(raw))
		if err != nil {
			return 0, fmt.Errorf("insert %s: document %s: %w", collection, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", collection, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert %s: commit: %w", collection, err)
	}
	s.logger.Debug("sqlite insert", "collection", collection, "candidates", len(docs), "inserted", inserted)
	return inserted, nil
}

// UpdateMany overwrites the fields in set on every document matching
// filter with a single UPDATE statement.
func (s *Store) UpdateMany(ctx context.Context, collection string, filter queryir.Predicate, set ir.Document) (int, error) {
	query, params, err := s.compiler.Compile(queryir.Update{Collection: collection, Filter: filter, Set: set})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return s.exec(ctx, "update", collection, query, params)
}

// DeleteMany removes every document matching filter.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter queryir.Predicate) (int, error) {
	query, params, err := s.compiler.Compile(queryir.Delete{Collection: collection, Filter: filter})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", collection, err)
	}
	return s.exec(ctx, "delete", collection, query, params)
}

// Drop removes the whole collection.
func (s *Store) Drop(ctx context.Context, collection string) (int, error) {
	return s.DeleteMany(ctx, collection, nil)
}

// Collections lists the names of all non-empty collections, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT collection FROM %s ORDER BY collection COLLATE BINARY", querysql.Table))
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) exec(ctx context.Context, op, collection, query string, params []any) (int, error) {
	s.logger.Debug("sqlite "+op, "collection", collection, "sql", query)

	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", op, collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", op, collection, err)
	}
	return int(n), nil
}
