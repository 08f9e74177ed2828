package boltstore

import (
	"context"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/querymatch"
)

// Find returns the documents of collection matching filter, in insertion
// order. A nil filter returns the whole collection.
func (s *Store) Find(ctx context.Context, collection string, filter queryir.Predicate) ([]ir.Document, error) {
	match, err := querymatch.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}

	docs := []ir.Document{}
	err = s.view(ctx, func(tx *bolt.Tx) error {
		bucket, _ := collectionBuckets(tx, collection)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			doc, err := ir.DecodeDocument(v)
			if err != nil {
				return err
			}
			if match(doc) {
				docs = append(docs, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	s.logger.Debug("bolt find", "collection", collection, "matched", len(docs))
	return docs, nil
}

// InsertMany writes docs in one transaction, skipping any whose uuid is
// already present in the collection (including earlier docs of the same
// batch). It returns the number written.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []ir.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		root, bucket, ids, err := createCollection(tx, collection)
		if err != nil {
			return err
		}
		for i, doc := range docs {
			id := doc.UUID()
			if id == "" {
				return fmt.Errorf("document %d has no uuid", i)
			}
			if ids.Get([]byte(id)) != nil {
				continue
			}
			raw, err := doc.MarshalCompact()
			if err != nil {
				return fmt.Errorf("document %s: %w", id, err)
			}
			seq, err := root.NextSequence()
			if err != nil {
				return err
			}
			key := itob(seq)
			if err := bucket.Put(key, raw); err != nil {
				return err
			}
			if err := ids.Put([]byte(id), key); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", collection, err)
	}
	s.logger.Debug("bolt insert", "collection", collection, "candidates", len(docs), "inserted", inserted)
	return inserted, nil
}

// UpdateMany overwrites the fields in set on every document matching
// filter, in one transaction.
func (s *Store) UpdateMany(ctx context.Context, collection string, filter queryir.Predicate, set ir.Document) (int, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("update %s: nothing to set", collection)
	}
	if _, ok := set[ir.FieldUUID]; ok {
		return 0, fmt.Errorf("update %s: %s is immutable", collection, ir.FieldUUID)
	}
	values, err := ir.NormalizeDocument(set)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	match, err := querymatch.Compile(filter)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}

	updated := 0
	err = s.update(ctx, func(tx *bolt.Tx) error {
		bucket, _ := collectionBuckets(tx, collection)
		if bucket == nil {
			return nil
		}
		pending := map[string][]byte{}
		err := bucket.ForEach(func(k, v []byte) error {
			doc, err := ir.DecodeDocument(v)
			if err != nil {
				return err
			}
			if !match(doc) {
				return nil
			}
			for field, value := range values.Clone() {
				doc[field] = value
			}
			raw, err := doc.MarshalCompact()
			if err != nil {
				return err
			}
			pending[string(k)] = raw
			return nil
		})
		if err != nil {
			return err
		}
		// Writes are deferred until iteration ends; bbolt forbids
		// mutating a bucket inside ForEach.
		for k, raw := range pending {
			if err := bucket.Put([]byte(k), raw); err != nil {
				return err
			}
		}
		updated = len(pending)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return updated, nil
}

// DeleteMany removes every document matching filter.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter queryir.Predicate) (int, error) {
	match, err := querymatch.Compile(filter)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", collection, err)
	}

	deleted := 0
	err = s.update(ctx, func(tx *bolt.Tx) error {
		bucket, ids := collectionBuckets(tx, collection)
		if bucket == nil {
			return nil
		}
		var keys [][]byte
		var uuids []string
		err := bucket.ForEach(func(k, v []byte) error {
			doc, err := ir.DecodeDocument(v)
			if err != nil {
				return err
			}
			if match(doc) {
				keys = append(keys, append([]byte(nil), k...))
				uuids = append(uuids, doc.UUID())
			}
			return nil
		})
		if err != nil {
			return err
		}
		for i, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			if err := ids.Delete([]byte(uuids[i])); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", collection, err)
	}
	return deleted, nil
}

// Drop removes the whole collection and returns how many documents it held.
func (s *Store) Drop(ctx context.Context, collection string) (int, error) {
	dropped := 0
	err := s.update(ctx, func(tx *bolt.Tx) error {
		bucket, _ := collectionBuckets(tx, collection)
		if bucket == nil {
			return nil
		}
		dropped = bucket.Stats().KeyN
		return tx.DeleteBucket([]byte(collection))
	})
	if err != nil {
		return 0, fmt.Errorf("drop %s: %w", collection, err)
	}
	return dropped, nil
}

// Collections lists the names of all non-empty collections, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.view(ctx, func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			bucket, _ := collectionBuckets(tx, string(name))
			if bucket == nil {
				return nil
			}
			if k, _ := bucket.Cursor().First(); k != nil {
				names = append(names, string(name))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
