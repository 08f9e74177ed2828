package boltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// DefaultLockTimeout bounds how long a call waits for the file lock.
const DefaultLockTimeout = 5 * time.Second

// Nested bucket names inside each collection bucket.
var (
	bucketDocs  = []byte("docs")  // itob(seq) -> document JSON
	bucketUUIDs = []byte("uuids") // uuid -> itob(seq)
)

// Store is the file-backed backend. The bbolt file is opened, locked and
// closed again on every call, so several processes can share one file as
// long as their calls do not overlap for longer than the lock timeout.
//
// Filters are evaluated in Go by querymatch over decoded documents.
type Store struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets how long each call waits for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open prepares a Store for the database file at path, creating the file
// if needed. No lock is held once Open returns.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		timeout: DefaultLockTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Touch the file so a bad path fails here rather than on first use
	if err := s.view(ctx, func(*bolt.Tx) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op: the file is only held for the duration of a call.
func (s *Store) Close() error {
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// open acquires the file lock, waiting at most s.timeout.
// The lock is always exclusive: bbolt only takes a shared lock for
// read-only opens, and a read-only open cannot create the file.
func (s *Store) open(ctx context.Context) (*bolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		if errors.Is(err, berrors.ErrTimeout) {
			return nil, &LockTimeoutError{Path: s.path, Timeout: s.timeout, Err: err}
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (s *Store) view(ctx context.Context, fn func(*bolt.Tx) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(*bolt.Tx) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

// collectionBuckets returns the nested buckets of a collection, or nils
// when the collection does not exist.
func collectionBuckets(tx *bolt.Tx, name string) (docs, uuids *bolt.Bucket) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, nil
	}
	return b.Bucket(bucketDocs), b.Bucket(bucketUUIDs)
}

func createCollection(tx *bolt.Tx, name string) (root, docs, uuids *bolt.Bucket, err error) {
	if name == "" {
		return nil, nil, nil, fmt.Errorf("collection is required")
	}
	root, err = tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	if docs, err = root.CreateBucketIfNotExists(bucketDocs); err != nil {
		return nil, nil, nil, fmt.Errorf("create bucket %s/docs: %w", name, err)
	}
	if uuids, err = root.CreateBucketIfNotExists(bucketUUIDs); err != nil {
		return nil, nil, nil, fmt.Errorf("create bucket %s/uuids: %w", name, err)
	}
	return root, docs, uuids, nil
}

// itob returns an 8-byte big endian representation of v.
// Big endian keeps cursor order equal to insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
