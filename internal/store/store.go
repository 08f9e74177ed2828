package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/txtag/internal/boltstore"
	"github.com/roach88/txtag/internal/config"
	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/metadata"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/sqlitestore"
)

// MetadataCollection holds rules, parsers and config entries.
const MetadataCollection = "metadata"

// existenceChunk bounds the number of uuid conditions per existence query.
const existenceChunk = 200

// Backend is a document store holding named collections of JSON documents.
//
// Implementations must return documents in insertion order, skip inserts
// whose uuid already exists in the collection, and evaluate every
// comparator of queryir identically.
type Backend interface {
	Find(ctx context.Context, collection string, filter queryir.Predicate) ([]ir.Document, error)
	InsertMany(ctx context.Context, collection string, docs []ir.Document) (int, error)
	UpdateMany(ctx context.Context, collection string, filter queryir.Predicate, set ir.Document) (int, error)
	DeleteMany(ctx context.Context, collection string, filter queryir.Predicate) (int, error)
	Drop(ctx context.Context, collection string) (int, error)
	Collections(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Backend = (*boltstore.Store)(nil)
	_ Backend = (*sqlitestore.Store)(nil)
)

// Store owns deduplication, merge updates, metadata and IBAN groups on top
// of a Backend.
type Store struct {
	backend   Backend
	logger    *slog.Logger
	bootstrap bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. It is passed on to the backend by Open.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBootstrap controls whether packaged metadata is loaded on
// construction. Enabled by default.
func WithBootstrap(enabled bool) Option {
	return func(s *Store) {
		s.bootstrap = enabled
	}
}

func newStore(opts []Option) *Store {
	s := &Store{
		logger:    slog.Default(),
		bootstrap: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open constructs the backend named by cfg.Backend and wraps it.
func Open(ctx context.Context, cfg config.StoreConfig, opts ...Option) (*Store, error) {
	s := newStore(opts)

	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case config.BackendBolt, "":
		var bopts []boltstore.Option
		bopts = append(bopts, boltstore.WithLogger(s.logger))
		if cfg.LockTimeout > 0 {
			bopts = append(bopts, boltstore.WithLockTimeout(cfg.LockTimeout))
		}
		backend, err = boltstore.Open(ctx, cfg.Path, bopts...)
	case config.BackendSQLite:
		backend, err = sqlitestore.Open(ctx, cfg.Path, sqlitestore.WithLogger(s.logger))
	default:
		return nil, fmt.Errorf("open store: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s.backend = backend
	if err := s.init(ctx); err != nil {
		backend.Close()
		return nil, err
	}
	s.logger.Debug("store opened", "backend", cfg.Backend, "path", cfg.Path)
	return s, nil
}

// New wraps an already opened backend.
func New(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := newStore(opts)
	s.backend = backend
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if !s.bootstrap {
		return nil
	}
	if err := s.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap metadata: %w", err)
	}
	return nil
}

// Close closes the backend.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Bootstrap saves every packaged metadata definition that is not stored
// yet. Existing records, including user edits of packaged ones, are kept.
func (s *Store) Bootstrap(ctx context.Context) error {
	docs, err := metadata.Packaged()
	if err != nil {
		return err
	}
	added := 0
	for _, doc := range docs {
		res, err := s.SetMetadata(ctx, doc, false)
		if err != nil {
			return fmt.Errorf("%s %q: %w", doc.String(ir.FieldMetatype), doc.String(ir.FieldName), err)
		}
		added += res.Inserted
	}
	s.logger.Debug("metadata bootstrapped", "packaged", len(docs), "added", added)
	return nil
}

// IsLockTimeout returns true if err reports that the file-backed store
// could not be locked in time.
func IsLockTimeout(err error) bool {
	return boltstore.IsLockTimeout(err)
}
