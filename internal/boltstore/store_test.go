package boltstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
	"github.com/roach88/txtag/internal/testutil"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txtag.db")
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s, err := Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) []ir.Document {
	t.Helper()
	docs := testutil.FixtureDocuments()
	n, err := s.InsertMany(context.Background(), testutil.FixtureIBAN, docs)
	require.NoError(t, err)
	require.Equal(t, len(docs), n)
	return docs
}

func mustPredicate(t *testing.T, f queryir.Filter) queryir.Predicate {
	t.Helper()
	p, err := f.Predicate()
	require.NoError(t, err)
	return p
}

func TestOpen_CreatesFile(t *testing.T) {
	s := openTestStore(t)
	assert.FileExists(t, s.Path())
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "txtag.db"))
	assert.Error(t, err)
}

func TestLockTimeout(t *testing.T) {
	s := openTestStore(t, WithLockTimeout(50*time.Millisecond))

	// Another holder keeps the file locked for the duration of the test
	holder, err := bolt.Open(s.Path(), 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	defer holder.Close()

	start := time.Now()
	_, err = s.Find(context.Background(), testutil.FixtureIBAN, nil)
	require.Error(t, err)

	assert.True(t, IsLockTimeout(err))
	assert.True(t, errors.Is(err, berrors.ErrTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)

	var lockErr *LockTimeoutError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, s.Path(), lockErr.Path)
	assert.Equal(t, 50*time.Millisecond, lockErr.Timeout)
}

func TestLockReleasedBetweenCalls(t *testing.T) {
	s := openTestStore(t, WithLockTimeout(50*time.Millisecond))
	seed(t, s)

	// Every call closes the file, so an outside open succeeds in between
	other, err := bolt.Open(s.Path(), 0o600, &bolt.Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, other.Close())

	docs, err := s.Find(context.Background(), testutil.FixtureIBAN, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestFind_CanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, testutil.FixtureIBAN, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFind_InsertionOrder(t *testing.T) {
	s := openTestStore(t)
	docs := seed(t, s)

	got, err := s.Find(context.Background(), testutil.FixtureIBAN, nil)
	require.NoError(t, err)
	assert.Equal(t, testutil.UUIDs(docs), testutil.UUIDs(got))
}

func TestFind_UnknownCollectionIsEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Find(context.Background(), "nope", nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFind_ComparatorTruthTable(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	for _, tc := range testutil.ConditionCases() {
		t.Run(tc.Name, func(t *testing.T) {
			got, err := s.Find(context.Background(), testutil.FixtureIBAN, mustPredicate(t, tc.Filter))
			require.NoError(t, err)
			assert.ElementsMatch(t, testutil.Pick(tc.Want), testutil.UUIDs(got))
		})
	}
}

func TestInsertMany_SkipsExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	docs := seed(t, s)

	n, err := s.InsertMany(ctx, testutil.FixtureIBAN, docs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.InsertMany(ctx, "c", []ir.Document{{"uuid": "a"}, {"uuid": "a"}, {"uuid": "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertMany_RequiresUUID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertMany(context.Background(), "c", []ir.Document{{"name": "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no uuid")
}

func TestUpdateMany(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seed(t, s)

	filter := mustPredicate(t, queryir.AllOf(queryir.Where(ir.FieldAmount, queryir.Lt, -100)))
	n, err := s.UpdateMany(ctx, testutil.FixtureIBAN, filter, ir.Document{
		ir.FieldCategory: "Large",
		ir.FieldPriority: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Find(ctx, testutil.FixtureIBAN, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)

	// Order is preserved across rewrites
	assert.Equal(t, testutil.Pick([]int{0, 1, 2, 3, 4}), testutil.UUIDs(got))
	assert.Equal(t, "Large", got[1][ir.FieldCategory])
	assert.Equal(t, 1.0, got[4][ir.FieldPriority])
	assert.Nil(t, got[0][ir.FieldCategory])
}

func TestUpdateMany_Errors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpdateMany(ctx, "c", nil, ir.Document{})
	assert.Error(t, err)

	_, err = s.UpdateMany(ctx, "c", nil, ir.Document{ir.FieldUUID: "x"})
	assert.Error(t, err)
}

func TestDeleteMany_And_Drop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	docs := seed(t, s)
	_, err := s.InsertMany(ctx, "other", []ir.Document{{"uuid": "a"}})
	require.NoError(t, err)

	n, err := s.DeleteMany(ctx, testutil.FixtureIBAN, mustPredicate(t, queryir.AllOf(queryir.Where(ir.FieldTextTx, queryir.Like, "kartenzahlung"))))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Deleted uuids can be inserted again
	n, err = s.InsertMany(ctx, testutil.FixtureIBAN, docs[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.FixtureIBAN, "other"}, names)

	n, err = s.Drop(ctx, testutil.FixtureIBAN)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names, err = s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, names)

	n, err = s.Drop(ctx, "never-existed")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCollections_SkipsEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, "c", []ir.Document{{"uuid": "a"}})
	require.NoError(t, err)
	_, err = s.DeleteMany(ctx, "c", nil)
	require.NoError(t, err)

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
