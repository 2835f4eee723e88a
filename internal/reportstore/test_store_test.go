package reportstore

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "sess-1", ReportJSON)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "sess-1", ReportJSON, []byte(`{"summary":"ok"}`)))
	require.NoError(t, s.Put(ctx, "sess-1", ReportMarkdown, []byte("# Report")))
	require.NoError(t, s.Put(ctx, "sess-2", ReportJSON, []byte(`{}`)))

	got, err := s.Get(ctx, "sess-1", ReportJSON)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, string(got))

	require.NoError(t, s.Put(ctx, "sess-1", ReportJSON, []byte(`{"summary":"v2"}`)))
	got, err = s.Get(ctx, "sess-1", ReportJSON)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"v2"}`, string(got))

	names, err := s.List(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{ReportJSON, ReportMarkdown}, names)

	assert.Error(t, s.Put(ctx, " ", ReportJSON, nil))
	_, err = s.Get(ctx, "sess-1", "")
	assert.Error(t, err)
	_, err = s.List(ctx, "")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQL(SQLite, filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	s, closer, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, closer.Close())

	s, closer, err = Open(Config{Kind: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "r.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })
	assert.IsType(t, &CachedStore{}, s)
	exerciseStore(t, s)

	_, _, err = Open(Config{Kind: "carrier-pigeon"})
	assert.Error(t, err)
	_, _, err = Open(Config{Kind: "s3"})
	assert.Error(t, err)
	_, _, err = Open(Config{Kind: "postgres"})
	assert.Error(t, err)
}

type countingStore struct {
	Store
	gets atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, sessionID, name)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: NewMemoryStore()}
	require.NoError(t, backing.Store.Put(ctx, "s", ReportJSON, []byte("v1")))

	c, err := NewCachedStore(backing, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, "s", ReportJSON)
		require.NoError(t, err)
		assert.Equal(t, "v1", string(got))
	}
	assert.EqualValues(t, 1, backing.gets.Load())

	require.NoError(t, c.Put(ctx, "s", ReportJSON, []byte("v2")))
	got, err := c.Get(ctx, "s", ReportJSON)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
	assert.EqualValues(t, 1, backing.gets.Load())

	_, err = c.Get(ctx, "s", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3Store_ConfigValidation(t *testing.T) {
	_, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "reports"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, "application/json", contentType(ReportJSON))
}
