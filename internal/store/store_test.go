package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_HasMetaOnly(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, s.Tables())

	gen, origin, err := s.Generation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	assert.Equal(t, "", origin)
}

func TestCreateTable_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "posts", post("p1", 100, `{"a":1}`)))

	// Second create must not drop or reshape the table.
	require.NoError(t, s.CreateTable(ctx, "posts", true))
	require.NoError(t, s.CreateTable(ctx, "posts", false))

	n, err := s.Count(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]bool{"posts": true, "users": false}, s.Tables())
}

func TestCreateTable_InvalidName(t *testing.T) {
	s := createTestStore(t)
	err := s.CreateTable(context.Background(), `users"; DROP TABLE posts; --`, false)
	assert.Error(t, err)
	assert.Contains(t, s.Tables(), "posts")
}

func TestClose_NotReady(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Second close is a no-op
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = s.Scan(ctx, "posts")
	assert.ErrorIs(t, err, ErrNotReady)

	_, _, err = s.Get(ctx, "posts", "p1")
	assert.ErrorIs(t, err, ErrNotReady)

	assert.ErrorIs(t, s.Put(ctx, "posts", post("p1", 1, "{}")), ErrNotReady)
	assert.ErrorIs(t, s.Remove(ctx, "posts", "p1"), ErrNotReady)
	assert.ErrorIs(t, s.CreateTable(ctx, "posts", true), ErrNotReady)

	_, err = s.ExportImage(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, s.ImportImage(ctx, []byte("x")), ErrNotReady)
}
