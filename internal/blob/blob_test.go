package blob

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemory() },
		"file": func() Store {
			s, err := NewFile(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"bolt": func() Store {
			s, err := NewBolt(filepath.Join(t.TempDir(), "blob.db"), WithNoSync(true))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()
			ctx := context.Background()

			_, ok, err := s.Get(ctx, "social_db")
			require.NoError(t, err)
			assert.False(t, ok, "unwritten key must be absent")

			require.NoError(t, s.Put(ctx, "social_db", "first"))
			v, ok, err := s.Get(ctx, "social_db")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "first", v)

			big := strings.Repeat("QUJD", 64*1024)
			require.NoError(t, s.Put(ctx, "social_db", big))
			v, ok, err = s.Get(ctx, "social_db")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, big, v)

			_, ok, err = s.Get(ctx, "other")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, open := range stores(t) {
		if name == "file" {
			continue // stateless, Close is a no-op
		}
		t.Run(name, func(t *testing.T) {
			s := open()
			require.NoError(t, s.Close())
			ctx := context.Background()

			_, _, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Put(ctx, "k", "v"), ErrClosed)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			assert.ErrorIs(t, s.Put(ctx, "k", "v"), context.Canceled)
			_, _, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, a.Put(ctx, "social_db", "from-a"))

	b, err := NewFile(dir)
	require.NoError(t, err)
	v, ok, err := b.Get(ctx, "social_db")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)

	// Last writer wins.
	require.NoError(t, b.Put(ctx, "social_db", "from-b"))
	v, _, err = a.Get(ctx, "social_db")
	require.NoError(t, err)
	assert.Equal(t, "from-b", v)
}

func TestFile_KeyEscaping(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "../escape", "x"))
	v, ok, err := s.Get(ctx, "../escape")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestBolt_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	a, err := NewBolt(path, WithLockTimeout(time.Second))
	require.NoError(t, err)
	b, err := NewBolt(path, WithLockTimeout(time.Second))
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, "social_db", "from-a"))
	v, ok, err := b.Get(ctx, "social_db")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)

	require.NoError(t, b.Put(ctx, "social_db", "from-b"))
	v, _, err = a.Get(ctx, "social_db")
	require.NoError(t, err)
	assert.Equal(t, "from-b", v)
}

func TestMemory_PutHook(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("disk full")
	m.PutHook = func(key, value string) error { return boom }

	assert.ErrorIs(t, m.Put(ctx, "k", "v"), boom)
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Puts())

	m.PutHook = nil
	require.NoError(t, m.Put(ctx, "k", "v"))
	assert.Equal(t, 1, m.Puts())
}
