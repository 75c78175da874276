package bus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_DeliversAcrossAttachments(t *testing.T) {
	path := t.TempDir()
	a, err := NewDir(path, WithOrigin("ctx-a"))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewDir(path, WithOrigin("ctx-b"))
	require.NoError(t, err)
	defer b.Close()

	var ra, rb recorder
	a.OnReceive(ra.handle)
	b.OnReceive(rb.handle)

	require.NoError(t, a.Announce(context.Background(), "notifications"))

	require.Eventually(t, func() bool { return len(rb.tables()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"notifications"}, rb.tables())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, ra.tables(), "sender must not receive its own message")
}

func TestDir_IgnoresForeignFiles(t *testing.T) {
	path := t.TempDir()
	b, err := NewDir(path, WithOrigin("ctx-b"))
	require.NoError(t, err)
	defer b.Close()

	var rb recorder
	b.OnReceive(rb.handle)

	require.NoError(t, os.WriteFile(filepath.Join(path, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(path, "1-1_ctx-x.msg"), []byte(`{"type":"BOGUS"}`), 0o644))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rb.tables())
}

func TestDir_Prunes(t *testing.T) {
	path := t.TempDir()
	a, err := NewDir(path, WithOrigin("ctx-a"), WithRetention(time.Minute))
	require.NoError(t, err)
	defer a.Close()

	stale := filepath.Join(path, "1-1_ctx-old.msg")
	require.NoError(t, os.WriteFile(stale, []byte(`{"type":"DB_UPDATE","table":"ads"}`), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, a.Announce(context.Background(), "ads"))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale message should be pruned")

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	var msgs int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), msgSuffix) {
			msgs++
		}
	}
	assert.Equal(t, 1, msgs)
}

func TestDir_InvalidOrigin(t *testing.T) {
	_, err := NewDir(t.TempDir(), WithOrigin("bad_origin"))
	assert.Error(t, err)
}

func TestDir_Close(t *testing.T) {
	a, err := NewDir(t.TempDir())
	require.NoError(t, err)
	assert.NotEmpty(t, a.Origin())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Announce(context.Background(), "posts"), ErrClosed)
}
