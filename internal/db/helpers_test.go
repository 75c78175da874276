package db

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tabsync/internal/blob"
	"github.com/roach88/tabsync/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestDB opens a DB over b and closes it when the test ends.
func openTestDB(t *testing.T, b blob.Store, opts ...Option) *DB {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	d, err := Open(context.Background(), b, opts...)
	require.NoError(t, err)
	require.Equal(t, StateReady, d.State())
	t.Cleanup(func() { d.Close() })
	return d
}

// counter counts callback invocations.
type counter struct {
	n atomic.Int32
}

func (c *counter) inc() { c.n.Add(1) }

func (c *counter) count() int { return int(c.n.Load()) }

func post(id string, key int64, payload string) store.Row {
	return store.Row{ID: id, OrderingKey: store.Key(key), Payload: []byte(payload)}
}

func row(id, payload string) store.Row {
	return store.Row{ID: id, Payload: []byte(payload)}
}
