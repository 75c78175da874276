package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabsync/internal/blob"
	"github.com/roach88/tabsync/internal/bus"
	"github.com/roach88/tabsync/internal/schema"
)

// twoContexts opens two DBs sharing one blob store and one hub. The second
// DB is configured with opts.
func twoContexts(t *testing.T, opts ...Option) (writer, reader *DB, mem *blob.Memory, hub *bus.Hub) {
	t.Helper()
	mem = blob.NewMemory()
	hub = bus.NewHub()
	wep, rep := hub.Attach(), hub.Attach()
	t.Cleanup(func() {
		wep.Close()
		rep.Close()
	})

	writer = openTestDB(t, mem, WithBus(wep), WithOrigin("writer"))
	reader = openTestDB(t, mem, append([]Option{WithBus(rep), WithOrigin("reader")}, opts...)...)
	return writer, reader, mem, hub
}

func TestRemote_NotifiesWithoutReload(t *testing.T) {
	ctx := context.Background()
	writer, reader, _, _ := twoContexts(t)

	var users, all, groups counter
	_, err := reader.Subscribe(schema.Users, users.inc)
	require.NoError(t, err)
	_, err = reader.Subscribe(schema.Wildcard, all.inc)
	require.NoError(t, err)
	_, err = reader.Subscribe(schema.Groups, groups.inc)
	require.NoError(t, err)

	require.NoError(t, writer.Put(ctx, schema.Users, row("u1", "{}")))

	require.Eventually(t, func() bool {
		return users.count() == 1 && all.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, groups.count())

	// Documented limitation: the reader's engine is not refreshed.
	_, ok, err := reader.Get(ctx, schema.Users, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := reader.Count(ctx, schema.Users)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemote_ReloadMode(t *testing.T) {
	ctx := context.Background()
	writer, reader, _, _ := twoContexts(t, WithRemoteReload(true))

	var users counter
	var sawFlag bool
	_, err := reader.Subscribe(schema.Users, func() {
		sawFlag = sawFlag || reader.ApplyingRemote()
		users.inc()
	})
	require.NoError(t, err)

	require.NoError(t, writer.Put(ctx, schema.Users, row("u1", `{"name":"ann"}`)))
	require.Eventually(t, func() bool { return users.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	got, ok, err := reader.Get(ctx, schema.Users, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"name":"ann"}`, string(got.Payload))
	assert.False(t, sawFlag, "subscribers run after the reload finished")

	gen, origin, err := reader.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.Equal(t, "writer", origin)

	// The reader can build on the reloaded state.
	require.NoError(t, reader.Put(ctx, schema.Users, row("u2", "{}")))
	n, err := reader.Count(ctx, schema.Users)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRemote_ReloadDoesNotEcho(t *testing.T) {
	ctx := context.Background()
	writer, _, _, _ := twoContexts(t, WithRemoteReload(true))

	var writerUsers counter
	_, err := writer.Subscribe(schema.Users, writerUsers.inc)
	require.NoError(t, err)

	require.NoError(t, writer.Put(ctx, schema.Users, row("u1", "{}")))
	assert.Equal(t, 1, writerUsers.count())
	assert.Never(t, func() bool { return writerUsers.count() > 1 }, 150*time.Millisecond, 10*time.Millisecond)
}

func TestRemote_ReloadKeepsStateOnBadSnapshot(t *testing.T) {
	ctx := context.Background()
	writer, reader, mem, hub := twoContexts(t, WithRemoteReload(true))
	third := hub.Attach()
	defer third.Close()

	var users counter
	_, err := reader.Subscribe(schema.Users, users.inc)
	require.NoError(t, err)

	require.NoError(t, writer.Put(ctx, schema.Users, row("u1", "{}")))
	require.Eventually(t, func() bool { return users.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, mem.Put(ctx, DefaultKey, "corrupted"))
	require.NoError(t, third.Announce(ctx, schema.Users))
	require.Eventually(t, func() bool { return users.count() >= 2 }, 2*time.Second, 10*time.Millisecond)

	_, ok, err := reader.Get(ctx, schema.Users, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandleRemote_IgnoresForeignMessages(t *testing.T) {
	d := openTestDB(t, blob.NewMemory())

	var all counter
	_, err := d.Subscribe(schema.Wildcard, all.inc)
	require.NoError(t, err)

	d.handleRemote(bus.Message{Type: "SOMETHING_ELSE", Table: schema.Users})
	d.handleRemote(bus.Message{Type: bus.TypeDBUpdate, Table: "bogus"})
	assert.Equal(t, 0, all.count())

	d.handleRemote(bus.Update(schema.Posts))
	assert.Equal(t, 1, all.count())
}

func TestRemote_ReloadImportsIntoSameEngine(t *testing.T) {
	ctx := context.Background()
	writer, reader, _, hub := twoContexts(t, WithRemoteReload(true))
	third := hub.Attach()
	defer third.Close()

	var users counter
	_, err := reader.Subscribe(schema.Users, users.inc)
	require.NoError(t, err)

	engine := reader.engine.Load()
	require.NoError(t, writer.Put(ctx, schema.Users, row("u1", "{}")))
	require.Eventually(t, func() bool { return users.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, engine, reader.engine.Load(), "reload copies into the live engine")

	// Same stamp again: imported and notified, state unchanged.
	require.NoError(t, third.Announce(ctx, schema.Users))
	require.Eventually(t, func() bool { return users.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, engine, reader.engine.Load())

	gen, origin, err := reader.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.Equal(t, "writer", origin)
	n, err := reader.Count(ctx, schema.Users)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
