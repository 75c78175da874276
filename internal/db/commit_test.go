package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabsync/internal/blob"
	"github.com/roach88/tabsync/internal/bus"
	"github.com/roach88/tabsync/internal/schema"
	"github.com/roach88/tabsync/internal/store"
)

func TestCommit_NotifiesTableAndWildcard(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t, blob.NewMemory())

	var posts, all, groups counter
	_, err := d.Subscribe(schema.Posts, posts.inc)
	require.NoError(t, err)
	_, err = d.Subscribe(schema.Wildcard, all.inc)
	require.NoError(t, err)
	_, err = d.Subscribe(schema.Groups, groups.inc)
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, schema.Posts, post("p1", 100, "{}")))

	assert.Equal(t, 1, posts.count())
	assert.Equal(t, 1, all.count())
	assert.Equal(t, 0, groups.count())
}

func TestCommit_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t, blob.NewMemory())

	var a, b counter
	unsubA, err := d.Subscribe(schema.Users, a.inc)
	require.NoError(t, err)
	_, err = d.Subscribe(schema.Users, b.inc)
	require.NoError(t, err)

	unsubA()
	require.NoError(t, d.Put(ctx, schema.Users, row("u1", "{}")))

	assert.Equal(t, 0, a.count())
	assert.Equal(t, 1, b.count())
}

func TestCommit_PanickingSubscriberIsIsolated(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t, blob.NewMemory())

	var after counter
	_, err := d.Subscribe(schema.Users, func() { panic("bad listener") })
	require.NoError(t, err)
	_, err = d.Subscribe(schema.Wildcard, after.inc)
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, schema.Users, row("u1", "{}")))
	assert.Equal(t, 1, after.count())
}

func TestCommit_PersistsEveryCommit(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	d := openTestDB(t, mem)
	base := mem.Puts()

	require.NoError(t, d.Put(ctx, schema.Users, row("u1", "{}")))
	require.NoError(t, d.Put(ctx, schema.Groups, row("g1", "{}")))
	require.NoError(t, d.Remove(ctx, schema.Groups, "missing"))

	assert.Equal(t, base+3, mem.Puts())
}

func TestCommit_MutationFailure(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	d := openTestDB(t, mem)
	base := mem.Puts()

	var all counter
	_, err := d.Subscribe(schema.Wildcard, all.inc)
	require.NoError(t, err)

	tests := []struct {
		name  string
		table string
		muts  []store.Mutation
	}{
		{"empty id", schema.Users, []store.Mutation{store.PutRow(row("", "{}"))}},
		{"unknown table", "nope", []store.Mutation{store.PutRow(row("x", "{}"))}},
		{"bad op in batch", schema.Users, []store.Mutation{
			store.PutRow(row("u1", "{}")),
			{Op: store.Op(99), Row: row("u2", "{}")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Commit(ctx, tt.table, tt.muts...)
			require.Error(t, err)
			assert.True(t, IsMutationFailure(err), "got %v", err)
		})
	}

	assert.Equal(t, base, mem.Puts(), "no persistence after a failed mutation")
	assert.Equal(t, 0, all.count(), "no notification after a failed mutation")

	_, ok, err := d.Get(ctx, schema.Users, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "a failed batch leaves no partial rows")
}

func TestCommit_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	hub := bus.NewHub()
	ep := hub.Attach()
	defer ep.Close()
	other := hub.Attach()
	defer other.Close()

	var announced counter
	other.OnReceive(func(bus.Message) { announced.inc() })

	d := openTestDB(t, mem, WithBus(ep))
	var all counter
	_, err := d.Subscribe(schema.Wildcard, all.inc)
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	mem.PutHook = func(string, string) error { return diskFull }

	err = d.Put(ctx, schema.Users, row("u1", `{"name":"ann"}`))
	require.Error(t, err)
	assert.True(t, IsPersistenceFailure(err))
	assert.ErrorIs(t, err, diskFull)

	assert.Equal(t, 0, all.count())
	assert.Never(t, func() bool { return announced.count() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	// The engine keeps the unpersisted mutation.
	got, ok, err := d.Get(ctx, schema.Users, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"name":"ann"}`, string(got.Payload))
}

func TestCommit_Batch(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	d := openTestDB(t, mem)
	base := mem.Puts()

	var posts counter
	_, err := d.Subscribe(schema.Posts, posts.inc)
	require.NoError(t, err)

	require.NoError(t, d.Commit(ctx, schema.Posts,
		store.PutRow(post("p1", 100, "{}")),
		store.PutRow(post("p2", 200, "{}")),
		store.RemoveRow("p1"),
	))

	assert.Equal(t, 1, posts.count())
	assert.Equal(t, base+1, mem.Puts())

	rows, err := d.Scan(ctx, schema.Posts)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0].ID)

	require.NoError(t, d.Commit(ctx, schema.Posts))
	assert.Equal(t, 1, posts.count(), "empty commit is a no-op")
}

func TestCommit_AnnouncesOnBus(t *testing.T) {
	ctx := context.Background()
	hub := bus.NewHub()
	ep := hub.Attach()
	defer ep.Close()
	other := hub.Attach()
	defer other.Close()

	got := make(chan bus.Message, 1)
	other.OnReceive(func(m bus.Message) { got <- m })

	d := openTestDB(t, blob.NewMemory(), WithBus(ep))
	require.NoError(t, d.Put(ctx, schema.Marketplace, post("m1", 5, "{}")))

	select {
	case m := <-got:
		assert.Equal(t, bus.Update(schema.Marketplace), m)
	case <-time.After(2 * time.Second):
		t.Fatal("no announcement received")
	}
}

func TestCommit_GenerationStamp(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t, blob.NewMemory(), WithOrigin("tab-1"))

	gen, origin, err := d.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	assert.Equal(t, "", origin)

	require.NoError(t, d.Put(ctx, schema.Users, row("u1", "{}")))
	require.NoError(t, d.Put(ctx, schema.Users, row("u2", "{}")))

	gen, origin, err = d.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
	assert.Equal(t, "tab-1", origin)
	assert.Equal(t, "tab-1", d.Origin())
}

func TestRead_MissingIsNotAnError(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t, blob.NewMemory())

	_, ok, err := d.Get(ctx, schema.Users, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := d.Scan(ctx, "no_such_table")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = d.ScanOrdered(ctx, schema.Posts, store.Key(100), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubscribe_RejectsUnknownKey(t *testing.T) {
	d := openTestDB(t, blob.NewMemory())

	_, err := d.Subscribe("bogus", func() {})
	assert.Error(t, err)
	_, err = d.Subscribe(schema.Users, nil)
	assert.Error(t, err)
}
