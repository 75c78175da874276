package tables

import (
	"context"
	"fmt"

	"github.com/roach88/tabsync/internal/db"
	"github.com/roach88/tabsync/internal/store"
)

// Record is implemented by pointers to entity types. RowID is the primary
// key the entity is stored under.
type Record[T any] interface {
	*T
	RowID() string
}

// Optional entity capabilities, checked at runtime.
type (
	// idAssigner entities get a generated id from Add when theirs is empty.
	idAssigner interface{ SetRowID(id string) }

	// timestamped entities supply the ordering key of ordered tables.
	timestamped interface {
		Timestamp() int64
		SetTimestamp(ms int64)
	}

	// toucher entities record the time of their last Update.
	toucher interface{ Touch(ms int64) }

	// validator entities check their own fields before they are stored.
	validator interface{ Validate() error }
)

// Collection is the typed view of one table.
type Collection[T any, P Record[T]] struct {
	db      *db.DB
	table   string
	ordered bool
	clock   Clock
	newID   func() string
}

func newCollection[T any, P Record[T]](d *db.DB, table string, ordered bool, cfg *config) *Collection[T, P] {
	return &Collection[T, P]{
		db:      d,
		table:   table,
		ordered: ordered,
		clock:   cfg.clock,
		newID:   cfg.newID,
	}
}

// Table returns the table name.
func (c *Collection[T, P]) Table() string {
	return c.table
}

// GetAll returns every entity. Ordered tables return newest first; others
// are sorted by id.
func (c *Collection[T, P]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := c.db.ScanOrdered(ctx, c.table, nil, 0)
	if err != nil {
		return nil, err
	}
	return c.decodeRows(rows)
}

// Get returns the entity stored under id. ok is false if there is none.
func (c *Collection[T, P]) Get(ctx context.Context, id string) (v T, ok bool, err error) {
	row, ok, err := c.db.Get(ctx, c.table, id)
	if err != nil || !ok {
		return v, false, err
	}
	if err := decodePayload(c.table, id, row.Payload, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Set stores v under its row id, replacing any previous entity.
func (c *Collection[T, P]) Set(ctx context.Context, v *T) error {
	row, err := c.row(v)
	if err != nil {
		return err
	}
	return c.db.Put(ctx, c.table, row)
}

// Add stores a new entity. An empty id is replaced by a generated one and,
// on ordered tables, a zero timestamp by the current time; v is updated in
// place.
func (c *Collection[T, P]) Add(ctx context.Context, v *T) error {
	if a, ok := any(v).(idAssigner); ok && P(v).RowID() == "" {
		a.SetRowID(c.newID())
	}
	if ts, ok := any(v).(timestamped); ok && c.ordered && ts.Timestamp() == 0 {
		ts.SetTimestamp(c.clock.NowMillis())
	}
	return c.Set(ctx, v)
}

// Update stores v like Set and stamps its update time when the entity
// tracks one. The ordering key follows the entity timestamp, so updating a
// post does not move it in the feed.
func (c *Collection[T, P]) Update(ctx context.Context, v *T) error {
	if t, ok := any(v).(toucher); ok {
		t.Touch(c.clock.NowMillis())
	}
	return c.Set(ctx, v)
}

// Delete removes the entity stored under id. Deleting an absent id is not
// an error.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	return c.db.Remove(ctx, c.table, id)
}

// Count returns the number of stored entities.
func (c *Collection[T, P]) Count(ctx context.Context) (int, error) {
	return c.db.Count(ctx, c.table)
}

// Subscribe calls fn after every commit to this table.
func (c *Collection[T, P]) Subscribe(fn func()) (unsubscribe func(), err error) {
	return c.db.Subscribe(c.table, fn)
}

func (c *Collection[T, P]) row(v *T) (store.Row, error) {
	if v == nil {
		return store.Row{}, fmt.Errorf("%s: nil entity", c.table)
	}
	if val, ok := any(v).(validator); ok {
		if err := val.Validate(); err != nil {
			return store.Row{}, &db.Error{Code: db.CodeMutationFailed, Op: "validate", Table: c.table, Err: err}
		}
	}
	payload, err := encodePayload(v)
	if err != nil {
		return store.Row{}, fmt.Errorf("encode %s payload: %w", c.table, err)
	}
	row := store.Row{ID: P(v).RowID(), Payload: payload}
	if ts, ok := any(v).(timestamped); ok && c.ordered {
		row.OrderingKey = store.Key(ts.Timestamp())
	}
	return row, nil
}

func (c *Collection[T, P]) decodeRows(rows []store.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		var v T
		if err := decodePayload(c.table, r.ID, r.Payload, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
