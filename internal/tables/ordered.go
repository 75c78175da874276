package tables

import (
	"context"

	"github.com/roach88/tabsync/internal/store"
)

// Ordered is a time-ordered table: rows carry the entity timestamp as
// ordering key and read newest first.
type Ordered[T any, P Record[T]] struct {
	*Collection[T, P]
}

// Page is one page of an ordered table.
type Page[T any] struct {
	Items []T

	// NextCursor is the ordering key of the last item when the page is
	// full, nil otherwise. Passing it to GetPage returns the next page.
	NextCursor *int64
}

// GetPage returns up to limit entities, newest first. With cursor set,
// only entities strictly older than *cursor are returned; entities sharing
// the cursor's timestamp are skipped. A limit of zero or less yields an
// empty page.
func (o *Ordered[T, P]) GetPage(ctx context.Context, limit int, cursor *int64) (Page[T], error) {
	if limit <= 0 {
		if _, err := o.Count(ctx); err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: []T{}}, nil
	}
	rows, err := o.db.ScanOrdered(ctx, o.table, cursor, limit)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := o.decodeRows(rows)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: items}
	if len(rows) == limit {
		if last := rows[len(rows)-1]; last.OrderingKey != nil {
			page.NextCursor = store.Key(*last.OrderingKey)
		}
	}
	return page, nil
}

// Mapped is a table whose entities are also served as a map keyed by id.
type Mapped[T any, P Record[T]] struct {
	*Collection[T, P]
}

// GetAllMap returns every entity keyed by row id.
func (m *Mapped[T, P]) GetAllMap(ctx context.Context) (map[string]T, error) {
	all, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(all))
	for i := range all {
		out[P(&all[i]).RowID()] = all[i]
	}
	return out, nil
}
