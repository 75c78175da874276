package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/tabsync/internal/model"
	"github.com/roach88/tabsync/internal/schema"
	"github.com/roach88/tabsync/internal/tables"
)

// entityTable is the untyped view of one façade table used by commands.
type entityTable interface {
	// Add decodes one JSON entity and adds it, returning its row id.
	Add(ctx context.Context, raw []byte) (string, error)
	Get(ctx context.Context, id string) (any, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) (any, error)
}

// pagedTable is implemented by ordered tables.
type pagedTable interface {
	Page(ctx context.Context, limit int, cursor *int64) (items any, next *int64, err error)
}

type collectionAdapter[T any, P tables.Record[T]] struct {
	c *tables.Collection[T, P]
}

func (a collectionAdapter[T, P]) Add(ctx context.Context, raw []byte) (string, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid %s entity: %w", a.c.Table(), err)
	}
	if err := a.c.Add(ctx, &v); err != nil {
		return "", err
	}
	return P(&v).RowID(), nil
}

func (a collectionAdapter[T, P]) Get(ctx context.Context, id string) (any, bool, error) {
	return a.c.Get(ctx, id)
}

func (a collectionAdapter[T, P]) Delete(ctx context.Context, id string) error {
	return a.c.Delete(ctx, id)
}

func (a collectionAdapter[T, P]) List(ctx context.Context) (any, error) {
	return a.c.GetAll(ctx)
}

type orderedAdapter[T any, P tables.Record[T]] struct {
	collectionAdapter[T, P]
	o *tables.Ordered[T, P]
}

func (a orderedAdapter[T, P]) Page(ctx context.Context, limit int, cursor *int64) (any, *int64, error) {
	page, err := a.o.GetPage(ctx, limit, cursor)
	if err != nil {
		return nil, nil, err
	}
	return page.Items, page.NextCursor, nil
}

func ordered[T any, P tables.Record[T]](o *tables.Ordered[T, P]) orderedAdapter[T, P] {
	return orderedAdapter[T, P]{collectionAdapter[T, P]{o.Collection}, o}
}

// entityTables maps every table name to its adapter.
func entityTables(t *tables.Tables) map[string]entityTable {
	return map[string]entityTable{
		schema.Users:         collectionAdapter[model.User, *model.User]{t.Users.Collection},
		schema.Posts:         ordered(t.Posts),
		schema.Groups:        collectionAdapter[model.Group, *model.Group]{t.Groups},
		schema.Chats:         collectionAdapter[model.Chat, *model.Chat]{t.Chats.Collection},
		schema.Notifications: ordered(t.Notifications),
		schema.Relationships: collectionAdapter[model.Relationship, *model.Relationship]{t.Relationships.Collection},
		schema.VIPAccess:     collectionAdapter[model.VIPAccess, *model.VIPAccess]{t.VIPAccess.Collection},
		schema.Marketplace:   ordered(t.Marketplace),
		schema.Ads:           ordered(t.Ads),
	}
}

// lookupTable returns the adapter for name or a command error.
func lookupTable(s *session, name string) (entityTable, error) {
	et, ok := entityTables(s.tables)[name]
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown table %q", name))
	}
	return et, nil
}

// rowID builds a row id from one id, or from two ids for pair tables.
func rowID(ids []string) string {
	if len(ids) == 2 {
		return model.PairKey(ids[0], ids[1])
	}
	return ids[0]
}
