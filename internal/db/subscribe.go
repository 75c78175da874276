package db

import (
	"fmt"

	"github.com/roach88/tabsync/internal/schema"
)

// Subscribe registers fn to run after every commit to key, local or
// announced by another context. key is a catalog table or
// [schema.Wildcard], which matches every table.
//
// Local commits call fn synchronously, before Commit returns. Remote
// announcements call it from the bus delivery goroutine. A panicking fn is
// logged and does not stop other subscribers.
func (d *DB) Subscribe(key string, fn func()) (unsubscribe func(), err error) {
	if err := d.ready("subscribe"); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("subscribe %q: nil callback", key)
	}
	if _, ok := d.tables[key]; !ok && key != schema.Wildcard {
		return nil, fmt.Errorf("subscribe %q: unknown table", key)
	}
	return d.registry.Subscribe(key, fn), nil
}
