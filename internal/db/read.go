package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tabsync/internal/store"
)

// Reads always serve from the in-memory engine; the blob store is never
// consulted. Unknown tables and absent rows are not errors.

// Scan returns every row of table in no particular order.
func (d *DB) Scan(ctx context.Context, table string) ([]store.Row, error) {
	engine, err := d.reader("scan")
	if err != nil {
		return nil, err
	}
	rows, err := engine.Scan(ctx, table)
	return rows, d.readErr("scan", table, err)
}

// ScanOrdered returns rows of an ordered table newest first. With before
// set, only rows whose ordering key is strictly lower are returned. A limit
// of zero or less means no limit.
func (d *DB) ScanOrdered(ctx context.Context, table string, before *int64, limit int) ([]store.Row, error) {
	engine, err := d.reader("scan")
	if err != nil {
		return nil, err
	}
	rows, err := engine.ScanOrdered(ctx, table, before, limit)
	return rows, d.readErr("scan", table, err)
}

// Get looks up one row by id.
func (d *DB) Get(ctx context.Context, table, id string) (store.Row, bool, error) {
	engine, err := d.reader("get")
	if err != nil {
		return store.Row{}, false, err
	}
	row, ok, err := engine.Get(ctx, table, id)
	return row, ok, d.readErr("get", table, err)
}

// Count returns the number of rows in table.
func (d *DB) Count(ctx context.Context, table string) (int, error) {
	engine, err := d.reader("count")
	if err != nil {
		return 0, err
	}
	n, err := engine.Count(ctx, table)
	return n, d.readErr("count", table, err)
}

// Generation returns the commit generation of the in-memory state and the
// origin of the DB that produced it.
func (d *DB) Generation(ctx context.Context) (int64, string, error) {
	engine, err := d.reader("generation")
	if err != nil {
		return 0, "", err
	}
	gen, origin, err := engine.Generation(ctx)
	return gen, origin, d.readErr("generation", "", err)
}

func (d *DB) reader(op string) (*store.Store, error) {
	if err := d.ready(op); err != nil {
		return nil, err
	}
	return d.engine.Load(), nil
}

func (d *DB) readErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotReady) {
		return &Error{Code: CodeEngineUnavailable, Op: op, Table: table, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
