package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Scan returns every row of table in no particular order.
// Returns an empty slice (not nil) for an empty or unknown table.
func (s *Store) Scan(ctx context.Context, table string) ([]Row, error) {
	db, ordered, exists, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []Row{}, nil
	}

	query := fmt.Sprintf(`SELECT id, payload FROM %s`, quoteIdent(table))
	if ordered {
		query = fmt.Sprintf(`SELECT id, ordering_key, payload FROM %s`, quoteIdent(table))
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", table, err)
	}
	defer rows.Close()

	return collectRows(table, rows, ordered)
}

// ScanOrdered returns rows of an ordered table newest first: descending
// ordering_key, ties broken by ascending id. When before is non-nil only
// rows with ordering_key strictly less than *before are returned. A limit
// of zero or less means no limit.
//
// Unordered tables are returned in id order and before is ignored.
func (s *Store) ScanOrdered(ctx context.Context, table string, before *int64, limit int) ([]Row, error) {
	db, ordered, exists, err := s.lookup(table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []Row{}, nil
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	var rows *sql.Rows
	switch {
	case !ordered:
		rows, err = db.QueryContext(ctx, fmt.Sprintf(`
			SELECT id, payload FROM %s ORDER BY id COLLATE BINARY ASC LIMIT ?
		`, quoteIdent(table)), limit)
	case before != nil:
		rows, err = db.QueryContext(ctx, fmt.Sprintf(`
			SELECT id, ordering_key, payload FROM %s
			WHERE ordering_key < ?
			ORDER BY ordering_key DESC, id COLLATE BINARY ASC
			LIMIT ?
		`, quoteIdent(table)), *before, limit)
	default:
		rows, err = db.QueryContext(ctx, fmt.Sprintf(`
			SELECT id, ordering_key, payload FROM %s
			ORDER BY ordering_key DESC, id COLLATE BINARY ASC
			LIMIT ?
		`, quoteIdent(table)), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("scan ordered %q: %w", table, err)
	}
	defer rows.Close()

	return collectRows(table, rows, ordered)
}

// Get returns the row with the given id. ok is false when the row or the
// table does not exist.
func (s *Store) Get(ctx context.Context, table, id string) (row Row, ok bool, err error) {
	db, ordered, exists, err := s.lookup(table)
	if err != nil {
		return Row{}, false, err
	}
	if !exists {
		return Row{}, false, nil
	}

	row.ID = id
	if ordered {
		var key int64
		err = db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT ordering_key, payload FROM %s WHERE id = ?`, quoteIdent(table)), id,
		).Scan(&key, &row.Payload)
		row.OrderingKey = &key
	} else {
		err = db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT payload FROM %s WHERE id = ?`, quoteIdent(table)), id,
		).Scan(&row.Payload)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("get %q from %q: %w", id, table, err)
	}
	return row, true, nil
}

// Count returns the number of rows in table; zero for an unknown table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	db, _, exists, err := s.lookup(table)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var n int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(table))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %q: %w", table, err)
	}
	return n, nil
}

// Generation returns the commit generation stored in the engine and the
// origin id of the writer that produced it.
func (s *Store) Generation(ctx context.Context) (gen int64, origin string, err error) {
	db, _, _, err := s.lookup("")
	if err != nil {
		return 0, "", err
	}

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM _meta WHERE key IN ('generation', 'origin')`)
	if err != nil {
		return 0, "", fmt.Errorf("read meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return 0, "", fmt.Errorf("scan meta: %w", err)
		}
		switch k {
		case "generation":
			gen, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("parse generation %q: %w", v, err)
			}
		case "origin":
			origin = v
		}
	}
	if err := rows.Err(); err != nil {
		return 0, "", fmt.Errorf("iterate meta: %w", err)
	}
	return gen, origin, nil
}

func collectRows(table string, rows *sql.Rows, ordered bool) ([]Row, error) {
	out := []Row{}
	for rows.Next() {
		var r Row
		if ordered {
			var key int64
			if err := rows.Scan(&r.ID, &key, &r.Payload); err != nil {
				return nil, fmt.Errorf("scan row of %q: %w", table, err)
			}
			r.OrderingKey = &key
		} else {
			if err := rows.Scan(&r.ID, &r.Payload); err != nil {
				return nil, fmt.Errorf("scan row of %q: %w", table, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", table, err)
	}
	return out, nil
}
