package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Row is one stored entity.
type Row struct {
	ID string
	// OrderingKey is set on rows of ordered tables and nil elsewhere.
	OrderingKey *int64
	Payload     []byte
}

// Key returns a pointer to k, for building rows of ordered tables.
func Key(k int64) *int64 {
	return &k
}

// Op is the kind of a mutation.
type Op int

const (
	// OpPut inserts or replaces a row.
	OpPut Op = iota + 1
	// OpRemove deletes a row if present.
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpPut:
		return "put"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Mutation is a single row change.
type Mutation struct {
	Op  Op
	Row Row
}

// PutRow returns an insert-or-replace mutation.
func PutRow(row Row) Mutation {
	return Mutation{Op: OpPut, Row: row}
}

// RemoveRow returns a delete mutation for id.
func RemoveRow(id string) Mutation {
	return Mutation{Op: OpRemove, Row: Row{ID: id}}
}

// Put inserts or replaces a row.
func (s *Store) Put(ctx context.Context, table string, row Row) error {
	_, err := s.Apply(ctx, table, []Mutation{PutRow(row)}, "")
	return err
}

// Remove deletes a row. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, table, id string) error {
	_, err := s.Apply(ctx, table, []Mutation{RemoveRow(id)}, "")
	return err
}

// Apply runs muts against table in one transaction and bumps the commit
// generation. origin is recorded as the last writer. Either every mutation
// is applied or none is.
//
// Returns the new generation.
func (s *Store) Apply(ctx context.Context, table string, muts []Mutation, origin string) (int64, error) {
	db, ordered, exists, err := s.lookup(table)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("apply to %q: %w", table, ErrUnknownTable)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("apply to %q: begin tx: %w", table, err)
	}
	defer tx.Rollback() // No-op if committed

	for i, m := range muts {
		if m.Row.ID == "" {
			return 0, fmt.Errorf("apply to %q: mutation %d: empty id", table, i)
		}

		switch m.Op {
		case OpPut:
			if ordered {
				var key int64
				if m.Row.OrderingKey != nil {
					key = *m.Row.OrderingKey
				}
				_, err = tx.ExecContext(ctx, fmt.Sprintf(`
					INSERT INTO %s (id, ordering_key, payload) VALUES (?, ?, ?)
					ON CONFLICT(id) DO UPDATE SET ordering_key = excluded.ordering_key, payload = excluded.payload
				`, quoteIdent(table)), m.Row.ID, key, payloadBytes(m.Row.Payload))
			} else {
				_, err = tx.ExecContext(ctx, fmt.Sprintf(`
					INSERT INTO %s (id, payload) VALUES (?, ?)
					ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
				`, quoteIdent(table)), m.Row.ID, payloadBytes(m.Row.Payload))
			}
		case OpRemove:
			_, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoteIdent(table)), m.Row.ID)
		default:
			return 0, fmt.Errorf("apply to %q: mutation %d: unknown %s", table, i, m.Op)
		}
		if err != nil {
			return 0, fmt.Errorf("apply to %q: %s %q: %w", table, m.Op, m.Row.ID, err)
		}
	}

	gen, err := bumpGeneration(ctx, tx, origin)
	if err != nil {
		return 0, fmt.Errorf("apply to %q: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("apply to %q: commit: %w", table, err)
	}
	return gen, nil
}

func bumpGeneration(ctx context.Context, tx *sql.Tx, origin string) (int64, error) {
	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT value FROM _meta WHERE key = 'generation'`).Scan(&raw); err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", raw, err)
	}
	gen++

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO _meta (key, value) VALUES ('generation', ?), ('origin', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.FormatInt(gen, 10), origin); err != nil {
		return 0, fmt.Errorf("write generation: %w", err)
	}
	return gen, nil
}

// payloadBytes keeps the NOT NULL constraint satisfied for empty payloads.
func payloadBytes(p []byte) []byte {
	if p == nil {
		return []byte{}
	}
	return p
}
