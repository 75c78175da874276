package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tabsync/internal/schema"
)

// ErrNotReady is returned by every operation on a store that was never
// opened or has been closed.
var ErrNotReady = errors.New("engine not ready")

// ErrUnknownTable is returned when a mutation targets a table that was
// never created.
var ErrUnknownTable = errors.New("unknown table")

// Store is the in-memory relational engine.
type Store struct {
	mu sync.RWMutex
	db *sql.DB

	// ordered maps every created table to whether it carries ordering_key.
	ordered map[string]bool
}

// Open creates an empty in-memory engine.
//
// Only the _meta table exists afterwards; callers create their tables with
// [Store.CreateTable].
func Open() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The in-memory database belongs to one connection. Never let the pool
	// open a second one or retire the first.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{db: db, ordered: make(map[string]bool)}
	if err := s.ensureMeta(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the engine. Later calls fail with ErrNotReady.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// applyPragmas sets SQLite configuration for a purely in-memory database.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) ensureMeta(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		INSERT INTO _meta (key, value) VALUES ('generation', '0'), ('origin', '')
		ON CONFLICT(key) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// CreateTable creates a table if it does not exist yet. Calling it again
// for an existing table is a no-op, even if ordered differs.
func (s *Store) CreateTable(ctx context.Context, name string, ordered bool) error {
	if !schema.ValidName(name) {
		return fmt.Errorf("create table %q: invalid name", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotReady
	}
	if _, ok := s.ordered[name]; ok {
		return nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id      TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`, quoteIdent(name))
	if ordered {
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           TEXT PRIMARY KEY,
			ordering_key INTEGER NOT NULL DEFAULT 0,
			payload      BLOB NOT NULL
		)`, quoteIdent(name))
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}

	// An imported image may already hold the table with its own shape.
	has, err := hasOrderingKey(ctx, s.db, name)
	if err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}
	s.ordered[name] = has
	return nil
}

// Tables returns the names of all created tables and whether each is
// ordered.
func (s *Store) Tables() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.ordered))
	for name, ordered := range s.ordered {
		out[name] = ordered
	}
	return out
}

// lookup returns the live handle and the table's shape.
func (s *Store) lookup(table string) (db *sql.DB, ordered, exists bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, false, false, ErrNotReady
	}
	ordered, exists = s.ordered[table]
	return s.db, ordered, exists, nil
}

// reloadTables rebuilds the table map from sqlite_master after an import.
// Caller holds s.mu.
func (s *Store) reloadTables(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != '_meta'
	`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	ordered := make(map[string]bool, len(names))
	for _, name := range names {
		if !schema.ValidName(name) {
			continue
		}
		has, err := hasOrderingKey(ctx, s.db, name)
		if err != nil {
			return err
		}
		ordered[name] = has
	}
	s.ordered = ordered
	return nil
}

func hasOrderingKey(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = 'ordering_key'`, table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect table %q: %w", table, err)
	}
	return count > 0, nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
