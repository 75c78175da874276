package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrBadImage is returned by ImportImage when the bytes are not a database
// image. The engine keeps its previous state.
var ErrBadImage = errors.New("invalid database image")

// ExportImage serializes every table, including _meta, into one byte
// sequence.
func (s *Store) ExportImage(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotReady
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("export image: %w", err)
	}
	defer conn.Close()

	var image []byte
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		var err error
		image, err = c.Serialize("main")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export image: %w", err)
	}
	return image, nil
}

// ImportImage replaces the entire engine state with a previously exported
// image. The image is first opened in a scratch database; only if it reads
// back as a valid database is it copied over the live one.
func (s *Store) ImportImage(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("import image: %w: empty", ErrBadImage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotReady
	}

	scratch, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("import image: open scratch: %w", err)
	}
	defer scratch.Close()
	scratch.SetMaxOpenConns(1)

	src, err := scratch.Conn(ctx)
	if err != nil {
		return fmt.Errorf("import image: %w", err)
	}
	defer src.Close()

	err = src.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return c.Deserialize(image, "main")
	})
	if err != nil {
		return fmt.Errorf("import image: %w: %v", ErrBadImage, err)
	}

	var check string
	if err := src.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&check); err != nil {
		return fmt.Errorf("import image: %w: %v", ErrBadImage, err)
	}
	if check != "ok" {
		return fmt.Errorf("import image: %w: %s", ErrBadImage, check)
	}

	dst, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("import image: %w", err)
	}
	defer dst.Close()

	err = dst.Raw(func(dstDriver any) error {
		dc, ok := dstDriver.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dstDriver)
		}
		return src.Raw(func(srcDriver any) error {
			sc, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", srcDriver)
			}
			return copyDatabase(dc, sc)
		})
	})
	if err != nil {
		return fmt.Errorf("import image: %w", err)
	}

	// Release the pinned connection before running statements on the pool.
	dst.Close()

	if err := s.ensureMeta(ctx); err != nil {
		return fmt.Errorf("import image: %w", err)
	}
	if err := s.reloadTables(ctx); err != nil {
		return fmt.Errorf("import image: %w", err)
	}
	return nil
}

// copyDatabase overwrites dst's main database with src's using the online
// backup API, so the live database stays a regular writable in-memory one.
func copyDatabase(dst, src *sqlite3.SQLiteConn) error {
	backup, err := dst.Backup("main", src, "main")
	if err != nil {
		return fmt.Errorf("start backup: %w", err)
	}
	done, err := backup.Step(-1)
	if err != nil {
		_ = backup.Finish()
		return fmt.Errorf("backup step: %w", err)
	}
	if !done {
		_ = backup.Finish()
		return fmt.Errorf("backup did not complete")
	}
	if err := backup.Finish(); err != nil {
		return fmt.Errorf("finish backup: %w", err)
	}
	return nil
}
