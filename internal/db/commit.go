package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tabsync/internal/snapshot"
	"github.com/roach88/tabsync/internal/store"
)

// Put inserts or replaces one row in table and commits.
func (d *DB) Put(ctx context.Context, table string, row store.Row) error {
	return d.Commit(ctx, table, store.PutRow(row))
}

// Remove deletes one row from table and commits. Removing an absent id
// still commits and notifies.
func (d *DB) Remove(ctx context.Context, table, id string) error {
	return d.Commit(ctx, table, store.RemoveRow(id))
}

// Commit applies muts to table as one unit:
//
//  1. the mutations run in one engine transaction; on failure nothing else
//     happens and a CodeMutationFailed error is returned
//  2. the full image is exported and written to the blob store; on failure
//     a CodePersistenceFailed error is returned and nobody is notified,
//     though the engine keeps the mutation
//  3. local subscribers of table and of the wildcard are notified
//  4. the change is announced on the bus, if any
//
// Commits within one DB are serialized. Commit with no mutations is a no-op.
func (d *DB) Commit(ctx context.Context, table string, muts ...store.Mutation) error {
	if err := d.ready("commit"); err != nil {
		return err
	}
	if len(muts) == 0 {
		return nil
	}

	gen, err := d.apply(ctx, table, muts)
	if err != nil {
		return err
	}

	notified := d.registry.Notify(table)
	d.logger.Debug("committed", "table", table, "generation", gen, "mutations", len(muts), "notified", notified)

	if d.bus != nil {
		// The commit is durable at this point; a lost announcement only
		// delays other contexts until their next change.
		if err := d.bus.Announce(ctx, table); err != nil {
			d.logger.Warn("announce failed", "table", table, "generation", gen, "error", err)
		}
	}
	return nil
}

// apply runs steps 1 and 2 of Commit under the commit lock.
func (d *DB) apply(ctx context.Context, table string, muts []store.Mutation) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Close may have won the race for the lock.
	if err := d.ready("commit"); err != nil {
		return 0, err
	}

	gen, err := d.engine.Load().Apply(ctx, table, muts, d.origin)
	if err != nil {
		code := CodeMutationFailed
		if errors.Is(err, store.ErrNotReady) {
			code = CodeEngineUnavailable
		}
		return 0, &Error{Code: code, Op: "commit", Table: table, Err: err}
	}

	if err := d.persist(ctx); err != nil {
		return 0, &Error{Code: CodePersistenceFailed, Op: "commit", Table: table, Err: err}
	}
	return gen, nil
}

// persist exports the whole engine and writes it under the snapshot key.
// Caller holds d.mu, or is bootstrapping.
func (d *DB) persist(ctx context.Context) error {
	image, err := d.engine.Load().ExportImage(ctx)
	if err != nil {
		return err
	}
	if err := d.blob.Put(ctx, d.key, snapshot.Encode(image)); err != nil {
		return fmt.Errorf("write snapshot %q: %w", d.key, err)
	}
	return nil
}
