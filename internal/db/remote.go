package db

import (
	"context"
	"fmt"

	"github.com/roach88/tabsync/internal/bus"
)

// handleRemote is the bus receive path.
//
// By default the event is only forwarded to subscribers: the engine is not
// reloaded and keeps serving its own, possibly stale, rows. With remote
// reload on, the stored snapshot replaces the engine state first. Neither
// path announces on the bus, so an event never echoes back.
func (d *DB) handleRemote(m bus.Message) {
	if m.Type != bus.TypeDBUpdate {
		d.logger.Debug("ignoring bus message", "type", m.Type)
		return
	}
	if _, ok := d.tables[m.Table]; !ok {
		d.logger.Debug("ignoring update for unknown table", "table", m.Table)
		return
	}
	if d.State() != StateReady {
		return
	}

	if d.remoteReload {
		if err := d.reload(context.Background(), m.Table); err != nil {
			d.logger.Warn("remote reload failed, keeping local state", "table", m.Table, "error", err)
		}
	}
	d.registry.Notify(m.Table)
}

// reload imports the stored snapshot into the engine. Commits wait for it.
func (d *DB) reload(ctx context.Context, table string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State() != StateReady {
		return nil
	}

	d.applyingRemote.Store(true)
	defer d.applyingRemote.Store(false)

	engine := d.engine.Load()
	localGen, localOrigin, err := engine.Generation(ctx)
	if err != nil {
		return err
	}

	text, found, err := d.blob.Get(ctx, d.key)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if !found {
		return fmt.Errorf("snapshot %q missing", d.key)
	}
	if err := importSnapshot(ctx, engine, text); err != nil {
		return &Error{Code: CodeDecodeFailed, Op: "reload", Table: table, Err: err}
	}
	// Snapshots written by an older catalog may lack tables.
	for _, t := range d.catalog {
		if err := engine.CreateTable(ctx, t.Name, t.Ordered); err != nil {
			return err
		}
	}

	gen, origin, err := engine.Generation(ctx)
	if err != nil {
		return err
	}
	switch {
	case gen == localGen && origin == localOrigin:
		d.logger.Debug("remote snapshot unchanged", "table", table, "generation", gen)
	case origin != localOrigin && localOrigin == d.origin && gen <= localGen:
		// Last writer wins: our commits since the other writer's base are gone.
		d.logger.Warn("remote snapshot replaced local commits",
			"table", table, "generation", gen, "origin", origin, "local_generation", localGen)
	default:
		d.logger.Info("reloaded remote snapshot",
			"table", table, "generation", gen, "origin", origin, "local_generation", localGen)
	}
	return nil
}
