package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/tabsync/internal/blob"
	"github.com/roach88/tabsync/internal/bus"
	"github.com/roach88/tabsync/internal/config"
	"github.com/roach88/tabsync/internal/db"
	"github.com/roach88/tabsync/internal/tables"
)

// session is one CLI context attached to the configured stores.
type session struct {
	db     *db.DB
	tables *tables.Tables
	blob   blob.Store
	bus    bus.Bus
}

// openSession opens the blob store and bus from cfg and bootstraps a DB
// over them. The caller must Close the session.
func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	logger := slog.Default()
	origin := uuid.Must(uuid.NewV7()).String()

	bs, err := openBlob(cfg.Blob)
	if err != nil {
		return nil, err
	}

	s := &session{blob: bs}
	opts := []db.Option{
		db.WithKey(cfg.Blob.Key),
		db.WithOrigin(origin),
		db.WithLogger(logger),
		db.WithRemoteReload(cfg.RemoteReload),
	}

	if cfg.Bus.Backend == config.BusDir {
		dir, err := bus.NewDir(cfg.Bus.Path,
			bus.WithLogger(logger),
			bus.WithRetention(cfg.Bus.Retention),
			bus.WithOrigin(origin),
		)
		if err != nil {
			bs.Close()
			return nil, fmt.Errorf("open bus: %w", err)
		}
		s.bus = dir
		opts = append(opts, db.WithBus(dir))
	}

	d, err := db.Open(ctx, bs, opts...)
	s.db = d
	if err != nil {
		s.Close()
		return nil, err
	}
	s.tables = tables.New(d)
	return s, nil
}

func openBlob(cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Backend {
	case config.BlobMemory:
		return blob.NewMemory(), nil
	case config.BlobFile:
		st, err := blob.NewFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return st, nil
	case config.BlobBolt:
		st, err := blob.NewBolt(cfg.Path, blob.WithBoltLogger(slog.Default()))
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// Close releases the DB, bus and blob store.
func (s *session) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.bus != nil {
		errs = append(errs, s.bus.Close())
	}
	if s.blob != nil {
		errs = append(errs, s.blob.Close())
	}
	return errors.Join(errs...)
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()
	opts.formatter(cmd).VerboseLog("opened %s store (key %s) as origin %s",
		opts.Config.Blob.Backend, opts.Config.Blob.Key, s.db.Origin())

	return fn(ctx, s)
}
