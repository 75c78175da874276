package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tabsync/internal/schema"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Count int
}

// ChangeEvent is printed for every change notification.
type ChangeEvent struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

func (e ChangeEvent) String() string {
	return fmt.Sprintf("changed %s (%d rows)", e.Table, e.Rows)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [table...]",
		Short: "Print change notifications from other contexts",
		Long: `Attach to the bus and print one line per change notification until
interrupted.

Without remote_reload the printed row count is the one loaded at start:
notifications do not refresh this context's tables. With remote_reload
enabled the stored snapshot is reloaded first and the count is current.

Examples:
  tabsync watch
  tabsync watch posts notifications --count 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return watch(ctx, s, opts, cmd, args)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 0, "exit after this many notifications (0 = run until interrupted)")

	return cmd
}

func watch(ctx context.Context, s *session, opts *WatchOptions, cmd *cobra.Command, names []string) error {
	if s.bus == nil {
		return NewExitError(ExitCommandError, `watch needs a bus: set bus.backend to "dir"`)
	}
	if len(names) == 0 {
		for _, t := range s.db.Catalog() {
			names = append(names, t.Name)
		}
	}

	// Per-table subscriptions, since the wildcard does not say which table
	// changed.
	events := make(chan string, 64)
	for _, name := range names {
		if name == schema.Wildcard {
			return NewExitError(ExitCommandError, "name tables to watch, or none for all")
		}
		if _, err := lookupTable(s, name); err != nil {
			return err
		}
		table := name
		unsubscribe, err := s.db.Subscribe(table, func() {
			select {
			case events <- table:
			default:
				slog.Warn("dropping change notification", "table", table)
			}
		})
		if err != nil {
			return WrapExitError(ExitFailure, "failed to subscribe", err)
		}
		defer unsubscribe()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := opts.formatter(cmd)
	fmt.Fprintf(out.GetErrWriter(), "watching %d tables\n", len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		seen := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case table := <-events:
				n, err := s.db.Count(ctx, table)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to count rows", err)
				}
				if err := out.Success(ChangeEvent{Table: table, Rows: n}); err != nil {
					return err
				}
				seen++
				if opts.Count > 0 && seen >= opts.Count {
					return errDone
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Debug("watch stopping", "cause", context.Cause(ctx))
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errDone) {
		return err
	}
	return nil
}

// errDone stops the watch group after --count notifications.
var errDone = errors.New("watch count reached")
