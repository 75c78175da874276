package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// PageOptions holds flags for the page command.
type PageOptions struct {
	*RootOptions
	Limit  int
	Cursor int64
}

// PageResult is the result of the page command.
type PageResult struct {
	Table      string `json:"table"`
	Items      any    `json:"items"`
	NextCursor *int64 `json:"next_cursor,omitempty"`
}

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "page <table>",
		Short: "Print one page of an ordered table",
		Long: `Print up to --limit entities of an ordered table, newest first.
With --cursor, only entities strictly older than the cursor are listed.
Pass the printed next cursor to get the following page.

Examples:
  tabsync page posts --limit 20
  tabsync page notifications --limit 20 --cursor 1718000000000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return page(ctx, s, opts, cmd, args[0])
			})
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum entities per page")
	cmd.Flags().Int64Var(&opts.Cursor, "cursor", 0, "only list entities older than this ordering key")

	return cmd
}

func page(ctx context.Context, s *session, opts *PageOptions, cmd *cobra.Command, table string) error {
	et, err := lookupTable(s, table)
	if err != nil {
		return err
	}
	pt, ok := et.(pagedTable)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("table %q is not ordered", table))
	}

	var cursor *int64
	if cmd.Flags().Changed("cursor") {
		cursor = &opts.Cursor
	}
	items, next, err := pt.Page(ctx, opts.Limit, cursor)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read page", err)
	}

	result := PageResult{Table: table, Items: items, NextCursor: next}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	out := cmd.OutOrStdout()
	if err := (jsonText{items}).writeText(out); err != nil {
		return err
	}
	if next != nil {
		fmt.Fprintf(out, "next cursor: %d\n", *next)
	}
	return nil
}
