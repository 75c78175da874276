package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteResult is the result of the delete command.
type DeleteResult struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

func (r DeleteResult) String() string {
	return fmt.Sprintf("deleted %s %s", r.Table, r.ID)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id> [<second-id>]",
		Short: "Delete an entity",
		Long: `Delete the entity stored under id. Deleting an absent id still
commits and notifies.

Examples:
  tabsync delete posts 0190c6b2-7f1e-7c4a-9d7e-2f1a5b6c7d8e
  tabsync delete relationships u1 u2`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return deleteEntity(ctx, s, rootOpts.formatter(cmd), args[0], rowID(args[1:]))
			})
		},
	}
}

func deleteEntity(ctx context.Context, s *session, out *OutputFormatter, table, id string) error {
	et, err := lookupTable(s, table)
	if err != nil {
		return err
	}
	if err := et.Delete(ctx, id); err != nil {
		return commitError(err)
	}
	out.VerboseLog("committed delete %s %s", table, id)
	return out.Success(DeleteResult{Table: table, ID: id})
}
