package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabsync/internal/db"
)

// PutResult is the result of the put command.
type PutResult struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

func (r PutResult) String() string {
	return fmt.Sprintf("put %s %s", r.Table, r.ID)
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <table> <json|->",
		Short: "Add or replace an entity",
		Long: `Commit one entity given as JSON, read from stdin when the argument is "-".

An entity without an id gets a generated one; an entity of an ordered
table without a timestamp gets the current time. An existing entity with
the same id is replaced.

Examples:
  tabsync put groups '{"id":"g1","name":"hikers","owner_id":"u1"}'
  tabsync put posts '{"author_id":"u1","text":"hello"}'
  echo '{"user_id":"u1","group_id":"g1","status":"active"}' | tabsync put vip_access -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(args[1])
			if args[1] == "-" {
				var err error
				raw, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read stdin", err)
				}
			}
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return putEntity(ctx, s, rootOpts.formatter(cmd), args[0], raw)
			})
		},
	}
}

func putEntity(ctx context.Context, s *session, out *OutputFormatter, table string, raw []byte) error {
	et, err := lookupTable(s, table)
	if err != nil {
		return err
	}

	id, err := et.Add(ctx, raw)
	if err != nil {
		return commitError(err)
	}
	out.VerboseLog("committed %s %s", table, id)
	return out.Success(PutResult{Table: table, ID: id})
}

// commitError maps a failed commit to an exit error. Anything the engine
// did not reject is a problem with the input.
func commitError(err error) error {
	code := ExitCommandError
	if db.ErrorCode(err) != "" {
		code = ExitFailure
	}
	return WrapExitError(code, "commit failed", err)
}
