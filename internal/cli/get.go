package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// jsonText prints a value as indented JSON in text mode.
type jsonText struct {
	v any
}

func (j jsonText) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.v)
}

func (j jsonText) writeText(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(j.v)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id> [<second-id>]",
		Short: "Print one entity",
		Long: `Print the entity stored under id.

Pair tables (relationships, vip_access) accept the two foreign ids instead
of the joined row id.

Examples:
  tabsync get users 0190c6b2-7f1e-7c4a-9d7e-2f1a5b6c7d8e
  tabsync get vip_access userA groupB`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return getEntity(ctx, s, rootOpts.formatter(cmd), args[0], rowID(args[1:]))
			})
		},
	}
}

func getEntity(ctx context.Context, s *session, out *OutputFormatter, table, id string) error {
	et, err := lookupTable(s, table)
	if err != nil {
		return err
	}

	v, ok, err := et.Get(ctx, id)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read entity", err)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("%s %q not found", table, id))
	}
	return out.Success(jsonText{v})
}
