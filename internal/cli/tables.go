package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// TableInfo describes one table for the tables command.
type TableInfo struct {
	Name    string `json:"name"`
	Ordered bool   `json:"ordered"`
	Key     string `json:"key"`
	Rows    int    `json:"rows"`
}

// TableList is the result of the tables command.
type TableList struct {
	Generation int64       `json:"generation"`
	Tables     []TableInfo `json:"tables"`
}

func (l TableList) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tORDERED\tKEY\tROWS")
	for _, t := range l.Tables {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%d\n", t.Name, t.Ordered, t.Key, t.Rows)
	}
	fmt.Fprintf(tw, "\ngeneration %d\n", l.Generation)
	return tw.Flush()
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and their row counts",
		Long: `List every table created at bootstrap with its key convention
and current row count.

Example:
  tabsync tables
  tabsync tables --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return listTables(ctx, s, rootOpts.formatter(cmd))
			})
		},
	}
}

func listTables(ctx context.Context, s *session, out *OutputFormatter) error {
	gen, _, err := s.db.Generation(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read generation", err)
	}

	result := TableList{Generation: gen}
	for _, t := range s.db.Catalog() {
		n, err := s.db.Count(ctx, t.Name)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to count rows", err)
		}
		result.Tables = append(result.Tables, TableInfo{
			Name:    t.Name,
			Ordered: t.Ordered,
			Key:     string(t.Key),
			Rows:    n,
		})
	}
	return out.Success(result)
}
