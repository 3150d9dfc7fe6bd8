package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whx4/wxc/internal/query"
	"github.com/whx4/wxc/internal/store"
)

// NewQueryCommand creates the query command: compile a filters file and
// execute it against a SQLite content database.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "query <filters-file>",
		Short:         "Run a filters file against a content database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite content database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *RootOptions, filtersPath, dbPath string, cmd *cobra.Command) error {
	if _, err := os.Stat(dbPath); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	filters, err := loadFilters(filtersPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading filters", err)
	}

	reg, err := loadRegistry(opts)
	if err != nil {
		return err
	}

	log := logger(opts)
	st, err := store.Open(dbPath, store.WithLogger(log))
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	q := query.New(reg, st, query.WithLogger(log))
	result, err := q.Find(cmd.Context(), filters)
	if err != nil {
		return WrapExitError(ExitFailure, "running query", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.JSON(result)
	}

	out.Line("found %d item(s), %d page(s)", result.TotalFound, result.TotalPages)
	for _, item := range result.Items {
		line := fmt.Sprintf("%-12s %-30s %s", item.ID, item.Title, item.PublishedAt)
		out.Line("%s", line)
	}
	return nil
}
