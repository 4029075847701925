package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/loader"
	"github.com/roach88/persistsql/internal/store"
	"github.com/roach88/persistsql/internal/syntax"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Run      string // show one run
	At       string // show every recorded rewrite of one query
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show rewrite runs recorded with rewrite --record",
		Long: `List the rewrite runs recorded in a database, oldest first.

With --run, show the documents, rewrites and abandoned queries of one run.
With --at file:line:col, show every recorded rewrite of one query.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.At, "at", "", "query location file:line:col")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, nil, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeNotFound, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	switch {
	case opts.Run != "":
		run, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, sql.ErrNoRows) {
			return outputCommandError(formatter, loader.ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.Run))
		}
		if err != nil {
			return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
		}
		if formatter.JSON() {
			return formatter.Success(run)
		}
		outputRunText(formatter, run)

	case opts.At != "":
		loc, err := syntax.ParseLocation(opts.At)
		if err != nil {
			return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
		}
		rewrites, err := st.ReadRewritesAt(ctx, loc)
		if err != nil {
			return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
		}
		if formatter.JSON() {
			return formatter.Success(rewrites)
		}
		fmt.Fprintf(formatter.Writer, "%d rewrite(s) recorded at %s\n", len(rewrites), opts.At)
		for _, rw := range rewrites {
			fmt.Fprintf(formatter.Writer, "  %s\n", rw.Rewritten)
		}

	default:
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
		}
		if formatter.JSON() {
			return formatter.Success(runs)
		}
		fmt.Fprintf(formatter.Writer, "%d run(s)\n", len(runs))
		for _, r := range runs {
			fmt.Fprintf(formatter.Writer, "  %d  %s  %s  %d rewritten, %d abandoned\n",
				r.Seq, r.ID, r.Package, r.Rewrites, r.Abandoned)
		}
	}
	return nil
}

func outputRunText(formatter *OutputFormatter, run store.Run) {
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d) of %s\n", run.ID, run.Seq, run.Package)
	for _, d := range run.Documents {
		fmt.Fprintf(w, "\n%s\n", d.Name)
		for _, rw := range d.Rewrites {
			fmt.Fprintf(w, "  %s %s %v\n", rw.Location, rw.Table, rw.Clauses)
		}
		for _, ab := range d.Abandoned {
			fmt.Fprintf(w, "  ! %s %s: %s\n", ab.Location, ab.Table, ab.Reason)
		}
	}
}
