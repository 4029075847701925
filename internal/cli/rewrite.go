package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/loader"
	"github.com/roach88/persistsql/internal/rewriter"
	"github.com/roach88/persistsql/internal/store"
)

// RewriteOptions holds flags for the rewrite command.
type RewriteOptions struct {
	*RootOptions
	Diff     bool   // print unified diffs of changed documents
	NoFormat bool   // keep rewritten queries on single lines
	Output   string // directory receiving rewritten documents
	Record   bool   // record the run in the database
	Database string // SQLite path, defaults to persistsql.yaml database
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RewriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rewrite <manifest-dir>",
		Short: "Push query clauses down into persist client calls",
		Long: `Rewrite every accepted query so its where, order by, group by and
limit clauses are passed to the persist client call as SQL templates.

A query whose clauses cannot be compiled is left untouched and reported
as abandoned. The manifests are never modified: rewritten documents are
printed as diffs, written to --output, or recorded with --record.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "print unified diffs of changed documents")
	cmd.Flags().BoolVar(&opts.NoFormat, "no-format", false, "keep rewritten queries on single lines")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "directory receiving rewritten documents")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run in the database")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (default: persistsql.yaml database)")

	return cmd
}

func runRewrite(opts *RewriteOptions, dir string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, dir, cmd)
	if err != nil {
		return err
	}
	formatter := s.formatter

	if s.result.HasErrors() {
		if !formatter.JSON() {
			printDiagnostics(formatter, s.result.Diagnostics)
		}
		first := s.result.Diagnostics[0]
		_ = formatter.Error(first.Code, first.Message, s.result.Diagnostics)
		return NewExitError(ExitFailure, fmt.Sprintf("rewrite refused: %d error(s)", len(s.result.Diagnostics)))
	}

	report, err := rewriter.Rewrite(s.load.Package, s.result, rewriter.Options{
		Format: s.config.Format && !opts.NoFormat,
	})
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("rewriting: %v", err))
	}

	if opts.Output != "" {
		if err := writeDocuments(report, opts.Output); err != nil {
			return outputCommandError(formatter, loader.ErrCodeWriteFailed, fmt.Sprintf("writing output: %v", err))
		}
		formatter.VerboseLog("Wrote %d document(s) to %s", len(report.Edits), opts.Output)
	}

	var recorded *recordResult
	if opts.Record {
		recorded, err = recordRun(cmd.Context(), opts, s, report)
		if err != nil {
			return outputCommandError(formatter, loader.ErrCodeWriteFailed, fmt.Sprintf("recording run: %v", err))
		}
	}

	if formatter.JSON() {
		return formatter.SuccessRun(report.RunID, report)
	}
	return outputRewriteText(formatter, report, opts, recorded)
}

type recordResult struct {
	Seq      int64
	Inserted bool
}

// recordRun writes the report to the store.
func recordRun(ctx context.Context, opts *RewriteOptions, s *session, report *rewriter.Report) (*recordResult, error) {
	path := opts.Database
	if path == "" {
		path = s.config.Database
	}
	if path == "" {
		return nil, fmt.Errorf("no database: pass --db or set database in persistsql.yaml")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	seq, inserted, err := st.WriteRun(ctx, RunRecord(s.load.Package.Name, report))
	if err != nil {
		return nil, err
	}
	return &recordResult{Seq: seq, Inserted: inserted}, nil
}

// RunRecord converts a rewrite report to its stored form.
func RunRecord(pkg string, report *rewriter.Report) store.Run {
	run := store.Run{ID: report.RunID, Package: pkg}
	for _, d := range report.Documents {
		doc := store.Document{
			Name:      d.ID.String(),
			Hash:      d.Hash,
			Formatted: d.Formatted,
		}
		for _, rw := range d.Rewrites {
			doc.Rewrites = append(doc.Rewrites, store.Rewrite{
				ID:        rw.ID,
				Location:  rw.Location,
				Table:     rw.Table,
				Clauses:   rw.Clauses,
				Original:  rw.Original,
				Rewritten: rw.Rewritten,
			})
		}
		for _, ab := range d.Abandoned {
			doc.Abandoned = append(doc.Abandoned, store.Abandoned{
				Location: ab.Location,
				Table:    ab.Table,
				Reason:   ab.Reason,
			})
		}
		run.Documents = append(run.Documents, doc)
	}
	return run
}

// writeDocuments writes every changed document to dir/<module>/<name>.
func writeDocuments(report *rewriter.Report, dir string) error {
	for _, d := range report.Documents {
		if !d.Changed() {
			continue
		}
		path := filepath.Join(dir, d.ID.Module, d.ID.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(d.Text), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// documentDiff returns the unified diff of a document report.
func documentDiff(d rewriter.DocumentReport) (string, error) {
	name := d.ID.Module + "/" + d.ID.Name
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(d.Original),
		B:        difflib.SplitLines(d.Text),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
}

// outputRewriteText outputs the report in text form.
func outputRewriteText(formatter *OutputFormatter, report *rewriter.Report, opts *RewriteOptions, recorded *recordResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Rewrote %d query(ies) in %d document(s), %d abandoned\n",
		report.Rewrites(), len(report.Edits), report.Abandoned())

	for _, d := range report.Documents {
		fmt.Fprintf(w, "\n%s:\n", d.ID)
		for _, rw := range d.Rewrites {
			fmt.Fprintf(w, "  %s %s %v\n", rw.Location, rw.Table, rw.Clauses)
		}
		for _, ab := range d.Abandoned {
			fmt.Fprintf(w, "  ! %s %s: %s\n", ab.Location, ab.Table, ab.Reason)
		}
	}

	if opts.Diff {
		for _, d := range report.Documents {
			if !d.Changed() {
				continue
			}
			diff, err := documentDiff(d)
			if err != nil {
				return outputCommandError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("diffing %s: %v", d.ID, err))
			}
			fmt.Fprintln(w)
			fmt.Fprint(w, diff)
		}
	}

	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote rewritten documents to %s\n", opts.Output)
	}
	if recorded != nil {
		if recorded.Inserted {
			fmt.Fprintf(w, "\nRecorded run %s (seq %d)\n", report.RunID, recorded.Seq)
		} else {
			fmt.Fprintf(w, "\nRun %s already recorded (seq %d)\n", report.RunID, recorded.Seq)
		}
	}
	return nil
}
