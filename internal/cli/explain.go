package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/compiler"
	"github.com/roach88/persistsql/internal/querysql"
	"github.com/roach88/persistsql/internal/syntax"
)

// Query statuses reported by explain.
const (
	StatusAccepted  = "accepted"
	StatusAbandoned = "abandoned"
	StatusSkipped   = "skipped"
	StatusRejected  = "rejected"
	StatusIgnored   = "ignored" // not a persist client call
)

// ExplainEntry describes the outcome for one query pipeline.
type ExplainEntry struct {
	Document    syntax.DocumentID     `json:"document"`
	Location    syntax.Location       `json:"location"`
	Status      string                `json:"status"`
	Table       string                `json:"table,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
	Clauses     []ExplainClause       `json:"clauses,omitempty"`
	SQL         string                `json:"sql,omitempty"`
	Parameters  []string              `json:"parameters,omitempty"`
}

// ExplainClause is one compiled clause argument.
type ExplainClause struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <manifest-dir>",
		Short: "Show how every query pipeline is classified and compiled",
		Long: `List every query pipeline of the package with its outcome: accepted
queries with their compiled clause templates and the equivalent SQL
statement, skipped queries with the reason, rejected queries with their
diagnostics, and accepted queries whose clauses could not be compiled.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExplain(opts *RootOptions, dir string, cmd *cobra.Command) error {
	s, err := openSession(opts, dir, cmd)
	if err != nil {
		return err
	}
	entries := explainAll(s)

	if s.formatter.JSON() {
		return s.formatter.Success(entries)
	}
	outputExplainText(s.formatter, entries)
	return nil
}

// explainAll classifies every pipeline again against the session catalog.
// Classification is pure, so the outcomes match the session result.
func explainAll(s *session) []ExplainEntry {
	entries := []ExplainEntry{}
	for _, e := range s.load.Package.Documents() {
		for _, p := range e.Doc.Pipelines() {
			entries = append(entries, explainPipeline(e.ID, p, compiler.Classify(p, s.result.Catalog)))
		}
	}
	return entries
}

func explainPipeline(doc syntax.DocumentID, p *syntax.QueryPipeline, out compiler.Outcome) ExplainEntry {
	entry := ExplainEntry{Document: doc, Location: p.Pos()}
	switch {
	case out.Accepted():
		entry.Table = out.Query.Table
		compiled, err := querysql.CompilePipeline(p, out.Query.Table)
		if err != nil {
			entry.Status = StatusAbandoned
			entry.Reason = err.Error()
			return entry
		}
		entry.Status = StatusAccepted
		for _, nc := range compiled.Clauses() {
			entry.Clauses = append(entry.Clauses, ExplainClause{Name: nc.Name, Template: nc.Stream.Template()})
		}
		entry.SQL = querysql.SQL(compiled)
		for _, slot := range querysql.Placeholders(compiled) {
			entry.Parameters = append(entry.Parameters, slot.Source())
		}
	case out.Skip == compiler.SkipNotClientCall:
		entry.Status = StatusIgnored
		entry.Reason = string(out.Skip)
	case len(out.Diagnostics) > 0:
		entry.Status = StatusRejected
		entry.Diagnostics = out.Diagnostics
	default:
		entry.Status = StatusSkipped
		entry.Reason = string(out.Skip)
	}
	return entry
}

// outputExplainText outputs explain entries in text form.
func outputExplainText(formatter *OutputFormatter, entries []ExplainEntry) {
	w := formatter.Writer
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s", e.Location, e.Status)
		if e.Table != "" {
			fmt.Fprintf(w, "  %s", e.Table)
		}
		fmt.Fprintln(w)

		if e.Reason != "" {
			fmt.Fprintf(w, "    reason: %s\n", e.Reason)
		}
		for _, d := range e.Diagnostics {
			fmt.Fprintf(w, "    %s [%s] %s\n", d.Severity, d.Code, d.Message)
		}
		for _, c := range e.Clauses {
			fmt.Fprintf(w, "    %s = `%s`\n", c.Name, c.Template)
		}
		if e.SQL != "" {
			fmt.Fprintf(w, "    sql: %s\n", e.SQL)
		}
		if len(e.Parameters) > 0 {
			fmt.Fprintf(w, "    parameters: %v\n", e.Parameters)
		}
	}
}
