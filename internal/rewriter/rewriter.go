// Package rewriter pushes the compiled clauses of accepted queries down
// into their persist client calls.
//
// For every accepted pipeline the resource call
//
//	client->/products.get(targetType)
//
// is replaced by
//
//	client->/products(targetType, whereClause = ` ...`, orderByClause = ` ...`, ...)
//
// Every intermediate clause of the query stays in place. Replacement
// documents are returned as deferred edits; the input package is never
// modified.
package rewriter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/persistsql/internal/compiler"
	"github.com/roach88/persistsql/internal/format"
	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/queryir"
	"github.com/roach88/persistsql/internal/querysql"
	"github.com/roach88/persistsql/internal/syntax"
)

// IDGenerator produces report run ids.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random UUIDv4 run ids.
type UUIDGenerator struct{}

// Generate implements IDGenerator.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// Options configures a rewrite run.
type Options struct {
	// Format lays out rewritten documents over several lines. Layout is
	// best effort; a document that cannot be laid out is rendered on
	// single lines.
	Format bool

	// IDs generates the report run id. Defaults to UUIDGenerator.
	IDs IDGenerator
}

// QueryRewrite records one query whose clauses were pushed down.
type QueryRewrite struct {
	ID        string          `json:"id"`
	Location  syntax.Location `json:"location"`
	Table     string          `json:"table"`
	Clauses   []string        `json:"clauses"`
	Original  string          `json:"original"`
	Rewritten string          `json:"rewritten"`
}

// Abandoned records an accepted query left untouched because one of its
// clauses could not be compiled.
type Abandoned struct {
	Location syntax.Location `json:"location"`
	Table    string          `json:"table"`
	Reason   string          `json:"reason"`
}

// DocumentReport describes the outcome for one document that holds at
// least one accepted query.
type DocumentReport struct {
	ID        syntax.DocumentID `json:"document"`
	Rewrites  []QueryRewrite    `json:"rewrites"`
	Abandoned []Abandoned       `json:"abandoned,omitempty"`

	// Original and Text are the rendered document before and after the
	// rewrite. Hash is the content hash of Text.
	Original  string `json:"-"`
	Text      string `json:"-"`
	Hash      string `json:"hash,omitempty"`
	Formatted bool   `json:"formatted"`
}

// Changed reports whether any query of the document was rewritten.
func (d *DocumentReport) Changed() bool {
	return len(d.Rewrites) > 0
}

// Report is the result of a rewrite run.
type Report struct {
	RunID     string           `json:"run_id"`
	Documents []DocumentReport `json:"documents"`

	// Edits holds one replacement per changed document, in document order.
	Edits []syntax.Edit `json:"-"`
}

// Rewrites returns the total number of rewritten queries.
func (r *Report) Rewrites() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Rewrites)
	}
	return n
}

// Abandoned returns the total number of abandoned queries.
func (r *Report) Abandoned() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Abandoned)
	}
	return n
}

// Rewrite makes one pass over every production and test document of pkg
// and rewrites the queries accepted in res. res must come from analyzing
// pkg itself: queries are matched by pipeline identity.
func Rewrite(pkg *syntax.Package, res *compiler.Result, opts Options) (*Report, error) {
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	report := &Report{RunID: opts.IDs.Generate()}

	for _, e := range pkg.Documents() {
		dr, edit, err := rewriteDocument(e, res, opts)
		if err != nil {
			return nil, err
		}
		if dr == nil {
			continue
		}
		report.Documents = append(report.Documents, *dr)
		if edit != nil {
			report.Edits = append(report.Edits, *edit)
		}
	}

	slog.Debug("rewrite complete",
		"run_id", report.RunID,
		"documents", len(report.Edits),
		"rewrites", report.Rewrites(),
		"abandoned", report.Abandoned())
	return report, nil
}

type pending struct {
	query    *compiler.Query
	call     *syntax.ResourceAccess
	compiled *querysql.Compiled
}

func rewriteDocument(e syntax.Entry, res *compiler.Result, opts Options) (*DocumentReport, *syntax.Edit, error) {
	var dr *DocumentReport
	var queue []pending
	repl := make(map[syntax.Expr]syntax.Expr)

	for _, p := range e.Doc.Pipelines() {
		q, ok := res.Query(p)
		if !ok {
			continue
		}
		if dr == nil {
			dr = &DocumentReport{ID: e.ID}
		}

		call, compiled, err := RewriteCall(q)
		if err != nil {
			dr.Abandoned = append(dr.Abandoned, Abandoned{
				Location: q.Location(),
				Table:    q.Table,
				Reason:   err.Error(),
			})
			slog.Debug("query abandoned",
				"document", e.ID.String(),
				"location", q.Location().String(),
				"error", err)
			continue
		}
		repl[q.Access] = call
		queue = append(queue, pending{query: q, call: call, compiled: compiled})
	}
	if dr == nil {
		return nil, nil, nil
	}

	dr.Original, _ = render(e.Doc, opts)
	if len(repl) == 0 {
		dr.Text = dr.Original
		return dr, nil, nil
	}

	doc, _ := syntax.Replace(e.Doc, repl)
	dr.Text, dr.Formatted = render(doc, opts)

	hash, err := ir.DocumentHash(e.Doc.Name, dr.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("rewrite %s: %w", e.ID, err)
	}
	dr.Hash = hash

	for _, p := range queue {
		rewritten := syntax.Source(p.call)
		id, err := ir.RewriteID(hash, p.query.Location().String(), rewritten)
		if err != nil {
			return nil, nil, fmt.Errorf("rewrite %s: %w", e.ID, err)
		}
		var names []string
		for _, c := range p.compiled.Clauses() {
			names = append(names, c.Name)
		}
		dr.Rewrites = append(dr.Rewrites, QueryRewrite{
			ID:        id,
			Location:  p.query.Location(),
			Table:     p.query.Table,
			Clauses:   names,
			Original:  syntax.Source(p.query.Access),
			Rewritten: rewritten,
		})
		slog.Debug("query rewritten",
			"document", e.ID.String(),
			"location", p.query.Location().String(),
			"table", p.query.Table,
			"clauses", len(names))
	}

	return dr, &syntax.Edit{ID: e.ID, Replacement: doc, Text: dr.Text}, nil
}

// render prints doc, laid out when opts.Format is set. A layout failure is
// logged and the single-line rendering is used instead. The second result
// reports whether the layout was applied.
func render(doc *syntax.Document, opts Options) (string, bool) {
	if opts.Format {
		text, err := format.Document(doc)
		if err == nil {
			return text, true
		}
		slog.Debug("format skipped", "document", doc.Name, "error", err)
	}
	return syntax.Source(doc), false
}

// ErrNoTargetType is returned by RewriteCall for a query without call
// arguments. The classifier never accepts such a query.
var ErrNoTargetType = errors.New("query has no target type argument")

// RewriteCall builds the replacement resource call of an accepted query:
// the first original argument followed by one raw template argument per
// compiled clause, with the method name dropped. Each template is the
// compiled clause prefixed with a single space.
func RewriteCall(q *compiler.Query) (*syntax.ResourceAccess, *querysql.Compiled, error) {
	if len(q.Args) == 0 {
		return nil, nil, ErrNoTargetType
	}
	compiled, err := querysql.CompilePipeline(q.Pipeline, q.Table)
	if err != nil {
		return nil, nil, err
	}

	loc := q.Access.Pos()
	if q.Access.Args != nil {
		loc = q.Access.Args.Loc
	}
	args := []syntax.Arg{q.Args[0]}
	for _, c := range compiled.Clauses() {
		tmpl := queryir.Stream{queryir.Text{Value: " "}}.Concat(c.Stream).TemplateExpr()
		tmpl.Loc = loc
		args = append(args, &syntax.NamedArg{Name: c.Name, X: tmpl, Loc: loc})
	}

	call := &syntax.ResourceAccess{
		Client: q.Access.Client,
		Path:   q.Access.Path,
		Args:   &syntax.ArgList{Args: args, Loc: loc},
		Loc:    q.Access.Loc,
	}
	return call, compiled, nil
}
