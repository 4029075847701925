package compiler

import (
	"log/slog"

	"github.com/roach88/persistsql/internal/catalog"
	"github.com/roach88/persistsql/internal/syntax"
)

// Options configures an analysis run.
type Options struct {
	Catalog catalog.Options
}

// Skip records a recognized query pipeline that is left untouched
// without a diagnostic.
type Skip struct {
	Document syntax.DocumentID     `json:"document"`
	Pipeline *syntax.QueryPipeline `json:"-"`
	Reason   SkipReason            `json:"reason"`
	Location syntax.Location       `json:"location"`
}

// Result is the outcome of analyzing a package.
type Result struct {
	Catalog *catalog.Catalog

	// Accepted holds the queries approved for rewriting, keyed by the
	// identity of their pipeline node.
	Accepted map[*syntax.QueryPipeline]*Query

	// Diagnostics are sorted by location.
	Diagnostics []Diagnostic

	// Skips lists pipelines that target a persist client call but are left
	// alone, in document order. Pipelines that are not client calls at all
	// are only counted.
	Skips []Skip

	// Pipelines is the number of query pipelines inspected.
	Pipelines int
}

// Query returns the accepted query for a pipeline.
func (r *Result) Query(p *syntax.QueryPipeline) (*Query, bool) {
	q, ok := r.Accepted[p]
	return q, ok
}

// HasErrors reports whether any ERROR diagnostic was produced.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Analyze runs both analysis phases over every production and test
// document of pkg.
//
// Phase 1 registers every document in a fresh catalog. Phase 2 classifies
// each query pipeline once, with all bindings known, so the outcome does
// not depend on document order.
func Analyze(pkg *syntax.Package, opts Options) *Result {
	cat := catalog.New(opts.Catalog)
	entries := pkg.Documents()
	for _, e := range entries {
		cat.Register(e.Doc)
	}

	res := &Result{
		Catalog:  cat,
		Accepted: make(map[*syntax.QueryPipeline]*Query),
	}
	for _, e := range entries {
		for _, p := range e.Doc.Pipelines() {
			res.Pipelines++
			out := Classify(p, cat)
			res.Diagnostics = append(res.Diagnostics, out.Diagnostics...)
			switch {
			case out.Accepted():
				res.Accepted[p] = out.Query
				slog.Debug("query accepted",
					"document", e.ID.String(),
					"location", p.Pos().String(),
					"table", out.Query.Table)
			case out.Skip == SkipNotClientCall:
			default:
				res.Skips = append(res.Skips, Skip{
					Document: e.ID,
					Pipeline: p,
					Reason:   out.Skip,
					Location: p.Pos(),
				})
				slog.Debug("query skipped",
					"document", e.ID.String(),
					"location", p.Pos().String(),
					"reason", string(out.Skip))
			}
		}
	}
	SortDiagnostics(res.Diagnostics)

	slog.Debug("analysis complete",
		"package", pkg.Name,
		"pipelines", res.Pipelines,
		"accepted", len(res.Accepted),
		"skipped", len(res.Skips),
		"diagnostics", len(res.Diagnostics))
	return res
}
