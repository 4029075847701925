package compiler

import (
	"github.com/roach88/persistsql/internal/syntax"
)

// Query is a query pipeline recognized as a persist client resource call.
//
// The Recognizer seeds Client, Access, Path and Args; the Classifier fills
// the clause handles, resolves Table and sets Validated when the query is
// accepted for rewriting. Clause handles point at the first clause of each
// kind in the pipeline; later duplicates are ignored.
type Query struct {
	Pipeline *syntax.QueryPipeline  `json:"-"`
	Access   *syntax.ResourceAccess `json:"-"`

	Client string               `json:"client"`
	Path   []syntax.PathSegment `json:"-"`
	Args   []syntax.Arg         `json:"-"`

	Where   *syntax.WhereClause   `json:"-"`
	OrderBy *syntax.OrderByClause `json:"-"`
	GroupBy *syntax.GroupByClause `json:"-"`
	Limit   *syntax.LimitClause   `json:"-"`
	Let     *syntax.LetClause     `json:"-"`

	Table     string `json:"table,omitempty"`
	Validated bool   `json:"validated"`
}

// Resource returns the first resource path segment with escapes removed,
// or "" for an empty or computed first segment.
func (q *Query) Resource() string {
	if len(q.Path) == 0 || q.Path[0].Key != nil {
		return ""
	}
	return q.Path[0].Ident()
}

// HasPushdown reports whether the pipeline has any clause that can be
// pushed down to the client call.
func (q *Query) HasPushdown() bool {
	return q.Where != nil || q.OrderBy != nil || q.GroupBy != nil || q.Limit != nil
}

// Location returns the location of the pipeline's from clause.
func (q *Query) Location() syntax.Location {
	if q.Pipeline == nil {
		return syntax.Location{}
	}
	return q.Pipeline.Pos()
}

// partition records the first clause of each kind.
func (q *Query) partition(clauses []syntax.Clause) {
	for _, c := range clauses {
		switch c := c.(type) {
		case *syntax.WhereClause:
			if q.Where == nil {
				q.Where = c
			}
		case *syntax.OrderByClause:
			if q.OrderBy == nil {
				q.OrderBy = c
			}
		case *syntax.GroupByClause:
			if q.GroupBy == nil {
				q.GroupBy = c
			}
		case *syntax.LimitClause:
			if q.Limit == nil {
				q.Limit = c
			}
		case *syntax.LetClause:
			if q.Let == nil {
				q.Let = c
			}
		}
	}
}
