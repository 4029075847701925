package compiler

import (
	"github.com/roach88/persistsql/internal/catalog"
	"github.com/roach88/persistsql/internal/syntax"
)

// SkipReason explains why a pipeline is left alone without a diagnostic
// (a capability gap rather than misuse), or why a misused query was
// rejected after its diagnostics were reported.
type SkipReason string

const (
	SkipNotClientCall  SkipReason = "not a persist client resource call"
	SkipNoPushdown     SkipReason = "no where, order by, group by or limit clause"
	SkipLetClause      SkipReason = "let clause is not supported"
	SkipMisuse         SkipReason = "rejected with diagnostics"
	SkipCatalogEmpty   SkipReason = "no entities or persist clients declared"
	SkipUnknownClient  SkipReason = "client variable is not a persist client"
	SkipNoResourcePath SkipReason = "resource path is empty"
	SkipUnknownEntity  SkipReason = "resource path does not name an entity"
	SkipNoArguments    SkipReason = "call has no arguments"
	SkipNoTargetType   SkipReason = "call has no target type argument"
)

const targetTypeArg = "targetType"

// Outcome is the classification of one query pipeline.
type Outcome struct {
	// Query is nil when the pipeline is not a persist client call.
	Query       *Query
	Diagnostics []Diagnostic
	// Skip is empty when the query was accepted.
	Skip SkipReason
}

// Accepted reports whether the query may be rewritten.
func (o Outcome) Accepted() bool {
	return o.Query != nil && o.Query.Validated && o.Skip == ""
}

// Classify recognizes, checks and resolves a query pipeline against a
// populated catalog. Steps, in order:
//
//  1. the from clause must be a persist client resource call with at
//     least one pushdown clause;
//  2. a let clause rejects the query;
//  3. structural checks (array fields, group by placement, limit shape)
//     report diagnostics and reject;
//  4. the client variable and the first resource path segment must
//     resolve against the catalog;
//  5. the call arguments must hold a target type and nothing else.
func Classify(p *syntax.QueryPipeline, cat *catalog.Catalog) Outcome {
	q, ok := Recognize(p.From)
	if !ok {
		return Outcome{Skip: SkipNotClientCall}
	}
	q.Pipeline = p
	q.partition(p.Clauses)

	if !q.HasPushdown() {
		return Outcome{Query: q, Skip: SkipNoPushdown}
	}
	if q.Let != nil {
		return Outcome{Query: q, Skip: SkipLetClause}
	}

	if d, ok := checkStructure(q); !ok {
		return Outcome{Query: q, Diagnostics: []Diagnostic{d}, Skip: SkipMisuse}
	}

	if reason := resolve(q, cat); reason != "" {
		return Outcome{Query: q, Skip: reason}
	}

	diags, reason := checkArguments(q)
	if reason != "" {
		return Outcome{Query: q, Diagnostics: diags, Skip: reason}
	}
	q.Validated = true
	return Outcome{Query: q}
}

// checkStructure runs the structural checks and returns the first
// violation.
func checkStructure(q *Query) (Diagnostic, bool) {
	if q.Where != nil {
		if x, found := findArrayField(q.Where.X); found {
			return newDiagnostic(CodeArrayField, x.Pos(), "where"), false
		}
	}
	if q.OrderBy != nil {
		for _, k := range q.OrderBy.Keys {
			if isArrayField(k.X) {
				return newDiagnostic(CodeArrayField, k.X.Pos(), "order by"), false
			}
		}
	}
	if q.GroupBy != nil {
		for _, k := range q.GroupBy.Keys {
			if isArrayField(k.X) {
				return newDiagnostic(CodeArrayField, k.X.Pos(), "group by"), false
			}
		}
		line := q.GroupBy.Pos().Line
		if q.Where != nil && line < q.Where.Pos().Line {
			return newDiagnostic(CodeGroupByOrder, q.GroupBy.Pos(), "where"), false
		}
		if q.OrderBy != nil && line < q.OrderBy.Pos().Line {
			return newDiagnostic(CodeGroupByOrder, q.GroupBy.Pos(), "order by"), false
		}
	}
	if q.Limit != nil && !isLimitShape(q.Limit.X) {
		return newDiagnostic(CodeLimitShape, q.Limit.X.Pos()), false
	}
	return Diagnostic{}, true
}

// isArrayField reports whether x accesses a field through an array
// element ("e.items[0].id").
func isArrayField(x syntax.Expr) bool {
	fa, ok := x.(*syntax.FieldAccess)
	if !ok {
		return false
	}
	_, indexed := fa.X.(*syntax.IndexedExpr)
	return indexed
}

// findArrayField searches the operands of a where condition, through
// binary operators and braces, for an array field access.
func findArrayField(x syntax.Expr) (syntax.Expr, bool) {
	switch e := x.(type) {
	case *syntax.BinaryExpr:
		if found, ok := findArrayField(e.X); ok {
			return found, true
		}
		return findArrayField(e.Y)
	case *syntax.BracedExpr:
		return findArrayField(e.X)
	default:
		return x, isArrayField(x)
	}
}

func isLimitShape(x syntax.Expr) bool {
	switch e := x.(type) {
	case *syntax.Literal:
		return e.Kind == syntax.NumericLiteral
	case *syntax.NameRef:
		return !e.Qualified()
	case *syntax.CallExpr:
		return true
	default:
		return false
	}
}

// resolve binds the query to the catalog and sets its table name.
func resolve(q *Query, cat *catalog.Catalog) SkipReason {
	if !cat.Ready() {
		return SkipCatalogEmpty
	}
	if !cat.IsClientVariable(q.Client) {
		return SkipUnknownClient
	}
	if len(q.Path) == 0 {
		return SkipNoResourcePath
	}
	entity, ok := cat.Entity(q.Resource())
	if !ok {
		return SkipUnknownEntity
	}
	q.Table = syntax.StripEscape(entity)
	return ""
}

// checkArguments scans every call argument. A disallowed argument is
// reported and the scan continues, so one call can yield several
// diagnostics.
func checkArguments(q *Query) ([]Diagnostic, SkipReason) {
	if len(q.Args) == 0 {
		return nil, SkipNoArguments
	}
	var diags []Diagnostic
	var hasTarget, hasClauseArg bool
	for _, arg := range q.Args {
		switch a := arg.(type) {
		case *syntax.NamedArg:
			if a.Name == targetTypeArg {
				hasTarget = true
				continue
			}
			hasClauseArg = true
			diags = append(diags, newDiagnostic(CodeUnsupportedArgument, a.Pos(), a.Name))
		case *syntax.PositionalArg:
			switch a.X.(type) {
			case *syntax.NameRef:
				hasTarget = true
			case *syntax.TemplateExpr:
				hasClauseArg = true
				diags = append(diags, newDiagnostic(CodeTargetTypeOnly, a.X.Pos()))
			}
		}
	}
	switch {
	case hasClauseArg:
		return diags, SkipMisuse
	case !hasTarget:
		return diags, SkipNoTargetType
	}
	return diags, ""
}
