package querysql

import (
	"github.com/roach88/persistsql/internal/syntax"
)

// Shape describes how a query's from clause binds the elements it
// iterates over. Exactly one of Capture or Fields is meaningful.
type Shape struct {
	// Capture is the loop variable of a capture binding pattern ("e" in
	// "from var e in ...").
	Capture string

	// Fields maps variables bound by a mapping binding pattern to the
	// entity fields they bind ("{id, name: n}" → id→id, n→name).
	Fields map[string]string
}

// ShapeOf derives the shape of a binding pattern.
func ShapeOf(b syntax.BindingPattern) Shape {
	switch b := b.(type) {
	case *syntax.CaptureBinding:
		return Shape{Capture: syntax.StripEscape(b.Name)}
	case *syntax.MappingBinding:
		fields := make(map[string]string, len(b.Fields))
		for _, f := range b.Fields {
			fields[syntax.StripEscape(f.Var)] = syntax.StripEscape(f.Field)
		}
		return Shape{Fields: fields}
	default:
		return Shape{}
	}
}

// IsCapture reports whether the shape comes from a capture pattern.
func (s Shape) IsCapture() bool {
	return s.Capture != ""
}

// IsMapping reports whether the shape comes from a mapping pattern.
func (s Shape) IsMapping() bool {
	return s.Fields != nil
}

// IsLoopVar reports whether x is a plain reference to the loop variable.
func (s Shape) IsLoopVar(x syntax.Expr) bool {
	ref, ok := x.(*syntax.NameRef)
	return ok && s.IsCapture() && !ref.Qualified() && ref.Ident() == s.Capture
}

// Field returns the entity field bound to a mapping pattern variable.
func (s Shape) Field(name string) (string, bool) {
	f, ok := s.Fields[syntax.StripEscape(name)]
	return f, ok
}

// qualifiedField resolves a field access on the loop variable to its
// table-qualified column name:
//
//	e.id                 → Table.id
//	e.products.id        → products.id
//	e.products?.id       → products.id
//	e.manufacture[0].id  → manufacture.id
//	e?.id                → Table.id
//
// The array index is discarded; only the relation name qualifies the
// column. Any other shape is not supported.
func qualifiedField(clause string, x syntax.Expr, shape Shape, table string) (string, error) {
	var base syntax.Expr
	var field string
	switch e := x.(type) {
	case *syntax.FieldAccess:
		base, field = e.X, e.Field
	case *syntax.OptionalFieldAccess:
		base, field = e.X, e.Field
	default:
		return "", notSupported(clause, x, "expected field access")
	}
	if !shape.IsCapture() {
		return "", notSupported(clause, x, "field access requires a capture binding pattern")
	}
	field = syntax.StripEscape(field)

	if shape.IsLoopVar(base) {
		return table + "." + field, nil
	}
	if rel, ok := relationOf(base, shape); ok {
		return rel + "." + field, nil
	}
	return "", notSupported(clause, x, "field access is not rooted at %q", shape.Capture)
}

// relationOf returns the relation name of a relation access on the loop
// variable: "e.rel", "e?.rel", "e.rel?" chains and "e.rel[i]".
func relationOf(x syntax.Expr, shape Shape) (string, bool) {
	switch e := x.(type) {
	case *syntax.FieldAccess:
		if shape.IsLoopVar(e.X) {
			return syntax.StripEscape(e.Field), true
		}
	case *syntax.OptionalFieldAccess:
		if shape.IsLoopVar(e.X) {
			return syntax.StripEscape(e.Field), true
		}
	case *syntax.IndexedExpr:
		return relationOf(e.X, shape)
	}
	return "", false
}
