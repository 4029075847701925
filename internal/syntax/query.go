package syntax

// QueryPipeline is the "from" clause of a query plus its intermediate
// clauses, in source order. The select clause lives on the enclosing
// QueryExpr.
//
// Pipelines are compared by identity: analysis results are keyed by the
// *QueryPipeline pointer of the tree they were computed from.
type QueryPipeline struct {
	From    *FromClause
	Clauses []Clause
	Loc     Location
}

func (p *QueryPipeline) Pos() Location { return p.Loc }

// Clause is an intermediate query clause.
//
// This is a sealed interface. Clause kinds:
//   - WhereClause
//   - OrderByClause
//   - GroupByClause
//   - LimitClause
//   - LetClause
type Clause interface {
	Node
	clauseNode() // Marker method - seals interface to this package
}

// FromClause is "from Type Binding in Source".
type FromClause struct {
	Type    string // declared type descriptor text, "var" for inferred
	Binding BindingPattern
	Source  Expr
	Loc     Location
}

func (c *FromClause) Pos() Location { return c.Loc }

// WhereClause is "where X".
type WhereClause struct {
	X   Expr
	Loc Location
}

func (*WhereClause) clauseNode()     {}
func (c *WhereClause) Pos() Location { return c.Loc }

// OrderKey is one key of an order by clause. Direction holds the direction
// keyword as written ("ascending", "descending") or is empty.
type OrderKey struct {
	X         Expr
	Direction string
}

// OrderByClause is "order by k1 [dir], k2 [dir]".
type OrderByClause struct {
	Keys []OrderKey
	Loc  Location
}

func (*OrderByClause) clauseNode()     {}
func (c *OrderByClause) Pos() Location { return c.Loc }

// GroupingKey is one key of a group by clause: either a declaration
// "Type Name = X" or a bare name reference (Type and Name empty, X a
// *NameRef).
type GroupingKey struct {
	Type string
	Name string
	X    Expr
}

// IsDeclaration reports whether the key declares a new variable.
func (k GroupingKey) IsDeclaration() bool { return k.Name != "" }

// GroupByClause is "group by k1, k2".
type GroupByClause struct {
	Keys []GroupingKey
	Loc  Location
}

func (*GroupByClause) clauseNode()     {}
func (c *GroupByClause) Pos() Location { return c.Loc }

// LimitClause is "limit X".
type LimitClause struct {
	X   Expr
	Loc Location
}

func (*LimitClause) clauseNode()     {}
func (c *LimitClause) Pos() Location { return c.Loc }

// LetBinding is one "Type Name = X" declaration of a let clause.
type LetBinding struct {
	Type string
	Name string
	X    Expr
}

// LetClause is "let T a = x, T b = y".
type LetClause struct {
	Bindings []LetBinding
	Loc      Location
}

func (*LetClause) clauseNode()     {}
func (c *LetClause) Pos() Location { return c.Loc }

// SelectClause is "select X".
type SelectClause struct {
	X   Expr
	Loc Location
}

func (c *SelectClause) Pos() Location { return c.Loc }

// BindingPattern is the binding pattern of a from clause.
//
// This is a sealed interface. Pattern kinds:
//   - CaptureBinding: "var e"
//   - MappingBinding: "var {id, name: n}"
type BindingPattern interface {
	Node
	bindingNode() // Marker method - seals interface to this package
}

// CaptureBinding binds the whole element to a single variable.
type CaptureBinding struct {
	Name string
	Loc  Location
}

func (*CaptureBinding) bindingNode()    {}
func (b *CaptureBinding) Pos() Location { return b.Loc }

// FieldBinding binds one record field to a variable. Var equals Field for
// the shorthand form "{id}".
type FieldBinding struct {
	Field string
	Var   string
}

// Shorthand reports whether the binding uses the "{field}" form.
func (f FieldBinding) Shorthand() bool { return f.Field == f.Var }

// MappingBinding destructures record fields into variables.
type MappingBinding struct {
	Fields []FieldBinding
	Loc    Location
}

func (*MappingBinding) bindingNode()    {}
func (b *MappingBinding) Pos() Location { return b.Loc }

// Lookup returns the field bound to variable name.
func (b *MappingBinding) Lookup(name string) (string, bool) {
	for _, f := range b.Fields {
		if f.Var == name {
			return f.Field, true
		}
	}
	return "", false
}
