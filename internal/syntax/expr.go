package syntax

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() Location
}

// Expr represents an expression in the host syntax tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method keeps the node set closed so that compilers and
// renderers can switch over it exhaustively and reject anything they do
// not recognize.
//
// Expression kinds:
//   - BinaryExpr, UnaryExpr, BracedExpr
//   - NameRef, FieldAccess, OptionalFieldAccess, IndexedExpr
//   - Literal, TemplateExpr, MappingConstructor
//   - CallExpr, CheckExpr
//   - ResourceAccess, RemoteMethodCall
//   - QueryExpr
type Expr interface {
	Node
	exprNode() // Marker method - seals interface to this package
}

// BinaryExpr is "X Op Y" for arithmetic, relational, equality and logical
// operators. Op holds the operator token text ("==", "&&", "%", ...).
type BinaryExpr struct {
	Op  string
	X   Expr
	Y   Expr
	Loc Location
}

func (*BinaryExpr) exprNode()       {}
func (e *BinaryExpr) Pos() Location { return e.Loc }

// UnaryExpr is a prefix operator applied to an operand ("!x", "-x").
type UnaryExpr struct {
	Op  string
	X   Expr
	Loc Location
}

func (*UnaryExpr) exprNode()       {}
func (e *UnaryExpr) Pos() Location { return e.Loc }

// BracedExpr is a parenthesized expression.
type BracedExpr struct {
	X   Expr
	Loc Location
}

func (*BracedExpr) exprNode()       {}
func (e *BracedExpr) Pos() Location { return e.Loc }

// NameRef is a simple or module-qualified name reference.
//
// Name keeps the source spelling, including a leading quote for escaped
// identifiers ("'order"). Use Ident to obtain the bare identifier.
type NameRef struct {
	Prefix string // module prefix ("entities" in entities:Product), empty if unqualified
	Name   string
	Loc    Location
}

func (*NameRef) exprNode()       {}
func (e *NameRef) Pos() Location { return e.Loc }

// Qualified reports whether the reference carries a module prefix.
func (e *NameRef) Qualified() bool { return e.Prefix != "" }

// Ident returns the referenced identifier with escape quotes removed.
func (e *NameRef) Ident() string { return StripEscape(e.Name) }

// FieldAccess is "X.Field".
type FieldAccess struct {
	X     Expr
	Field string // source spelling, may be escaped
	Loc   Location
}

func (*FieldAccess) exprNode()       {}
func (e *FieldAccess) Pos() Location { return e.Loc }

// OptionalFieldAccess is "X?.Field".
type OptionalFieldAccess struct {
	X     Expr
	Field string
	Loc   Location
}

func (*OptionalFieldAccess) exprNode()       {}
func (e *OptionalFieldAccess) Pos() Location { return e.Loc }

// IndexedExpr is "X[Index]".
type IndexedExpr struct {
	X     Expr
	Index Expr
	Loc   Location
}

func (*IndexedExpr) exprNode()       {}
func (e *IndexedExpr) Pos() Location { return e.Loc }

// LiteralKind classifies a Literal.
type LiteralKind int

const (
	NumericLiteral LiteralKind = iota
	StringLiteral
	BooleanLiteral
	NilLiteral
)

// String returns a human readable kind name.
func (k LiteralKind) String() string {
	switch k {
	case NumericLiteral:
		return "numeric"
	case StringLiteral:
		return "string"
	case BooleanLiteral:
		return "boolean"
	case NilLiteral:
		return "nil"
	default:
		return "unknown"
	}
}

// Literal is a basic literal. Value is the exact source text, so string
// literals keep their surrounding double quotes.
type Literal struct {
	Kind  LiteralKind
	Value string
	Loc   Location
}

func (*Literal) exprNode()       {}
func (e *Literal) Pos() Location { return e.Loc }

// TemplatePart is one segment of a TemplateExpr: either TemplateText or
// TemplateInterp.
type TemplatePart interface {
	templatePart()
}

// TemplateText is literal template content.
type TemplateText struct {
	Text string
}

func (TemplateText) templatePart() {}

// TemplateInterp is an interpolation "${X}" inside a template.
type TemplateInterp struct {
	X Expr
}

func (TemplateInterp) templatePart() {}

// TemplateExpr is a backtick template. An empty Tag denotes a raw
// template; otherwise Tag is the template kind keyword ("string", "xml").
type TemplateExpr struct {
	Tag   string
	Parts []TemplatePart
	Loc   Location
}

func (*TemplateExpr) exprNode()       {}
func (e *TemplateExpr) Pos() Location { return e.Loc }

// IsRaw reports whether the template is an untagged raw template.
func (e *TemplateExpr) IsRaw() bool { return e.Tag == "" }

// MappingField is one "key: value" entry of a mapping constructor.
type MappingField struct {
	Key   string
	Value Expr
}

// MappingConstructor is "{k: v, ...}".
type MappingConstructor struct {
	Fields []MappingField
	Loc    Location
}

func (*MappingConstructor) exprNode()       {}
func (e *MappingConstructor) Pos() Location { return e.Loc }

// CallExpr is a function call "Fn(Args)". Fn is a NameRef for plain
// function calls and a FieldAccess for method calls.
type CallExpr struct {
	Fn   Expr
	Args []Arg
	Loc  Location
}

func (*CallExpr) exprNode()       {}
func (e *CallExpr) Pos() Location { return e.Loc }

// CheckExpr is "check X" or "checkpanic X".
type CheckExpr struct {
	Keyword string
	X       Expr
	Loc     Location
}

func (*CheckExpr) exprNode()       {}
func (e *CheckExpr) Pos() Location { return e.Loc }

// PathSegment is one segment of a resource access path. Exactly one of
// Name or Key is set: Name for "/products", Key for computed "/[id]".
type PathSegment struct {
	Name string
	Key  Expr
}

// Ident returns the segment name with escape quotes removed.
func (s PathSegment) Ident() string { return StripEscape(s.Name) }

// ResourceAccess is a client resource access action:
//
//	Client->/path/segments.method(args)
//
// Method is empty when no explicit method name is written. Args is nil
// when the call has no parenthesized argument list and non-nil (possibly
// empty) when it has one.
type ResourceAccess struct {
	Client Expr
	Path   []PathSegment
	Method string
	Args   *ArgList
	Loc    Location
}

func (*ResourceAccess) exprNode()       {}
func (e *ResourceAccess) Pos() Location { return e.Loc }

// ChildEntries returns the number of syntactic child entries of the
// action node: client expression, "->", "/", the path, then "." and the
// method name when a method is written, then the argument list when
// present. A plain "client->/path(args)" call has five entries and
// "client->/path.get(args)" has seven.
func (e *ResourceAccess) ChildEntries() int {
	n := 4
	if e.Method != "" {
		n += 2
	}
	if e.Args != nil {
		n++
	}
	return n
}

// RemoteMethodCall is a remote method call action "Client->method(args)".
type RemoteMethodCall struct {
	Client Expr
	Method string
	Args   []Arg
	Loc    Location
}

func (*RemoteMethodCall) exprNode()       {}
func (e *RemoteMethodCall) Pos() Location { return e.Loc }

// QueryExpr is a query expression "from ... select X".
type QueryExpr struct {
	Pipeline *QueryPipeline
	Select   *SelectClause
	Loc      Location
}

func (*QueryExpr) exprNode()       {}
func (e *QueryExpr) Pos() Location { return e.Loc }

// Arg is a call argument: PositionalArg or NamedArg.
type Arg interface {
	Node
	argNode()
}

// PositionalArg is an argument passed by position.
type PositionalArg struct {
	X   Expr
	Loc Location
}

func (*PositionalArg) argNode()        {}
func (a *PositionalArg) Pos() Location { return a.Loc }

// NamedArg is "Name = X".
type NamedArg struct {
	Name string
	X    Expr
	Loc  Location
}

func (*NamedArg) argNode()        {}
func (a *NamedArg) Pos() Location { return a.Loc }

// ArgList is a parenthesized argument list.
type ArgList struct {
	Args []Arg
	Loc  Location
}

// StripEscape removes the leading quote of an escaped identifier
// ("'order" becomes "order").
func StripEscape(name string) string {
	if len(name) > 0 && name[0] == '\'' {
		return name[1:]
	}
	return name
}
