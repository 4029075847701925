package querysql

import (
	"github.com/roach88/persistsql/internal/queryir"
	"github.com/roach88/persistsql/internal/syntax"
)

const clauseWhere = "where"

// compareOps maps supported comparison operators to their SQL spelling.
var compareOps = map[string]string{
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
	"%":  "%",
	"==": "=",
	"!=": "<>",
}

// CompileWhere compiles a where-clause condition into a token stream.
//
// The stream is built left to right in source order:
//
//	e.id == value || e.id == 6   →   Product.id = ${value}  OR Product.id = 6
//
// Host values (variables and calls) become slots; everything else is
// literal text. Returns a *NotSupportedError for any construct outside
// the compilable subset.
func CompileWhere(x syntax.Expr, shape Shape, table string) (queryir.Stream, error) {
	c := &whereCompiler{shape: shape, table: table}
	if err := c.expr(x); err != nil {
		return nil, err
	}
	return c.out, nil
}

type whereCompiler struct {
	shape Shape
	table string
	out   queryir.Stream
}

func (c *whereCompiler) text(s string) {
	c.out = c.out.AppendText(s)
}

func (c *whereCompiler) slot(x syntax.Expr, kind queryir.SlotKind) {
	c.out = c.out.Append(queryir.Slot{X: x, Kind: kind}, queryir.Text{Value: " "})
}

func (c *whereCompiler) expr(x syntax.Expr) error {
	switch e := x.(type) {
	case *syntax.BinaryExpr:
		return c.binary(e)
	case *syntax.BracedExpr:
		c.text("( ")
		if err := c.expr(e.X); err != nil {
			return err
		}
		c.text(") ")
		return nil
	case *syntax.FieldAccess, *syntax.OptionalFieldAccess:
		col, err := qualifiedField(clauseWhere, x, c.shape, c.table)
		if err != nil {
			return err
		}
		c.text(col + " ")
		return nil
	case *syntax.NameRef:
		return c.name(e)
	case *syntax.Literal:
		if e.Kind == syntax.NilLiteral {
			return notSupported(clauseWhere, x, "nil literal")
		}
		c.text(e.Value)
		return nil
	case *syntax.UnaryExpr:
		// Signed numeric constants are the only unary form SQL can take as is.
		lit, ok := e.X.(*syntax.Literal)
		if !ok || lit.Kind != syntax.NumericLiteral || (e.Op != "-" && e.Op != "+") {
			return notSupported(clauseWhere, x, "unary %q", e.Op)
		}
		c.text(e.Op + lit.Value)
		return nil
	case *syntax.CallExpr:
		c.slot(e, queryir.SlotCall)
		return nil
	default:
		return notSupported(clauseWhere, x, "unsupported expression")
	}
}

func (c *whereCompiler) binary(e *syntax.BinaryExpr) error {
	switch e.Op {
	case "&&", "||":
		if err := c.expr(e.X); err != nil {
			return err
		}
		if e.Op == "&&" {
			c.text(" AND ")
		} else {
			c.text(" OR ")
		}
		return c.expr(e.Y)
	}

	op, ok := compareOps[e.Op]
	if !ok {
		return notSupported(clauseWhere, e, "operator %q", e.Op)
	}
	// Operands other than literals end in a space; a literal left
	// operand abuts the operator ("6= Product.id").
	if err := c.expr(e.X); err != nil {
		return err
	}
	c.text(op + " ")
	return c.expr(e.Y)
}

// name resolves a bare identifier. With a mapping binding a bound
// variable names a column; anything else is a host variable.
func (c *whereCompiler) name(ref *syntax.NameRef) error {
	if c.shape.IsLoopVar(ref) {
		return notSupported(clauseWhere, ref, "loop variable %q used as a value", c.shape.Capture)
	}
	if !ref.Qualified() && c.shape.IsMapping() {
		if field, ok := c.shape.Field(ref.Name); ok {
			c.text(c.table + "." + field + " ")
			return nil
		}
	}
	c.slot(ref, queryir.SlotVariable)
	return nil
}
