package querysql

import (
	"github.com/roach88/persistsql/internal/queryir"
	"github.com/roach88/persistsql/internal/syntax"
)

const (
	clauseOrderBy = "order by"
	clauseGroupBy = "group by"
	clauseLimit   = "limit"
)

// RenderOrderBy renders the keys of an order by clause. Every key carries
// an explicit direction: "descending" renders DESC, anything else ASC.
//
//	order by e.age descending, getName()   →   Product.age DESC , ${getName()} ASC
func RenderOrderBy(c *syntax.OrderByClause, shape Shape, table string) (queryir.Stream, error) {
	var out queryir.Stream
	for i, key := range c.Keys {
		if i > 0 {
			out = out.AppendText(", ")
		}
		k, err := renderKey(clauseOrderBy, key.X, shape, table)
		if err != nil {
			return nil, err
		}
		out = out.Concat(k)
		if key.Direction == "descending" {
			out = out.AppendText(" DESC ")
		} else {
			out = out.AppendText(" ASC ")
		}
	}
	return out, nil
}

// RenderGroupBy renders the keys of a group by clause, comma separated.
// Declaration keys ("var k = e.age") render their initializer.
func RenderGroupBy(c *syntax.GroupByClause, shape Shape, table string) (queryir.Stream, error) {
	var out queryir.Stream
	for i, key := range c.Keys {
		if i > 0 {
			out = out.AppendText(", ")
		}
		k, err := renderKey(clauseGroupBy, key.X, shape, table)
		if err != nil {
			return nil, err
		}
		out = out.Concat(k)
	}
	return out, nil
}

// RenderLimit renders a limit expression. Numeric literals are inlined
// behind a space; variables and calls become slots.
func RenderLimit(c *syntax.LimitClause) (queryir.Stream, error) {
	switch x := c.X.(type) {
	case *syntax.Literal:
		if x.Kind != syntax.NumericLiteral {
			return nil, notSupported(clauseLimit, x, "%s literal", x.Kind)
		}
		return queryir.Stream{}.AppendText(" " + x.Value), nil
	case *syntax.NameRef:
		return queryir.Stream{}.Append(queryir.Slot{X: x, Kind: queryir.SlotVariable}), nil
	case *syntax.CallExpr:
		return queryir.Stream{}.Append(queryir.Slot{X: x, Kind: queryir.SlotCall}), nil
	default:
		return nil, notSupported(clauseLimit, c.X, "unsupported expression")
	}
}

// renderKey renders one order by or group by key without trailing space.
func renderKey(clause string, x syntax.Expr, shape Shape, table string) (queryir.Stream, error) {
	switch e := x.(type) {
	case *syntax.FieldAccess, *syntax.OptionalFieldAccess:
		col, err := qualifiedField(clause, x, shape, table)
		if err != nil {
			return nil, err
		}
		return queryir.Stream{}.AppendText(col), nil
	case *syntax.NameRef:
		if !shape.IsMapping() {
			return nil, notSupported(clause, x, "name key requires a mapping binding pattern")
		}
		field, ok := shape.Field(e.Name)
		if e.Qualified() || !ok {
			return nil, notSupported(clause, x, "%q is not bound by the binding pattern", e.Name)
		}
		return queryir.Stream{}.AppendText(table + "." + field), nil
	case *syntax.CallExpr:
		return queryir.Stream{}.Append(queryir.Slot{X: e, Kind: queryir.SlotCall}), nil
	default:
		return nil, notSupported(clause, x, "unsupported key")
	}
}
