package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/queryir"
	"github.com/roach88/persistsql/internal/syntax"
)

// Argument names of the compiled clauses on the rewritten remote call.
const (
	ArgWhere   = "whereClause"
	ArgOrderBy = "orderByClause"
	ArgGroupBy = "groupByClause"
	ArgLimit   = "limitClause"
)

// ErrMalformedClause is returned when a clause compiles to a token stream
// that cannot be embedded in a raw template.
var ErrMalformedClause = errors.New("malformed clause")

// Compiled holds the compiled clauses of one query pipeline. A nil stream
// means the clause is absent from the query.
type Compiled struct {
	Table   string
	Where   queryir.Stream
	OrderBy queryir.Stream
	GroupBy queryir.Stream
	Limit   queryir.Stream
}

// NamedClause is a compiled clause paired with its argument name.
type NamedClause struct {
	Name   string
	Stream queryir.Stream
}

// Clauses returns the present clauses in argument order:
// where, order by, group by, limit.
func (c *Compiled) Clauses() []NamedClause {
	var out []NamedClause
	for _, nc := range []NamedClause{
		{ArgWhere, c.Where},
		{ArgOrderBy, c.OrderBy},
		{ArgGroupBy, c.GroupBy},
		{ArgLimit, c.Limit},
	} {
		if nc.Stream != nil {
			out = append(out, nc)
		}
	}
	return out
}

// CompilePipeline compiles the where, order by, group by and limit clauses
// of a query pipeline against the given table name. Only the first clause
// of each kind is compiled.
//
// Clauses are all or nothing: if any present clause fails to compile the
// whole pipeline fails and nothing should be rewritten.
func CompilePipeline(p *syntax.QueryPipeline, table string) (*Compiled, error) {
	if p == nil || p.From == nil {
		return nil, fmt.Errorf("compile pipeline: missing from clause")
	}
	shape := ShapeOf(p.From.Binding)
	out := &Compiled{Table: table}

	var seenWhere, seenOrder, seenGroup, seenLimit bool
	for _, clause := range p.Clauses {
		var (
			s    queryir.Stream
			err  error
			name string
		)
		switch c := clause.(type) {
		case *syntax.WhereClause:
			if seenWhere {
				continue
			}
			seenWhere, name = true, clauseWhere
			s, err = CompileWhere(c.X, shape, table)
			out.Where = nonNil(s)
		case *syntax.OrderByClause:
			if seenOrder {
				continue
			}
			seenOrder, name = true, clauseOrderBy
			s, err = RenderOrderBy(c, shape, table)
			out.OrderBy = nonNil(s)
		case *syntax.GroupByClause:
			if seenGroup {
				continue
			}
			seenGroup, name = true, clauseGroupBy
			s, err = RenderGroupBy(c, shape, table)
			out.GroupBy = nonNil(s)
		case *syntax.LimitClause:
			if seenLimit {
				continue
			}
			seenLimit, name = true, clauseLimit
			s, err = RenderLimit(c)
			out.Limit = nonNil(s)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if v := queryir.Validate(s); !v.IsWellFormed {
			return nil, fmt.Errorf("%s clause: %w: %s", name, ErrMalformedClause, strings.Join(v.Warnings, "; "))
		}
	}
	return out, nil
}

func nonNil(s queryir.Stream) queryir.Stream {
	if s == nil {
		return queryir.Stream{}
	}
	return s
}

// SQLCompiler renders compiled clauses as a parameterized SQL statement
// for previewing a rewritten query against a database.
//
// Slots are never interpolated: each becomes a "?" placeholder whose value
// is looked up in BoundValues by the slot's source text ("value",
// "getValue(4)").
type SQLCompiler struct {
	BoundValues map[string]ir.IRValue
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		BoundValues: make(map[string]ir.IRValue),
	}
}

// SQL renders the statement text with "?" placeholders, without resolving
// parameters.
func SQL(c *Compiled) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(c.Table)
	writeClause(&b, " WHERE ", c.Where)
	writeClause(&b, " GROUP BY ", c.GroupBy)
	writeClause(&b, " ORDER BY ", c.OrderBy)
	writeClause(&b, " LIMIT ", c.Limit)
	return b.String()
}

func writeClause(b *strings.Builder, keyword string, s queryir.Stream) {
	if len(s) == 0 {
		return
	}
	var body strings.Builder
	for _, t := range s {
		switch t := t.(type) {
		case queryir.Text:
			body.WriteString(t.Value)
		case queryir.Slot:
			body.WriteString("?")
		}
	}
	b.WriteString(keyword)
	b.WriteString(strings.TrimSpace(body.String()))
}

// Placeholders returns the slots of c in the order their placeholders
// appear in SQL(c).
func Placeholders(c *Compiled) []queryir.Slot {
	var out []queryir.Slot
	for _, s := range []queryir.Stream{c.Where, c.GroupBy, c.OrderBy, c.Limit} {
		out = append(out, s.Slots()...)
	}
	return out
}

// Compile converts compiled clauses to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// Every slot must have a bound value.
func (sc *SQLCompiler) Compile(c *Compiled) (string, []any, error) {
	if c == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if c.Table == "" {
		return "", nil, fmt.Errorf("cannot compile query without a table")
	}

	var params []any
	for _, slot := range Placeholders(c) {
		key := slot.Source()
		val, ok := sc.BoundValues[key]
		if !ok {
			return "", nil, fmt.Errorf("no value bound for %q", key)
		}
		param, err := irValueToParam(val)
		if err != nil {
			return "", nil, fmt.Errorf("convert value for %q: %w", key, err)
		}
		params = append(params, param)
	}
	return SQL(c), params, nil
}

// Check parses sql with a MySQL-dialect parser and returns its normalized
// form. Placeholders are rewritten as ":v1", ":v2", ... by the parser.
func Check(sql string) (string, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return "", fmt.Errorf("parse sql: %w", err)
	}
	if _, ok := stmt.(*sqlparser.Select); !ok {
		return "", fmt.Errorf("expected SELECT statement, got %T", stmt)
	}
	return sqlparser.String(stmt), nil
}

// irValueToParam converts an ir.IRValue to a Go native type for SQL parameter.
// Supports string, int, bool. Arrays and objects are not directly supported
// as SQL parameters.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
