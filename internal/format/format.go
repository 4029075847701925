// Package format lays out rewritten query statements over several lines.
//
// Formatting is best effort: every laid out statement is parsed back and
// must print to the same canonical source as its input, otherwise the
// statement is rejected with ErrUnstable and callers keep the single-line
// rendering.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/persistsql/internal/syntax"
)

// ErrUnstable reports a layout that does not parse back to the tree it was
// produced from.
var ErrUnstable = errors.New("layout does not parse back")

// Formatter renders query statements with one clause per line.
type Formatter struct {
	// Tab is the width of one indentation step.
	Tab int

	builder strings.Builder
	indent  int
}

// New returns a formatter using four-space indentation.
func New() *Formatter {
	return &Formatter{Tab: 4}
}

// Query lays out a single query expression starting at column zero.
func Query(q *syntax.QueryExpr) (string, error) {
	f := New()
	f.reset()
	f.query(q)
	out := f.builder.String()
	if err := verify(q, out); err != nil {
		return "", err
	}
	return out, nil
}

// Document renders doc with every top-level query statement laid out. Type
// and class definitions and statements without a query keep their
// single-line rendering. The first statement that fails verification
// aborts the whole document.
func Document(doc *syntax.Document) (string, error) {
	return New().Document(doc)
}

// Document is the method form of the package-level Document.
func (f *Formatter) Document(doc *syntax.Document) (string, error) {
	var out strings.Builder
	for i, m := range doc.Members {
		if i > 0 {
			out.WriteString("\n")
			if isDefinition(m) || isDefinition(doc.Members[i-1]) {
				out.WriteString("\n")
			}
		}
		text, err := f.Member(m)
		if err != nil {
			return "", fmt.Errorf("format %s: %w", doc.Name, err)
		}
		out.WriteString(text)
	}
	if len(doc.Members) > 0 {
		out.WriteString("\n")
	}
	return out.String(), nil
}

// Member renders one document member.
func (f *Formatter) Member(m syntax.Member) (string, error) {
	var prefix string
	var x syntax.Expr
	switch m := m.(type) {
	case *syntax.VarDecl:
		if m.Init == nil {
			return syntax.Source(m), nil
		}
		prefix = m.Type + " " + m.Name + " = "
		x = m.Init
	case *syntax.ExprStmt:
		x = m.X
	default:
		return syntax.Source(m), nil
	}

	check, q := unwrapQuery(x)
	if q == nil {
		return syntax.Source(m), nil
	}
	f.reset()
	f.write(prefix)
	if check != "" {
		f.write(check + " ")
	}
	f.query(q)
	f.write(";")

	out := f.builder.String()
	if err := verify(m, out); err != nil {
		return "", err
	}
	return out, nil
}

func (f *Formatter) reset() {
	f.builder.Reset()
	f.indent = 0
}

func (f *Formatter) write(s string) {
	f.builder.WriteString(s)
}

func (f *Formatter) newline() {
	f.builder.WriteString("\n")
	f.builder.WriteString(strings.Repeat(" ", f.indent*f.Tab))
}

func (f *Formatter) query(q *syntax.QueryExpr) {
	from := q.Pipeline.From
	f.write("from " + from.Type + " " + syntax.Source(from.Binding) + " in ")
	f.source(from.Source)

	f.indent++
	for _, c := range q.Pipeline.Clauses {
		f.newline()
		f.write(syntax.Source(c))
	}
	if q.Select != nil {
		f.newline()
		f.write(syntax.Source(q.Select))
	}
	f.indent--
}

// source writes the from-clause source. A resource call with more than
// one argument gets one argument per line.
func (f *Formatter) source(x syntax.Expr) {
	ra, check := resourceAccess(x)
	if ra == nil || ra.Args == nil || len(ra.Args.Args) < 2 {
		f.write(syntax.Source(x))
		return
	}
	if check != "" {
		f.write(check + " ")
	}
	bare := *ra
	bare.Args = nil
	f.write(syntax.Source(&bare))
	f.write("(")

	f.indent += 2
	for i, a := range ra.Args.Args {
		f.newline()
		f.write(syntax.Source(a))
		if i < len(ra.Args.Args)-1 {
			f.write(",")
		}
	}
	f.indent--
	f.newline()
	f.write(")")
	f.indent--
}

func resourceAccess(x syntax.Expr) (*syntax.ResourceAccess, string) {
	check := ""
	if c, ok := x.(*syntax.CheckExpr); ok {
		check, x = c.Keyword, c.X
	}
	ra, _ := x.(*syntax.ResourceAccess)
	return ra, check
}

func unwrapQuery(x syntax.Expr) (string, *syntax.QueryExpr) {
	check := ""
	if c, ok := x.(*syntax.CheckExpr); ok {
		check, x = c.Keyword, c.X
	}
	q, _ := x.(*syntax.QueryExpr)
	return check, q
}

// verify parses out and compares its canonical source with n's.
func verify(n syntax.Node, out string) error {
	var parsed syntax.Node
	var err error
	switch n.(type) {
	case *syntax.QueryExpr:
		parsed, err = syntax.ParseQuery(n.Pos().File, 1, out)
	default:
		parsed, err = syntax.ParseStatement(n.Pos().File, 1, out)
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %v", n.Pos(), ErrUnstable, err)
	}
	if syntax.Source(parsed) != syntax.Source(n) {
		return fmt.Errorf("%s: %w", n.Pos(), ErrUnstable)
	}
	return nil
}

func isDefinition(m syntax.Member) bool {
	switch m.(type) {
	case *syntax.TypeDef, *syntax.ClassDef:
		return true
	}
	return false
}
