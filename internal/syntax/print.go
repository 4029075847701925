package syntax

import (
	"strings"
)

// Source renders a node as canonical single-line source text.
//
// The output of Source for any expression parses back (ParseExpr) into a
// tree whose Source is identical. Documents render one member per line
// with a blank line between top-level type and class definitions.
func Source(n Node) string {
	var p printer
	p.node(n)
	return p.String()
}

type printer struct {
	strings.Builder
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case Expr:
		p.expr(n)
	case Arg:
		p.arg(n)
	case Clause:
		p.clause(n)
	case BindingPattern:
		p.binding(n)
	case Member:
		p.member(n)
	case *QueryPipeline:
		p.pipeline(n)
	case *FromClause:
		p.from(n)
	case *SelectClause:
		p.WriteString("select ")
		p.expr(n.X)
	case *Document:
		p.document(n)
	}
}

func (p *printer) document(d *Document) {
	for i, m := range d.Members {
		if i > 0 {
			p.WriteString("\n")
			if isDefinition(m) || isDefinition(d.Members[i-1]) {
				p.WriteString("\n")
			}
		}
		p.member(m)
	}
	if len(d.Members) > 0 {
		p.WriteString("\n")
	}
}

func isDefinition(m Member) bool {
	switch m.(type) {
	case *TypeDef, *ClassDef:
		return true
	}
	return false
}

func (p *printer) member(m Member) {
	switch m := m.(type) {
	case *TypeDef:
		p.WriteString("type ")
		p.WriteString(m.Name)
		openTok, closeTok := "{", "}"
		if m.Closed {
			openTok, closeTok = "{|", "|}"
		}
		p.WriteString(" record ")
		p.WriteString(openTok)
		for _, f := range m.Fields {
			p.WriteString(" ")
			if f.Readonly {
				p.WriteString("readonly ")
			}
			p.WriteString(f.Type)
			p.WriteString(" ")
			p.WriteString(f.Name)
			p.WriteString(";")
		}
		p.WriteString(" ")
		p.WriteString(closeTok)
		p.WriteString(";")
	case *ClassDef:
		for _, q := range m.Qualifiers {
			p.WriteString(q)
			p.WriteString(" ")
		}
		p.WriteString("class ")
		p.WriteString(m.Name)
		p.WriteString(" {")
		for _, mem := range m.Members {
			p.WriteString(" ")
			p.WriteString(mem)
		}
		p.WriteString(" }")
	case *VarDecl:
		p.WriteString(m.Type)
		p.WriteString(" ")
		p.WriteString(m.Name)
		if m.Init != nil {
			p.WriteString(" = ")
			p.expr(m.Init)
		}
		p.WriteString(";")
	case *ExprStmt:
		p.expr(m.X)
		p.WriteString(";")
	}
}

func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *BinaryExpr:
		p.expr(e.X)
		p.WriteString(" ")
		p.WriteString(e.Op)
		p.WriteString(" ")
		p.expr(e.Y)
	case *UnaryExpr:
		p.WriteString(e.Op)
		p.expr(e.X)
	case *BracedExpr:
		p.WriteString("(")
		p.expr(e.X)
		p.WriteString(")")
	case *NameRef:
		if e.Prefix != "" {
			p.WriteString(e.Prefix)
			p.WriteString(":")
		}
		p.WriteString(e.Name)
	case *FieldAccess:
		p.expr(e.X)
		p.WriteString(".")
		p.WriteString(e.Field)
	case *OptionalFieldAccess:
		p.expr(e.X)
		p.WriteString("?.")
		p.WriteString(e.Field)
	case *IndexedExpr:
		p.expr(e.X)
		p.WriteString("[")
		p.expr(e.Index)
		p.WriteString("]")
	case *Literal:
		p.WriteString(e.Value)
	case *TemplateExpr:
		if e.Tag != "" {
			p.WriteString(e.Tag)
			p.WriteString(" ")
		}
		p.WriteString("`")
		for _, part := range e.Parts {
			switch part := part.(type) {
			case TemplateText:
				p.WriteString(part.Text)
			case TemplateInterp:
				p.WriteString("${")
				p.expr(part.X)
				p.WriteString("}")
			}
		}
		p.WriteString("`")
	case *MappingConstructor:
		p.WriteString("{")
		for i, f := range e.Fields {
			if i > 0 {
				p.WriteString(", ")
			}
			p.WriteString(f.Key)
			p.WriteString(": ")
			p.expr(f.Value)
		}
		p.WriteString("}")
	case *CallExpr:
		p.expr(e.Fn)
		p.args(e.Args)
	case *CheckExpr:
		p.WriteString(e.Keyword)
		p.WriteString(" ")
		p.expr(e.X)
	case *ResourceAccess:
		p.expr(e.Client)
		p.WriteString("->/")
		for i, s := range e.Path {
			if i > 0 {
				p.WriteString("/")
			}
			if s.Key != nil {
				p.WriteString("[")
				p.expr(s.Key)
				p.WriteString("]")
				continue
			}
			p.WriteString(s.Name)
		}
		if e.Method != "" {
			p.WriteString(".")
			p.WriteString(e.Method)
		}
		if e.Args != nil {
			p.args(e.Args.Args)
		}
	case *RemoteMethodCall:
		p.expr(e.Client)
		p.WriteString("->")
		p.WriteString(e.Method)
		p.args(e.Args)
	case *QueryExpr:
		p.pipeline(e.Pipeline)
		if e.Select != nil {
			p.WriteString(" select ")
			p.expr(e.Select.X)
		}
	}
}

func (p *printer) args(args []Arg) {
	p.WriteString("(")
	for i, a := range args {
		if i > 0 {
			p.WriteString(", ")
		}
		p.arg(a)
	}
	p.WriteString(")")
}

func (p *printer) arg(a Arg) {
	switch a := a.(type) {
	case *PositionalArg:
		p.expr(a.X)
	case *NamedArg:
		p.WriteString(a.Name)
		p.WriteString(" = ")
		p.expr(a.X)
	}
}

func (p *printer) pipeline(q *QueryPipeline) {
	p.from(q.From)
	for _, c := range q.Clauses {
		p.WriteString(" ")
		p.clause(c)
	}
}

func (p *printer) from(f *FromClause) {
	p.WriteString("from ")
	p.WriteString(f.Type)
	p.WriteString(" ")
	p.binding(f.Binding)
	p.WriteString(" in ")
	p.expr(f.Source)
}

func (p *printer) binding(b BindingPattern) {
	switch b := b.(type) {
	case *CaptureBinding:
		p.WriteString(b.Name)
	case *MappingBinding:
		p.WriteString("{")
		for i, f := range b.Fields {
			if i > 0 {
				p.WriteString(", ")
			}
			p.WriteString(f.Field)
			if !f.Shorthand() {
				p.WriteString(": ")
				p.WriteString(f.Var)
			}
		}
		p.WriteString("}")
	}
}

func (p *printer) clause(c Clause) {
	switch c := c.(type) {
	case *WhereClause:
		p.WriteString("where ")
		p.expr(c.X)
	case *OrderByClause:
		p.WriteString("order by ")
		for i, k := range c.Keys {
			if i > 0 {
				p.WriteString(", ")
			}
			p.expr(k.X)
			if k.Direction != "" {
				p.WriteString(" ")
				p.WriteString(k.Direction)
			}
		}
	case *GroupByClause:
		p.WriteString("group by ")
		for i, k := range c.Keys {
			if i > 0 {
				p.WriteString(", ")
			}
			if k.IsDeclaration() {
				p.WriteString(k.Type)
				p.WriteString(" ")
				p.WriteString(k.Name)
				p.WriteString(" = ")
			}
			p.expr(k.X)
		}
	case *LimitClause:
		p.WriteString("limit ")
		p.expr(c.X)
	case *LetClause:
		p.WriteString("let ")
		for i, b := range c.Bindings {
			if i > 0 {
				p.WriteString(", ")
			}
			p.WriteString(b.Type)
			p.WriteString(" ")
			p.WriteString(b.Name)
			p.WriteString(" = ")
			p.expr(b.X)
		}
	}
}
