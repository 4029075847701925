package syntax

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax error at a source location.
type ParseError struct {
	Loc     Location
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// ParseExpr parses a single expression. line is the 1-based line of the
// first character of src within file; positions of the resulting nodes
// are relative to it.
func ParseExpr(file string, line int, src string) (Expr, error) {
	return parseExprAt(file, Location{Line: line, Column: 1}, src)
}

// ParseQuery parses a query expression ("from ... select ...").
func ParseQuery(file string, line int, src string) (*QueryExpr, error) {
	e, err := ParseExpr(file, line, src)
	if err != nil {
		return nil, err
	}
	q, ok := e.(*QueryExpr)
	if !ok {
		return nil, &ParseError{Loc: e.Pos(), Message: "expected query expression"}
	}
	return q, nil
}

// ParseStatement parses a variable declaration ("T name = expr;") or an
// expression statement. The trailing semicolon is optional.
func ParseStatement(file string, line int, src string) (Member, error) {
	p, err := newParser(file, Location{Line: line, Column: 1}, src)
	if err != nil {
		return nil, err
	}
	m, err := p.statement()
	if err != nil {
		return nil, err
	}
	if p.peek().is(";") {
		p.next()
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseExprAt(file string, start Location, src string) (Expr, error) {
	p, err := newParser(file, start, src)
	if err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

type parser struct {
	file string
	toks []token
	pos  int
}

func newParser(file string, start Location, src string) (*parser, error) {
	toks, err := newLexer(file, start, src).tokens()
	if err != nil {
		return nil, err
	}
	return &parser{file: file, toks: toks}, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekN(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Loc: t.loc, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectOp(op string) (token, error) {
	t := p.peek()
	if !t.is(op) {
		return t, p.errorf(t, "expected %q, found %s", op, t)
	}
	return p.next(), nil
}

func (p *parser) expectKeyword(kw string) (token, error) {
	t := p.peek()
	if !t.keyword(kw) {
		return t, p.errorf(t, "expected %q, found %s", kw, t)
	}
	return p.next(), nil
}

func (p *parser) expectIdent() (token, error) {
	t := p.peek()
	if t.kind != tIdent || t.prefix != "" {
		return t, p.errorf(t, "expected identifier, found %s", t)
	}
	return p.next(), nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tEOF {
		return p.errorf(t, "unexpected %s", t)
	}
	return nil
}

// Reserved words that terminate an expression inside a query pipeline.
var clauseKeywords = map[string]bool{
	"from": true, "where": true, "order": true, "group": true, "limit": true,
	"let": true, "select": true, "in": true, "ascending": true, "descending": true,
}

func (p *parser) statement() (Member, error) {
	start := p.peek()
	save := p.pos
	if typ, ok := p.typeDesc(); ok {
		if name := p.peek(); name.kind == tIdent && name.prefix == "" && !clauseKeywords[name.text] {
			after := p.peekN(1)
			if after.is("=") || after.is(";") || after.kind == tEOF {
				p.next()
				decl := &VarDecl{Type: typ, Name: name.text, Loc: start.loc}
				if after.is("=") {
					p.next()
					init, err := p.expr()
					if err != nil {
						return nil, err
					}
					decl.Init = init
				}
				return decl, nil
			}
		}
	}
	p.pos = save
	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{X: x, Loc: start.loc}, nil
}

// typeDesc parses a type descriptor and returns its canonical text. It
// reports false, without consuming a well-defined amount of input, when
// the tokens do not form a type descriptor; callers backtrack.
func (p *parser) typeDesc() (string, bool) {
	t := p.peek()
	if t.kind != tIdent && !t.is("(") {
		return "", false
	}
	var b strings.Builder
	if t.is("(") {
		// nil type "()"
		if !p.peekN(1).is(")") {
			return "", false
		}
		p.next()
		p.next()
		b.WriteString("()")
	} else {
		if clauseKeywords[t.text] && t.prefix == "" {
			return "", false
		}
		p.next()
		if t.prefix != "" {
			b.WriteString(t.prefix)
			b.WriteString(":")
		}
		b.WriteString(t.text)
	}
	if p.peek().is("<") {
		p.next()
		b.WriteString("<")
		for {
			inner, ok := p.typeDesc()
			if !ok {
				return "", false
			}
			b.WriteString(inner)
			if p.peek().is(",") {
				p.next()
				b.WriteString(", ")
				continue
			}
			break
		}
		if !p.peek().is(">") {
			return "", false
		}
		p.next()
		b.WriteString(">")
	}
	for {
		switch {
		case p.peek().is("[") && p.peekN(1).is("]"):
			p.next()
			p.next()
			b.WriteString("[]")
		case p.peek().is("?") && !p.peek().spaceBefore:
			p.next()
			b.WriteString("?")
		case p.peek().is("|"):
			p.next()
			inner, ok := p.typeDesc()
			if !ok {
				return "", false
			}
			b.WriteString("|")
			b.WriteString(inner)
		default:
			return b.String(), true
		}
	}
}

func (p *parser) expr() (Expr, error) {
	return p.binary(0)
}

// Binary operator precedence levels, loosest first.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!=", "===", "!=="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) binary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	x, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tOp || !contains(binaryLevels[level], t.text) {
			return x, nil
		}
		p.next()
		y, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: t.text, X: x, Y: y, Loc: x.Pos()}
	}
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func (p *parser) unary() (Expr, error) {
	t := p.peek()
	switch {
	case t.is("!") || t.is("-") || t.is("+") || t.is("~"):
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: t.text, X: x, Loc: t.loc}, nil
	case t.keyword("check") || t.keyword("checkpanic"):
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &CheckExpr{Keyword: t.text, X: x, Loc: t.loc}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.is("."):
			p.next()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			x = &FieldAccess{X: x, Field: name.text, Loc: x.Pos()}
		case t.is("?."):
			p.next()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			x = &OptionalFieldAccess{X: x, Field: name.text, Loc: x.Pos()}
		case t.is("["):
			p.next()
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}
			x = &IndexedExpr{X: x, Index: idx, Loc: x.Pos()}
		case t.is("(") && isCallable(x):
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			x = &CallExpr{Fn: x, Args: args.Args, Loc: x.Pos()}
		case t.is("->"):
			p.next()
			x, err = p.action(x)
			if err != nil {
				return nil, err
			}
		default:
			return x, nil
		}
	}
}

func isCallable(x Expr) bool {
	switch x.(type) {
	case *NameRef, *FieldAccess:
		return true
	}
	return false
}

// action parses the part of a client action after "->": either a resource
// access "/path.method(args)" or a remote method call "method(args)".
func (p *parser) action(client Expr) (Expr, error) {
	if p.peek().is("/") {
		p.next()
		ra := &ResourceAccess{Client: client, Loc: client.Pos()}
		for {
			t := p.peek()
			switch {
			case t.is("["):
				p.next()
				key, err := p.expr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expectOp("]"); err != nil {
					return nil, err
				}
				ra.Path = append(ra.Path, PathSegment{Key: key})
			case t.kind == tIdent && t.prefix == "" && !clauseKeywords[t.text]:
				p.next()
				ra.Path = append(ra.Path, PathSegment{Name: t.text})
			default:
				if len(ra.Path) > 0 {
					return nil, p.errorf(t, "expected resource path segment, found %s", t)
				}
			}
			if len(ra.Path) == 0 || !p.peek().is("/") {
				break
			}
			p.next()
		}
		if p.peek().is(".") {
			p.next()
			m, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			ra.Method = m.text
		}
		if p.peek().is("(") {
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			ra.Args = args
		}
		return ra, nil
	}
	m, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	args, err := p.argList()
	if err != nil {
		return nil, err
	}
	return &RemoteMethodCall{Client: client, Method: m.text, Args: args.Args, Loc: client.Pos()}, nil
}

func (p *parser) argList() (*ArgList, error) {
	open, err := p.expectOp("(")
	if err != nil {
		return nil, err
	}
	list := &ArgList{Args: []Arg{}, Loc: open.loc}
	if p.peek().is(")") {
		p.next()
		return list, nil
	}
	for {
		t := p.peek()
		if t.kind == tIdent && t.prefix == "" && p.peekN(1).is("=") {
			p.next()
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			list.Args = append(list.Args, &NamedArg{Name: t.text, X: x, Loc: t.loc})
		} else {
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			list.Args = append(list.Args, &PositionalArg{X: x, Loc: t.loc})
		}
		if p.peek().is(",") {
			p.next()
			continue
		}
		if _, err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return list, nil
	}
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tNumber:
		p.next()
		return &Literal{Kind: NumericLiteral, Value: t.text, Loc: t.loc}, nil
	case tString:
		p.next()
		return &Literal{Kind: StringLiteral, Value: t.text, Loc: t.loc}, nil
	case tTemplate:
		p.next()
		return p.template("", t)
	case tIdent:
		if t.prefix == "" {
			switch t.text {
			case "true", "false":
				p.next()
				return &Literal{Kind: BooleanLiteral, Value: t.text, Loc: t.loc}, nil
			case "null":
				p.next()
				return &Literal{Kind: NilLiteral, Value: t.text, Loc: t.loc}, nil
			case "from":
				return p.query()
			case "string", "xml", "re":
				if p.peekN(1).kind == tTemplate {
					p.next()
					return p.template(t.text, p.next())
				}
			}
			if clauseKeywords[t.text] {
				return nil, p.errorf(t, "unexpected keyword %q", t.text)
			}
		}
		p.next()
		return &NameRef{Prefix: t.prefix, Name: t.text, Loc: t.loc}, nil
	case tOp:
		switch t.text {
		case "(":
			p.next()
			if p.peek().is(")") {
				p.next()
				return &Literal{Kind: NilLiteral, Value: "()", Loc: t.loc}, nil
			}
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return &BracedExpr{X: x, Loc: t.loc}, nil
		case "{":
			return p.mapping()
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

func (p *parser) template(tag string, t token) (Expr, error) {
	tmpl := &TemplateExpr{Tag: tag, Parts: []TemplatePart{}, Loc: t.loc}
	for _, c := range t.chunks {
		if !c.interp {
			tmpl.Parts = append(tmpl.Parts, TemplateText{Text: c.text})
			continue
		}
		x, err := parseExprAt(p.file, c.loc, c.text)
		if err != nil {
			return nil, err
		}
		tmpl.Parts = append(tmpl.Parts, TemplateInterp{X: x})
	}
	return tmpl, nil
}

func (p *parser) mapping() (Expr, error) {
	open := p.next()
	m := &MappingConstructor{Loc: open.loc}
	if p.peek().is("}") {
		p.next()
		return m, nil
	}
	for {
		k := p.peek()
		if k.kind != tIdent && k.kind != tString {
			return nil, p.errorf(k, "expected field name, found %s", k)
		}
		p.next()
		if _, err := p.expectOp(":"); err != nil {
			return nil, err
		}
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, MappingField{Key: k.text, Value: v})
		if p.peek().is(",") {
			p.next()
			continue
		}
		if _, err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (p *parser) query() (Expr, error) {
	fromTok, err := p.expectKeyword("from")
	if err != nil {
		return nil, err
	}
	typ, ok := p.typeDesc()
	if !ok {
		return nil, p.errorf(p.peek(), "expected type descriptor or \"var\" after \"from\"")
	}
	binding, err := p.bindingPattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	src, err := p.expr()
	if err != nil {
		return nil, err
	}
	pipeline := &QueryPipeline{
		From: &FromClause{Type: typ, Binding: binding, Source: src, Loc: fromTok.loc},
		Loc:  fromTok.loc,
	}
	for {
		t := p.peek()
		switch {
		case t.keyword("where"):
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			pipeline.Clauses = append(pipeline.Clauses, &WhereClause{X: x, Loc: t.loc})
		case t.keyword("order"):
			c, err := p.orderBy()
			if err != nil {
				return nil, err
			}
			pipeline.Clauses = append(pipeline.Clauses, c)
		case t.keyword("group"):
			c, err := p.groupBy()
			if err != nil {
				return nil, err
			}
			pipeline.Clauses = append(pipeline.Clauses, c)
		case t.keyword("limit"):
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			pipeline.Clauses = append(pipeline.Clauses, &LimitClause{X: x, Loc: t.loc})
		case t.keyword("let"):
			c, err := p.let()
			if err != nil {
				return nil, err
			}
			pipeline.Clauses = append(pipeline.Clauses, c)
		case t.keyword("select"):
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &QueryExpr{
				Pipeline: pipeline,
				Select:   &SelectClause{X: x, Loc: t.loc},
				Loc:      fromTok.loc,
			}, nil
		default:
			return nil, p.errorf(t, "expected query clause or \"select\", found %s", t)
		}
	}
}

func (p *parser) bindingPattern() (BindingPattern, error) {
	t := p.peek()
	if t.is("{") {
		p.next()
		mb := &MappingBinding{Loc: t.loc}
		for {
			f, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			fb := FieldBinding{Field: f.text, Var: f.text}
			if p.peek().is(":") {
				p.next()
				v, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				fb.Var = v.text
			}
			mb.Fields = append(mb.Fields, fb)
			if p.peek().is(",") {
				p.next()
				continue
			}
			if _, err := p.expectOp("}"); err != nil {
				return nil, err
			}
			return mb, nil
		}
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &CaptureBinding{Name: name.text, Loc: name.loc}, nil
}

func (p *parser) orderBy() (Clause, error) {
	t := p.next()
	if _, err := p.expectKeyword("by"); err != nil {
		return nil, err
	}
	c := &OrderByClause{Loc: t.loc}
	for {
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		key := OrderKey{X: x}
		if d := p.peek(); d.keyword("ascending") || d.keyword("descending") {
			p.next()
			key.Direction = d.text
		}
		c.Keys = append(c.Keys, key)
		if !p.peek().is(",") {
			return c, nil
		}
		p.next()
	}
}

func (p *parser) groupBy() (Clause, error) {
	t := p.next()
	if _, err := p.expectKeyword("by"); err != nil {
		return nil, err
	}
	c := &GroupByClause{Loc: t.loc}
	for {
		key, err := p.groupingKey()
		if err != nil {
			return nil, err
		}
		c.Keys = append(c.Keys, key)
		if !p.peek().is(",") {
			return c, nil
		}
		p.next()
	}
}

func (p *parser) groupingKey() (GroupingKey, error) {
	save := p.pos
	if typ, ok := p.typeDesc(); ok {
		if name := p.peek(); name.kind == tIdent && name.prefix == "" && p.peekN(1).is("=") {
			p.next()
			p.next()
			x, err := p.expr()
			if err != nil {
				return GroupingKey{}, err
			}
			return GroupingKey{Type: typ, Name: name.text, X: x}, nil
		}
	}
	p.pos = save
	x, err := p.expr()
	if err != nil {
		return GroupingKey{}, err
	}
	return GroupingKey{X: x}, nil
}

func (p *parser) let() (Clause, error) {
	t := p.next()
	c := &LetClause{Loc: t.loc}
	for {
		typ, ok := p.typeDesc()
		if !ok {
			return nil, p.errorf(p.peek(), "expected type descriptor in let clause")
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOp("="); err != nil {
			return nil, err
		}
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		c.Bindings = append(c.Bindings, LetBinding{Type: typ, Name: name.text, X: x})
		if !p.peek().is(",") {
			return c, nil
		}
		p.next()
	}
}
