package syntax

// Inspect traverses the tree rooted at n in depth-first source order,
// calling fn for every node. If fn returns false the children of that node
// are skipped.
//
// Visited node kinds: *Document, members, expressions, arguments,
// *QueryPipeline, *FromClause, clauses, *SelectClause and binding patterns.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Document:
		for _, m := range n.Members {
			Inspect(m, fn)
		}
	case *TypeDef, *ClassDef:
		// leaves
	case *VarDecl:
		inspectExpr(n.Init, fn)
	case *ExprStmt:
		inspectExpr(n.X, fn)

	case *BinaryExpr:
		inspectExpr(n.X, fn)
		inspectExpr(n.Y, fn)
	case *UnaryExpr:
		inspectExpr(n.X, fn)
	case *BracedExpr:
		inspectExpr(n.X, fn)
	case *NameRef, *Literal:
		// leaves
	case *FieldAccess:
		inspectExpr(n.X, fn)
	case *OptionalFieldAccess:
		inspectExpr(n.X, fn)
	case *IndexedExpr:
		inspectExpr(n.X, fn)
		inspectExpr(n.Index, fn)
	case *TemplateExpr:
		for _, p := range n.Parts {
			if in, ok := p.(TemplateInterp); ok {
				inspectExpr(in.X, fn)
			}
		}
	case *MappingConstructor:
		for _, f := range n.Fields {
			inspectExpr(f.Value, fn)
		}
	case *CallExpr:
		inspectExpr(n.Fn, fn)
		inspectArgs(n.Args, fn)
	case *CheckExpr:
		inspectExpr(n.X, fn)
	case *ResourceAccess:
		inspectExpr(n.Client, fn)
		for _, s := range n.Path {
			inspectExpr(s.Key, fn)
		}
		if n.Args != nil {
			inspectArgs(n.Args.Args, fn)
		}
	case *RemoteMethodCall:
		inspectExpr(n.Client, fn)
		inspectArgs(n.Args, fn)
	case *QueryExpr:
		if n.Pipeline != nil {
			Inspect(n.Pipeline, fn)
		}
		if n.Select != nil {
			Inspect(n.Select, fn)
		}

	case *PositionalArg:
		inspectExpr(n.X, fn)
	case *NamedArg:
		inspectExpr(n.X, fn)

	case *QueryPipeline:
		if n.From != nil {
			Inspect(n.From, fn)
		}
		for _, c := range n.Clauses {
			Inspect(c, fn)
		}
	case *FromClause:
		if n.Binding != nil {
			Inspect(n.Binding, fn)
		}
		inspectExpr(n.Source, fn)
	case *WhereClause:
		inspectExpr(n.X, fn)
	case *OrderByClause:
		for _, k := range n.Keys {
			inspectExpr(k.X, fn)
		}
	case *GroupByClause:
		for _, k := range n.Keys {
			inspectExpr(k.X, fn)
		}
	case *LimitClause:
		inspectExpr(n.X, fn)
	case *LetClause:
		for _, b := range n.Bindings {
			inspectExpr(b.X, fn)
		}
	case *SelectClause:
		inspectExpr(n.X, fn)
	case *CaptureBinding, *MappingBinding:
		// leaves
	}
}

func inspectExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Inspect(e, fn)
	}
}

func inspectArgs(args []Arg, fn func(Node) bool) {
	for _, a := range args {
		Inspect(a, fn)
	}
}

// Replace returns a copy of doc in which every expression that is a key of
// repl is substituted by the corresponding value. Subtrees that contain no
// substitution are shared with doc; doc itself is never modified. The
// second result reports whether any substitution happened.
func Replace(doc *Document, repl map[Expr]Expr) (*Document, bool) {
	r := replacer{repl: repl}
	members := make([]Member, len(doc.Members))
	changed := false
	for i, m := range doc.Members {
		nm, c := r.member(m)
		members[i] = nm
		changed = changed || c
	}
	if !changed {
		return doc, false
	}
	return &Document{Name: doc.Name, Members: members}, true
}

type replacer struct {
	repl map[Expr]Expr
}

func (r replacer) member(m Member) (Member, bool) {
	switch m := m.(type) {
	case *VarDecl:
		init, c := r.expr(m.Init)
		if !c {
			return m, false
		}
		cp := *m
		cp.Init = init
		return &cp, true
	case *ExprStmt:
		x, c := r.expr(m.X)
		if !c {
			return m, false
		}
		cp := *m
		cp.X = x
		return &cp, true
	default:
		return m, false
	}
}

func (r replacer) expr(e Expr) (Expr, bool) {
	if e == nil {
		return nil, false
	}
	if sub, ok := r.repl[e]; ok {
		return sub, true
	}
	switch n := e.(type) {
	case *BinaryExpr:
		x, cx := r.expr(n.X)
		y, cy := r.expr(n.Y)
		if !cx && !cy {
			return e, false
		}
		cp := *n
		cp.X, cp.Y = x, y
		return &cp, true
	case *UnaryExpr:
		x, c := r.expr(n.X)
		if !c {
			return e, false
		}
		cp := *n
		cp.X = x
		return &cp, true
	case *BracedExpr:
		x, c := r.expr(n.X)
		if !c {
			return e, false
		}
		cp := *n
		cp.X = x
		return &cp, true
	case *FieldAccess:
		x, c := r.expr(n.X)
		if !c {
			return e, false
		}
		cp := *n
		cp.X = x
		return &cp, true
	case *OptionalFieldAccess:
		x, c := r.expr(n.X)
		if !c {
			return e, false
		}
		cp := *n
		cp.X = x
		return &cp, true
	case *IndexedExpr:
		x, cx := r.expr(n.X)
		i, ci := r.expr(n.Index)
		if !cx && !ci {
			return e, false
		}
		cp := *n
		cp.X, cp.Index = x, i
		return &cp, true
	case *TemplateExpr:
		parts := make([]TemplatePart, len(n.Parts))
		changed := false
		for i, p := range n.Parts {
			parts[i] = p
			if in, ok := p.(TemplateInterp); ok {
				x, c := r.expr(in.X)
				if c {
					parts[i] = TemplateInterp{X: x}
					changed = true
				}
			}
		}
		if !changed {
			return e, false
		}
		cp := *n
		cp.Parts = parts
		return &cp, true
	case *MappingConstructor:
		fields := make([]MappingField, len(n.Fields))
		changed := false
		for i, f := range n.Fields {
			v, c := r.expr(f.Value)
			fields[i] = MappingField{Key: f.Key, Value: v}
			changed = changed || c
		}
		if !changed {
			return e, false
		}
		cp := *n
		cp.Fields = fields
		return &cp, true
	case *CallExpr:
		fn, cf := r.expr(n.Fn)
		args, ca := r.args(n.Args)
		if !cf && !ca {
			return e, false
		}
		cp := *n
		cp.Fn, cp.Args = fn, args
		return &cp, true
	case *CheckExpr:
		x, c := r.expr(n.X)
		if !c {
			return e, false
		}
		cp := *n
		cp.X = x
		return &cp, true
	case *ResourceAccess:
		client, cc := r.expr(n.Client)
		path := make([]PathSegment, len(n.Path))
		cpth := false
		for i, s := range n.Path {
			k, c := r.expr(s.Key)
			path[i] = PathSegment{Name: s.Name, Key: k}
			cpth = cpth || c
		}
		var args *ArgList
		ca := false
		if n.Args != nil {
			var list []Arg
			list, ca = r.args(n.Args.Args)
			args = &ArgList{Args: list, Loc: n.Args.Loc}
		}
		if !cc && !cpth && !ca {
			return e, false
		}
		cp := *n
		cp.Client, cp.Path, cp.Args = client, path, args
		return &cp, true
	case *RemoteMethodCall:
		client, cc := r.expr(n.Client)
		args, ca := r.args(n.Args)
		if !cc && !ca {
			return e, false
		}
		cp := *n
		cp.Client, cp.Args = client, args
		return &cp, true
	case *QueryExpr:
		p, cpipe := r.pipeline(n.Pipeline)
		var sel *SelectClause
		csel := false
		if n.Select != nil {
			var x Expr
			x, csel = r.expr(n.Select.X)
			sel = &SelectClause{X: x, Loc: n.Select.Loc}
		}
		if !cpipe && !csel {
			return e, false
		}
		cp := *n
		cp.Pipeline, cp.Select = p, sel
		return &cp, true
	default:
		return e, false
	}
}

func (r replacer) args(args []Arg) ([]Arg, bool) {
	out := make([]Arg, len(args))
	changed := false
	for i, a := range args {
		out[i] = a
		switch a := a.(type) {
		case *PositionalArg:
			if x, c := r.expr(a.X); c {
				out[i] = &PositionalArg{X: x, Loc: a.Loc}
				changed = true
			}
		case *NamedArg:
			if x, c := r.expr(a.X); c {
				out[i] = &NamedArg{Name: a.Name, X: x, Loc: a.Loc}
				changed = true
			}
		}
	}
	if !changed {
		return args, false
	}
	return out, true
}

func (r replacer) pipeline(p *QueryPipeline) (*QueryPipeline, bool) {
	if p == nil {
		return nil, false
	}
	changed := false
	var from *FromClause
	if p.From != nil {
		src, c := r.expr(p.From.Source)
		cp := *p.From
		cp.Source = src
		from = &cp
		changed = c
	}
	clauses := make([]Clause, len(p.Clauses))
	for i, cl := range p.Clauses {
		nc, c := r.clause(cl)
		clauses[i] = nc
		changed = changed || c
	}
	if !changed {
		return p, false
	}
	return &QueryPipeline{From: from, Clauses: clauses, Loc: p.Loc}, true
}

func (r replacer) clause(cl Clause) (Clause, bool) {
	switch c := cl.(type) {
	case *WhereClause:
		x, ch := r.expr(c.X)
		if !ch {
			return cl, false
		}
		return &WhereClause{X: x, Loc: c.Loc}, true
	case *LimitClause:
		x, ch := r.expr(c.X)
		if !ch {
			return cl, false
		}
		return &LimitClause{X: x, Loc: c.Loc}, true
	case *OrderByClause:
		keys := make([]OrderKey, len(c.Keys))
		changed := false
		for i, k := range c.Keys {
			x, ch := r.expr(k.X)
			keys[i] = OrderKey{X: x, Direction: k.Direction}
			changed = changed || ch
		}
		if !changed {
			return cl, false
		}
		return &OrderByClause{Keys: keys, Loc: c.Loc}, true
	case *GroupByClause:
		keys := make([]GroupingKey, len(c.Keys))
		changed := false
		for i, k := range c.Keys {
			x, ch := r.expr(k.X)
			keys[i] = GroupingKey{Type: k.Type, Name: k.Name, X: x}
			changed = changed || ch
		}
		if !changed {
			return cl, false
		}
		return &GroupByClause{Keys: keys, Loc: c.Loc}, true
	case *LetClause:
		bindings := make([]LetBinding, len(c.Bindings))
		changed := false
		for i, b := range c.Bindings {
			x, ch := r.expr(b.X)
			bindings[i] = LetBinding{Type: b.Type, Name: b.Name, X: x}
			changed = changed || ch
		}
		if !changed {
			return cl, false
		}
		return &LetClause{Bindings: bindings, Loc: c.Loc}, true
	default:
		return cl, false
	}
}
