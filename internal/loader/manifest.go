package loader

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/persistsql/internal/syntax"
)

//go:embed schema.cue
var schemaCUE string

// CompileError is a manifest error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompilePackage validates a manifest value against the #Manifest schema
// and builds the package it declares.
//
// The value must hold a top-level "project" field, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`project: {name: "store", modules: {}}`)
//	pkg, err := CompilePackage(v)
func CompilePackage(v cue.Value) (*syntax.Package, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.LookupPath(cue.ParsePath("project")).Exists() {
		return nil, &CompileError{Field: "project", Message: "project is required", Pos: v.Pos()}
	}

	schema := v.Context().CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}
	m := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := m.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	// The schema only validates. Members are read from v so that positions
	// point into the manifest files.
	project := v.LookupPath(cue.ParsePath("project"))
	name, err := stringField(project, "name")
	if err != nil {
		return nil, err
	}
	pkg := &syntax.Package{Name: name}

	mv := project.LookupPath(cue.ParsePath("modules"))
	if !mv.Exists() {
		return pkg, nil
	}
	modules, err := mv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for modules.Next() {
		mod := &syntax.Module{Name: modules.Selector().Unquoted()}
		if mod.Documents, err = compileDocuments(modules.Value(), "documents"); err != nil {
			return nil, err
		}
		if mod.Tests, err = compileDocuments(modules.Value(), "tests"); err != nil {
			return nil, err
		}
		pkg.Modules = append(pkg.Modules, mod)
	}
	return pkg, nil
}

func compileDocuments(module cue.Value, field string) ([]*syntax.Document, error) {
	v := module.LookupPath(cue.ParsePath(field))
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var docs []*syntax.Document
	for iter.Next() {
		doc, err := compileDocument(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func compileDocument(name string, v cue.Value) (*syntax.Document, error) {
	doc := &syntax.Document{Name: name}
	add := func(m syntax.Member) { doc.Members = append(doc.Members, m) }

	err := eachElem(v, "types", func(e cue.Value) error {
		td, err := compileType(name, e)
		if err == nil {
			add(td)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachElem(v, "classes", func(e cue.Value) error {
		cd := &syntax.ClassDef{}
		var err error
		if cd.Name, err = stringField(e, "name"); err != nil {
			return err
		}
		if cd.Qualifiers, err = stringList(e, "qualifiers"); err != nil {
			return err
		}
		if cd.Members, err = stringList(e, "members"); err != nil {
			return err
		}
		cd.Loc, err = lineLocation(name, e)
		add(cd)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachElem(v, "variables", func(e cue.Value) error {
		vd := &syntax.VarDecl{}
		var err error
		if vd.Name, err = stringField(e, "name"); err != nil {
			return err
		}
		if vd.Type, err = stringField(e, "type"); err != nil {
			return err
		}
		vd.Loc, err = lineLocation(name, e)
		add(vd)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachElem(v, "statements", func(e cue.Value) error {
		line, src, err := sourceField(e)
		if err != nil {
			return err
		}
		m, err := syntax.ParseStatement(name, line, src)
		if err != nil {
			return parseError("statements", e, err)
		}
		add(m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachElem(v, "queries", func(e cue.Value) error {
		line, src, err := sourceField(e)
		if err != nil {
			return err
		}
		q, err := syntax.ParseQuery(name, line, src)
		if err != nil {
			return parseError("queries", e, err)
		}
		add(&syntax.ExprStmt{X: q, Loc: q.Pos()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	syntax.SortMembers(doc.Members)
	return doc, nil
}

func compileType(file string, v cue.Value) (*syntax.TypeDef, error) {
	td := &syntax.TypeDef{}
	var err error
	if td.Name, err = stringField(v, "name"); err != nil {
		return nil, err
	}
	if td.Closed, err = boolField(v, "closed", true); err != nil {
		return nil, err
	}
	err = eachElem(v, "fields", func(f cue.Value) error {
		var rf syntax.RecordField
		var err error
		if rf.Type, err = stringField(f, "type"); err != nil {
			return err
		}
		if rf.Name, err = stringField(f, "name"); err != nil {
			return err
		}
		if rf.Readonly, err = boolField(f, "readonly", false); err != nil {
			return err
		}
		td.Fields = append(td.Fields, rf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	td.Loc, err = lineLocation(file, v)
	return td, err
}

// eachElem calls fn for every element of the optional list field.
func eachElem(v cue.Value, field string, fn func(cue.Value) error) error {
	list := v.LookupPath(cue.ParsePath(field))
	if !list.Exists() {
		return nil
	}
	iter, err := list.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func stringField(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func boolField(v cue.Value, field string, def bool) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return def, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	var out []string
	err := eachElem(v, field, func(e cue.Value) error {
		s, err := e.String()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// lineLocation returns the location of a member with an optional "line"
// field. Members without a line get an invalid location and sort last.
func lineLocation(file string, v cue.Value) (syntax.Location, error) {
	f := v.LookupPath(cue.ParsePath("line"))
	if !f.Exists() {
		return syntax.Location{File: file}, nil
	}
	line, err := f.Int64()
	if err != nil {
		return syntax.Location{}, formatCUEError(err)
	}
	return syntax.Location{File: file, Line: int(line), Column: 1}, nil
}

func sourceField(v cue.Value) (int, string, error) {
	line, err := v.LookupPath(cue.ParsePath("line")).Int64()
	if err != nil {
		return 0, "", formatCUEError(err)
	}
	src, err := stringField(v, "source")
	if err != nil {
		return 0, "", err
	}
	return int(line), src, nil
}

func parseError(field string, v cue.Value, err error) error {
	return &CompileError{
		Field:   field,
		Message: err.Error(),
		Pos:     v.LookupPath(cue.ParsePath("source")).Pos(),
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	ce := &CompileError{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
