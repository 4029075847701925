package syntax

import (
	"fmt"
	"sort"
)

// Member is a top-level (or statement-level) member of a document.
//
// This is a sealed interface. Member kinds:
//   - TypeDef: record type definitions
//   - ClassDef: class definitions
//   - VarDecl: module or local variable declarations
//   - ExprStmt: expression statements
type Member interface {
	Node
	memberNode() // Marker method - seals interface to this package
}

// RecordField is a field of a record type definition.
type RecordField struct {
	Type     string
	Name     string
	Readonly bool
}

// TypeDef is "type Name record {| ... |};". Closed records use the
// "{| |}" delimiters.
type TypeDef struct {
	Name   string
	Closed bool
	Fields []RecordField
	Loc    Location
}

func (*TypeDef) memberNode()     {}
func (d *TypeDef) Pos() Location { return d.Loc }

// ClassDef is a class definition. Members holds the member declarations as
// written, one entry per member (e.g. "*persist:AbstractPersistClient;").
type ClassDef struct {
	Qualifiers []string // "client", "isolated", ...
	Name       string
	Members    []string
	Loc        Location
}

func (*ClassDef) memberNode()     {}
func (d *ClassDef) Pos() Location { return d.Loc }

// VarDecl is "Type Name [= Init];".
type VarDecl struct {
	Type string
	Name string
	Init Expr // nil when the variable is declared without an initializer
	Loc  Location
}

func (*VarDecl) memberNode()     {}
func (d *VarDecl) Pos() Location { return d.Loc }

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	X   Expr
	Loc Location
}

func (*ExprStmt) memberNode()     {}
func (s *ExprStmt) Pos() Location { return s.Loc }

// Document is a single source file.
type Document struct {
	Name    string
	Members []Member
}

// Pos returns a location naming the document file.
func (d *Document) Pos() Location { return Location{File: d.Name} }

// Pipelines returns every query pipeline in the document, including
// pipelines nested inside other expressions, in source order.
func (d *Document) Pipelines() []*QueryPipeline {
	var out []*QueryPipeline
	Inspect(d, func(n Node) bool {
		if p, ok := n.(*QueryPipeline); ok {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Module groups production documents and test documents.
type Module struct {
	Name      string
	Documents []*Document
	Tests     []*Document
}

// Package is the unit of compilation: all modules of a project.
type Package struct {
	Name    string
	Modules []*Module
}

// DocumentID identifies a document within a package.
type DocumentID struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Test   bool   `json:"test,omitempty"`
}

// String formats the id as module/name, with a "(test)" suffix for test
// documents.
func (id DocumentID) String() string {
	s := id.Module + "/" + id.Name
	if id.Test {
		s += " (test)"
	}
	return s
}

// Entry pairs a document with its id.
type Entry struct {
	ID  DocumentID
	Doc *Document
}

// Documents lists every document of the package: for each module, the
// production documents followed by the test documents.
func (p *Package) Documents() []Entry {
	var out []Entry
	for _, m := range p.Modules {
		for _, d := range m.Documents {
			out = append(out, Entry{ID: DocumentID{Module: m.Name, Name: d.Name}, Doc: d})
		}
		for _, d := range m.Tests {
			out = append(out, Entry{ID: DocumentID{Module: m.Name, Name: d.Name, Test: true}, Doc: d})
		}
	}
	return out
}

// Lookup finds a document by id.
func (p *Package) Lookup(id DocumentID) (*Document, bool) {
	for _, e := range p.Documents() {
		if e.ID == id {
			return e.Doc, true
		}
	}
	return nil, false
}

// Edit is a deferred replacement of one document's syntax tree. Text is
// the rendered replacement source (possibly formatted).
type Edit struct {
	ID          DocumentID
	Replacement *Document
	Text        string
}

// Apply returns a copy of the package with every edit applied. The
// receiver is not modified. Applying an edit for an unknown document is
// an error; later edits to the same document win.
func (p *Package) Apply(edits []Edit) (*Package, error) {
	byID := make(map[DocumentID]*Document, len(edits))
	for _, e := range edits {
		if _, ok := p.Lookup(e.ID); !ok {
			return nil, fmt.Errorf("apply edit: unknown document %s", e.ID)
		}
		if e.Replacement == nil {
			return nil, fmt.Errorf("apply edit: %s: nil replacement", e.ID)
		}
		byID[e.ID] = e.Replacement
	}

	out := &Package{Name: p.Name, Modules: make([]*Module, 0, len(p.Modules))}
	for _, m := range p.Modules {
		nm := &Module{
			Name:      m.Name,
			Documents: replaceDocs(m.Name, false, m.Documents, byID),
			Tests:     replaceDocs(m.Name, true, m.Tests, byID),
		}
		out.Modules = append(out.Modules, nm)
	}
	return out, nil
}

func replaceDocs(module string, test bool, docs []*Document, byID map[DocumentID]*Document) []*Document {
	if docs == nil {
		return nil
	}
	out := make([]*Document, len(docs))
	for i, d := range docs {
		if r, ok := byID[DocumentID{Module: module, Name: d.Name, Test: test}]; ok {
			out[i] = r
			continue
		}
		out[i] = d
	}
	return out
}

// SortMembers orders members by source location. Members without a
// location keep their relative order at the end.
func SortMembers(members []Member) {
	sort.SliceStable(members, func(i, j int) bool {
		li, lj := members[i].Pos(), members[j].Pos()
		if !li.IsValid() || !lj.IsValid() {
			return li.IsValid() && !lj.IsValid()
		}
		return li.Before(lj)
	})
}
