package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/catalog"
	"github.com/roach88/persistsql/internal/syntax"
)

// Fixture names shared by package fixtures.
const (
	PackageName = "store"
	ModuleName  = "default"
	MainFile    = "main.bal"
	TestFile    = "main_test.bal"
	ClientClass = "Client"
)

// EntityDocument returns a persist_types.bal document declaring a closed
// record per entity name and a persist client class.
func EntityDocument(entities ...string) *syntax.Document {
	doc := &syntax.Document{Name: catalog.DefaultEntityFile}
	line := 1
	for _, name := range entities {
		doc.Members = append(doc.Members, &syntax.TypeDef{
			Name:   name,
			Closed: true,
			Fields: []syntax.RecordField{
				{Type: "int", Name: "id", Readonly: true},
				{Type: "string", Name: "name"},
			},
			Loc: syntax.Location{File: doc.Name, Line: line, Column: 1},
		})
		line += 4
	}
	doc.Members = append(doc.Members, &syntax.ClassDef{
		Qualifiers: []string{"public", "isolated", "client"},
		Name:       ClientClass,
		Members:    []string{catalog.DefaultClientMarker},
		Loc:        syntax.Location{File: doc.Name, Line: line, Column: 1},
	})
	return doc
}

// ParseDocument parses src as a sequence of statements. A statement runs
// until a line ending in ";"; blank lines and "//" comment lines between
// statements are skipped. Node locations follow the lines of src.
func ParseDocument(t testing.TB, name, src string) *syntax.Document {
	t.Helper()
	doc := &syntax.Document{Name: name}
	var stmt []string
	start := 0
	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(stmt) == 0 {
			if trimmed == "" || strings.HasPrefix(trimmed, "//") {
				continue
			}
			start = i + 1
		}
		stmt = append(stmt, line)
		if strings.HasSuffix(trimmed, ";") {
			m, err := syntax.ParseStatement(name, start, strings.Join(stmt, "\n"))
			require.NoError(t, err, "parse %s:%d", name, start)
			doc.Members = append(doc.Members, m)
			stmt = nil
		}
	}
	require.Empty(t, stmt, "unterminated statement at %s:%d", name, start)
	return doc
}

// StorePackage builds a single-module package with an entity document for
// Product, Employee and Category plus main.bal parsed from mainSrc. A
// non-empty testSrc adds main_test.bal as a test document.
func StorePackage(t testing.TB, mainSrc, testSrc string) *syntax.Package {
	t.Helper()
	mod := &syntax.Module{
		Name: ModuleName,
		Documents: []*syntax.Document{
			EntityDocument("Product", "Employee", "Category"),
			ParseDocument(t, MainFile, mainSrc),
		},
	}
	if testSrc != "" {
		mod.Tests = append(mod.Tests, ParseDocument(t, TestFile, testSrc))
	}
	return &syntax.Package{Name: PackageName, Modules: []*syntax.Module{mod}}
}
