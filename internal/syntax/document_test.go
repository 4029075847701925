package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage() *Package {
	return &Package{
		Name: "store",
		Modules: []*Module{{
			Name: "default",
			Documents: []*Document{
				{Name: "persist_types.bal", Members: []Member{
					&TypeDef{Name: "Product", Closed: true, Fields: []RecordField{
						{Type: "int", Name: "id", Readonly: true},
						{Type: "string", Name: "name"},
					}},
				}},
				{Name: "main.bal"},
			},
			Tests: []*Document{{Name: "main.bal"}},
		}},
	}
}

func TestPackage_Documents(t *testing.T) {
	pkg := testPackage()

	entries := pkg.Documents()
	require.Len(t, entries, 3)
	assert.Equal(t, DocumentID{Module: "default", Name: "persist_types.bal"}, entries[0].ID)
	assert.Equal(t, DocumentID{Module: "default", Name: "main.bal"}, entries[1].ID)
	assert.Equal(t, DocumentID{Module: "default", Name: "main.bal", Test: true}, entries[2].ID)
	assert.Equal(t, "default/main.bal (test)", entries[2].ID.String())
}

func TestPackage_Apply(t *testing.T) {
	pkg := testPackage()
	replacement := &Document{Name: "main.bal", Members: []Member{&ExprStmt{X: &NameRef{Name: "x"}}}}
	id := DocumentID{Module: "default", Name: "main.bal", Test: true}

	out, err := pkg.Apply([]Edit{{ID: id, Replacement: replacement}})
	require.NoError(t, err)

	got, ok := out.Lookup(id)
	require.True(t, ok)
	assert.Same(t, replacement, got)

	// production document with the same name is untouched
	prod, ok := out.Lookup(DocumentID{Module: "default", Name: "main.bal"})
	require.True(t, ok)
	assert.Same(t, pkg.Modules[0].Documents[1], prod)

	// receiver unchanged
	orig, _ := pkg.Lookup(id)
	assert.NotSame(t, replacement, orig)
}

func TestPackage_ApplyUnknownDocument(t *testing.T) {
	pkg := testPackage()
	_, err := pkg.Apply([]Edit{{ID: DocumentID{Module: "default", Name: "nope.bal"}, Replacement: &Document{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document default/nope.bal")
}

func TestSource_Document(t *testing.T) {
	doc := &Document{Name: "persist_types.bal", Members: []Member{
		&TypeDef{Name: "Product", Closed: true, Fields: []RecordField{
			{Type: "int", Name: "id", Readonly: true},
			{Type: "string", Name: "name"},
		}},
		&ClassDef{Qualifiers: []string{"public", "isolated", "client"}, Name: "Client", Members: []string{"*persist:AbstractPersistClient;"}},
		&VarDecl{Type: "Client", Name: "c", Init: &CheckExpr{Keyword: "check", X: &CallExpr{Fn: &NameRef{Name: "new"}}}},
		&VarDecl{Type: "int", Name: "n", Init: &Literal{Kind: NumericLiteral, Value: "1"}},
	}}

	want := "type Product record {| readonly int id; string name; |};\n" +
		"\n" +
		"public isolated client class Client { *persist:AbstractPersistClient; }\n" +
		"\n" +
		"Client c = check new();\n" +
		"int n = 1;\n"
	assert.Equal(t, want, Source(doc))
}

func TestLocation(t *testing.T) {
	a := Location{File: "a.bal", Line: 3, Column: 4}
	b := Location{File: "a.bal", Line: 3, Column: 9}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, "a.bal:3:4", a.String())
	assert.Equal(t, "-", Location{}.String())
	assert.False(t, Location{File: "x"}.IsValid())
}

func TestSortMembers(t *testing.T) {
	late := &VarDecl{Name: "b", Loc: Location{Line: 9}}
	early := &VarDecl{Name: "a", Loc: Location{Line: 2}}
	synth := &VarDecl{Name: "z"}
	members := []Member{synth, late, early}

	SortMembers(members)
	assert.Equal(t, []Member{early, late, synth}, members)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "main.bal:4", want: Location{File: "main.bal", Line: 4}},
		{in: "main.bal:4:26", want: Location{File: "main.bal", Line: 4, Column: 26}},
		{in: "main.bal", wantErr: true},
		{in: ":4", wantErr: true},
		{in: "main.bal:x", wantErr: true},
		{in: "main.bal:0", wantErr: true},
		{in: "main.bal:4:-1", wantErr: true},
		{in: "main.bal:4:1:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_Matches(t *testing.T) {
	at := Location{File: "main.bal", Line: 4, Column: 26}
	assert.True(t, at.Matches(Location{File: "main.bal", Line: 4}))
	assert.True(t, at.Matches(at))
	assert.False(t, at.Matches(Location{File: "main.bal", Line: 4, Column: 1}))
	assert.False(t, at.Matches(Location{File: "main.bal", Line: 5}))
	assert.False(t, at.Matches(Location{File: "other.bal", Line: 4}))
}
