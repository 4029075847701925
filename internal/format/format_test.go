package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/syntax"
	"github.com/roach88/persistsql/internal/testutil"
)

const rewritten = "entities:Product[] rows = check from var e in mcClient->/products(Product, whereClause = ` Product.id = ${value} `, limitClause = ` 5`) where e.id == value order by e.name descending limit 5 select e;"

func TestMember_Layout(t *testing.T) {
	m, err := syntax.ParseStatement("main.bal", 1, rewritten)
	require.NoError(t, err)

	got, err := New().Member(m)
	require.NoError(t, err)
	assert.Equal(t, "entities:Product[] rows = check from var e in mcClient->/products(\n"+
		"        Product,\n"+
		"        whereClause = ` Product.id = ${value} `,\n"+
		"        limitClause = ` 5`\n"+
		"    )\n"+
		"    where e.id == value\n"+
		"    order by e.name descending\n"+
		"    limit 5\n"+
		"    select e;", got)
}

func TestMember_SingleArgumentStaysInline(t *testing.T) {
	m, err := syntax.ParseStatement("main.bal", 1, "var rows = from var e in mcClient->/products(Product) where e.id == 1 select e;")
	require.NoError(t, err)

	got, err := New().Member(m)
	require.NoError(t, err)
	assert.Equal(t, "var rows = from var e in mcClient->/products(Product)\n    where e.id == 1\n    select e;", got)
}

func TestMember_NonQueryUnchanged(t *testing.T) {
	for _, src := range []string{"entities:Client mcClient;", "int x = 1 + 2;", "print(x);"} {
		m, err := syntax.ParseStatement("main.bal", 1, src)
		require.NoError(t, err)

		got, err := New().Member(m)
		require.NoError(t, err)
		assert.Equal(t, src, got)
	}
}

func TestQuery(t *testing.T) {
	q, err := syntax.ParseQuery("main.bal", 1, "from var e in mcClient->/products.get(Product, orderByClause = ` Product.age ASC `) order by e.age select e")
	require.NoError(t, err)

	got, err := Query(q)
	require.NoError(t, err)
	assert.Equal(t, "from var e in mcClient->/products.get(\n"+
		"        Product,\n"+
		"        orderByClause = ` Product.age ASC `\n"+
		"    )\n"+
		"    order by e.age\n"+
		"    select e", got)
}

func TestDocument_Idempotent(t *testing.T) {
	pkg := testutil.StorePackage(t, "entities:Client mcClient;\n"+rewritten+"\nint n = 1;\n", "")
	doc, ok := pkg.Lookup(syntax.DocumentID{Module: testutil.ModuleName, Name: testutil.MainFile})
	require.True(t, ok)

	first, err := Document(doc)
	require.NoError(t, err)

	again, err := Document(testutil.ParseDocument(t, testutil.MainFile, first))
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, syntax.Source(doc), syntax.Source(testutil.ParseDocument(t, testutil.MainFile, first)))
}

func TestDocument_DefinitionsKeepSingleLine(t *testing.T) {
	doc := testutil.EntityDocument("Product")
	got, err := Document(doc)
	require.NoError(t, err)
	assert.Equal(t, syntax.Source(doc), got)
}

func TestMember_Unstable(t *testing.T) {
	// A select expression naming a reserved word prints but cannot be
	// parsed back.
	m := &syntax.VarDecl{
		Type: "var",
		Name: "rows",
		Init: &syntax.QueryExpr{
			Pipeline: &syntax.QueryPipeline{
				From: &syntax.FromClause{
					Type:    "var",
					Binding: &syntax.CaptureBinding{Name: "e"},
					Source:  &syntax.NameRef{Name: "products"},
				},
			},
			Select: &syntax.SelectClause{X: &syntax.NameRef{Name: "select"}},
		},
		Loc: syntax.Location{File: "main.bal", Line: 3, Column: 1},
	}

	_, err := New().Member(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnstable))
	assert.Contains(t, err.Error(), "main.bal:3:1")

	_, err = Document(&syntax.Document{Name: "main.bal", Members: []syntax.Member{m}})
	assert.ErrorIs(t, err, ErrUnstable)
}
