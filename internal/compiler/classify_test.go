package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/catalog"
	"github.com/roach88/persistsql/internal/syntax"
	"github.com/roach88/persistsql/internal/testutil"
)

// classifyOne registers the fixture package and classifies the single
// query declared in src.
func classifyOne(t *testing.T, src string) Outcome {
	t.Helper()
	pkg := testutil.StorePackage(t, "entities:Client mcClient;\n"+src, "")
	cat := catalog.New(catalog.DefaultOptions())
	for _, e := range pkg.Documents() {
		cat.Register(e.Doc)
	}
	doc, ok := pkg.Lookup(syntax.DocumentID{Module: testutil.ModuleName, Name: testutil.MainFile})
	require.True(t, ok)
	pipelines := doc.Pipelines()
	require.Len(t, pipelines, 1)
	return Classify(pipelines[0], cat)
}

func TestClassify_Accepted(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		table string
	}{
		{
			name:  "named target type",
			src:   "entities:Product[] rows = from var e in mcClient->/products(targetType = entities:Product) where e.id == value select e;",
			table: "Product",
		},
		{
			name:  "positional target type with get",
			src:   "entities:Employee[] rows = check from var e in mcClient->/employees.get(Employee) order by e.name select e;",
			table: "Employee",
		},
		{
			name:  "pluralized entity",
			src:   "var rows = from var e in mcClient->/categories(Category) limit 10 select e;",
			table: "Category",
		},
		{
			name: "group by after where",
			src: "var rows = from var e in mcClient->/products(Product)\n" +
				"    where e.id > 1\n" +
				"    group by var n = e.name\n" +
				"    select n;",
			table: "Product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classifyOne(t, tt.src)
			require.True(t, out.Accepted(), "skip: %s", out.Skip)
			assert.Empty(t, out.Diagnostics)
			assert.Equal(t, tt.table, out.Query.Table)
			assert.True(t, out.Query.Validated)
		})
	}
}

func TestClassify_Skipped(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want SkipReason
	}{
		{
			name: "not a client call",
			src:  "var rows = from var e in products where e.id == 1 select e;",
			want: SkipNotClientCall,
		},
		{
			name: "check wrapped client call",
			src:  "var rows = from var e in check mcClient->/products(targetType = entities:Product) where e.id == 1 select e;",
			want: SkipNotClientCall,
		},
		{
			name: "no pushdown clause",
			src:  "var rows = from var e in mcClient->/products(Product) select e;",
			want: SkipNoPushdown,
		},
		{
			name: "let clause",
			src:  "var rows = from var e in mcClient->/products(Product) let int x = 1 where e.id == x select e;",
			want: SkipLetClause,
		},
		{
			name: "unknown client variable",
			src:  "var rows = from var e in other->/products(Product) where e.id == 1 select e;",
			want: SkipUnknownClient,
		},
		{
			name: "unknown entity",
			src:  "var rows = from var e in mcClient->/orders(Product) where e.id == 1 select e;",
			want: SkipUnknownEntity,
		},
		{
			name: "computed first segment",
			src:  "var rows = from var e in mcClient->/[key](Product) where e.id == 1 select e;",
			want: SkipUnknownEntity,
		},
		{
			name: "no arguments",
			src:  "var rows = from var e in mcClient->/products() where e.id == 1 select e;",
			want: SkipNoArguments,
		},
		{
			name: "no target type",
			src:  "var rows = from var e in mcClient->/products(1) where e.id == 1 select e;",
			want: SkipNoTargetType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classifyOne(t, tt.src)
			assert.False(t, out.Accepted())
			assert.Equal(t, tt.want, out.Skip)
			assert.Empty(t, out.Diagnostics)
		})
	}
}

func TestClassify_Misuse(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		code    string
		message string
		line    int
	}{
		{
			name:    "array field in where",
			src:     "var rows = from var e in mcClient->/products(Product) where e.id == 1 && (e.items[0].id == 2) select e;",
			code:    CodeArrayField,
			message: "the 'where' clause cannot be defined by the array field of the entity",
			line:    2,
		},
		{
			name:    "array field in order by",
			src:     "var rows = from var e in mcClient->/products(Product) order by e.items[0].id select e;",
			code:    CodeArrayField,
			message: "the 'order by' clause cannot be defined by the array field of the entity",
			line:    2,
		},
		{
			name:    "array field in group by",
			src:     "var rows = from var e in mcClient->/products(Product) group by var k = e.items[1].id select k;",
			code:    CodeArrayField,
			message: "the 'group by' clause cannot be defined by the array field of the entity",
			line:    2,
		},
		{
			name: "group by before where",
			src: "var rows = from var e in mcClient->/products(Product)\n" +
				"    group by var n = e.name\n" +
				"    where e.id > 1\n" +
				"    select n;",
			code:    CodeGroupByOrder,
			message: "'group by' clause cannot be defined before the 'where' clause",
			line:    3,
		},
		{
			name: "group by before order by",
			src: "var rows = from var e in mcClient->/products(Product)\n" +
				"    group by var n = e.name\n" +
				"    order by n\n" +
				"    select n;",
			code:    CodeGroupByOrder,
			message: "'group by' clause cannot be defined before the 'order by' clause",
			line:    3,
		},
		{
			name:    "limit by entity field",
			src:     "var rows = from var e in mcClient->/products(Product) limit e.count select e;",
			code:    CodeLimitShape,
			message: "'limit' clause cannot be defined by the field of the entity",
			line:    2,
		},
		{
			name:    "disallowed named argument",
			src:     "var rows = from var e in mcClient->/products(targetType = Product, whereClause = `id = 1`) where e.id == 1 select e;",
			code:    CodeUnsupportedArgument,
			message: "persist remote function call does not support 'whereClause' argument",
			line:    2,
		},
		{
			name:    "positional template argument",
			src:     "var rows = from var e in mcClient->/products(Product, `id = 1`) where e.id == 1 select e;",
			code:    CodeTargetTypeOnly,
			message: "A persist remote function call does not support anything other than a target type argument",
			line:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classifyOne(t, tt.src)
			assert.False(t, out.Accepted())
			assert.Equal(t, SkipMisuse, out.Skip)
			require.Len(t, out.Diagnostics, 1)

			d := out.Diagnostics[0]
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, tt.message, d.Message)
			assert.Equal(t, SeverityError, d.Severity)
			assert.Equal(t, tt.line, d.Location.Line)
			assert.Equal(t, testutil.MainFile, d.Location.File)
		})
	}
}

func TestClassify_GroupBySameLineIsAllowed(t *testing.T) {
	out := classifyOne(t, "var rows = from var e in mcClient->/products(Product) group by var n = e.name where e.id > 1 select n;")
	assert.True(t, out.Accepted())
}

func TestClassify_ArgumentDiagnosticsAccumulate(t *testing.T) {
	src := "var rows = from var e in mcClient->/products(Product, orderByClause = `id`, limitClause = `1`) where e.id == 1 select e;"
	out := classifyOne(t, src)

	assert.False(t, out.Accepted())
	require.Len(t, out.Diagnostics, 2)
	assert.Contains(t, out.Diagnostics[0].Message, "'orderByClause'")
	assert.Contains(t, out.Diagnostics[1].Message, "'limitClause'")
}

func TestClassify_OnlyFirstClauseOfEachKindIsChecked(t *testing.T) {
	src := "var rows = from var e in mcClient->/products(Product) limit 1 limit e.n select e;"
	out := classifyOne(t, src)
	assert.True(t, out.Accepted())
	assert.Len(t, out.Query.Pipeline.Clauses, 2)
}

func TestClassify_EmptyCatalog(t *testing.T) {
	q, err := syntax.ParseQuery("main.bal", 1, "from var e in mcClient->/products(Product) where e.id == 1 select e")
	require.NoError(t, err)

	out := Classify(q.Pipeline, catalog.New(catalog.DefaultOptions()))
	assert.Equal(t, SkipCatalogEmpty, out.Skip)
}
