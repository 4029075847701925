package querysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/syntax"
)

const fullQuery = "from var e in c->/products(T) " +
	"where e.id == value || e.id == 6 " +
	"group by var age = e.age " +
	"order by e.age descending " +
	"limit 10 select age"

func TestCompilePipeline_AllClauses(t *testing.T) {
	compiled, err := CompilePipeline(parsePipeline(t, fullQuery), "Product")
	require.NoError(t, err)

	assert.Equal(t, "Product", compiled.Table)
	assert.Equal(t, "Product.id = ${value}  OR Product.id = 6", compiled.Where.Template())
	assert.Equal(t, "Product.age", compiled.GroupBy.Template())
	assert.Equal(t, "Product.age DESC ", compiled.OrderBy.Template())
	assert.Equal(t, " 10", compiled.Limit.Template())

	clauses := compiled.Clauses()
	require.Len(t, clauses, 4)
	names := make([]string, len(clauses))
	for i, c := range clauses {
		names[i] = c.Name
	}
	assert.Equal(t, []string{ArgWhere, ArgOrderBy, ArgGroupBy, ArgLimit}, names)
}

func TestCompilePipeline_AbsentClauses(t *testing.T) {
	compiled, err := CompilePipeline(parsePipeline(t, "from var e in c->/products(T) limit 5 select e"), "Product")
	require.NoError(t, err)

	assert.Nil(t, compiled.Where)
	assert.Nil(t, compiled.OrderBy)
	assert.Nil(t, compiled.GroupBy)
	require.Len(t, compiled.Clauses(), 1)
	assert.Equal(t, ArgLimit, compiled.Clauses()[0].Name)
}

func TestCompilePipeline_FirstClauseOfEachKind(t *testing.T) {
	src := "from var e in c->/products(T) where e.id == 1 where e.id == 2 limit 1 limit 2 select e"
	compiled, err := CompilePipeline(parsePipeline(t, src), "Product")
	require.NoError(t, err)

	assert.Equal(t, "Product.id = 1", compiled.Where.Template())
	assert.Equal(t, " 1", compiled.Limit.Template())
}

func TestCompilePipeline_AllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad where", "from var e in c->/products(T) where e.id + 1 == 2 limit 1 select e"},
		{"bad order by", "from var e in c->/products(T) where e.id == 1 order by age select e"},
		{"bad group by", "from var e in c->/products(T) group by var k = 1 select e"},
		{"bad limit", "from var e in c->/products(T) where e.id == 1 limit e.n select e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := CompilePipeline(parsePipeline(t, tt.src), "Product")
			assert.Nil(t, compiled)
			assert.ErrorIs(t, err, ErrNotSupported)
		})
	}
}

func TestCompilePipeline_MalformedOutput(t *testing.T) {
	src := "from var e in c->/products(T) where e.name == \"a`b\" select e"
	_, err := CompilePipeline(parsePipeline(t, src), "Product")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedClause))
	assert.Contains(t, err.Error(), "where clause")
}

func TestCompilePipeline_MissingFrom(t *testing.T) {
	_, err := CompilePipeline(&syntax.QueryPipeline{}, "Product")
	assert.Error(t, err)
}

func TestSQL(t *testing.T) {
	compiled, err := CompilePipeline(parsePipeline(t, fullQuery), "Product")
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM Product WHERE Product.id = ?  OR Product.id = 6 GROUP BY Product.age ORDER BY Product.age DESC LIMIT 10",
		SQL(compiled))
}

func TestSQLCompiler_Compile(t *testing.T) {
	src := "from var e in c->/products(T) where e.name == name && e.age > minAge() limit n select e"
	compiled, err := CompilePipeline(parsePipeline(t, src), "Product")
	require.NoError(t, err)

	compiler := NewSQLCompiler()
	compiler.BoundValues["name"] = ir.IRString("widget")
	compiler.BoundValues["minAge()"] = ir.IRInt(18)
	compiler.BoundValues["n"] = ir.IRInt(5)

	sql, params, err := compiler.Compile(compiled)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM Product WHERE Product.name = ?  AND Product.age > ? LIMIT ?", sql)
	assert.NotContains(t, sql, "widget")
	assert.Equal(t, []any{"widget", int64(18), int64(5)}, params)
}

func TestSQLCompiler_CompileErrors(t *testing.T) {
	compiled, err := CompilePipeline(parsePipeline(t, "from var e in c->/products(T) where e.id == value select e"), "Product")
	require.NoError(t, err)

	compiler := NewSQLCompiler()

	_, _, err = compiler.Compile(nil)
	assert.Error(t, err)

	_, _, err = compiler.Compile(&Compiled{})
	assert.Error(t, err)

	_, _, err = compiler.Compile(compiled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no value bound for "value"`)

	compiler.BoundValues["value"] = ir.IRArray{ir.IRInt(1)}
	_, _, err = compiler.Compile(compiled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IRArray")
}

func TestPlaceholders_FollowSQLOrder(t *testing.T) {
	src := "from var e in c->/products(T) where e.id == a order by f(1) group by var g = g(2) limit b select e"
	compiled, err := CompilePipeline(parsePipeline(t, src), "Product")
	require.NoError(t, err)

	var got []string
	for _, s := range Placeholders(compiled) {
		got = append(got, s.Source())
	}
	assert.Equal(t, []string{"a", "g(2)", "f(1)", "b"}, got)
}

func TestCheck(t *testing.T) {
	compiled, err := CompilePipeline(parsePipeline(t, fullQuery), "Product")
	require.NoError(t, err)

	normalized, err := Check(SQL(compiled))
	require.NoError(t, err)
	assert.Contains(t, normalized, "from Product")
	assert.Contains(t, normalized, "limit 10")

	_, err = Check("SELECT * FROM WHERE")
	assert.Error(t, err)

	_, err = Check("DELETE FROM Product")
	assert.Error(t, err)
}

func TestIRValueToParam(t *testing.T) {
	tests := []struct {
		name    string
		value   ir.IRValue
		want    any
		wantErr bool
	}{
		{"string", ir.IRString("x"), "x", false},
		{"int", ir.IRInt(42), int64(42), false},
		{"bool", ir.IRBool(true), true, false},
		{"null", ir.IRNull{}, nil, false},
		{"array", ir.IRArray{}, nil, true},
		{"object", ir.IRObject{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := irValueToParam(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
