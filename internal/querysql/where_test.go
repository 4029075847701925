package querysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/queryir"
	"github.com/roach88/persistsql/internal/syntax"
)

func parseExpr(t *testing.T, src string) syntax.Expr {
	t.Helper()
	x, err := syntax.ParseExpr("main.bal", 1, src)
	require.NoError(t, err)
	return x
}

var (
	captureE = Shape{Capture: "e"}
	mapping  = Shape{Fields: map[string]string{"id": "id", "n": "name"}}
)

func TestCompileWhere_Templates(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		shape Shape
		want  string
	}{
		{
			name:  "or with host variable",
			src:   "e.id == value || e.id == 6",
			shape: captureE,
			want:  "Product.id = ${value}  OR Product.id = 6",
		},
		{
			name:  "and with not equal",
			src:   `e.name != "abc" && e.age > 18`,
			shape: captureE,
			want:  `Product.name <> "abc" AND Product.age > 18`,
		},
		{
			name:  "comparison operators",
			src:   "e.a >= 1 && e.b <= 2 && e.c < 3 && e.d % 2 == 0",
			shape: captureE,
			want:  "Product.a >= 1 AND Product.b <= 2 AND Product.c < 3 AND Product.d % 2 = 0",
		},
		{
			name:  "braces",
			src:   "(e.id == 1 || e.id == 2) && e.age < limitAge",
			shape: captureE,
			want:  "( Product.id = 1 OR Product.id = 2)  AND Product.age < ${limitAge} ",
		},
		{
			name:  "relation field",
			src:   "e.products.id == 4",
			shape: captureE,
			want:  "products.id = 4",
		},
		{
			name:  "optional relation field",
			src:   "e.products?.id == 4",
			shape: captureE,
			want:  "products.id = 4",
		},
		{
			name:  "escaped field",
			src:   "e.'type == 1",
			shape: captureE,
			want:  "Product.type = 1",
		},
		{
			name:  "call on the right",
			src:   "e.id == getValue(4)",
			shape: captureE,
			want:  "Product.id = ${getValue(4)} ",
		},
		{
			name:  "call on the left gets a space before the operator",
			src:   "getValue(4) == e.id",
			shape: captureE,
			want:  "${getValue(4)} = Product.id ",
		},
		{
			name:  "literal on the left abuts the operator",
			src:   "6 == e.id",
			shape: captureE,
			want:  "6= Product.id ",
		},
		{
			name:  "negative literal",
			src:   "e.balance > -10",
			shape: captureE,
			want:  "Product.balance > -10",
		},
		{
			name:  "mapping pattern bound names",
			src:   "id == value && n == \"x\"",
			shape: mapping,
			want:  `Product.id = ${value}  AND Product.name = "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileWhere(parseExpr(t, tt.src), tt.shape, "Product")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Template())
			assert.True(t, queryir.Validate(got).IsWellFormed)
		})
	}
}

func TestCompileWhere_SlotKinds(t *testing.T) {
	got, err := CompileWhere(parseExpr(t, "e.id == value || e.id == getValue(1)"), captureE, "Product")
	require.NoError(t, err)

	slots := got.Slots()
	require.Len(t, slots, 2)
	assert.Equal(t, queryir.SlotVariable, slots[0].Kind)
	assert.Equal(t, "value", slots[0].Source())
	assert.Equal(t, queryir.SlotCall, slots[1].Kind)
	assert.Equal(t, "getValue(1)", slots[1].Source())
}

func TestCompileWhere_NotSupported(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		shape Shape
	}{
		{"arithmetic operator", "e.id + 1 == 2", captureE},
		{"nil literal", "e.id == ()", captureE},
		{"loop variable as value", "e == value", captureE},
		{"foreign field access", "other.id == 1", captureE},
		{"field access with mapping pattern", "e.id == 1", mapping},
		{"logical not", "!(e.id == 1)", captureE},
		{"template", "e.name == string `x`", captureE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileWhere(parseExpr(t, tt.src), tt.shape, "Product")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotSupported))

			var nse *NotSupportedError
			require.ErrorAs(t, err, &nse)
			assert.Equal(t, "where", nse.Clause)
		})
	}
}

func TestNotSupportedError_Message(t *testing.T) {
	_, err := CompileWhere(parseExpr(t, "e.id + 1 == 2"), captureE, "Product")
	require.Error(t, err)
	assert.Equal(t, `main.bal:1:1: where clause: operator "+": e.id + 1`, err.Error())

	bare := &NotSupportedError{Clause: "limit", Reason: "missing"}
	assert.Equal(t, "limit clause: missing", bare.Error())
}

func TestShapeOf(t *testing.T) {
	capture := ShapeOf(&syntax.CaptureBinding{Name: "'e"})
	assert.True(t, capture.IsCapture())
	assert.False(t, capture.IsMapping())
	assert.Equal(t, "e", capture.Capture)

	m := ShapeOf(&syntax.MappingBinding{Fields: []syntax.FieldBinding{
		{Field: "id", Var: "id"},
		{Field: "name", Var: "n"},
	}})
	assert.True(t, m.IsMapping())
	field, ok := m.Field("n")
	assert.True(t, ok)
	assert.Equal(t, "name", field)
	_, ok = m.Field("name")
	assert.False(t, ok)
}
