package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/syntax"
)

func ref(name string) *syntax.NameRef {
	return &syntax.NameRef{Name: name}
}

func TestStream_AppendMergesText(t *testing.T) {
	var s Stream
	s = s.AppendText("Product.id ")
	s = s.AppendText("= ")
	s = s.Append(Slot{X: ref("value")})
	s = s.AppendText(" ")
	s = s.AppendText("")
	s = s.AppendText(" OR Product.id = 6")

	require.Len(t, s, 3)
	assert.Equal(t, Text{Value: "Product.id = "}, s[0])
	assert.Equal(t, Text{Value: "  OR Product.id = 6"}, s[2])
}

func TestStream_AppendDoesNotAlias(t *testing.T) {
	base := Stream{}.AppendText("a")
	left := base.AppendText("b")
	right := base.AppendText("c")

	assert.Equal(t, Stream{Text{Value: "a"}}, base)
	assert.Equal(t, Stream{Text{Value: "ab"}}, left)
	assert.Equal(t, Stream{Text{Value: "ac"}}, right)
}

func TestStream_Template(t *testing.T) {
	call, err := syntax.ParseExpr("f.bal", 1, "getStringValue(\"name\")")
	require.NoError(t, err)

	s := Stream{}.
		AppendText(" ").
		Append(Slot{X: call, Kind: SlotCall}).
		AppendText(" ASC , Product.age DESC ")

	assert.Equal(t, ` ${getStringValue("name")} ASC , Product.age DESC `, s.Template())
	assert.Len(t, s.Slots(), 1)
	assert.Equal(t, SlotCall, s.Slots()[0].Kind)
}

func TestStream_TemplateExpr(t *testing.T) {
	s := Stream{}.AppendText(" Product.id = ").Append(Slot{X: ref("value")}).AppendText("  OR Product.id = 6")

	tmpl := s.TemplateExpr()
	assert.True(t, tmpl.IsRaw())
	assert.Equal(t, "` Product.id = ${value}  OR Product.id = 6`", syntax.Source(tmpl))
}

func TestStream_Concat(t *testing.T) {
	a := Stream{}.AppendText("x ").Append(Slot{X: ref("v")})
	b := Stream{}.AppendText(" AND ").AppendText("y")
	got := a.Concat(b)

	require.Len(t, got, 3)
	assert.Equal(t, "x ${v} AND y", got.Template())
}

func TestSlotKind_String(t *testing.T) {
	assert.Equal(t, "variable", SlotVariable.String())
	assert.Equal(t, "call", SlotCall.String())
	assert.Equal(t, "unknown", SlotKind(42).String())
}
