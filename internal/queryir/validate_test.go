package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WellFormed(t *testing.T) {
	s := Stream{}.AppendText(" Product.id = ").Append(Slot{X: ref("value")}).AppendText(" ")

	result := Validate(s)

	assert.True(t, result.IsWellFormed)
	assert.Empty(t, result.Warnings)
}

func TestValidate_EmptyStream(t *testing.T) {
	result := Validate(nil)
	assert.True(t, result.IsWellFormed)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		stream Stream
		want   string
	}{
		{"empty text", Stream{Text{}}, "empty text"},
		{"adjacent text", Stream{Text{Value: "a"}, Text{Value: "b"}}, "adjacent text tokens"},
		{"backtick", Stream{Text{Value: "name = `x`"}}, "backtick"},
		{"interpolation opener", Stream{Text{Value: "a ${b"}}, "interpolation opener"},
		{"slot without expression", Stream{Slot{}}, "slot without expression"},
		{"nil token", Stream{nil}, "nil token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.stream)
			assert.False(t, result.IsWellFormed)
			require.NotEmpty(t, result.Warnings)
			assert.Contains(t, result.Warnings[0], tt.want)
		})
	}
}
