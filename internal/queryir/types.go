package queryir

import (
	"strings"

	"github.com/roach88/persistsql/internal/syntax"
)

// Token is one element of a compiled clause.
//
// This is a sealed interface - only types in this package implement it.
//
// Token types:
//   - Text: literal clause text
//   - Slot: interpolation of a host value
type Token interface {
	tokenNode() // Marker method - seals interface to this package
}

// Text is a literal fragment of clause text.
type Text struct {
	Value string
}

func (Text) tokenNode() {}

// SlotKind classifies what a Slot interpolates.
type SlotKind int

const (
	// SlotVariable is a host variable ("${value}").
	SlotVariable SlotKind = iota
	// SlotCall is a function call evaluated by the host ("${getValue(4)}").
	SlotCall
)

// String returns the kind name.
func (k SlotKind) String() string {
	switch k {
	case SlotVariable:
		return "variable"
	case SlotCall:
		return "call"
	default:
		return "unknown"
	}
}

// Slot is an interpolation of a host expression evaluated at run time.
type Slot struct {
	X    syntax.Expr
	Kind SlotKind
}

func (Slot) tokenNode() {}

// Source returns the interpolated expression's source text.
func (s Slot) Source() string {
	if s.X == nil {
		return ""
	}
	return syntax.Source(s.X)
}

// Stream is an ordered token sequence.
type Stream []Token

// Append adds tokens to the stream, dropping empty text and merging
// adjacent text tokens. The receiver is never modified.
func (s Stream) Append(tokens ...Token) Stream {
	out := make(Stream, len(s), len(s)+len(tokens))
	copy(out, s)
	for _, t := range tokens {
		if txt, ok := t.(Text); ok {
			if txt.Value == "" {
				continue
			}
			if n := len(out); n > 0 {
				if prev, ok := out[n-1].(Text); ok {
					out[n-1] = Text{Value: prev.Value + txt.Value}
					continue
				}
			}
		}
		out = append(out, t)
	}
	return out
}

// AppendText is shorthand for Append(Text{Value: v}).
func (s Stream) AppendText(v string) Stream {
	return s.Append(Text{Value: v})
}

// Concat appends every token of other.
func (s Stream) Concat(other Stream) Stream {
	return s.Append(other...)
}

// Slots returns the slots of the stream in order.
func (s Stream) Slots() []Slot {
	var out []Slot
	for _, t := range s {
		if slot, ok := t.(Slot); ok {
			out = append(out, slot)
		}
	}
	return out
}

// Template renders the stream as the body of a raw template, with slots
// written as "${expr}".
func (s Stream) Template() string {
	var b strings.Builder
	for _, t := range s {
		switch t := t.(type) {
		case Text:
			b.WriteString(t.Value)
		case Slot:
			b.WriteString("${")
			b.WriteString(t.Source())
			b.WriteString("}")
		}
	}
	return b.String()
}

// TemplateExpr converts the stream into a raw template expression.
func (s Stream) TemplateExpr() *syntax.TemplateExpr {
	parts := make([]syntax.TemplatePart, 0, len(s))
	for _, t := range s {
		switch t := t.(type) {
		case Text:
			parts = append(parts, syntax.TemplateText{Text: t.Value})
		case Slot:
			parts = append(parts, syntax.TemplateInterp{X: t.X})
		}
	}
	return &syntax.TemplateExpr{Parts: parts}
}
