package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult reports whether a stream can be serialized into a raw
// template without changing its meaning.
type ValidationResult struct {
	// IsWellFormed is true when the stream satisfies every invariant.
	IsWellFormed bool

	// Warnings lists the violations found. Empty when IsWellFormed is true.
	Warnings []string
}

// Validate checks a stream against the stream invariants listed in the
// package documentation.
//
// Validate is a pure function with no side effects.
func Validate(s Stream) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateStream(s)

	return ValidationResult{
		IsWellFormed: len(v.warnings) == 0,
		Warnings:     v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateStream(s Stream) {
	prevText := false
	for i, t := range s {
		switch tok := t.(type) {
		case Text:
			v.validateText(i, tok)
			if prevText {
				v.addWarning("token %d: adjacent text tokens must be merged", i)
			}
			prevText = true
		case Slot:
			if tok.X == nil {
				v.addWarning("token %d: slot without expression", i)
			}
			prevText = false
		case nil:
			v.addWarning("token %d: nil token", i)
			prevText = false
		default:
			v.addWarning("token %d: unknown token type %T", i, t)
			prevText = false
		}
	}
}

func (v *validator) validateText(i int, t Text) {
	if t.Value == "" {
		v.addWarning("token %d: empty text", i)
	}
	if strings.Contains(t.Value, "`") {
		v.addWarning("token %d: text %q contains a backtick", i, t.Value)
	}
	if strings.Contains(t.Value, "${") {
		v.addWarning("token %d: text %q contains an interpolation opener", i, t.Value)
	}
}
