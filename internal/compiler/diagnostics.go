package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/persistsql/internal/syntax"
)

// Diagnostic codes reported for misuse of query clauses on a persist
// client call (PERSIST_202-PERSIST_206).
const (
	CodeUnsupportedArgument = "PERSIST_202" // named argument other than targetType
	CodeTargetTypeOnly      = "PERSIST_203" // positional template argument
	CodeGroupByOrder        = "PERSIST_204" // group by before where / order by
	CodeLimitShape          = "PERSIST_205" // limit is not a literal, name or call
	CodeArrayField          = "PERSIST_206" // field accessed through an array element
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

var messages = map[string]string{
	CodeUnsupportedArgument: "persist remote function call does not support '%s' argument",
	CodeTargetTypeOnly:      "A persist remote function call does not support anything other than a target type argument",
	CodeGroupByOrder:        "'group by' clause cannot be defined before the '%s' clause",
	CodeLimitShape:          "'limit' clause cannot be defined by the field of the entity",
	CodeArrayField:          "the '%s' clause cannot be defined by the array field of the entity",
}

// Diagnostic is a compiler diagnostic attached to a source location.
type Diagnostic struct {
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Severity Severity        `json:"severity"`
	Location syntax.Location `json:"location"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s [%s] %s", d.Location, d.Severity, d.Code, d.Message)
}

// newDiagnostic builds an ERROR diagnostic from a code's message template.
func newDiagnostic(code string, loc syntax.Location, args ...any) Diagnostic {
	msg := messages[code]
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return Diagnostic{
		Code:     code,
		Message:  msg,
		Severity: SeverityError,
		Location: loc,
	}
}

// SortDiagnostics orders diagnostics by file, line, column, then code.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Location, diags[j].Location
		if a != b {
			return a.Before(b)
		}
		return diags[i].Code < diags[j].Code
	})
}
