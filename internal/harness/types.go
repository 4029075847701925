package harness

import "github.com/roach88/persistsql/internal/syntax"

// Trace event types.
const (
	EventDiagnostic = "diagnostic"
	EventSkip       = "skip"
	EventRewrite    = "rewrite"
	EventAbandoned  = "abandoned"
	EventPreview    = "preview"
)

// TraceEvent is one observable outcome of a scenario run.
type TraceEvent struct {
	Type     string   `json:"type"`
	Document string   `json:"document,omitempty"`
	Location string   `json:"location"`
	Table    string   `json:"table,omitempty"`
	Clauses  []string `json:"clauses,omitempty"`
	// Detail is the rewritten call, skip or abandon reason, diagnostic
	// code or preview statement, depending on Type.
	Detail string `json:"detail,omitempty"`
	Rows   int    `json:"rows,omitempty"` // preview only
	Seq    int64  `json:"seq"`

	loc syntax.Location
}

// At reports whether the event is at pattern. A zero pattern column
// matches any column.
func (e TraceEvent) At(pattern syntax.Location) bool {
	return e.loc.Matches(pattern)
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every preview expectation and assertion holds.
	Pass bool `json:"pass"`

	// RunID is the id of the rewrite report.
	RunID string `json:"run_id"`

	// Trace contains all events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Documents maps document ids to their rewritten text. Only changed
	// documents are present.
	Documents map[string]string `json:"documents,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Documents: make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends an event to the trace and numbers it.
func (r *Result) AddEvent(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	if e.Location == "" {
		e.Location = e.loc.String()
	}
	r.Trace = append(r.Trace, e)
}

// Count returns the number of events of the given type.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
