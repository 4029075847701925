package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/store"
	"github.com/roach88/persistsql/internal/syntax"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Seq, event.Type, event.Location, event.Detail)
		}
	}

	return buf.String()
}

// findEvent returns the first event of the given type at the assertion
// location.
func findEvent(trace []TraceEvent, eventType string, assertion Assertion) (TraceEvent, error) {
	at, err := syntax.ParseLocation(assertion.At)
	if err != nil {
		return TraceEvent{}, err
	}
	for _, event := range trace {
		if event.Type == eventType && event.At(at) {
			return event, nil
		}
	}
	return TraceEvent{}, &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("%s event at %s", eventType, assertion.At),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertRewritten checks that the query at the location was rewritten with
// the expected table, clause arguments and call text.
func assertRewritten(trace []TraceEvent, assertion Assertion) error {
	event, err := findEvent(trace, EventRewrite, assertion)
	if err != nil {
		return err
	}
	if err := checkTable(event, assertion, trace); err != nil {
		return err
	}
	if assertion.Clauses != nil && !reflect.DeepEqual(event.Clauses, assertion.Clauses) {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("clauses %v", assertion.Clauses),
			Actual:   fmt.Sprintf("clauses %v", event.Clauses),
			Trace:    trace,
		}
	}
	return checkContains(event, assertion, trace)
}

// assertAbandoned checks that the accepted query at the location was left
// untouched.
func assertAbandoned(trace []TraceEvent, assertion Assertion) error {
	event, err := findEvent(trace, EventAbandoned, assertion)
	if err != nil {
		return err
	}
	if err := checkTable(event, assertion, trace); err != nil {
		return err
	}
	return checkContains(event, assertion, trace)
}

// assertSkipped checks that the client call at the location was skipped,
// for the expected reason when one is given.
func assertSkipped(trace []TraceEvent, assertion Assertion) error {
	event, err := findEvent(trace, EventSkip, assertion)
	if err != nil {
		return err
	}
	if assertion.Reason != "" && event.Detail != assertion.Reason {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("reason %q", assertion.Reason),
			Actual:   fmt.Sprintf("reason %q", event.Detail),
			Trace:    trace,
		}
	}
	return nil
}

// assertDiagnostic checks that a diagnostic with the expected code was
// reported at the location.
func assertDiagnostic(trace []TraceEvent, assertion Assertion) error {
	at, err := syntax.ParseLocation(assertion.At)
	if err != nil {
		return err
	}
	var codes []string
	for _, event := range trace {
		if event.Type != EventDiagnostic || !event.At(at) {
			continue
		}
		if event.Detail == assertion.Code {
			return nil
		}
		codes = append(codes, event.Detail)
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("diagnostic %s at %s", assertion.Code, assertion.At),
		Actual:   fmt.Sprintf("diagnostics %v", codes),
		Trace:    trace,
	}
}

// assertEventCount checks that the trace holds exactly the specified
// number of events of a type.
func assertEventCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == assertion.Event {
			count++
		}
	}

	// Check exact count match
	if count != assertion.Count {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%d %s event(s)", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d %s event(s)", count, assertion.Event),
			Trace:    trace,
		}
	}

	return nil
}

func checkTable(event TraceEvent, assertion Assertion, trace []TraceEvent) error {
	if assertion.Table != "" && event.Table != assertion.Table {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("table %s", assertion.Table),
			Actual:   fmt.Sprintf("table %s", event.Table),
			Trace:    trace,
		}
	}
	return nil
}

func checkContains(event TraceEvent, assertion Assertion, trace []TraceEvent) error {
	if assertion.Contains != "" && !strings.Contains(event.Detail, assertion.Contains) {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("detail containing %q", assertion.Contains),
			Actual:   event.Detail,
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of an entity table matches
// the where columns and that it holds the expected column values. Columns
// not named in expect are not checked.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}
	where, err := convertArgsToIRObject(assertion.Where)
	if err != nil {
		return fmt.Errorf("final_state where: %w", err)
	}
	expect, err := convertArgsToIRObject(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}

	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertFinalState, Expected: expected, Actual: actual}
	}

	rows, err := st.Lookup(ctx, assertion.Table, where)
	if err != nil {
		return fail(fmt.Sprintf("query table %s", assertion.Table), fmt.Sprintf("query error: %v", err))
	}
	switch len(rows) {
	case 0:
		return fail(fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(where)), "row not found")
	case 1:
	default:
		return fail(fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(where)),
			fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(rows)))
	}

	row := rows[0]
	for _, key := range expect.SortedKeys() {
		want := expect[key]
		got, ok := row[key]
		if !ok {
			return fail(fmt.Sprintf("field %q to exist", key),
				fmt.Sprintf("field %q not present in columns %v", key, row.SortedKeys()))
		}
		if !stateValuesEqual(want, got) {
			return fail(fmt.Sprintf("field %q = %s", key, describeValue(want)),
				fmt.Sprintf("field %q = %s", key, describeValue(got)))
		}
	}
	return nil
}

// formatWhereClause describes where conditions in column order.
func formatWhereClause(where ir.IRObject) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range where.SortedKeys() {
		parts = append(parts, k+"="+describeValue(where[k]))
	}
	return strings.Join(parts, " AND ")
}

// describeValue renders a value as JSON, so strings and numbers stay
// distinguishable.
func describeValue(v ir.IRValue) string {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// stateValuesEqual compares an expected value with a column value read
// back from SQLite. Booleans are stored as 0 or 1.
func stateValuesEqual(expected, actual ir.IRValue) bool {
	if b, ok := expected.(ir.IRBool); ok {
		if n, ok := actual.(ir.IRInt); ok {
			return bool(b) == (n != 0)
		}
	}
	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRewritten:
			err = assertRewritten(result.Trace, assertion)
		case AssertAbandoned:
			err = assertAbandoned(result.Trace, assertion)
		case AssertSkipped:
			err = assertSkipped(result.Trace, assertion)
		case AssertDiagnostic:
			err = assertDiagnostic(result.Trace, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
