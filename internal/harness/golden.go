package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/persistsql/internal/ir"
)

// GoldenDir holds trace snapshots, relative to the test's package.
const GoldenDir = "testdata/golden"

// TraceSnapshot is the golden form of a scenario run: one line of
// canonical JSON, so snapshots diff cleanly and never depend on map order.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// Snapshot captures the trace of result under name.
func Snapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{ScenarioName: name, RunID: result.RunID, Trace: result.Trace}
}

// toIR mirrors the JSON tags of TraceEvent. Empty optional fields are
// left out; the row count is kept on preview events even when zero.
func (s *TraceSnapshot) toIR() ir.IRObject {
	events := make(ir.IRArray, 0, len(s.Trace))
	for _, e := range s.Trace {
		obj := ir.IRObject{
			"type":     ir.IRString(e.Type),
			"location": ir.IRString(e.Location),
			"seq":      ir.IRInt(e.Seq),
		}
		optional := map[string]string{"document": e.Document, "table": e.Table, "detail": e.Detail}
		for k, v := range optional {
			if v != "" {
				obj[k] = ir.IRString(v)
			}
		}
		if len(e.Clauses) > 0 {
			clauses := make(ir.IRArray, len(e.Clauses))
			for i, c := range e.Clauses {
				clauses[i] = ir.IRString(c)
			}
			obj["clauses"] = clauses
		}
		if e.Type == EventPreview {
			obj["rows"] = ir.IRInt(e.Rows)
		}
		events = append(events, obj)
	}

	out := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         events,
	}
	if s.RunID != "" {
		out["run_id"] = ir.IRString(s.RunID)
	}
	return out
}

// marshal returns the canonical JSON of the snapshot and a trailing newline.
func (s *TraceSnapshot) marshal() ([]byte, error) {
	data, err := ir.MarshalCanonical(s.toIR())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate snapshots with
//
//	go test ./internal/harness -update
//
// A run error is returned; a snapshot mismatch fails t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the trace of an existing result with the snapshot
// stored under name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snap := Snapshot(name, result)
	data, err := snap.marshal()
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, name, data)
	return nil
}
