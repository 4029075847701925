package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/persistsql/internal/catalog"
	"github.com/roach88/persistsql/internal/compiler"
	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/loader"
	"github.com/roach88/persistsql/internal/querysql"
	"github.com/roach88/persistsql/internal/rewriter"
	"github.com/roach88/persistsql/internal/store"
	"github.com/roach88/persistsql/internal/syntax"
	"github.com/roach88/persistsql/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed run id and a fresh database.
type Harness struct {
	store    *store.Store
	pkg      *syntax.Package
	analysis *compiler.Result
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the manifests and analyze the package
// 3. Rewrite the package and record analysis and rewrite events
// 4. Create entity tables, insert seed rows and run previews
// 5. Evaluate assertions and return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	// Create fresh in-memory SQLite database
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	loaded, loadErrs := loader.Load(scenario.Manifests, loader.Options{Mode: loader.ModeCollectAll})
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("failed to load manifests: %w", errors.Join(loadErrs...))
	}
	analysis := compiler.Analyze(loaded.Package, compiler.Options{Catalog: catalog.DefaultOptions()})

	h := &Harness{
		store:    st,
		pkg:      loaded.Package,
		analysis: analysis,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	format := true
	if scenario.Format != nil {
		format = *scenario.Format
	}
	report, err := rewriter.Rewrite(h.pkg, analysis, rewriter.Options{
		Format: format,
		IDs:    testutil.NewFixedIDGenerator(runID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite: %w", err)
	}

	result := NewResult()
	result.RunID = report.RunID
	h.recordEvents(report, result)

	ctx := context.Background()
	if err := h.prepareTables(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to prepare tables: %w", err)
	}
	h.executePreviews(ctx, scenario.Previews, result)

	// Evaluate assertions against the result
	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// recordEvents adds diagnostics, skips, rewrites and abandoned queries to
// the trace, ordered by location. Events at the same location keep that
// order.
func (h *Harness) recordEvents(report *rewriter.Report, result *Result) {
	var events []TraceEvent
	for _, d := range h.analysis.Diagnostics {
		events = append(events, TraceEvent{Type: EventDiagnostic, Detail: d.Code, loc: d.Location})
	}
	for _, s := range h.analysis.Skips {
		events = append(events, TraceEvent{
			Type:     EventSkip,
			Document: s.Document.String(),
			Detail:   string(s.Reason),
			loc:      s.Location,
		})
	}
	for _, d := range report.Documents {
		for _, rw := range d.Rewrites {
			events = append(events, TraceEvent{
				Type:     EventRewrite,
				Document: d.ID.String(),
				Table:    rw.Table,
				Clauses:  rw.Clauses,
				Detail:   rw.Rewritten,
				loc:      rw.Location,
			})
		}
		for _, ab := range d.Abandoned {
			events = append(events, TraceEvent{
				Type:     EventAbandoned,
				Document: d.ID.String(),
				Table:    ab.Table,
				Detail:   ab.Reason,
				loc:      ab.Location,
			})
		}
		if d.Changed() {
			result.Documents[d.ID.String()] = d.Text
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].loc.Before(events[j].loc)
	})
	for _, e := range events {
		result.AddEvent(e)
	}
	h.logger.Info("rewrite recorded",
		"run_id", report.RunID,
		"events", len(events),
		"documents", len(result.Documents),
	)
}

// prepareTables creates one table per entity record type and inserts the
// seed rows, tables in name order.
func (h *Harness) prepareTables(ctx context.Context, seed map[string][]map[string]interface{}) error {
	for _, e := range h.pkg.Documents() {
		if e.Doc.Name != catalog.DefaultEntityFile {
			continue
		}
		for _, m := range e.Doc.Members {
			td, ok := m.(*syntax.TypeDef)
			if !ok || !td.Closed || len(td.Fields) == 0 {
				continue
			}
			if err := h.store.CreateTable(ctx, store.TableFor(td)); err != nil {
				return err
			}
		}
	}

	tables := make([]string, 0, len(seed))
	for table := range seed {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		rows := make([]ir.IRObject, 0, len(seed[table]))
		for i, raw := range seed[table] {
			row, err := convertArgsToIRObject(raw)
			if err != nil {
				return fmt.Errorf("seed %s[%d]: %w", table, i, err)
			}
			rows = append(rows, row)
		}
		n, err := h.store.InsertRows(ctx, table, rows)
		if err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
		h.logger.Info("table seeded", "table", table, "rows", n)
	}
	return nil
}

// executePreviews runs every preview step and validates its expect clause.
// Step failures are scenario failures, not execution errors.
func (h *Harness) executePreviews(ctx context.Context, steps []PreviewStep, result *Result) {
	for i, step := range steps {
		if err := h.executePreview(ctx, step, result); err != nil {
			result.AddError(fmt.Sprintf("previews[%d] at %s: %v", i, step.At, err))
		}
	}
}

func (h *Harness) executePreview(ctx context.Context, step PreviewStep, result *Result) error {
	loc, err := syntax.ParseLocation(step.At)
	if err != nil {
		return err
	}
	q, ok := h.queryAt(loc)
	if !ok {
		return fmt.Errorf("no accepted query")
	}

	compiled, err := querysql.CompilePipeline(q.Pipeline, q.Table)
	if err != nil {
		return err
	}
	bindings, err := convertArgsToIRObject(step.Bind)
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	sc := querysql.NewSQLCompiler()
	for name, value := range bindings {
		sc.BoundValues[name] = value
	}
	stmt, params, err := sc.Compile(compiled)
	if err != nil {
		return err
	}
	rows, err := h.store.Preview(ctx, stmt, params)
	if err != nil {
		return err
	}

	result.AddEvent(TraceEvent{
		Type:   EventPreview,
		Table:  q.Table,
		Detail: stmt,
		Rows:   len(rows),
		loc:    q.Location(),
	})
	h.logger.Info("preview executed", "location", q.Location().String(), "rows", len(rows))

	if step.Expect == nil {
		return nil
	}
	if step.Expect.Rows != nil && *step.Expect.Rows != len(rows) {
		return fmt.Errorf("expected %d row(s), got %d", *step.Expect.Rows, len(rows))
	}
	return matchRows(rows, step.Expect.Contains)
}

// queryAt returns the accepted query whose pipeline starts at loc.
func (h *Harness) queryAt(loc syntax.Location) (*compiler.Query, bool) {
	for _, e := range h.pkg.Documents() {
		for _, p := range e.Doc.Pipelines() {
			if q, ok := h.analysis.Query(p); ok && q.Location().Matches(loc) {
				return q, true
			}
		}
	}
	return nil, false
}

// matchRows checks that every expected row matches a distinct row of rows,
// in order (subset match per row).
func matchRows(rows []ir.IRObject, expected []map[string]interface{}) error {
	next := 0
	for i, raw := range expected {
		want, err := convertArgsToIRObject(raw)
		if err != nil {
			return fmt.Errorf("contains[%d]: %w", i, err)
		}
		found := false
		for next < len(rows) {
			row := rows[next]
			next++
			if rowMatches(row, want) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("contains[%d]: no row matching %v", i, raw)
		}
	}
	return nil
}

func rowMatches(row, want ir.IRObject) bool {
	for k, v := range want {
		got, ok := row[k]
		if !ok || !stateValuesEqual(v, got) {
			return false
		}
	}
	return true
}

// convertArgsToIRObject converts a YAML mapping to an IRObject. YAML null
// becomes IRNull, which binds and inserts as SQL NULL.
func convertArgsToIRObject(args map[string]interface{}) (ir.IRObject, error) {
	obj := make(ir.IRObject, len(args))
	for key, val := range args {
		v, err := ir.FromGo(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj[key] = v
	}
	return obj, nil
}
