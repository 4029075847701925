package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/persistsql/internal/syntax"
)

func loc(line, col int) syntax.Location {
	return syntax.Location{File: "main.bal", Line: line, Column: col}
}

// createTestRun builds a run with one rewritten document and one document
// whose only query was abandoned.
func createTestRun(id string) Run {
	return Run{
		ID:      id,
		Package: "store",
		Documents: []Document{
			{
				Name:      "default/main.bal",
				Hash:      "doc-hash",
				Formatted: true,
				Rewrites: []Rewrite{
					{
						ID:        "rw-1",
						Location:  loc(4, 26),
						Table:     "Product",
						Clauses:   []string{"whereClause", "limitClause"},
						Original:  "mcClient->/products.get(Product)",
						Rewritten: "mcClient->/products(Product, whereClause = ` id = ${value}`, limitClause = ` 10`)",
					},
					{
						ID:        "rw-2",
						Location:  loc(6, 32),
						Table:     "Employee",
						Clauses:   []string{"orderByClause"},
						Original:  "mcClient->/employees(Employee)",
						Rewritten: "mcClient->/employees(Employee, orderByClause = ` name ASC`)",
					},
				},
				Abandoned: []Abandoned{
					{Location: loc(8, 26), Table: "Product", Reason: "where clause: operator \"+\""},
				},
			},
			{
				Name: "default/other.bal",
				Abandoned: []Abandoned{
					{Location: syntax.Location{File: "other.bal", Line: 2, Column: 10}, Table: "Category", Reason: "unsupported"},
				},
			},
		},
	}
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1")

	seq, inserted, err := s.WriteRun(ctx, run)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if !inserted {
		t.Error("expected inserted=true for a new run")
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}

	want := run
	want.Seq = 1
	want.Documents[1].Rewrites = []Rewrite{}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadRun() mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq1, inserted1, err := s.WriteRun(ctx, createTestRun("run-1"))
	if err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}

	changed := createTestRun("run-1")
	changed.Package = "other"
	changed.Documents = changed.Documents[:1]
	seq2, inserted2, err := s.WriteRun(ctx, changed)
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}

	if !inserted1 || inserted2 {
		t.Errorf("inserted = %v, %v; want true, false", inserted1, inserted2)
	}
	if seq1 != seq2 {
		t.Errorf("duplicate run got seq %d, want %d", seq2, seq1)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Package != "store" || len(got.Documents) != 2 {
		t.Errorf("duplicate write modified the run: %+v", got)
	}
}

func TestWriteRun_SeqIsLogicalClock(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-b", "run-a", "run-c"} {
		seq, _, err := s.WriteRun(ctx, Run{ID: id, Package: "store"})
		if err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
		if seq != int64(i+1) {
			t.Errorf("WriteRun(%s) seq = %d, want %d", id, seq, i+1)
		}
	}
}

func TestWriteRun_EmptyID(t *testing.T) {
	s := createTestStore(t)
	if _, _, err := s.WriteRun(context.Background(), Run{Package: "store"}); err == nil {
		t.Error("expected error for empty run id")
	}
}

func TestWriteRun_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	// Duplicate rewrite IDs within a run violate the primary key.
	run.Documents[0].Rewrites[1].ID = "rw-1"

	if _, _, err := s.WriteRun(ctx, run); err == nil {
		t.Fatal("expected error for duplicate rewrite id")
	}

	_, err := s.ReadRun(ctx, "run-1")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRun() err = %v, want sql.ErrNoRows after rollback", err)
	}
}

func TestHasRewrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	has, err := s.HasRewrite(ctx, "rw-1")
	if err != nil {
		t.Fatalf("HasRewrite() failed: %v", err)
	}
	if has {
		t.Error("HasRewrite() = true on empty store")
	}

	if _, _, err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	has, err = s.HasRewrite(ctx, "rw-1")
	if err != nil {
		t.Fatalf("HasRewrite() failed: %v", err)
	}
	if !has {
		t.Error("HasRewrite() = false after recording rw-1")
	}
}
