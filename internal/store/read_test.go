package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRun() err = %v, want sql.ErrNoRows", err)
	}
}

func TestReadRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ReadRuns(context.Background())
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("ReadRuns() returned nil, want empty slice")
	}
	if len(runs) != 0 {
		t.Errorf("ReadRuns() returned %d runs, want 0", len(runs))
	}
}

func TestReadRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-z", "run-a"} {
		if _, _, err := s.WriteRun(ctx, createTestRun(id)); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ReadRuns(ctx)
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ReadRuns() returned %d runs, want 2", len(runs))
	}

	want := []RunSummary{
		{ID: "run-z", Package: "store", Seq: 1, Rewrites: 2, Abandoned: 2},
		{ID: "run-a", Package: "store", Seq: 2, Rewrites: 2, Abandoned: 2},
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("runs[%d] = %+v, want %+v", i, runs[i], want[i])
		}
	}
}

func TestReadRewritesAt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun("run-1")
	second := createTestRun("run-2")
	second.Documents[0].Rewrites[0].ID = "rw-1b"
	second.Documents[0].Rewrites[0].Rewritten = "mcClient->/products(Product, limitClause = ` 5`)"
	for _, run := range []Run{first, second} {
		if _, _, err := s.WriteRun(ctx, run); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	rewrites, err := s.ReadRewritesAt(ctx, loc(4, 26))
	if err != nil {
		t.Fatalf("ReadRewritesAt() failed: %v", err)
	}
	if len(rewrites) != 2 {
		t.Fatalf("ReadRewritesAt() returned %d rewrites, want 2", len(rewrites))
	}
	if rewrites[0].ID != "rw-1" || rewrites[1].ID != "rw-1b" {
		t.Errorf("rewrites not in run order: %s, %s", rewrites[0].ID, rewrites[1].ID)
	}

	anyCol, err := s.ReadRewritesAt(ctx, loc(4, 0))
	if err != nil {
		t.Fatalf("ReadRewritesAt() failed: %v", err)
	}
	if len(anyCol) != 2 {
		t.Errorf("ReadRewritesAt() without column returned %d rewrites, want 2", len(anyCol))
	}

	none, err := s.ReadRewritesAt(ctx, loc(99, 1))
	if err != nil {
		t.Fatalf("ReadRewritesAt() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ReadRewritesAt() returned %d rewrites for unknown location", len(none))
	}
}
