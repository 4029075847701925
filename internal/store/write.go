package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun records a rewrite run with its documents, rewrites and
// abandoned queries in a single transaction.
// Returns the logical sequence number of the run and whether a new record
// was inserted.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run whose ID
// already exists returns the existing seq and inserted=false, and leaves
// the stored documents untouched.
func (s *Store) WriteRun(ctx context.Context, run Run) (seq int64, inserted bool, err error) {
	if run.ID == "" {
		return 0, false, fmt.Errorf("write run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, package, seq, rewrites, abandoned)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Package,
		run.Rewrites(),
		run.Abandoned(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("write run: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("write run: select seq: %w", err)
	}

	if rowsAffected > 0 {
		for i, doc := range run.Documents {
			if err := writeDocument(ctx, tx, run.ID, int64(i+1), doc); err != nil {
				return 0, false, fmt.Errorf("write run: %w", err)
			}
		}
		inserted = true
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, inserted, nil
}

func writeDocument(ctx context.Context, tx *sql.Tx, runID string, seq int64, doc Document) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (run_id, document, seq, hash, formatted)
		VALUES (?, ?, ?, ?, ?)
	`, runID, doc.Name, seq, doc.Hash, doc.Formatted)
	if err != nil {
		return fmt.Errorf("document %s: %w", doc.Name, err)
	}

	for i, rw := range doc.Rewrites {
		clauses, err := marshalClauses(rw.Clauses)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rewrites
			(id, run_id, document, seq, file, line, col, table_name, clauses, original, rewritten)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rw.ID,
			runID,
			doc.Name,
			i+1,
			rw.Location.File,
			rw.Location.Line,
			rw.Location.Column,
			rw.Table,
			clauses,
			rw.Original,
			rw.Rewritten,
		)
		if err != nil {
			return fmt.Errorf("rewrite %s: %w", rw.ID, err)
		}
	}

	for i, ab := range doc.Abandoned {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO abandoned
			(run_id, document, seq, file, line, col, table_name, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			doc.Name,
			i+1,
			ab.Location.File,
			ab.Location.Line,
			ab.Location.Column,
			ab.Table,
			ab.Reason,
		)
		if err != nil {
			return fmt.Errorf("abandoned query at %s: %w", ab.Location, err)
		}
	}
	return nil
}

// HasRewrite checks whether a rewrite with the given content-derived ID
// was recorded by any run.
func (s *Store) HasRewrite(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM rewrites WHERE id = ?
	`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check rewrite: %w", err)
	}
	return count > 0, nil
}
