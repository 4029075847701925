package store

import (
	"context"
	"fmt"

	"github.com/roach88/persistsql/internal/syntax"
)

// ReadRuns returns a summary of every recorded run.
// Results are ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no run was recorded.
func (s *Store) ReadRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, package, seq, rewrites, abandoned
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Package, &r.Seq, &r.Rewrites, &r.Abandoned); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a run with its documents by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, package, seq FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Package, &run.Seq)
	if err != nil {
		return Run{}, err
	}

	docs, err := s.readDocuments(ctx, id)
	if err != nil {
		return Run{}, err
	}
	for i := range docs {
		if docs[i].Rewrites, err = s.readRewrites(ctx, id, docs[i].Name); err != nil {
			return Run{}, err
		}
		if docs[i].Abandoned, err = s.readAbandoned(ctx, id, docs[i].Name); err != nil {
			return Run{}, err
		}
	}
	run.Documents = docs
	return run, nil
}

func (s *Store) readDocuments(ctx context.Context, runID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document, hash, formatted
		FROM documents
		WHERE run_id = ?
		ORDER BY seq ASC, document COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Name, &d.Hash, &d.Formatted); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *Store) readRewrites(ctx context.Context, runID, document string) ([]Rewrite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file, line, col, table_name, clauses, original, rewritten
		FROM rewrites
		WHERE run_id = ? AND document = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID, document)
	if err != nil {
		return nil, fmt.Errorf("query rewrites: %w", err)
	}
	defer rows.Close()

	rewrites := []Rewrite{}
	for rows.Next() {
		rw, err := scanRewrite(rows)
		if err != nil {
			return nil, err
		}
		rewrites = append(rewrites, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewrites: %w", err)
	}
	return rewrites, nil
}

func (s *Store) readAbandoned(ctx context.Context, runID, document string) ([]Abandoned, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file, line, col, table_name, reason
		FROM abandoned
		WHERE run_id = ? AND document = ?
		ORDER BY seq ASC
	`, runID, document)
	if err != nil {
		return nil, fmt.Errorf("query abandoned: %w", err)
	}
	defer rows.Close()

	out := []Abandoned{}
	for rows.Next() {
		var ab Abandoned
		if err := rows.Scan(&ab.Location.File, &ab.Location.Line, &ab.Location.Column, &ab.Table, &ab.Reason); err != nil {
			return nil, fmt.Errorf("scan abandoned: %w", err)
		}
		out = append(out, ab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate abandoned: %w", err)
	}
	return out, nil
}

// ReadRewritesAt returns every recorded rewrite of the query at loc,
// oldest run first. A zero column matches any column of the line.
func (s *Store) ReadRewritesAt(ctx context.Context, loc syntax.Location) ([]Rewrite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.file, w.line, w.col, w.table_name, w.clauses, w.original, w.rewritten
		FROM rewrites w
		JOIN runs r ON w.run_id = r.id
		WHERE w.file = ? AND w.line = ? AND (? = 0 OR w.col = ?)
		ORDER BY r.seq ASC, w.id COLLATE BINARY ASC
	`, loc.File, loc.Line, loc.Column, loc.Column)
	if err != nil {
		return nil, fmt.Errorf("query rewrites at %s: %w", loc, err)
	}
	defer rows.Close()

	rewrites := []Rewrite{}
	for rows.Next() {
		rw, err := scanRewrite(rows)
		if err != nil {
			return nil, err
		}
		rewrites = append(rewrites, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewrites: %w", err)
	}
	return rewrites, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRewrite(row scanner) (Rewrite, error) {
	var rw Rewrite
	var clauses string
	err := row.Scan(
		&rw.ID,
		&rw.Location.File,
		&rw.Location.Line,
		&rw.Location.Column,
		&rw.Table,
		&clauses,
		&rw.Original,
		&rw.Rewritten,
	)
	if err != nil {
		return Rewrite{}, fmt.Errorf("scan rewrite: %w", err)
	}
	if rw.Clauses, err = unmarshalClauses(clauses); err != nil {
		return Rewrite{}, err
	}
	return rw, nil
}
