package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/syntax"
)

// Column is a column of an entity table.
type Column struct {
	Name string
	Type string // SQLite column affinity
	Key  bool
}

// Table is the SQLite table backing an entity for previews.
type Table struct {
	Name    string
	Columns []Column
}

// TableFor derives the table of an entity record type. Readonly fields
// form the primary key.
func TableFor(td *syntax.TypeDef) Table {
	t := Table{Name: syntax.StripEscape(td.Name)}
	for _, f := range td.Fields {
		t.Columns = append(t.Columns, Column{
			Name: syntax.StripEscape(f.Name),
			Type: affinity(f.Type),
			Key:  f.Readonly,
		})
	}
	return t
}

func affinity(typ string) string {
	typ = strings.TrimSuffix(strings.TrimSpace(typ), "?")
	switch typ {
	case "int", "boolean":
		return "INTEGER"
	case "float", "decimal":
		return "REAL"
	case "byte[]":
		return "BLOB"
	default:
		return "TEXT"
	}
}

// CreateTable creates the table if it does not exist.
func (s *Store) CreateTable(ctx context.Context, t Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("create table %s: no columns", t.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(t.Name))
	var keys []string
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", quoteIdent(c.Name), c.Type)
		if c.Key {
			keys = append(keys, quoteIdent(c.Name))
		}
	}
	if len(keys) > 0 {
		fmt.Fprintf(&b, ", PRIMARY KEY (%s)", strings.Join(keys, ", "))
	}
	b.WriteString(")")

	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

// InsertRows inserts rows into table in a single transaction. Each row
// names its columns by key; rows whose primary key already exists are
// skipped. Returns the number of rows inserted.
func (s *Store) InsertRows(ctx context.Context, table string, rows []ir.IRObject) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert rows: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted := 0
	for i, row := range rows {
		keys := row.SortedKeys()
		if len(keys) == 0 {
			return 0, fmt.Errorf("insert rows: row %d has no columns", i)
		}
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		args := make([]any, len(keys))
		for j, k := range keys {
			cols[j] = quoteIdent(k)
			marks[j] = "?"
			if args[j], err = toParam(row[k]); err != nil {
				return 0, fmt.Errorf("insert rows: row %d column %s: %w", i, k, err)
			}
		}
		stmt := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
		result, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("insert rows: row %d: %w", i, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert rows: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert rows: commit: %w", err)
	}
	return inserted, nil
}

// Preview runs a compiled SELECT statement and returns its rows keyed by
// column name, in result order.
//
// Returns an empty slice (not nil) if the statement selects nothing.
func (s *Store) Preview(ctx context.Context, stmt string, args []any) ([]ir.IRObject, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return out, nil
}

// Lookup returns the rows of table whose columns equal every value in
// where. Null values match NULL columns. An empty where selects all rows.
// Every key of where must name a column of table.
func (s *Store) Lookup(ctx context.Context, table string, where ir.IRObject) ([]ir.IRObject, error) {
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", table, err)
	}
	keys := where.SortedKeys()
	for _, k := range keys {
		if _, ok := cols[k]; !ok {
			return nil, fmt.Errorf("lookup %s: no such column: %s", table, k)
		}
	}

	stmt := "SELECT * FROM " + quoteIdent(table)
	args := make([]any, len(keys))
	for i, k := range keys {
		if i == 0 {
			stmt += " WHERE "
		} else {
			stmt += " AND "
		}
		stmt += quoteIdent(k) + " IS ?"
		v, err := toParam(where[k])
		if err != nil {
			return nil, fmt.Errorf("lookup %s: column %s: %w", table, k, err)
		}
		args[i] = v
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", table, err)
	}
	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", table, err)
	}
	return out, nil
}

// tableColumns returns the column names of table. SQLite reads an unknown
// double-quoted identifier as a string literal, so lookups check names
// here first.
func (s *Store) tableColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("table info: %w", err)
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return cols, nil
}

// collectRows drains and closes rows.
func collectRows(rows *sql.Rows) ([]ir.IRObject, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []ir.IRObject{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		obj := make(ir.IRObject, len(cols))
		for i, c := range cols {
			obj[c] = fromColumn(values[i])
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
