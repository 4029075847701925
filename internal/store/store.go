package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database. Previews use it when no
// database path is given.
const MemoryPath = ":memory:"

// migration upgrades a database from user_version version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order on databases whose user_version is below their
// version. Every statement is idempotent.
var migrations = []migration{
	{1, "index rewrites by location", `CREATE INDEX IF NOT EXISTS idx_rewrites_location ON rewrites(file, line)`},
	{2, "index abandoned queries by location", `CREATE INDEX IF NOT EXISTS idx_abandoned_location ON abandoned(file, line)`},
}

// currentSchemaVersion is the user_version of a fully migrated database.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store holds recorded rewrite runs and the entity tables of statement
// previews in one SQLite database.
type Store struct {
	db     *sql.DB
	memory bool
}

// Open creates or opens the SQLite database at path and brings its schema
// up to date. Opening the same file again is a no-op for the schema.
//
// File databases run in WAL mode with NORMAL synchronous writes and a
// 5 second busy timeout. In-memory databases keep SQLite's memory journal.
// Foreign keys are enforced in both.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and every connection to
	// ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, memory: isMemory(path)}
	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

func isMemory(path string) bool {
	return path == MemoryPath || path == "" ||
		strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) pragmas() []string {
	p := []string{"PRAGMA foreign_keys = ON"}
	if s.memory {
		return p
	}
	return append(p,
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	)
}

func (s *Store) applyPragmas() error {
	for _, pragma := range s.pragmas() {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the run tables and runs pending migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
