package store

import "github.com/roach88/persistsql/internal/syntax"

// Run is a recorded rewrite run.
type Run struct {
	ID        string     `json:"id"`
	Package   string     `json:"package"`
	Seq       int64      `json:"seq"` // logical clock, assigned by WriteRun
	Documents []Document `json:"documents"`
}

// Rewrites returns the number of rewritten queries in the run.
func (r Run) Rewrites() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Rewrites)
	}
	return n
}

// Abandoned returns the number of abandoned queries in the run.
func (r Run) Abandoned() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Abandoned)
	}
	return n
}

// Document is one document of a run. Hash is empty when no query of the
// document was rewritten.
type Document struct {
	Name      string      `json:"name"`
	Hash      string      `json:"hash,omitempty"`
	Formatted bool        `json:"formatted"`
	Rewrites  []Rewrite   `json:"rewrites"`
	Abandoned []Abandoned `json:"abandoned,omitempty"`
}

// Rewrite is one rewritten query.
type Rewrite struct {
	ID        string          `json:"id"`
	Location  syntax.Location `json:"location"`
	Table     string          `json:"table"`
	Clauses   []string        `json:"clauses"`
	Original  string          `json:"original"`
	Rewritten string          `json:"rewritten"`
}

// Abandoned is an accepted query the rewriter left untouched.
type Abandoned struct {
	Location syntax.Location `json:"location"`
	Table    string          `json:"table"`
	Reason   string          `json:"reason"`
}

// RunSummary is a run without its documents.
type RunSummary struct {
	ID        string `json:"id"`
	Package   string `json:"package"`
	Seq       int64  `json:"seq"`
	Rewrites  int    `json:"rewrites"`
	Abandoned int    `json:"abandoned"`
}
