package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same run ID every time.
//
// This enables deterministic rewrite reports and golden snapshot
// comparison: the same package rewritten with the same FixedIDGenerator
// produces byte-identical reports.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed run ID generator.
//
// The ID is typically set in the scenario YAML:
//
//	run_id: "test-run-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements rewriter.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns "<prefix>-1", "<prefix>-2", ... and can be
// reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDGenerator creates a generator whose first ID ends in 1.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate increments the sequence and returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence. After Reset(), the next ID ends in 1.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
