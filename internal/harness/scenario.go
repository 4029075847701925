package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/persistsql/internal/syntax"
)

// DefaultRunID is the rewrite run id used when a scenario sets none.
const DefaultRunID = "scenario-run"

// Scenario defines a conformance test scenario.
// Scenarios load a package, rewrite it, preview statements and assert on
// the resulting trace and preview tables.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifests is the directory of CUE manifests describing the package.
	// Relative paths are resolved against the scenario file location.
	Manifests string `yaml:"manifests"`

	// RunID is a fixed rewrite run id for deterministic tests.
	// If empty, defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Format lays out rewritten documents. Defaults to true.
	Format *bool `yaml:"format,omitempty"`

	// Seed holds rows inserted into the entity tables before previews,
	// keyed by table name.
	Seed map[string][]map[string]interface{} `yaml:"seed,omitempty"`

	// Previews run the statements of accepted queries in order.
	Previews []PreviewStep `yaml:"previews,omitempty"`

	// Assertions validate the final trace and preview tables.
	Assertions []Assertion `yaml:"assertions"`
}

// PreviewStep runs the statement of the accepted query at a location.
type PreviewStep struct {
	// At is the query location, file:line[:col].
	At string `yaml:"at"`

	// Bind maps parameter source text to values.
	Bind map[string]interface{} `yaml:"bind,omitempty"`

	// Expect specifies the expected rows.
	// If nil, the preview only has to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected preview rows.
type ExpectClause struct {
	// Rows is the expected number of rows.
	Rows *int `yaml:"rows,omitempty"`

	// Contains lists rows that must be present, in order.
	// This is a subset match per row - only specified fields are validated.
	Contains []map[string]interface{} `yaml:"contains,omitempty"`
}

// Assertion validates the trace or a preview table.
type Assertion struct {
	// Type specifies the assertion type:
	// - "rewritten": a query at At was rewritten
	// - "abandoned": an accepted query at At was left untouched
	// - "skipped": a client call at At was skipped
	// - "diagnostic": a diagnostic with Code was reported at At
	// - "event_count": the trace holds Count events of type Event
	// - "final_state": query Table and verify expected values
	Type string `yaml:"type"`

	// At is the location, file:line[:col] (rewritten, abandoned, skipped,
	// diagnostic).
	At string `yaml:"at,omitempty"`

	// Table is the expected entity table (rewritten, abandoned) or the
	// preview table to query (final_state).
	Table string `yaml:"table,omitempty"`

	// Clauses are the expected clause arguments in order (rewritten).
	Clauses []string `yaml:"clauses,omitempty"`

	// Contains must be a substring of the event detail (rewritten,
	// abandoned).
	Contains string `yaml:"contains,omitempty"`

	// Reason is the expected skip reason (skipped).
	Reason string `yaml:"reason,omitempty"`

	// Code is the expected diagnostic code (diagnostic).
	Code string `yaml:"code,omitempty"`

	// Event is the event type to count (event_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Where specifies query filters (final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRewritten  = "rewritten"
	AssertAbandoned  = "abandoned"
	AssertSkipped    = "skipped"
	AssertDiagnostic = "diagnostic"
	AssertEventCount = "event_count"
	AssertFinalState = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. The manifest
// directory is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the manifest directory relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the manifest path BEFORE validation
	if scenario.Manifests != "" && !filepath.IsAbs(scenario.Manifests) && basePath != "" {
		scenario.Manifests = filepath.Join(basePath, scenario.Manifests)
	}

	// Validate required fields (now with resolved paths)
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Manifests == "" {
		return fmt.Errorf("manifests is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Validate manifest directory exists
	info, err := os.Stat(s.Manifests)
	if err != nil {
		return fmt.Errorf("manifest directory not found: %s", s.Manifests)
	}
	if !info.IsDir() {
		return fmt.Errorf("manifests is not a directory: %s", s.Manifests)
	}

	// Validate preview steps
	for i, step := range s.Previews {
		if step.At == "" {
			return fmt.Errorf("previews[%d]: at is required", i)
		}
		if _, err := syntax.ParseLocation(step.At); err != nil {
			return fmt.Errorf("previews[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Rows != nil && *step.Expect.Rows < 0 {
			return fmt.Errorf("previews[%d].expect: rows must be non-negative", i)
		}
	}

	// Validate assertions
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRewritten, AssertAbandoned, AssertSkipped:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for %s", index, a.Type)
		}
	case AssertDiagnostic:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for diagnostic", index)
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.At != "" {
		if _, err := syntax.ParseLocation(a.At); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	return nil
}
