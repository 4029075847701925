// Package harness provides conformance testing for persist query rewriting.
//
// The harness loads a package from CUE manifests, analyzes and rewrites it,
// runs statement previews against an in-memory SQLite database and
// validates the outcome with assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	manifests: ../manifests/store
//	run_id: run-1
//	seed:
//	  Product:
//	    - { id: 1, name: apple }
//	previews:
//	  - at: main.bal:4
//	    bind: { value: 1 }
//	    expect:
//	      rows: 1
//	      contains:
//	        - { name: apple }
//	assertions:
//	  - type: rewritten
//	    at: main.bal:4
//	    table: Product
//	    clauses: [whereClause, orderByClause]
//	  - type: final_state
//	    table: Product
//	    where: { id: 1 }
//	    expect: { name: apple }
//
// Manifest paths are relative to the scenario file.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - rewritten: a query at a location was rewritten, optionally with the
//     given table, clause arguments and rewritten call text
//   - abandoned: an accepted query was left untouched
//   - skipped: a client call was skipped, optionally for a given reason
//   - diagnostic: a diagnostic with a given code was reported at a location
//   - event_count: the trace holds exactly N events of a type
//   - final_state: queries a preview table and verifies expected values
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run id and a fresh in-memory database.
// Trace events are ordered by source location, previews last, and numbered
// from 1, so traces compare byte for byte against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/store_pushdown.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
