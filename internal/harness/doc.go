// Package harness provides conformance testing for clafer fixtures.
//
// A scenario names one fixture file and what loading and validating it
// must produce. The harness loads the fixture, validates it, checks the
// expectations and, for valid fixtures, can compare the formatted output
// against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: car
//	description: "Four cars with distinct owners"
//	fixture: ../fixtures/car.js
//	mode: collect
//	expect:
//	  valid: true
//	  statements: 5
//	  scopes: { c0_Car: 4, c0_Engine: 1 }
//	  round_trip: true
//	golden: true
//
// The fixture path is relative to the scenario file. For an invalid
// fixture, expect.codes lists the error codes in the order they are
// reported: load errors first, then validation errors.
//
// # Expectations
//
//   - valid: the fixture loads and validates without errors
//   - codes: exact sequence of reported error codes
//   - scopes: ScopeOf(name) for each listed clafer
//   - statements: number of statements in the fixture log
//   - round_trip: format, reparse and format again yields identical text,
//     and a catalog entry reloads to the same digest
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory catalog, so results do not
// depend on earlier scenarios.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/car.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
