package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/clafer/internal/compiler"
	"github.com/roach88/clafer/internal/script"
)

// Scenario defines a conformance test scenario: one fixture and what
// loading and validating it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path to a .js or .cue fixture.
	// Relative paths are resolved against the scenario file location.
	Fixture string `yaml:"fixture"`

	// Mode selects error handling while loading: "collect" (default) or
	// "failfast".
	Mode string `yaml:"mode,omitempty"`

	// Expect lists what the run must produce.
	Expect Expectation `yaml:"expect"`

	// Golden compares the formatted fixture, or the error report of an
	// invalid one, against testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// Expectation specifies the expected outcome of loading and validating.
type Expectation struct {
	// Valid is required: whether the fixture loads and validates cleanly.
	Valid *bool `yaml:"valid"`

	// Codes is the exact sequence of reported error codes.
	Codes []string `yaml:"codes,omitempty"`

	// Scopes maps clafer names to their expected scope.
	Scopes map[string]int `yaml:"scopes,omitempty"`

	// Statements is the expected length of the statement log.
	Statements *int `yaml:"statements,omitempty"`

	// RoundTrip checks that formatting is stable and that the catalog
	// reloads the fixture to the same digest.
	RoundTrip bool `yaml:"round_trip,omitempty"`
}

// Load mode names accepted in scenario files.
const (
	ModeCollect  = "collect"
	ModeFailFast = "failfast"
)

// LoadMode maps the scenario's mode to a script load mode.
func (s *Scenario) LoadMode() script.LoadMode {
	if s.Mode == ModeFailFast {
		return script.LoadModeFailFast
	}
	return script.LoadModeCollectAll
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The fixture path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the fixture path BEFORE validation
	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(filepath.Dir(path), scenario.Fixture)
	}

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

	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if !compiler.IsFixtureFile(s.Fixture) {
		return fmt.Errorf("fixture must be a .js or .cue file: %s", s.Fixture)
	}
	if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
		return fmt.Errorf("fixture file not found: %s", s.Fixture)
	}

	switch s.Mode {
	case "", ModeCollect, ModeFailFast:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeCollect, ModeFailFast, s.Mode)
	}

	if s.Expect.Valid == nil {
		return fmt.Errorf("expect.valid is required")
	}
	if *s.Expect.Valid && len(s.Expect.Codes) > 0 {
		return fmt.Errorf("expect.codes must be empty when expect.valid is true")
	}
	if !*s.Expect.Valid && s.Expect.RoundTrip {
		return fmt.Errorf("expect.round_trip requires expect.valid")
	}
	for name, n := range s.Expect.Scopes {
		if n < 0 {
			return fmt.Errorf("expect.scopes[%s]: must be non-negative", name)
		}
	}
	if s.Expect.Statements != nil && *s.Expect.Statements < 0 {
		return fmt.Errorf("expect.statements must be non-negative")
	}

	return nil
}
