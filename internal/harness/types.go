package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation holds.
	Pass bool `json:"pass"`

	// Fixture is the loaded fixture's name, empty if it did not parse.
	Fixture string `json:"fixture,omitempty"`

	// Codes lists reported error codes: load errors, then validation errors.
	Codes []string `json:"codes"`

	// Report holds one line per reported error, in the order of Codes.
	Report []string `json:"report"`

	// Formatted is the formatted fixture. Only set for valid fixtures.
	Formatted string `json:"formatted,omitempty"`

	// Digest is the fixture digest. Only set for valid fixtures.
	Digest string `json:"digest,omitempty"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Codes:  []string{},
		Report: []string{},
		Errors: []string{},
	}
}

// Valid reports whether the fixture loaded and validated cleanly.
func (r *Result) Valid() bool {
	return r.Fixture != "" && len(r.Codes) == 0
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addReport(code, line string) {
	r.Codes = append(r.Codes, code)
	r.Report = append(r.Report, line)
}
