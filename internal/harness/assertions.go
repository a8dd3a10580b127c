package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/clafer/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Expectation name for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Report   []string // Full error report for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Report) > 0 {
		fmt.Fprintf(&buf, "\nReported errors:\n")
		for i, line := range e.Report {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}

	return buf.String()
}

// evaluate checks the expectations that need no catalog. f is nil when the
// fixture did not parse.
func evaluate(f *ir.Fixture, result *Result, exp Expectation) []error {
	var errs []error

	if exp.Valid != nil && *exp.Valid != result.Valid() {
		errs = append(errs, &AssertionError{
			Type:     "valid",
			Expected: fmt.Sprintf("valid = %t", *exp.Valid),
			Actual:   fmt.Sprintf("valid = %t with %d error(s)", result.Valid(), len(result.Codes)),
			Report:   result.Report,
		})
	}

	if exp.Valid != nil && !*exp.Valid && exp.Codes != nil && !sameCodes(exp.Codes, result.Codes) {
		errs = append(errs, &AssertionError{
			Type:     "codes",
			Expected: fmt.Sprintf("%v", exp.Codes),
			Actual:   fmt.Sprintf("%v", result.Codes),
			Report:   result.Report,
		})
	}

	if f == nil {
		if len(exp.Scopes) > 0 || exp.Statements != nil {
			errs = append(errs, &AssertionError{
				Type:     "fixture",
				Expected: "a loaded fixture",
				Actual:   "fixture did not parse",
				Report:   result.Report,
			})
		}
		return errs
	}

	for _, name := range slices.Sorted(maps.Keys(exp.Scopes)) {
		want := exp.Scopes[name]
		got, err := f.ScopeOf(name)
		if err != nil {
			errs = append(errs, &AssertionError{
				Type:     "scopes",
				Expected: fmt.Sprintf("scope(%s) = %d", name, want),
				Actual:   err.Error(),
			})
			continue
		}
		if got != want {
			errs = append(errs, &AssertionError{
				Type:     "scopes",
				Expected: fmt.Sprintf("scope(%s) = %d", name, want),
				Actual:   fmt.Sprintf("scope(%s) = %d", name, got),
			})
		}
	}

	if exp.Statements != nil && *exp.Statements != len(f.Statements) {
		errs = append(errs, &AssertionError{
			Type:     "statements",
			Expected: fmt.Sprintf("%d statements", *exp.Statements),
			Actual:   fmt.Sprintf("%d statements", len(f.Statements)),
		})
	}

	return errs
}

