package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/clafer/internal/compiler"
	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
	"github.com/roach88/clafer/internal/store"
)

// Report codes for errors that carry no fixture error code.
const (
	CodeSyntax = "syntax"
	CodeLoad   = "load"
)

// Harness is the scenario execution engine.
// Each run owns a fresh in-memory catalog.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory catalog
// 2. Load the fixture in the scenario's mode
// 3. Validate it as a whole
// 4. Check every expectation
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(context.Background(), scenario, nil)
}

// RunWithLogger is Run with a caller-supplied logger. A nil logger
// discards output.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st, logger: logger.With("scenario", scenario.Name)}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	f, loadErrs := compiler.LoadFile(scenario.Fixture, scenario.LoadMode())
	for _, err := range loadErrs {
		result.addReport(reportLine(err))
	}
	if f == nil {
		h.logger.Info("fixture did not load", "errors", len(loadErrs))
		h.check(ctx, scenario, nil, result)
		return result, nil
	}
	result.Fixture = f.Name

	for _, verr := range compiler.Validate(f) {
		result.addReport(verr.Code, verr.Error())
	}
	h.logger.Info("fixture validated",
		"fixture", f.Name,
		"statements", len(f.Statements),
		"errors", len(result.Codes),
	)

	if result.Valid() {
		out, err := script.Format(f)
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", f.Name, err)
		}
		result.Formatted = string(out)
		result.Digest, err = ir.FixtureDigest(f)
		if err != nil {
			return nil, err
		}
	}

	h.check(ctx, scenario, f, result)
	return result, nil
}

// check evaluates the scenario's expectations and records failures.
func (h *Harness) check(ctx context.Context, scenario *Scenario, f *ir.Fixture, result *Result) {
	exp := scenario.Expect
	for _, err := range evaluate(f, result, exp) {
		result.AddError(err.Error())
	}
	if exp.RoundTrip && result.Valid() {
		if err := h.roundTrip(ctx, f, result); err != nil {
			result.AddError(err.Error())
		}
	}
	h.logger.Info("scenario checked", "pass", result.Pass, "failures", len(result.Errors))
}

// roundTrip formats, reparses and formats again, then stores the fixture
// in the catalog and reloads it.
func (h *Harness) roundTrip(ctx context.Context, f *ir.Fixture, result *Result) error {
	again, errs := script.LoadString(f.Name, result.Formatted, script.LoadModeCollectAll)
	if len(errs) > 0 {
		return &AssertionError{
			Type:     "round_trip",
			Expected: "formatted fixture reloads",
			Actual:   errors.Join(errs...).Error(),
		}
	}
	out, err := script.Format(again)
	if err != nil {
		return fmt.Errorf("round_trip: %w", err)
	}
	if string(out) != result.Formatted {
		return &AssertionError{
			Type:     "round_trip",
			Expected: result.Formatted,
			Actual:   string(out),
		}
	}

	entry, _, err := h.store.Put(ctx, f)
	if err != nil {
		return fmt.Errorf("round_trip: %w", err)
	}
	reloaded, err := entry.Fixture()
	if err != nil {
		return fmt.Errorf("round_trip: %w", err)
	}
	if d := ir.MustFixtureDigest(reloaded); d != result.Digest {
		return &AssertionError{
			Type:     "round_trip",
			Expected: "catalog digest " + result.Digest,
			Actual:   d,
		}
	}
	h.logger.Debug("round trip stable", "digest", entry.Digest, "id", entry.ID)
	return nil
}

// reportLine renders a load error without file paths so reports are
// stable across machines.
func reportLine(err error) (code, line string) {
	var stmtErr *script.StatementError
	var parseErr *script.ParseError
	var compileErr *compiler.CompileError
	switch {
	case errors.As(err, &stmtErr):
		code = ir.CodeOf(err)
		if code == "" {
			code = CodeLoad
		}
		return code, fmt.Sprintf("[%s] line %d: %v", code, stmtErr.Pos.Line, stmtErr.Err)
	case errors.As(err, &parseErr):
		return CodeSyntax, fmt.Sprintf("[%s] %s: %s", CodeSyntax, parseErr.Pos, parseErr.Message)
	case errors.As(err, &compileErr):
		code = ir.CodeOf(err)
		if code == "" {
			code = CodeLoad
		}
		return code, fmt.Sprintf("[%s] %s: %s", code, compileErr.Field, compileErr.Message)
	default:
		return CodeLoad, fmt.Sprintf("[%s] %v", CodeLoad, err)
	}
}

// sameCodes compares code sequences exactly.
func sameCodes(want, got []string) bool {
	return slices.Equal(want, got)
}
