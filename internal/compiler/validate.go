package compiler

import (
	"fmt"

	"github.com/roach88/clafer/internal/builder"
	"github.com/roach88/clafer/internal/ir"
)

// ValidationError represents one problem found in a fixture. Err carries the
// typed error from package ir so callers can use errors.As.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Unwrap returns the typed fixture error.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks a fixture as a whole: name uniqueness, cross-reference
// resolution, cardinalities, inheritance and containment cycles, scope and
// domain bounds, variable binding and join reachability in constraints.
// Returns all errors found (does not fail-fast). Validate has no side
// effects and may be called repeatedly.
func Validate(f *ir.Fixture) []ValidationError {
	v := &validator{f: f, lines: declarationLines(f)}
	v.checkNames()
	v.checkClafers()
	v.checkCycles()
	v.checkScope()
	v.checkConstraints()
	return v.errs
}

// Build validates the builder's fixture and returns it only if it is valid.
func Build(b *builder.Builder) (*ir.Fixture, []ValidationError) {
	f := b.Fixture()
	if errs := Validate(f); len(errs) > 0 {
		return nil, errs
	}
	return f, nil
}

// validator accumulates errors during traversal.
type validator struct {
	f     *ir.Fixture
	lines map[string]int
	errs  []ValidationError
}

func (v *validator) add(field string, line int, err ir.Coded) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: err.Error(),
		Code:    err.Code(),
		Line:    line,
		Err:     err,
	})
}

// declarationLines maps each clafer to the line of its declaration statement.
func declarationLines(f *ir.Fixture) map[string]int {
	lines := make(map[string]int)
	for _, s := range f.Statements {
		if s.Kind == ir.StmtDeclare {
			if _, seen := lines[s.Clafer]; !seen {
				lines[s.Clafer] = s.Line
			}
		}
	}
	return lines
}

// E101: every declared name appears once.
func (v *validator) checkNames() {
	seen := make(map[string]bool, len(v.f.Order))
	for i, name := range v.f.Order {
		if seen[name] {
			v.add(fmt.Sprintf("order[%d]", i), v.lines[name], &ir.DuplicateNameError{Name: name})
		}
		seen[name] = true
	}
}

func (v *validator) checkClafers() {
	for _, c := range v.f.ClafersInOrder() {
		field := "clafers." + c.Name
		line := v.lines[c.Name]

		// E103: cardinality sanity
		if !c.Card.Valid() {
			v.add(field+".card", line, &ir.InvalidCardinalityError{Clafer: c.Name, Card: c.Card})
		}

		// E102: parent must resolve
		if c.Parent != "" {
			if _, ok := v.f.Lookup(c.Parent); !ok {
				v.add(field+".parent", line, &ir.UnknownClaferError{Name: c.Parent, Context: "parent of " + c.Name})
			}
		}

		// E102/E108: super must resolve and be abstract
		if c.Super != "" {
			super, ok := v.f.Lookup(c.Super)
			switch {
			case !ok:
				v.add(field+".super", line, &ir.UnknownClaferError{Name: c.Super, Context: "super clafer of " + c.Name})
			case !super.Abstract:
				v.add(field+".super", line, &ir.NotAbstractError{Clafer: c.Name, Super: c.Super})
			}
		}

		// E102: ref target must resolve
		if c.Ref != nil {
			if _, ok := v.f.Lookup(c.Ref.Target); !ok {
				v.add(field+".ref", v.refLine(c.Name), &ir.UnknownClaferError{Name: c.Ref.Target, Context: "ref target of " + c.Name})
			}
		}
	}
}

// refLine returns the line of the ref statement of holder.
func (v *validator) refLine(holder string) int {
	for _, s := range v.f.Statements {
		if s.Kind == ir.StmtRef && s.Clafer == holder {
			return s.Line
		}
	}
	return v.lines[holder]
}

// E104/E107: no cycles through super or parent links.
func (v *validator) checkCycles() {
	for _, path := range AnalyzeInheritance(v.f) {
		v.add("clafers."+path[0]+".super", v.lines[path[0]], &ir.CyclicInheritanceError{Path: path})
	}
	for _, path := range AnalyzeContainment(v.f) {
		v.add("clafers."+path[0]+".parent", v.lines[path[0]], &ir.CyclicContainmentError{Path: path})
	}
}

// E102/E106: scope keys resolve and every bound is in range.
func (v *validator) checkScope() {
	s := v.f.Scope
	for _, name := range s.SortedBoundNames() {
		field := "scope.bounds." + name
		if _, ok := v.f.Lookup(name); !ok {
			v.add(field, 0, &ir.UnknownClaferError{Name: name, Context: "scope"})
		}
		if s.Bounds[name] < 0 {
			v.add(field, 0, &ir.InvalidRangeError{What: "scope for " + name, Low: s.Bounds[name]})
		}
	}
	if s.Default < 0 {
		v.add("scope.default", 0, &ir.InvalidRangeError{What: "default scope", Low: s.Default})
	}
	if s.IntLow > s.IntHigh {
		v.add("scope.int_range", 0, &ir.InvalidRangeError{What: "int range", Low: s.IntLow, High: s.IntHigh})
	}
	if s.StringLength < 0 {
		v.add("scope.string_length", 0, &ir.InvalidRangeError{What: "string length", Low: s.StringLength})
	}
}

func (v *validator) checkConstraints() {
	for i, c := range v.f.Constraints {
		field := fmt.Sprintf("constraints[%d]", i)

		if c.Owner != "" {
			if _, ok := v.f.Lookup(c.Owner); !ok {
				v.add(field+".owner", c.Line, &ir.UnknownClaferError{Name: c.Owner, Context: "constraint owner"})
			}
		}
		// E105: every local bound, $this only in owner-scoped constraints
		for _, name := range ir.UnboundVariables(c.Body, c.Owner != "") {
			v.add(field, c.Line, &ir.UnboundVariableError{Name: name})
		}

		// E111: one binding per local per quantifier
		for _, name := range ir.DuplicateLocals(c.Body) {
			v.add(field, c.Line, &ir.DuplicateLocalError{Name: name})
		}

		// E102/E109: names resolve, joins reachable
		r := &resolver{f: v.f, owner: c.Owner}
		r.typeOf(c.Body, map[string]string{})
		for _, err := range r.errs {
			v.add(field, c.Line, err)
		}
	}
}
