package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/clafer/internal/builder"
	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

// CompileError reports a malformed CUE fixture. Err holds the underlying
// fixture error when there is one.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying fixture error, if any.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// CompileCUE builds a fixture from its CUE form. Uses the CUE SDK's Go API
// directly (not CLI subprocess).
//
// The value should be the fixture struct itself, e.g.:
//
//	fixture: Car: {
//		scope: {bounds: {c0_Car: 4}, default: 1, int_range: [-8, 7], string_length: 16}
//		clafers: [
//			{name: "c0_Car", card: [4, 4]},
//			{name: "c0_owner", parent: "c0_Car", card: [1, 1], ref: "c0_Person"},
//			{name: "c0_Person", card: [4, 4]},
//		]
//		constraints: [{expr: "all([disjDecl([c1 = local(\"c1\"), c2 = local(\"c2\")], global(c0_Car))], ...)"}]
//	}
//
// Clafers may be listed in any order; constraint expressions use the script
// expression syntax with clafer names as identifiers. The result has not
// been validated as a whole.
func CompileCUE(v cue.Value) (*ir.Fixture, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := "fixture"
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		s, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		name = s
	}

	c := &cueCompiler{b: builder.New(name)}
	if err := c.clafers(v); err != nil {
		return nil, err
	}
	if err := c.constraints(v); err != nil {
		return nil, err
	}
	if err := c.scope(v); err != nil {
		return nil, err
	}
	return c.b.Fixture(), nil
}

// cueClafer is one entry of the clafers list.
type cueClafer struct {
	field    string
	pos      token.Pos
	name     string
	abstract bool
	card     *ir.Card
	bounded  bool
	parent   string
	extends  string
	ref      string
	unique   bool
}

type cueCompiler struct {
	b *builder.Builder
}

func (c *cueCompiler) fail(field string, pos token.Pos, err error) error {
	return &CompileError{Field: field, Message: err.Error(), Pos: pos, Err: err}
}

func (c *cueCompiler) handle(field string, pos token.Pos, name string) (builder.Handle, error) {
	h, ok := c.b.Lookup(name)
	if !ok {
		return builder.Handle{}, c.fail(field, pos, &ir.UnknownClaferError{Name: name, Context: field})
	}
	return h, nil
}

// clafers declares every listed clafer, then applies cardinalities, supers
// and refs once all names exist.
func (c *cueCompiler) clafers(v cue.Value) error {
	listVal := v.LookupPath(cue.ParsePath("clafers"))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return formatCUEError(err)
	}

	var entries []cueClafer
	for i := 0; iter.Next(); i++ {
		entry, err := parseCUEClafer(fmt.Sprintf("clafers[%d]", i), iter.Value())
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if err := c.declare(entries); err != nil {
		return err
	}

	for _, e := range entries {
		h, _ := c.b.Lookup(e.name)
		if e.card != nil {
			set := c.b.WithCard
			if e.bounded {
				set = c.b.WithCardBounded
			}
			if _, err := set(h, e.card.Low, e.card.High); err != nil {
				return c.fail(e.field+".card", e.pos, err)
			}
		}
	}
	for _, e := range entries {
		if e.extends == "" {
			continue
		}
		h, _ := c.b.Lookup(e.name)
		super, err := c.handle(e.field+".extends", e.pos, e.extends)
		if err != nil {
			return err
		}
		if _, err := c.b.Extending(h, super); err != nil {
			return c.fail(e.field+".extends", e.pos, err)
		}
	}
	for _, e := range entries {
		if e.ref == "" {
			continue
		}
		h, _ := c.b.Lookup(e.name)
		target, err := c.handle(e.field+".ref", e.pos, e.ref)
		if err != nil {
			return err
		}
		if _, err := c.b.Ref(h, target, e.unique); err != nil {
			return c.fail(e.field+".ref", e.pos, err)
		}
	}
	return nil
}

// declare adds clafers in list order, deferring children whose parent is
// listed later.
func (c *cueCompiler) declare(entries []cueClafer) error {
	pending := entries
	for len(pending) > 0 {
		var deferred []cueClafer
		for _, e := range pending {
			c.b.SetLine(e.pos.Line())
			if e.parent == "" {
				if _, err := c.b.Declare(e.name, e.abstract); err != nil {
					return c.fail(e.field+".name", e.pos, err)
				}
				continue
			}
			parent, ok := c.b.Lookup(e.parent)
			if !ok {
				deferred = append(deferred, e)
				continue
			}
			if _, err := c.b.AddChild(parent, e.name); err != nil {
				return c.fail(e.field+".name", e.pos, err)
			}
		}
		if len(deferred) == len(pending) {
			e := deferred[0]
			return c.fail(e.field+".parent", e.pos, &ir.UnknownClaferError{Name: e.parent, Context: "parent of " + e.name})
		}
		pending = deferred
	}
	c.b.SetLine(0)
	return nil
}

func parseCUEClafer(field string, v cue.Value) (cueClafer, error) {
	entry := cueClafer{field: field, pos: v.Pos()}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return entry, &CompileError{Field: field + ".name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return entry, formatCUEError(err)
	}
	entry.name = name

	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"parent", &entry.parent},
		{"extends", &entry.extends},
		{"ref", &entry.ref},
	} {
		if fv := v.LookupPath(cue.ParsePath(f.label)); fv.Exists() {
			if *f.dst, err = fv.String(); err != nil {
				return entry, formatCUEError(err)
			}
		}
	}
	for _, f := range []struct {
		label string
		dst   *bool
	}{
		{"abstract", &entry.abstract},
		{"unique", &entry.unique},
	} {
		if fv := v.LookupPath(cue.ParsePath(f.label)); fv.Exists() {
			if *f.dst, err = fv.Bool(); err != nil {
				return entry, formatCUEError(err)
			}
		}
	}

	if cardVal := v.LookupPath(cue.ParsePath("card")); cardVal.Exists() {
		card, bounded, err := parseCUECard(field+".card", cardVal)
		if err != nil {
			return entry, err
		}
		entry.card = &card
		entry.bounded = bounded
	}
	return entry, nil
}

// parseCUECard reads [low] or [low, high] where high may be "*". bounded
// reports an integer high.
func parseCUECard(field string, v cue.Value) (card ir.Card, bounded bool, err error) {
	iter, err := v.List()
	if err != nil {
		return ir.Card{}, false, formatCUEError(err)
	}
	var vals []cue.Value
	for iter.Next() {
		vals = append(vals, iter.Value())
	}
	if len(vals) < 1 || len(vals) > 2 {
		return ir.Card{}, false, &CompileError{Field: field, Message: "card must be [low] or [low, high]", Pos: v.Pos()}
	}

	low, err := vals[0].Int64()
	if err != nil {
		return ir.Card{}, false, formatCUEError(err)
	}
	card = ir.Card{Low: int(low), High: ir.Unbounded}
	if len(vals) == 2 {
		if s, err := vals[1].String(); err == nil {
			if s != "*" {
				return ir.Card{}, false, &CompileError{Field: field, Message: fmt.Sprintf("upper bound must be an integer or \"*\", got %q", s), Pos: vals[1].Pos()}
			}
			return card, false, nil
		}
		high, err := vals[1].Int64()
		if err != nil {
			return ir.Card{}, false, formatCUEError(err)
		}
		card.High = int(high)
		bounded = true
	}
	return card, bounded, nil
}

func (c *cueCompiler) constraints(v cue.Value) error {
	listVal := v.LookupPath(cue.ParsePath("constraints"))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		cv := iter.Value()
		field := fmt.Sprintf("constraints[%d]", i)
		c.b.SetLine(cv.Pos().Line())

		exprVal := cv.LookupPath(cue.ParsePath("expr"))
		if !exprVal.Exists() {
			return &CompileError{Field: field + ".expr", Message: "expr is required", Pos: cv.Pos()}
		}
		src, err := exprVal.String()
		if err != nil {
			return formatCUEError(err)
		}
		expr, err := script.ParseExpr(src)
		if err != nil {
			return c.fail(field+".expr", exprVal.Pos(), err)
		}

		if ownerVal := cv.LookupPath(cue.ParsePath("owner")); ownerVal.Exists() {
			owner, err := ownerVal.String()
			if err != nil {
				return formatCUEError(err)
			}
			h, err := c.handle(field+".owner", cv.Pos(), owner)
			if err != nil {
				return err
			}
			if err := c.b.AddConstraint(h, expr); err != nil {
				return c.fail(field, cv.Pos(), err)
			}
			continue
		}
		if err := c.b.Constraint(expr); err != nil {
			return c.fail(field, cv.Pos(), err)
		}
	}
	c.b.SetLine(0)
	return nil
}

func (c *cueCompiler) scope(v cue.Value) error {
	sv := v.LookupPath(cue.ParsePath("scope"))
	if !sv.Exists() {
		return nil
	}

	if bv := sv.LookupPath(cue.ParsePath("bounds")); bv.Exists() {
		iter, err := bv.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		bounds := map[string]int{}
		for iter.Next() {
			n, err := iter.Value().Int64()
			if err != nil {
				return formatCUEError(err)
			}
			bounds[iter.Label()] = int(n)
		}
		if err := c.b.SetBounds(bounds); err != nil {
			return c.fail("scope.bounds", bv.Pos(), err)
		}
	}

	if dv := sv.LookupPath(cue.ParsePath("default")); dv.Exists() {
		n, err := dv.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		if err := c.b.SetDefaultScope(int(n)); err != nil {
			return c.fail("scope.default", dv.Pos(), err)
		}
	}

	if rv := sv.LookupPath(cue.ParsePath("int_range")); rv.Exists() {
		var r []int
		if err := rv.Decode(&r); err != nil {
			return formatCUEError(err)
		}
		if len(r) != 2 {
			return &CompileError{Field: "scope.int_range", Message: "int_range must be [min, max]", Pos: rv.Pos()}
		}
		if err := c.b.SetIntRange(r[0], r[1]); err != nil {
			return c.fail("scope.int_range", rv.Pos(), err)
		}
	}

	if lv := sv.LookupPath(cue.ParsePath("string_length")); lv.Exists() {
		n, err := lv.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		if err := c.b.SetStringLength(int(n)); err != nil {
			return c.fail("scope.string_length", lv.Pos(), err)
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
