package compiler

import "github.com/roach88/clafer/internal/ir"

// resolver infers the clafer type of constraint terms and collects
// resolution errors along the way.
//
// Typing rules:
//   - $this has the owner's type
//   - global(c) has type c
//   - a local has the type of its declaration source
//   - join(a, c) needs c to be a child of type(a) or of one of its supers
//     and has type c
//   - joinRef(a) needs type(a) (or a super) to carry a ref and has the
//     ref target's type
//
// An empty type means "unknown"; checks that depend on an unknown type are
// skipped so one mistake is reported once.
type resolver struct {
	f     *ir.Fixture
	owner string
	errs  []ir.Coded
}

func (r *resolver) typeOf(e ir.Expr, env map[string]string) string {
	switch n := e.(type) {
	case *ir.QuantExpr:
		inner := make(map[string]string, len(env))
		for k, t := range env {
			inner[k] = t
		}
		for _, d := range n.Decls {
			source := r.typeOf(d.Source, inner)
			for _, l := range d.Locals {
				inner[l] = source
			}
		}
		r.typeOf(n.Body, inner)
		return ""

	case *ir.CompareExpr:
		r.typeOf(n.Left, env)
		r.typeOf(n.Right, env)
		return ""

	case *ir.JoinExpr:
		from := r.typeOf(n.Left, env)
		if _, ok := r.f.Lookup(n.Right); !ok {
			r.errs = append(r.errs, &ir.UnknownClaferError{Name: n.Right, Context: "join relation"})
			return ""
		}
		if from != "" && !r.f.HasChild(from, n.Right) {
			r.errs = append(r.errs, &ir.InvalidJoinError{From: from, Relation: n.Right})
		}
		return n.Right

	case *ir.JoinRefExpr:
		from := r.typeOf(n.Operand, env)
		if from == "" {
			return ""
		}
		ref, ok := r.f.ResolveRef(from)
		if !ok {
			r.errs = append(r.errs, &ir.InvalidJoinError{From: from})
			return ""
		}
		return ref.Target

	case *ir.ThisExpr:
		if _, ok := r.f.Lookup(r.owner); !ok {
			return ""
		}
		return r.owner

	case *ir.LocalExpr:
		return env[n.Name]

	case *ir.GlobalExpr:
		if _, ok := r.f.Lookup(n.Clafer); !ok {
			r.errs = append(r.errs, &ir.UnknownClaferError{Name: n.Clafer, Context: "global extent"})
			return ""
		}
		return n.Clafer
	}
	return ""
}
