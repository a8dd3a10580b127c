package ir

// Expr is a node of a constraint expression tree.
//
// This is a sealed interface - only pointer types in this package implement
// it, so type switches over the variants below are exhaustive.
//
// Expression forms:
//   - QuantExpr: all/some over local declarations
//   - CompareExpr: equal/notEqual between two terms
//   - JoinExpr: navigation from a term along a child relation
//   - JoinRefExpr: dereference of a reference field
//   - ThisExpr: the current instance of an owner-scoped constraint
//   - LocalExpr: a variable bound by an enclosing declaration
//   - GlobalExpr: the extent of a clafer
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// QuantKind is the quantifier of a QuantExpr.
type QuantKind string

const (
	QuantAll  QuantKind = "all"
	QuantSome QuantKind = "some"
)

// CompareOp is the relation of a CompareExpr.
type CompareOp string

const (
	OpEqual    CompareOp = "equal"
	OpNotEqual CompareOp = "notEqual"
)

// Decl binds one or more locals to the instances of Source. Disjoint asserts
// the locals are pairwise distinct.
type Decl struct {
	Disjoint bool
	Locals   []string
	Source   Expr
}

// QuantExpr quantifies Body over its declarations.
//
// Each declaration's Source may reference locals bound by earlier
// declarations of the same quantifier. Declaration order only matters for
// that and for disjointness, never for evaluation.
type QuantExpr struct {
	Kind  QuantKind
	Decls []Decl
	Body  Expr
}

func (*QuantExpr) exprNode() {}

// CompareExpr compares two terms.
type CompareExpr struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (*CompareExpr) exprNode() {}

// JoinExpr navigates from Left along the child relation named Right.
type JoinExpr struct {
	Left  Expr
	Right string
}

func (*JoinExpr) exprNode() {}

// JoinRefExpr follows the reference field of Operand's instances.
type JoinRefExpr struct {
	Operand Expr
}

func (*JoinRefExpr) exprNode() {}

// ThisExpr is $this().
type ThisExpr struct{}

func (*ThisExpr) exprNode() {}

// LocalExpr references a bound local variable.
type LocalExpr struct {
	Name string
}

func (*LocalExpr) exprNode() {}

// GlobalExpr is the set of all instances of Clafer.
type GlobalExpr struct {
	Clafer string
}

func (*GlobalExpr) exprNode() {}

// All builds all(decls, body).
func All(decls []Decl, body Expr) *QuantExpr {
	return &QuantExpr{Kind: QuantAll, Decls: decls, Body: body}
}

// Some builds some(decls, body).
func Some(decls []Decl, body Expr) *QuantExpr {
	return &QuantExpr{Kind: QuantSome, Decls: decls, Body: body}
}

// DeclOver builds decl([locals], source).
func DeclOver(source Expr, locals ...string) Decl {
	return Decl{Locals: locals, Source: source}
}

// DisjDeclOver builds disjDecl([locals], source).
func DisjDeclOver(source Expr, locals ...string) Decl {
	return Decl{Disjoint: true, Locals: locals, Source: source}
}

// Equal builds equal(a, b).
func Equal(a, b Expr) *CompareExpr {
	return &CompareExpr{Op: OpEqual, Left: a, Right: b}
}

// NotEqual builds notEqual(a, b).
func NotEqual(a, b Expr) *CompareExpr {
	return &CompareExpr{Op: OpNotEqual, Left: a, Right: b}
}

// Join builds join(left, rel).
func Join(left Expr, rel string) *JoinExpr {
	return &JoinExpr{Left: left, Right: rel}
}

// JoinRef builds joinRef(operand).
func JoinRef(operand Expr) *JoinRefExpr {
	return &JoinRefExpr{Operand: operand}
}

// This builds $this().
func This() *ThisExpr {
	return &ThisExpr{}
}

// Local references the local variable name.
func Local(name string) *LocalExpr {
	return &LocalExpr{Name: name}
}

// Global builds global(clafer).
func Global(clafer string) *GlobalExpr {
	return &GlobalExpr{Clafer: clafer}
}

// Walk visits e depth-first in source order. Returning false from fn skips
// the node's children. Decl sources are visited before the quantifier body.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *QuantExpr:
		for _, d := range n.Decls {
			Walk(d.Source, fn)
		}
		Walk(n.Body, fn)
	case *CompareExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *JoinExpr:
		Walk(n.Left, fn)
	case *JoinRefExpr:
		Walk(n.Operand, fn)
	}
}

// ClaferNames returns every clafer name mentioned by e (global extents and
// join relations) in first-seen order.
func ClaferNames(e Expr) []string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	Walk(e, func(n Expr) bool {
		switch n := n.(type) {
		case *GlobalExpr:
			add(n.Clafer)
		case *JoinExpr:
			add(n.Right)
		}
		return true
	})
	return names
}

// UnboundVariables returns the locals referenced by e that no enclosing
// declaration binds, in first-seen order. "$this" is reported when e uses
// $this() and thisBound is false.
func UnboundVariables(e Expr, thisBound bool) []string {
	var unbound []string
	seen := map[string]bool{}
	report := func(name string) {
		if !seen[name] {
			seen[name] = true
			unbound = append(unbound, name)
		}
	}

	var visit func(e Expr, env map[string]bool)
	visit = func(e Expr, env map[string]bool) {
		switch n := e.(type) {
		case *QuantExpr:
			inner := make(map[string]bool, len(env))
			for k := range env {
				inner[k] = true
			}
			for _, d := range n.Decls {
				visit(d.Source, inner)
				for _, l := range d.Locals {
					inner[l] = true
				}
			}
			visit(n.Body, inner)
		case *CompareExpr:
			visit(n.Left, env)
			visit(n.Right, env)
		case *JoinExpr:
			visit(n.Left, env)
		case *JoinRefExpr:
			visit(n.Operand, env)
		case *ThisExpr:
			if !thisBound {
				report("$this")
			}
		case *LocalExpr:
			if !env[n.Name] {
				report(n.Name)
			}
		}
	}
	visit(e, map[string]bool{})
	return unbound
}

// DuplicateLocals returns locals declared more than once within a single
// quantifier, in first-seen order.
func DuplicateLocals(e Expr) []string {
	var dups []string
	reported := map[string]bool{}
	Walk(e, func(n Expr) bool {
		q, ok := n.(*QuantExpr)
		if !ok {
			return true
		}
		seen := map[string]bool{}
		for _, d := range q.Decls {
			for _, l := range d.Locals {
				if seen[l] && !reported[l] {
					reported[l] = true
					dups = append(dups, l)
				}
				seen[l] = true
			}
		}
		return true
	})
	return dups
}
