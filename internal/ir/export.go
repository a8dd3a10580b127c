package ir

import "fmt"

// CanonicalMap converts a fixture into plain maps and slices suitable for
// MarshalCanonical, JSON and YAML export. Absent attributes are omitted
// rather than emitted as null.
func CanonicalMap(f *Fixture) map[string]any {
	clafers := make([]any, 0, len(f.Order))
	for _, c := range f.ClafersInOrder() {
		clafers = append(clafers, claferMap(c))
	}

	constraints := make([]any, 0, len(f.Constraints))
	for _, c := range f.Constraints {
		m := map[string]any{}
		if c.Owner != "" {
			m["owner"] = c.Owner
		}
		if c.Body != nil {
			m["body"] = ExprMap(c.Body)
		}
		constraints = append(constraints, m)
	}

	statements := make([]any, 0, len(f.Statements))
	for _, s := range f.Statements {
		m := map[string]any{"kind": s.Kind.String()}
		switch s.Kind {
		case StmtConstraint:
			m["constraint"] = s.Constraint
		default:
			m["clafer"] = s.Clafer
		}
		statements = append(statements, m)
	}

	return map[string]any{
		"ir_version":  IRVersion,
		"clafers":     clafers,
		"constraints": constraints,
		"statements":  statements,
		"scope":       scopeMap(f.Scope),
	}
}

func claferMap(c *Clafer) map[string]any {
	m := map[string]any{
		"name":     c.Name,
		"abstract": c.Abstract,
		"card":     cardMap(c.Card),
		"card_set": c.CardSet,
	}
	if c.Parent != "" {
		m["parent"] = c.Parent
	}
	if c.Super != "" {
		m["super"] = c.Super
	}
	if c.Ref != nil {
		m["ref"] = map[string]any{"target": c.Ref.Target, "unique": c.Ref.Unique}
	}
	if len(c.Children) > 0 {
		m["children"] = append([]string(nil), c.Children...)
	}
	return m
}

func cardMap(c Card) map[string]any {
	m := map[string]any{"low": c.Low}
	if c.Bounded() {
		m["high"] = c.High
	} else {
		m["high"] = "*"
	}
	return m
}

func scopeMap(s Scope) map[string]any {
	bounds := make(map[string]any, len(s.Bounds))
	for k, v := range s.Bounds {
		bounds[k] = v
	}
	// declared lists the header statements the fixture wrote out, so a
	// fixture relying on defaults differs from one spelling them out.
	declared := []any{}
	for _, d := range []struct {
		name string
		set  bool
	}{
		{"bounds", s.BoundsSet},
		{"default", s.DefaultSet},
		{"int_range", s.IntRangeSet},
		{"string_length", s.StringLengthSet},
	} {
		if d.set {
			declared = append(declared, d.name)
		}
	}
	return map[string]any{
		"bounds":        bounds,
		"declared":      declared,
		"default":       s.Default,
		"int_low":       s.IntLow,
		"int_high":      s.IntHigh,
		"string_length": s.StringLength,
	}
}

// ExprMap converts an expression tree into nested maps keyed by "op".
func ExprMap(e Expr) map[string]any {
	switch n := e.(type) {
	case *QuantExpr:
		decls := make([]any, 0, len(n.Decls))
		for _, d := range n.Decls {
			dm := map[string]any{
				"disjoint": d.Disjoint,
				"locals":   append([]string(nil), d.Locals...),
			}
			if d.Source != nil {
				dm["source"] = ExprMap(d.Source)
			}
			decls = append(decls, dm)
		}
		m := map[string]any{"op": string(n.Kind), "decls": decls}
		if n.Body != nil {
			m["body"] = ExprMap(n.Body)
		}
		return m
	case *CompareExpr:
		return map[string]any{"op": string(n.Op), "left": ExprMap(n.Left), "right": ExprMap(n.Right)}
	case *JoinExpr:
		return map[string]any{"op": "join", "left": ExprMap(n.Left), "right": n.Right}
	case *JoinRefExpr:
		return map[string]any{"op": "joinRef", "operand": ExprMap(n.Operand)}
	case *ThisExpr:
		return map[string]any{"op": "$this"}
	case *LocalExpr:
		return map[string]any{"op": "local", "name": n.Name}
	case *GlobalExpr:
		return map[string]any{"op": "global", "clafer": n.Clafer}
	case nil:
		return map[string]any{"op": "missing"}
	default:
		return map[string]any{"op": fmt.Sprintf("%T", e)}
	}
}
