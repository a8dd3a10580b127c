package script

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/clafer/internal/ir"
)

// OrderError reports statements that cannot be emitted because every
// remaining one mentions a clafer that is not yet declared.
type OrderError struct {
	Clafers []string // clafers whose declarations are blocked
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("cannot order statements: dependency cycle through %s", strings.Join(e.Clafers, ", "))
}

// Format prints f as a fixture script.
//
// The scope header comes first, listing only the parts that were declared,
// followed by a blank line and the statements. Statements keep declaration
// order except where a statement must move after the declaration of a clafer
// it mentions. Explicit cardinalities and super clafers are chained onto the
// declaring statement.
func Format(f *ir.Fixture) ([]byte, error) {
	if err := checkStatements(f); err != nil {
		return nil, err
	}
	order, err := emitOrder(f)
	if err != nil {
		return nil, err
	}

	p := &printer{f: f, idents: newIdentTable(), locals: newIdentTable()}
	for _, name := range f.Order {
		p.idents.ident(name)
	}

	var buf bytes.Buffer
	header := p.header()
	for _, line := range header {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if len(header) > 0 && len(order) > 0 {
		buf.WriteByte('\n')
	}
	for _, st := range order {
		buf.WriteString(p.statement(st))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// checkStatements verifies the statement log points at existing clafers,
// refs and constraints.
func checkStatements(f *ir.Fixture) error {
	for i, st := range f.Statements {
		switch st.Kind {
		case ir.StmtDeclare:
			if _, ok := f.Lookup(st.Clafer); !ok {
				return fmt.Errorf("statement %d: %w", i, &ir.UnknownClaferError{Name: st.Clafer, Context: "declaration"})
			}
		case ir.StmtRef:
			if c, ok := f.Lookup(st.Clafer); !ok || c.Ref == nil {
				return fmt.Errorf("statement %d: %w", i, &ir.UnknownClaferError{Name: st.Clafer, Context: "ref holder"})
			}
		case ir.StmtConstraint:
			if st.Constraint < 0 || st.Constraint >= len(f.Constraints) {
				return fmt.Errorf("statement %d: constraint index %d out of range", i, st.Constraint)
			}
		}
	}
	return nil
}

// emitOrder reorders f.Statements so that each one follows the declarations
// it depends on, otherwise preserving the original order.
func emitOrder(f *ir.Fixture) ([]ir.Statement, error) {
	declared := map[string]bool{}
	for _, st := range f.Statements {
		if st.Kind == ir.StmtDeclare {
			declared[st.Clafer] = true
		}
	}

	emitted := map[string]bool{}
	ready := func(st ir.Statement) bool {
		for _, dep := range dependencies(f, st) {
			if declared[dep] && !emitted[dep] {
				return false
			}
		}
		return true
	}

	done := make([]bool, len(f.Statements))
	order := make([]ir.Statement, 0, len(f.Statements))
	for len(order) < len(f.Statements) {
		progressed := false
		for i, st := range f.Statements {
			if done[i] || !ready(st) {
				continue
			}
			done[i] = true
			order = append(order, st)
			if st.Kind == ir.StmtDeclare {
				emitted[st.Clafer] = true
			}
			progressed = true
			break
		}
		if !progressed {
			var blocked []string
			for i, st := range f.Statements {
				if !done[i] && st.Kind == ir.StmtDeclare {
					blocked = append(blocked, st.Clafer)
				}
			}
			return nil, &OrderError{Clafers: blocked}
		}
	}
	return order, nil
}

// dependencies lists the clafers a statement mentions. A declaration depends
// on its parent and super clafer, including itself when they form a loop.
func dependencies(f *ir.Fixture, st ir.Statement) []string {
	switch st.Kind {
	case ir.StmtDeclare:
		c, ok := f.Lookup(st.Clafer)
		if !ok {
			return nil
		}
		var deps []string
		if c.Parent != "" {
			deps = append(deps, c.Parent)
		}
		if c.Super != "" {
			deps = append(deps, c.Super)
		}
		return deps
	case ir.StmtRef:
		deps := []string{st.Clafer}
		if c, ok := f.Lookup(st.Clafer); ok && c.Ref != nil {
			deps = append(deps, c.Ref.Target)
		}
		return deps
	case ir.StmtConstraint:
		c := f.Constraints[st.Constraint]
		deps := ir.ClaferNames(c.Body)
		if c.Owner != "" {
			deps = append(deps, c.Owner)
		}
		return deps
	}
	return nil
}

type printer struct {
	f      *ir.Fixture
	idents *identTable // clafers
	locals *identTable // locals of the constraint being printed
}

func (p *printer) header() []string {
	s := p.f.Scope
	var lines []string
	if s.BoundsSet {
		entries := make([]string, 0, len(s.Bounds))
		for _, name := range s.SortedBoundNames() {
			key := name
			if !isIdent(name) {
				key = strconv.Quote(name)
			}
			entries = append(entries, fmt.Sprintf("%s:%d", key, s.Bounds[name]))
		}
		lines = append(lines, fmt.Sprintf("scope({%s});", strings.Join(entries, ", ")))
	}
	if s.DefaultSet {
		lines = append(lines, fmt.Sprintf("defaultScope(%d);", s.Default))
	}
	if s.IntRangeSet {
		lines = append(lines, fmt.Sprintf("intRange(%d, %d);", s.IntLow, s.IntHigh))
	}
	if s.StringLengthSet {
		lines = append(lines, fmt.Sprintf("stringLength(%d);", s.StringLength))
	}
	return lines
}

func (p *printer) statement(st ir.Statement) string {
	switch st.Kind {
	case ir.StmtDeclare:
		return p.declaration(p.f.Clafers[st.Clafer])
	case ir.StmtRef:
		c := p.f.Clafers[st.Clafer]
		method := "refTo"
		if c.Ref.Unique {
			method = "refToUnique"
		}
		return fmt.Sprintf("%s.%s(%s);", p.idents.ident(c.Name), method, p.idents.ident(c.Ref.Target))
	case ir.StmtConstraint:
		c := p.f.Constraints[st.Constraint]
		p.locals = newIdentTable()
		body := p.expr(c.Body)
		if c.Owner == "" {
			return fmt.Sprintf("Constraint(%s);", body)
		}
		return fmt.Sprintf("%s.addConstraint(%s);", p.idents.ident(c.Owner), body)
	}
	return ""
}

func (p *printer) declaration(c *ir.Clafer) string {
	var b strings.Builder
	b.WriteString(p.idents.ident(c.Name))
	b.WriteString(" = ")
	switch {
	case c.Parent != "":
		fmt.Fprintf(&b, "%s.addChild(%s)", p.idents.ident(c.Parent), strconv.Quote(c.Name))
	case c.Abstract:
		fmt.Fprintf(&b, "Abstract(%s)", strconv.Quote(c.Name))
	default:
		fmt.Fprintf(&b, "Clafer(%s)", strconv.Quote(c.Name))
	}
	if c.CardSet {
		if c.Card.Bounded() {
			fmt.Fprintf(&b, ".withCard(%d, %d)", c.Card.Low, c.Card.High)
		} else {
			fmt.Fprintf(&b, ".withCard(%d)", c.Card.Low)
		}
	}
	if c.Super != "" {
		fmt.Fprintf(&b, ".extending(%s)", p.idents.ident(c.Super))
	}
	b.WriteByte(';')
	return b.String()
}

func (p *printer) expr(e ir.Expr) string {
	switch n := e.(type) {
	case *ir.QuantExpr:
		decls := make([]string, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = p.decl(d)
		}
		return fmt.Sprintf("%s([%s], %s)", n.Kind, strings.Join(decls, ", "), p.expr(n.Body))
	case *ir.CompareExpr:
		return fmt.Sprintf("%s(%s, %s)", n.Op, p.expr(n.Left), p.expr(n.Right))
	case *ir.JoinExpr:
		return fmt.Sprintf("join(%s, %s)", p.expr(n.Left), p.idents.ident(n.Right))
	case *ir.JoinRefExpr:
		return fmt.Sprintf("joinRef(%s)", p.expr(n.Operand))
	case *ir.ThisExpr:
		return "$this()"
	case *ir.LocalExpr:
		return p.locals.ident(n.Name)
	case *ir.GlobalExpr:
		return fmt.Sprintf("global(%s)", p.idents.ident(n.Clafer))
	}
	return ""
}

func (p *printer) decl(d ir.Decl) string {
	locals := make([]string, len(d.Locals))
	for i, name := range d.Locals {
		locals[i] = fmt.Sprintf("%s = local(%s)", p.locals.ident(name), strconv.Quote(name))
	}
	fn := "decl"
	if d.Disjoint {
		fn = "disjDecl"
	}
	return fmt.Sprintf("%s([%s], %s)", fn, strings.Join(locals, ", "), p.expr(d.Source))
}

// identTable assigns each name a unique script identifier. Names that are
// already identifiers are used as is. Clafers share one table per fixture,
// locals get a fresh one per constraint.
type identTable struct {
	byName map[string]string
	used   map[string]bool
}

func newIdentTable() *identTable {
	return &identTable{byName: map[string]string{}, used: map[string]bool{}}
}

func (t *identTable) ident(name string) string {
	if ident, ok := t.byName[name]; ok {
		return ident
	}
	ident := sanitize(name)
	for i := 2; t.used[ident]; i++ {
		ident = fmt.Sprintf("%s_%d", sanitize(name), i)
	}
	t.byName[name] = ident
	t.used[ident] = true
	return ident
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range []rune(s) {
		if !isIdentRune(r, i) {
			return false
		}
	}
	return true
}

func sanitize(s string) string {
	if isIdent(s) {
		return s
	}
	runes := []rune(s)
	for i, r := range runes {
		if !isIdentRune(r, i) {
			runes[i] = '_'
		}
	}
	if len(runes) == 0 {
		return "_"
	}
	return string(runes)
}
