package script

import (
	"fmt"
	"log/slog"

	"github.com/roach88/clafer/internal/builder"
	"github.com/roach88/clafer/internal/ir"
)

// LoadMode controls how statement errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first failing statement.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll applies every statement and reports each failure.
	LoadModeCollectAll
)

// StatementError ties a construction error to the statement that caused it.
type StatementError struct {
	Name string
	Pos  Pos
	Kind StatementKind
	Err  error
}

func (e *StatementError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%s: %s", e.Name, e.Pos, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Err)
}

// Unwrap returns the underlying fixture error.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// Load replays the statements of s through a builder.
//
// Clafer statements are applied in order. Scope statements are applied after
// all of them, since a scope header names clafers declared further down.
// Identifiers are resolved as assigned; a later assignment rebinds the name.
//
// The returned fixture holds everything that was applied successfully, even
// when errors are returned. It has not been validated as a whole.
func Load(s *Script, mode LoadMode) (*ir.Fixture, []error) {
	l := &loader{
		b:      builder.New(s.Name),
		idents: map[string]builder.Handle{},
	}

	var (
		errs   []error
		scopes []Statement
	)
	run := func(stmt Statement) bool {
		l.b.SetLine(stmt.Pos.Line)
		if err := l.apply(stmt); err != nil {
			errs = append(errs, &StatementError{Name: s.Name, Pos: stmt.Pos, Kind: stmt.Kind, Err: err})
			return mode == LoadModeCollectAll
		}
		slog.Debug("statement loaded", "kind", stmt.Kind, "line", stmt.Pos.Line)
		return true
	}

	for _, stmt := range s.Statements {
		if stmt.Kind.IsScope() {
			scopes = append(scopes, stmt)
			continue
		}
		if !run(stmt) {
			return l.b.Fixture(), errs
		}
	}
	for _, stmt := range scopes {
		if !run(stmt) {
			return l.b.Fixture(), errs
		}
	}
	return l.b.Fixture(), errs
}

// LoadString parses and loads src in one step. Syntax errors are returned
// alone since nothing can be applied.
func LoadString(name, src string, mode LoadMode) (*ir.Fixture, []error) {
	s, err := Parse(name, src)
	if err != nil {
		return nil, []error{err}
	}
	return Load(s, mode)
}

type loader struct {
	b      *builder.Builder
	idents map[string]builder.Handle
}

func (l *loader) handle(ident, context string) (builder.Handle, error) {
	h, ok := l.idents[ident]
	if !ok {
		return builder.Handle{}, &ir.UnknownClaferError{Name: ident, Context: context}
	}
	return h, nil
}

func (l *loader) apply(stmt Statement) error {
	switch stmt.Kind {
	case StmtClafer:
		h, err := l.b.Declare(stmt.Name, stmt.Abstract)
		if err != nil {
			return err
		}
		l.idents[stmt.Ident] = h
		return l.modify(h, stmt.Mods)

	case StmtAddChild:
		parent, err := l.handle(stmt.Receiver, "parent")
		if err != nil {
			return err
		}
		h, err := l.b.AddChild(parent, stmt.Name)
		if err != nil {
			return err
		}
		l.idents[stmt.Ident] = h
		return l.modify(h, stmt.Mods)

	case StmtModify:
		h, err := l.handle(stmt.Receiver, "identifier")
		if err != nil {
			return err
		}
		return l.modify(h, stmt.Mods)

	case StmtRef:
		h, err := l.handle(stmt.Receiver, "ref holder")
		if err != nil {
			return err
		}
		target, err := l.handle(stmt.Target, "ref target")
		if err != nil {
			return err
		}
		_, err = l.b.Ref(h, target, stmt.Unique)
		return err

	case StmtConstraint:
		e, err := l.resolve(stmt.Expr)
		if err != nil {
			return err
		}
		return l.b.Constraint(e)

	case StmtAddConstraint:
		owner, err := l.handle(stmt.Receiver, "constraint owner")
		if err != nil {
			return err
		}
		e, err := l.resolve(stmt.Expr)
		if err != nil {
			return err
		}
		return l.b.AddConstraint(owner, e)

	case StmtScope:
		bounds := make(map[string]int, len(stmt.Bounds))
		for _, b := range stmt.Bounds {
			bounds[b.Name] = b.Value
		}
		return l.b.SetBounds(bounds)

	case StmtDefaultScope:
		return l.b.SetDefaultScope(stmt.Args[0])

	case StmtIntRange:
		return l.b.SetIntRange(stmt.Args[0], stmt.Args[1])

	case StmtStringLength:
		return l.b.SetStringLength(stmt.Args[0])
	}
	return fmt.Errorf("unsupported statement kind %s", stmt.Kind)
}

func (l *loader) modify(h builder.Handle, mods []Modifier) error {
	for _, m := range mods {
		var err error
		switch m.Method {
		case "withCard":
			if m.Bounded {
				_, err = l.b.WithCardBounded(h, m.Low, m.High)
			} else {
				_, err = l.b.WithCard(h, m.Low, ir.Unbounded)
			}
		case "extending":
			var super builder.Handle
			if super, err = l.handle(m.Super, "super clafer"); err == nil {
				_, err = l.b.Extending(h, super)
			}
		default:
			err = fmt.Errorf("unsupported modifier %s", m.Method)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// resolve rewrites the clafer identifiers of e into clafer names.
func (l *loader) resolve(e ir.Expr) (ir.Expr, error) {
	return RenameClafers(e, func(ident string) (string, error) {
		h, err := l.handle(ident, "identifier")
		if err != nil {
			return "", err
		}
		return h.Name(), nil
	})
}

// RenameClafers returns a copy of e with every global extent and join
// relation passed through fn. The first error from fn aborts the copy.
func RenameClafers(e ir.Expr, fn func(string) (string, error)) (ir.Expr, error) {
	switch n := e.(type) {
	case *ir.QuantExpr:
		decls := make([]ir.Decl, len(n.Decls))
		for i, d := range n.Decls {
			source, err := RenameClafers(d.Source, fn)
			if err != nil {
				return nil, err
			}
			decls[i] = ir.Decl{Disjoint: d.Disjoint, Locals: append([]string(nil), d.Locals...), Source: source}
		}
		body, err := RenameClafers(n.Body, fn)
		if err != nil {
			return nil, err
		}
		return &ir.QuantExpr{Kind: n.Kind, Decls: decls, Body: body}, nil

	case *ir.CompareExpr:
		left, err := RenameClafers(n.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := RenameClafers(n.Right, fn)
		if err != nil {
			return nil, err
		}
		return &ir.CompareExpr{Op: n.Op, Left: left, Right: right}, nil

	case *ir.JoinExpr:
		left, err := RenameClafers(n.Left, fn)
		if err != nil {
			return nil, err
		}
		rel, err := fn(n.Right)
		if err != nil {
			return nil, err
		}
		return ir.Join(left, rel), nil

	case *ir.JoinRefExpr:
		operand, err := RenameClafers(n.Operand, fn)
		if err != nil {
			return nil, err
		}
		return ir.JoinRef(operand), nil

	case *ir.GlobalExpr:
		name, err := fn(n.Clafer)
		if err != nil {
			return nil, err
		}
		return ir.Global(name), nil

	case *ir.ThisExpr:
		return ir.This(), nil

	case *ir.LocalExpr:
		return ir.Local(n.Name), nil
	}
	return e, nil
}
