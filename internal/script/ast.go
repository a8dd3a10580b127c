package script

import (
	"fmt"

	"github.com/roach88/clafer/internal/ir"
)

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// StatementKind identifies the form of a parsed statement.
type StatementKind int

const (
	// StmtClafer is x = Clafer("n") or x = Abstract("n").
	StmtClafer StatementKind = iota
	// StmtAddChild is x = p.addChild("n").
	StmtAddChild
	// StmtModify applies modifiers to an existing identifier: x.withCard(1, 1).
	StmtModify
	// StmtRef is x.refTo(y) or x.refToUnique(y).
	StmtRef
	// StmtConstraint is Constraint(expr).
	StmtConstraint
	// StmtAddConstraint is x.addConstraint(expr).
	StmtAddConstraint
	// StmtScope is scope({name: n, ...}).
	StmtScope
	// StmtDefaultScope is defaultScope(n).
	StmtDefaultScope
	// StmtIntRange is intRange(min, max).
	StmtIntRange
	// StmtStringLength is stringLength(max).
	StmtStringLength
)

var statementKindNames = [...]string{
	StmtClafer:        "clafer",
	StmtAddChild:      "addChild",
	StmtModify:        "modify",
	StmtRef:           "ref",
	StmtConstraint:    "constraint",
	StmtAddConstraint: "addConstraint",
	StmtScope:         "scope",
	StmtDefaultScope:  "defaultScope",
	StmtIntRange:      "intRange",
	StmtStringLength:  "stringLength",
}

func (k StatementKind) String() string {
	if int(k) < len(statementKindNames) {
		return statementKindNames[k]
	}
	return fmt.Sprintf("StatementKind(%d)", int(k))
}

// IsScope reports whether the statement belongs to the scope header.
func (k StatementKind) IsScope() bool {
	return k >= StmtScope
}

// Modifier is one chained call on a declaration: .withCard or .extending.
type Modifier struct {
	Method  string // "withCard" or "extending"
	Low     int
	High    int    // ir.Unbounded for withCard(n)
	Bounded bool   // withCard(n, m) gave an explicit upper bound
	Super   string // identifier, for extending
}

// Bound is one entry of a scope({...}) object, in source order.
type Bound struct {
	Name  string
	Value int
}

// Statement is one parsed script statement. Which fields are meaningful
// depends on Kind.
//
// Expressions keep clafer references as written: GlobalExpr.Clafer and
// JoinExpr.Right hold identifiers until the loader resolves them.
type Statement struct {
	Kind     StatementKind
	Pos      Pos
	Ident    string     // assigned identifier
	Receiver string     // parent, ref holder, constraint owner or modified identifier
	Name     string     // clafer name literal
	Abstract bool       // Abstract("n")
	Mods     []Modifier // chained modifiers
	Target   string     // ref target identifier
	Unique   bool       // refToUnique
	Bounds   []Bound    // scope entries
	Args     []int      // defaultScope, intRange, stringLength arguments
	Expr     ir.Expr    // constraint body
}

// Script is a parsed fixture script.
type Script struct {
	Name       string
	Statements []Statement
}
