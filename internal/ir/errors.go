package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Fixture error codes (E100-E199).
const (
	CodeDuplicateName      = "E101" // clafer name declared twice
	CodeUnknownClafer      = "E102" // name does not resolve to a declared clafer
	CodeInvalidCardinality = "E103" // min < 0 or bounded max < min
	CodeCyclicInheritance  = "E104" // superclafer chain loops
	CodeUnboundVariable    = "E105" // local or $this not bound
	CodeInvalidRange       = "E106" // int range, string length or scope bound out of range
	CodeCyclicContainment  = "E107" // parent chain loops
	CodeNotAbstract        = "E108" // extending a concrete clafer
	CodeInvalidJoin        = "E109" // relation not reachable / no ref to follow
	CodeConflict           = "E110" // super or ref set twice
	CodeDuplicateLocal     = "E111" // local bound twice in one quantifier
)

// Coded is implemented by every fixture error.
type Coded interface {
	error
	Code() string
}

// CodeOf returns the fixture error code carried by err, or "" if none.
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// DuplicateNameError reports a clafer name declared twice.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate clafer name %q", e.Name)
}

func (e *DuplicateNameError) Code() string { return CodeDuplicateName }

// UnknownClaferError reports a name that does not resolve. Context names the
// place the name was used ("parent", "ref target", "scope", ...).
type UnknownClaferError struct {
	Name    string
	Context string
}

func (e *UnknownClaferError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("unknown clafer %q (%s)", e.Name, e.Context)
	}
	return fmt.Sprintf("unknown clafer %q", e.Name)
}

func (e *UnknownClaferError) Code() string { return CodeUnknownClafer }

// InvalidCardinalityError reports a malformed cardinality.
type InvalidCardinalityError struct {
	Clafer string
	Card   Card
	// Explicit is set when High came from an explicit upper bound, so a
	// negative High is printed as given rather than as "*".
	Explicit bool
}

func (e *InvalidCardinalityError) Error() string {
	card := e.Card.String()
	if e.Explicit {
		card = fmt.Sprintf("%d..%d", e.Card.Low, e.Card.High)
	}
	return fmt.Sprintf("invalid cardinality %s for clafer %q", card, e.Clafer)
}

func (e *InvalidCardinalityError) Code() string { return CodeInvalidCardinality }

// CyclicInheritanceError reports a superclafer cycle. Path starts and ends
// with the same name.
type CyclicInheritanceError struct {
	Path []string
}

func (e *CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic inheritance: %s", strings.Join(e.Path, " → "))
}

func (e *CyclicInheritanceError) Code() string { return CodeCyclicInheritance }

// CyclicContainmentError reports a parent cycle.
type CyclicContainmentError struct {
	Path []string
}

func (e *CyclicContainmentError) Error() string {
	return fmt.Sprintf("cyclic containment: %s", strings.Join(e.Path, " → "))
}

func (e *CyclicContainmentError) Code() string { return CodeCyclicContainment }

// UnboundVariableError reports a local (or $this) used outside its binding.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	if e.Name == "$this" {
		return "$this used outside an owner-scoped constraint"
	}
	return fmt.Sprintf("unbound variable %q", e.Name)
}

func (e *UnboundVariableError) Code() string { return CodeUnboundVariable }

// InvalidRangeError reports a bad domain bound. For single-valued bounds
// (string length, scope entries) Low holds the value and High is unused.
type InvalidRangeError struct {
	What string
	Low  int
	High int
}

func (e *InvalidRangeError) Error() string {
	switch e.What {
	case "int range":
		return fmt.Sprintf("invalid int range [%d, %d]: min > max", e.Low, e.High)
	default:
		return fmt.Sprintf("invalid %s %d: must be >= 0", e.What, e.Low)
	}
}

func (e *InvalidRangeError) Code() string { return CodeInvalidRange }

// NotAbstractError reports extending a concrete clafer.
type NotAbstractError struct {
	Clafer string
	Super  string
}

func (e *NotAbstractError) Error() string {
	return fmt.Sprintf("clafer %q extends %q which is not abstract", e.Clafer, e.Super)
}

func (e *NotAbstractError) Code() string { return CodeNotAbstract }

// InvalidJoinError reports navigation that the clafer hierarchy cannot satisfy.
type InvalidJoinError struct {
	From     string // type of the joined term
	Relation string // child relation, empty for joinRef
}

func (e *InvalidJoinError) Error() string {
	if e.Relation == "" {
		return fmt.Sprintf("joinRef over %q which has no reference", e.From)
	}
	return fmt.Sprintf("relation %q is not reachable from %q", e.Relation, e.From)
}

func (e *InvalidJoinError) Code() string { return CodeInvalidJoin }

// ConflictError reports setting a single-valued attribute twice.
type ConflictError struct {
	Clafer string
	What   string // "super clafer" or "ref"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("clafer %q already has a %s", e.Clafer, e.What)
}

func (e *ConflictError) Code() string { return CodeConflict }

// DuplicateLocalError reports a local bound twice by one quantifier.
type DuplicateLocalError struct {
	Name string
}

func (e *DuplicateLocalError) Error() string {
	return fmt.Sprintf("local %q declared more than once in one quantifier", e.Name)
}

func (e *DuplicateLocalError) Code() string { return CodeDuplicateLocal }
