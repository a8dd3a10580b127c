package ir

import (
	"fmt"
	"sort"
)

// Unbounded marks a cardinality or range without an upper limit.
const Unbounded = -1

// Scope defaults used when a fixture never declares them.
const (
	DefaultScope        = 1
	DefaultIntLow       = -8
	DefaultIntHigh      = 7
	DefaultStringLength = 16
)

// Card is a clafer cardinality. High is Unbounded for "*".
type Card struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Bounded reports whether the cardinality has an upper limit.
func (c Card) Bounded() bool {
	return c.High != Unbounded
}

// Valid reports whether 0 <= Low and (High unbounded or High >= Low).
func (c Card) Valid() bool {
	if c.Low < 0 {
		return false
	}
	return !c.Bounded() || c.High >= c.Low
}

func (c Card) String() string {
	if !c.Bounded() {
		return fmt.Sprintf("%d..*", c.Low)
	}
	return fmt.Sprintf("%d..%d", c.Low, c.High)
}

// Ref is a reference field. Unique distinguishes refToUnique from refTo.
type Ref struct {
	Target string `json:"target"`
	Unique bool   `json:"unique"`
}

// Clafer is a declared feature.
type Clafer struct {
	Name     string   `json:"name"`
	Abstract bool     `json:"abstract"`
	Card     Card     `json:"card"`
	CardSet  bool     `json:"card_set"`         // card given explicitly (re-emitted on format)
	Parent   string   `json:"parent,omitempty"` // containing clafer, empty for top-level
	Super    string   `json:"super,omitempty"`  // inheritance target
	Ref      *Ref     `json:"ref,omitempty"`
	Children []string `json:"children,omitempty"`
}

// TopLevel reports whether the clafer has no containing clafer.
func (c *Clafer) TopLevel() bool {
	return c.Parent == ""
}

// Constraint is a boolean expression, either global (Owner empty) or scoped
// to every instance of Owner with $this bound to the current instance.
type Constraint struct {
	Owner string `json:"owner,omitempty"`
	Body  Expr   `json:"-"`
	Line  int    `json:"line,omitempty"`
}

// Global reports whether the constraint is fixture-level.
func (c Constraint) Global() bool {
	return c.Owner == ""
}

// StatementKind identifies a statement in the fixture log.
type StatementKind int

const (
	// StmtDeclare declares a clafer (Clafer, Abstract or addChild).
	StmtDeclare StatementKind = iota
	// StmtRef attaches a reference to a clafer.
	StmtRef
	// StmtConstraint adds a global or owner-scoped constraint.
	StmtConstraint
)

func (k StatementKind) String() string {
	switch k {
	case StmtDeclare:
		return "declare"
	case StmtRef:
		return "ref"
	case StmtConstraint:
		return "constraint"
	default:
		return fmt.Sprintf("StatementKind(%d)", int(k))
	}
}

// Statement is one entry of the fixture's declaration log.
type Statement struct {
	Kind       StatementKind `json:"kind"`
	Clafer     string        `json:"clafer,omitempty"`     // declared or ref-holding clafer
	Constraint int           `json:"constraint,omitempty"` // index into Fixture.Constraints
	Line       int           `json:"line,omitempty"`
}

// Scope holds the solver bounds declared by a fixture. The *Set flags record
// which parts were declared so they can be re-emitted exactly.
type Scope struct {
	Bounds          map[string]int `json:"bounds"`
	BoundsSet       bool           `json:"-"`
	Default         int            `json:"default"`
	DefaultSet      bool           `json:"-"`
	IntLow          int            `json:"int_low"`
	IntHigh         int            `json:"int_high"`
	IntRangeSet     bool           `json:"-"`
	StringLength    int            `json:"string_length"`
	StringLengthSet bool           `json:"-"`
}

// NewScope returns a scope carrying the defaults.
func NewScope() Scope {
	return Scope{
		Bounds:       map[string]int{},
		Default:      DefaultScope,
		IntLow:       DefaultIntLow,
		IntHigh:      DefaultIntHigh,
		StringLength: DefaultStringLength,
	}
}

// SortedBoundNames returns the per-clafer scope keys in byte order.
func (s Scope) SortedBoundNames() []string {
	names := make([]string, 0, len(s.Bounds))
	for name := range s.Bounds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fixture owns the clafers, constraints and scope of one script.
type Fixture struct {
	Name        string             `json:"name"`
	Clafers     map[string]*Clafer `json:"-"`
	Order       []string           `json:"order"` // declaration order
	Constraints []Constraint       `json:"constraints"`
	Statements  []Statement        `json:"statements"`
	Scope       Scope              `json:"scope"`
}

// NewFixture creates an empty fixture.
func NewFixture(name string) *Fixture {
	return &Fixture{
		Name:    name,
		Clafers: map[string]*Clafer{},
		Scope:   NewScope(),
	}
}

// Lookup returns the clafer declared under name.
func (f *Fixture) Lookup(name string) (*Clafer, bool) {
	c, ok := f.Clafers[name]
	return c, ok
}

// ClafersInOrder returns clafers in declaration order.
func (f *Fixture) ClafersInOrder() []*Clafer {
	out := make([]*Clafer, 0, len(f.Order))
	for _, name := range f.Order {
		if c, ok := f.Clafers[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AddClafer registers c and appends its declaration statement. It does not
// check anything; builders and loaders validate before calling it.
func (f *Fixture) AddClafer(c *Clafer, line int) {
	if f.Clafers == nil {
		f.Clafers = map[string]*Clafer{}
	}
	f.Clafers[c.Name] = c
	f.Order = append(f.Order, c.Name)
	if c.Parent != "" {
		if parent, ok := f.Clafers[c.Parent]; ok {
			parent.Children = append(parent.Children, c.Name)
		}
	}
	f.Statements = append(f.Statements, Statement{Kind: StmtDeclare, Clafer: c.Name, Line: line})
}

// AddRef attaches a reference to the named clafer and logs the statement.
func (f *Fixture) AddRef(holder string, ref Ref, line int) {
	if c, ok := f.Clafers[holder]; ok {
		r := ref
		c.Ref = &r
	}
	f.Statements = append(f.Statements, Statement{Kind: StmtRef, Clafer: holder, Line: line})
}

// AddConstraint appends a constraint and logs the statement.
func (f *Fixture) AddConstraint(c Constraint) {
	f.Constraints = append(f.Constraints, c)
	f.Statements = append(f.Statements, Statement{
		Kind:       StmtConstraint,
		Clafer:     c.Owner,
		Constraint: len(f.Constraints) - 1,
		Line:       c.Line,
	})
}

// ScopeOf returns the instance bound for a declared clafer: its own entry if
// present, the default scope otherwise.
func (f *Fixture) ScopeOf(name string) (int, error) {
	if _, ok := f.Clafers[name]; !ok {
		return 0, &UnknownClaferError{Name: name, Context: "scope lookup"}
	}
	if n, ok := f.Scope.Bounds[name]; ok {
		return n, nil
	}
	return f.Scope.Default, nil
}

// SuperChain returns the inheritance chain of name, nearest first. It stops
// at the first repeated name so it terminates on cyclic fixtures.
func (f *Fixture) SuperChain(name string) []string {
	var chain []string
	seen := map[string]bool{name: true}
	current := name
	for {
		c, ok := f.Clafers[current]
		if !ok || c.Super == "" || seen[c.Super] {
			return chain
		}
		chain = append(chain, c.Super)
		seen[c.Super] = true
		current = c.Super
	}
}

// ResolveRef returns the ref of name or, failing that, the nearest inherited one.
func (f *Fixture) ResolveRef(name string) (*Ref, bool) {
	for _, n := range append([]string{name}, f.SuperChain(name)...) {
		if c, ok := f.Clafers[n]; ok && c.Ref != nil {
			return c.Ref, true
		}
	}
	return nil, false
}

// HasChild reports whether rel is a child of name or of one of its supers.
func (f *Fixture) HasChild(name, rel string) bool {
	child, ok := f.Clafers[rel]
	if !ok || child.Parent == "" {
		return false
	}
	if child.Parent == name {
		return true
	}
	for _, super := range f.SuperChain(name) {
		if child.Parent == super {
			return true
		}
	}
	return false
}

// ConstraintCount returns the number of constraints, global and owned.
func (f *Fixture) ConstraintCount() int {
	return len(f.Constraints)
}
