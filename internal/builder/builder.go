package builder

import (
	"log/slog"

	"github.com/roach88/clafer/internal/ir"
)

// Handle identifies a clafer declared through a Builder.
type Handle struct {
	b    *Builder
	name string
}

// Name returns the clafer name, or "" for the zero Handle.
func (h Handle) Name() string {
	return h.name
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.b == nil
}

// Builder accumulates declarations into a Fixture.
type Builder struct {
	fixture *ir.Fixture
	line    int
}

// New creates a builder for an empty fixture.
func New(name string) *Builder {
	return &Builder{fixture: ir.NewFixture(name)}
}

// Fixture returns the fixture under construction. Callers must not mutate it
// while still building.
func (b *Builder) Fixture() *ir.Fixture {
	return b.fixture
}

// SetLine records the source line attached to subsequent statements.
// Loaders call it before replaying each parsed statement.
func (b *Builder) SetLine(line int) {
	b.line = line
}

// Lookup returns the handle of a declared clafer.
func (b *Builder) Lookup(name string) (Handle, bool) {
	if _, ok := b.fixture.Lookup(name); !ok {
		return Handle{}, false
	}
	return Handle{b: b, name: name}, true
}

func (b *Builder) resolve(h Handle, context string) (*ir.Clafer, error) {
	if h.b != b {
		return nil, &ir.UnknownClaferError{Name: h.name, Context: context}
	}
	c, ok := b.fixture.Lookup(h.name)
	if !ok {
		return nil, &ir.UnknownClaferError{Name: h.name, Context: context}
	}
	return c, nil
}

// Declare creates a top-level clafer. Concrete clafers default to (1,1),
// abstract ones to (0,*).
func (b *Builder) Declare(name string, abstract bool) (Handle, error) {
	if _, exists := b.fixture.Lookup(name); exists {
		return Handle{}, &ir.DuplicateNameError{Name: name}
	}
	card := ir.Card{Low: 1, High: 1}
	if abstract {
		card = ir.Card{Low: 0, High: ir.Unbounded}
	}
	b.fixture.AddClafer(&ir.Clafer{Name: name, Abstract: abstract, Card: card}, b.line)
	slog.Debug("clafer declared", "name", name, "abstract", abstract, "line", b.line)
	return Handle{b: b, name: name}, nil
}

// Clafer declares a concrete top-level clafer: Clafer("name").
func (b *Builder) Clafer(name string) (Handle, error) {
	return b.Declare(name, false)
}

// Abstract declares an abstract clafer: Abstract("name").
func (b *Builder) Abstract(name string) (Handle, error) {
	return b.Declare(name, true)
}

// AddChild declares a clafer contained by parent, with cardinality (0,*).
func (b *Builder) AddChild(parent Handle, name string) (Handle, error) {
	if _, err := b.resolve(parent, "parent"); err != nil {
		return Handle{}, err
	}
	if _, exists := b.fixture.Lookup(name); exists {
		return Handle{}, &ir.DuplicateNameError{Name: name}
	}
	b.fixture.AddClafer(&ir.Clafer{
		Name:   name,
		Parent: parent.name,
		Card:   ir.Card{Low: 0, High: ir.Unbounded},
	}, b.line)
	slog.Debug("child declared", "name", name, "parent", parent.name, "line", b.line)
	return Handle{b: b, name: name}, nil
}

// WithCard sets the cardinality of h. Pass ir.Unbounded as high for "*".
func (b *Builder) WithCard(h Handle, low, high int) (Handle, error) {
	return b.setCard(h, ir.Card{Low: low, High: high}, high == ir.Unbounded)
}

// WithCardBounded sets a cardinality with an explicit upper bound. Unlike
// WithCard, a negative high is always rejected, never read as "*".
func (b *Builder) WithCardBounded(h Handle, low, high int) (Handle, error) {
	return b.setCard(h, ir.Card{Low: low, High: high}, false)
}

func (b *Builder) setCard(h Handle, card ir.Card, unbounded bool) (Handle, error) {
	c, err := b.resolve(h, "withCard")
	if err != nil {
		return Handle{}, err
	}
	valid := card.Low >= 0 && (unbounded || (card.High >= 0 && card.High >= card.Low))
	if !valid {
		return Handle{}, &ir.InvalidCardinalityError{Clafer: c.Name, Card: card, Explicit: !unbounded}
	}
	c.Card = card
	c.CardSet = true
	return h, nil
}

// Extending makes h inherit from super. super must be abstract, h must not
// already have a super clafer, and the link must not close a cycle.
func (b *Builder) Extending(h, super Handle) (Handle, error) {
	c, err := b.resolve(h, "extending")
	if err != nil {
		return Handle{}, err
	}
	s, err := b.resolve(super, "super clafer")
	if err != nil {
		return Handle{}, err
	}
	if c.Super != "" {
		return Handle{}, &ir.ConflictError{Clafer: c.Name, What: "super clafer"}
	}
	if path := b.inheritancePath(s.Name, c.Name); path != nil {
		return Handle{}, &ir.CyclicInheritanceError{Path: append([]string{c.Name}, path...)}
	}
	if !s.Abstract {
		return Handle{}, &ir.NotAbstractError{Clafer: c.Name, Super: s.Name}
	}
	c.Super = s.Name
	return h, nil
}

// inheritancePath follows super links from start and returns the names
// visited up to and including target, or nil if target is never reached.
func (b *Builder) inheritancePath(start, target string) []string {
	path := []string{start}
	if start == target {
		return path
	}
	for _, name := range b.fixture.SuperChain(start) {
		path = append(path, name)
		if name == target {
			return path
		}
	}
	return nil
}

// Ref declares a reference field on h pointing at target.
func (b *Builder) Ref(h, target Handle, unique bool) (Handle, error) {
	c, err := b.resolve(h, "ref holder")
	if err != nil {
		return Handle{}, err
	}
	t, err := b.resolve(target, "ref target")
	if err != nil {
		return Handle{}, err
	}
	if c.Ref != nil {
		return Handle{}, &ir.ConflictError{Clafer: c.Name, What: "ref"}
	}
	b.fixture.AddRef(c.Name, ir.Ref{Target: t.Name, Unique: unique}, b.line)
	return h, nil
}

// RefTo declares h.refTo(target).
func (b *Builder) RefTo(h, target Handle) (Handle, error) {
	return b.Ref(h, target, false)
}

// RefToUnique declares h.refToUnique(target).
func (b *Builder) RefToUnique(h, target Handle) (Handle, error) {
	return b.Ref(h, target, true)
}

// Constraint adds a global constraint. $this is not bound at fixture level.
func (b *Builder) Constraint(expr ir.Expr) error {
	return b.addConstraint("", expr)
}

// AddConstraint adds a constraint scoped to owner: it holds for every
// instance of owner with $this bound to that instance.
func (b *Builder) AddConstraint(owner Handle, expr ir.Expr) error {
	c, err := b.resolve(owner, "constraint owner")
	if err != nil {
		return err
	}
	return b.addConstraint(c.Name, expr)
}

func (b *Builder) addConstraint(owner string, expr ir.Expr) error {
	if unbound := ir.UnboundVariables(expr, owner != ""); len(unbound) > 0 {
		return &ir.UnboundVariableError{Name: unbound[0]}
	}
	b.fixture.AddConstraint(ir.Constraint{Owner: owner, Body: expr, Line: b.line})
	return nil
}

// SetScope replaces the per-clafer bounds and sets the default scope.
func (b *Builder) SetScope(bounds map[string]int, def int) error {
	if def < 0 {
		return &ir.InvalidRangeError{What: "default scope", Low: def}
	}
	if err := b.checkBounds(bounds); err != nil {
		return err
	}
	b.applyBounds(bounds)
	b.fixture.Scope.Default = def
	b.fixture.Scope.DefaultSet = true
	return nil
}

// SetBounds replaces the per-clafer bounds only: scope({...}).
func (b *Builder) SetBounds(bounds map[string]int) error {
	if err := b.checkBounds(bounds); err != nil {
		return err
	}
	b.applyBounds(bounds)
	return nil
}

// SetDefaultScope sets the bound for clafers without an entry: defaultScope(n).
func (b *Builder) SetDefaultScope(def int) error {
	if def < 0 {
		return &ir.InvalidRangeError{What: "default scope", Low: def}
	}
	b.fixture.Scope.Default = def
	b.fixture.Scope.DefaultSet = true
	return nil
}

func (b *Builder) checkBounds(bounds map[string]int) error {
	scope := ir.Scope{Bounds: bounds}
	for _, name := range scope.SortedBoundNames() {
		if _, ok := b.fixture.Lookup(name); !ok {
			return &ir.UnknownClaferError{Name: name, Context: "scope"}
		}
		if bounds[name] < 0 {
			return &ir.InvalidRangeError{What: "scope for " + name, Low: bounds[name]}
		}
	}
	return nil
}

func (b *Builder) applyBounds(bounds map[string]int) {
	copied := make(map[string]int, len(bounds))
	for k, v := range bounds {
		copied[k] = v
	}
	b.fixture.Scope.Bounds = copied
	b.fixture.Scope.BoundsSet = true
}

// SetIntRange sets the integer domain: intRange(min, max).
func (b *Builder) SetIntRange(low, high int) error {
	if low > high {
		return &ir.InvalidRangeError{What: "int range", Low: low, High: high}
	}
	b.fixture.Scope.IntLow = low
	b.fixture.Scope.IntHigh = high
	b.fixture.Scope.IntRangeSet = true
	return nil
}

// SetStringLength sets the string length bound: stringLength(max).
func (b *Builder) SetStringLength(max int) error {
	if max < 0 {
		return &ir.InvalidRangeError{What: "string length", Low: max}
	}
	b.fixture.Scope.StringLength = max
	b.fixture.Scope.StringLengthSet = true
	return nil
}

// ScopeOf returns the instance bound that applies to a declared clafer.
func (b *Builder) ScopeOf(name string) (int, error) {
	return b.fixture.ScopeOf(name)
}

// Must returns h or panics on err. Use only in tests or for statements known
// to be well-formed.
func Must(h Handle, err error) Handle {
	if err != nil {
		panic(err)
	}
	return h
}
