package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clafer/internal/ir"
)

func TestLoad_CarScript(t *testing.T) {
	f, errs := LoadString("car.js", readTestdata(t, "car.js"), LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, []string{"c0_Car", "c0_owner", "c0_Person"}, f.Order)
	assert.Equal(t, ir.Card{Low: 4, High: 4}, f.Clafers["c0_Car"].Card)
	assert.Equal(t, "c0_Car", f.Clafers["c0_owner"].Parent)
	assert.Equal(t, &ir.Ref{Target: "c0_Person"}, f.Clafers["c0_owner"].Ref)
	require.Len(t, f.Constraints, 1)
	assert.True(t, f.Constraints[0].Global())
	assert.Equal(t, 10, f.Constraints[0].Line)

	for name, want := range map[string]int{"c0_Car": 4, "c0_owner": 4, "c0_Person": 4} {
		n, err := f.ScopeOf(name)
		require.NoError(t, err)
		assert.Equal(t, want, n, name)
	}
	assert.Equal(t, -8, f.Scope.IntLow)
	assert.Equal(t, 16, f.Scope.StringLength)
}

func TestLoad_DimensionScript(t *testing.T) {
	f, errs := LoadString("dimension.js", readTestdata(t, "dimension.js"), LoadModeFailFast)
	require.Empty(t, errs)

	assert.True(t, f.Clafers["c0_Dimension"].Abstract)
	assert.Equal(t, "c0_DimensionLevel", f.Clafers["c0_dimLevel2"].Super)
	assert.True(t, f.Clafers["c0_levels"].Ref.Unique)
	assert.False(t, f.Clafers["c0_levels"].CardSet)
	require.Len(t, f.Constraints, 2)
	assert.Equal(t, "c0_Dimension", f.Constraints[1].Owner)
	assert.Len(t, f.Statements, 12)
}

func TestLoad_IdentifiersResolveToNames(t *testing.T) {
	src := `
car = Clafer("Car").withCard(2);
o = car.addChild("owner");
p = Clafer("Person");
o.refTo(p);
Constraint(all([disjDecl([a = local("a"), b = local("b")], global(car))], notEqual(joinRef(join(a, o)), joinRef(join(b, o)))));
`
	f, errs := LoadString("idents", src, LoadModeFailFast)
	require.Empty(t, errs)

	assert.Equal(t, []string{"Car", "owner", "Person"}, f.Order)
	assert.Equal(t, ir.Card{Low: 2, High: ir.Unbounded}, f.Clafers["Car"].Card)
	assert.Equal(t, []string{"Car", "owner"}, ir.ClaferNames(f.Constraints[0].Body))
}

func TestLoad_UnknownParentAddsNothing(t *testing.T) {
	src := `
c0_Car = Clafer("c0_Car");
c0_owner = ghost.addChild("c0_owner");
`
	f, errs := LoadString("malformed", src, LoadModeCollectAll)
	require.Len(t, errs, 1)

	var unknown *ir.UnknownClaferError
	require.True(t, errors.As(errs[0], &unknown))
	assert.Equal(t, "ghost", unknown.Name)
	assert.Equal(t, "parent", unknown.Context)

	var stmtErr *StatementError
	require.True(t, errors.As(errs[0], &stmtErr))
	assert.Equal(t, 3, stmtErr.Pos.Line)
	assert.Equal(t, StmtAddChild, stmtErr.Kind)

	_, exists := f.Lookup("c0_owner")
	assert.False(t, exists)
	assert.Equal(t, []string{"c0_Car"}, f.Order)
}

const twoMistakes = `
scope({c0_Car: 2, c0_Bike: 1});
a = Clafer("c0_Car").withCard(3, 1);
a = Clafer("c0_Car");
b = Clafer("c0_Person");
b.refTo(nobody);
`

func TestLoad_FailFastStopsAtFirstError(t *testing.T) {
	f, errs := LoadString("mistakes", twoMistakes, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ir.CodeInvalidCardinality, ir.CodeOf(errs[0]))
	assert.Equal(t, []string{"c0_Car"}, f.Order)
}

func TestLoad_CollectAllReportsEveryError(t *testing.T) {
	f, errs := LoadString("mistakes", twoMistakes, LoadModeCollectAll)

	var got []string
	var lines []int
	for _, err := range errs {
		got = append(got, ir.CodeOf(err))
		var stmtErr *StatementError
		require.True(t, errors.As(err, &stmtErr))
		lines = append(lines, stmtErr.Pos.Line)
	}
	assert.Equal(t, []string{
		ir.CodeInvalidCardinality,
		ir.CodeDuplicateName,
		ir.CodeUnknownClafer, // nobody
		ir.CodeUnknownClafer, // c0_Bike in scope, applied last
	}, got)
	assert.Equal(t, []int{3, 4, 6, 2}, lines)
	assert.Equal(t, []string{"c0_Car", "c0_Person"}, f.Order)
	assert.False(t, f.Scope.BoundsSet)
}

func TestLoad_UnboundVariable(t *testing.T) {
	src := `
c = Clafer("c0_Car");
Constraint(some([decl([x = local("x")], global(c))], equal(x, y)));
c.addConstraint(equal($this(), $this()));
Constraint(equal($this(), $this()));
`
	f, errs := LoadString("unbound", src, LoadModeCollectAll)
	require.Len(t, errs, 2)

	var unbound *ir.UnboundVariableError
	require.True(t, errors.As(errs[0], &unbound))
	assert.Equal(t, "y", unbound.Name)
	require.True(t, errors.As(errs[1], &unbound))
	assert.Equal(t, "$this", unbound.Name)
	assert.Len(t, f.Constraints, 1)
}

func TestLoad_ParseErrorReturnedAlone(t *testing.T) {
	f, errs := LoadString("broken", `x = Clafer("x")`, LoadModeCollectAll)
	assert.Nil(t, f)
	require.Len(t, errs, 1)
	var perr *ParseError
	assert.True(t, errors.As(errs[0], &perr))
}

func TestRenameClafers_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, err := RenameClafers(ir.Join(ir.Global("X"), "Y"), func(name string) (string, error) {
		if name == "Y" {
			return "", boom
		}
		return name, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestLoad_NegativeUpperBoundIsRejected(t *testing.T) {
	f, errs := LoadString("card", `a = Clafer("a").withCard(3, -1);`, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.Equal(t, ir.CodeInvalidCardinality, ir.CodeOf(errs[0]))
	assert.Contains(t, errs[0].Error(), "3..-1")

	c := f.Clafers["a"]
	require.NotNil(t, c)
	assert.False(t, c.CardSet)
	assert.Equal(t, ir.Card{Low: 0, High: ir.Unbounded}, c.Card)
	out, err := Format(f)
	require.NoError(t, err)
	assert.Equal(t, "a = Clafer(\"a\");\n", string(out))
}
