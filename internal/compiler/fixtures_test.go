package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/clafer/internal/builder"
	"github.com/roach88/clafer/internal/ir"
)

// carBuilder replays the car/owner fixture: four cars, each with one owner
// referencing a person, and no two cars sharing an owner.
func carBuilder(t *testing.T) *builder.Builder {
	t.Helper()
	b := builder.New("car")
	require.NoError(t, b.SetScope(map[string]int{}, 1))

	car := builder.Must(b.WithCard(builder.Must(b.Clafer("c0_Car")), 4, 4))
	owner := builder.Must(b.WithCard(builder.Must(b.AddChild(car, "c0_owner")), 1, 1))
	person := builder.Must(b.WithCard(builder.Must(b.Clafer("c0_Person")), 4, 4))
	builder.Must(b.RefTo(owner, person))

	require.NoError(t, b.Constraint(ir.All(
		[]ir.Decl{ir.DisjDeclOver(ir.Global("c0_Car"), "c1", "c2")},
		ir.NotEqual(
			ir.JoinRef(ir.Join(ir.Local("c1"), "c0_owner")),
			ir.JoinRef(ir.Join(ir.Local("c2"), "c0_owner")),
		),
	)))
	require.NoError(t, b.SetScope(map[string]int{"c0_Car": 4, "c0_Person": 4, "c0_owner": 4}, 1))
	require.NoError(t, b.SetIntRange(-8, 7))
	require.NoError(t, b.SetStringLength(16))
	return b
}

// dimensionBuilder replays the dimension/level fixture with one global and
// one owner-scoped constraint.
func dimensionBuilder(t *testing.T) *builder.Builder {
	t.Helper()
	b := builder.New("dimension")

	dim := builder.Must(b.Abstract("c0_Dimension"))
	level := builder.Must(b.Abstract("c0_DimensionLevel"))
	levels := builder.Must(b.AddChild(dim, "c0_levels"))
	belongsTo := builder.Must(b.WithCard(builder.Must(b.AddChild(level, "c0_belongsTo")), 1, 1))
	for _, name := range []string{"c0_dim1", "c0_dim2"} {
		builder.Must(b.Extending(builder.Must(b.WithCard(builder.Must(b.Clafer(name)), 1, 1)), dim))
	}
	for _, name := range []string{"c0_dimLevel1", "c0_dimLevel2"} {
		builder.Must(b.Extending(builder.Must(b.WithCard(builder.Must(b.Clafer(name)), 1, 1)), level))
	}
	builder.Must(b.RefToUnique(levels, level))
	builder.Must(b.RefTo(belongsTo, dim))

	require.NoError(t, b.Constraint(ir.Some(
		[]ir.Decl{ir.DisjDeclOver(ir.Global("c0_DimensionLevel"), "dl1", "dl2")},
		ir.Equal(
			ir.JoinRef(ir.Join(ir.Local("dl1"), "c0_belongsTo")),
			ir.JoinRef(ir.Join(ir.Local("dl2"), "c0_belongsTo")),
		),
	)))
	require.NoError(t, b.AddConstraint(dim, ir.All(
		[]ir.Decl{ir.DeclOver(ir.Join(ir.This(), "c0_levels"), "dl")},
		ir.Equal(ir.JoinRef(ir.Join(ir.JoinRef(ir.Local("dl")), "c0_belongsTo")), ir.This()),
	)))
	require.NoError(t, b.SetScope(map[string]int{
		"c0_Dimension": 2, "c0_DimensionLevel": 2, "c0_belongsTo": 2, "c0_levels": 4,
	}, 1))
	return b
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}
