package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clafer/internal/builder"
	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

func carFixture(t *testing.T, people int) *ir.Fixture {
	t.Helper()
	b := builder.New("car")
	car := builder.Must(b.WithCard(builder.Must(b.Clafer("c0_Car")), 4, 4))
	owner := builder.Must(b.WithCard(builder.Must(b.AddChild(car, "c0_owner")), 1, 1))
	person := builder.Must(b.WithCard(builder.Must(b.Clafer("c0_Person")), people, people))
	builder.Must(b.RefTo(owner, person))
	require.NoError(t, b.Constraint(ir.All(
		[]ir.Decl{ir.DisjDeclOver(ir.Global("c0_Car"), "c1", "c2")},
		ir.NotEqual(
			ir.JoinRef(ir.Join(ir.Local("c1"), "c0_owner")),
			ir.JoinRef(ir.Join(ir.Local("c2"), "c0_owner")),
		),
	)))
	require.NoError(t, b.SetScope(map[string]int{"c0_Car": 4, "c0_Person": 4}, 1))
	return b.Fixture()
}

func TestPut_StoresFixture(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	f := carFixture(t, 4)

	entry, created, err := s.Put(ctx, f)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, ir.MustFixtureDigest(f), entry.Digest)
	assert.Equal(t, "car", entry.Name)
	assert.Equal(t, 3, entry.Clafers)
	assert.Equal(t, 1, entry.Constraints)
	assert.Equal(t, ir.IRVersion, entry.IRVersion)
	assert.Equal(t, int64(1), entry.Seq)

	id, err := uuid.Parse(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	source, err := script.Format(f)
	require.NoError(t, err)
	assert.Equal(t, string(source), entry.Source)
}

func TestPut_Idempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first, created, err := s.Put(ctx, carFixture(t, 4))
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := s.Put(ctx, carFixture(t, 4))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, again)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestList_InsertionOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var digests []string
	for _, n := range []int{4, 2, 3} {
		e, _, err := s.Put(ctx, carFixture(t, n))
		require.NoError(t, err)
		digests = append(digests, e.Digest)
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, digests[i], e.Digest)
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestGet_ByDigestOrID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	e, _, err := s.Put(ctx, carFixture(t, 4))
	require.NoError(t, err)

	byDigest, err := s.Get(ctx, e.Digest)
	require.NoError(t, err)
	byID, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, byDigest, byID)

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolve_FallsBackToNewestName(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, _, err := s.Put(ctx, carFixture(t, 4))
	require.NoError(t, err)
	newest, _, err := s.Put(ctx, carFixture(t, 5))
	require.NoError(t, err)

	named, err := s.FindByName(ctx, "car")
	require.NoError(t, err)
	assert.Len(t, named, 2)

	got, err := s.Resolve(ctx, "car")
	require.NoError(t, err)
	assert.Equal(t, newest.Digest, got.Digest)

	_, err = s.Resolve(ctx, "bike")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEntry_FixtureRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	f := carFixture(t, 4)

	e, _, err := s.Put(ctx, f)
	require.NoError(t, err)

	loaded, err := e.Fixture()
	require.NoError(t, err)
	assert.Equal(t, e.Digest, ir.MustFixtureDigest(loaded))

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Equal(t, ir.IRVersion, doc["ir_version"])
	assert.Len(t, doc["clafers"], 3)
}
