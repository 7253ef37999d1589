package boolformula_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/binstruct/structurer/boolformula"
)

func TestAndOrFlattenAndDedup(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	b := u.Leaf("b")
	c := u.Leaf("c")

	left := u.And(u.And(a, b), c)
	right := u.And(a, u.And(b, c, a))
	require.Same(t, left, right, "flattened, deduped conjunctions over the same leaves must hash-cons to one pointer")
}

func TestAndOrCommutative(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	b := u.Leaf("b")

	require.Same(t, u.And(a, b), u.And(b, a))
	require.Same(t, u.Or(a, b), u.Or(b, a))
}

func TestDoubleNegation(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	require.Same(t, a, u.Not(u.Not(a)))
}

func TestLiteralAbsorption(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")

	require.Same(t, u.False(), u.And(a, u.False()))
	require.Same(t, u.True(), u.Or(a, u.True()))
	require.Same(t, a, u.And(a, u.True()))
	require.Same(t, a, u.Or(a, u.False()))
}

func TestContradictionAndTautology(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	require.Same(t, u.False(), u.And(a, u.Not(a)))
	require.Same(t, u.True(), u.Or(a, u.Not(a)))
}

func TestEquivalentDeMorgan(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	b := u.Leaf("b")

	lhs := u.Not(u.And(a, b))
	rhs := u.Or(u.Not(a), u.Not(b))
	require.True(t, boolformula.Equivalent(u, lhs, rhs))
}

func TestSimplifyShortCircuitReversal(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	b := u.Leaf("b")

	// !a || (a && !b)  ==  !(a && b)
	f := u.Or(u.Not(a), u.And(a, u.Not(b)))
	want := u.Not(u.And(a, b))

	got := boolformula.Simplify(u, f)
	require.True(t, boolformula.Equivalent(u, got, want))
}

func TestSubexprsOrIntersection(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	b := u.Leaf("b")
	c := u.Leaf("c")

	// (a && b) || (a && c): the only subexpr common to both disjuncts' conjuncts is `a`.
	f := u.Or(u.And(a, b), u.And(a, c))
	subs := boolformula.Subexprs(f)
	require.Contains(t, subs, a)
	require.NotContains(t, subs, b)
	require.NotContains(t, subs, c)
}

func TestLeaves(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	a := u.Leaf("a")
	b := u.Leaf("b")
	f := u.And(a, u.Not(b))
	require.ElementsMatch(t, []string{"a", "b"}, boolformula.Leaves(f))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
