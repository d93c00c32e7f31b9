package unify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/reason/pkg/term"
)

func TestUnifyBasics(t *testing.T) {
	f := term.NewFactory()

	t.Run("variable binds to constant", func(t *testing.T) {
		x := f.CreateVariable("X")
		a := f.CreateConstant("a")
		u, ok := Unify(x, a)
		require.True(t, ok)
		require.True(t, u.Walk(x) == a)
	})

	t.Run("identical constants unify trivially", func(t *testing.T) {
		a := f.CreateConstant("a")
		u, ok := Unify(a, a)
		require.True(t, ok)
		require.Equal(t, 0, u.Len())
	})

	t.Run("different constants fail", func(t *testing.T) {
		_, ok := Unify(f.CreateConstant("a"), f.CreateConstant("b"))
		require.False(t, ok)
	})

	t.Run("compound vs compound unifies argument-wise", func(t *testing.T) {
		x, y := f.CreateVariable("X"), f.CreateVariable("Y")
		lhs := f.CreateFunctor("p", []*term.Term{x, f.CreateConstant("b")})
		rhs := f.CreateFunctor("p", []*term.Term{f.CreateConstant("a"), y})
		u, ok := Unify(lhs, rhs)
		require.True(t, ok)
		require.True(t, u.Walk(x) == f.CreateConstant("a"))
		require.True(t, u.Walk(y) == f.CreateConstant("b"))
	})

	t.Run("mismatched functor fails", func(t *testing.T) {
		lhs := f.CreateFunctor("p", []*term.Term{f.CreateConstant("a")})
		rhs := f.CreateFunctor("q", []*term.Term{f.CreateConstant("a")})
		_, ok := Unify(lhs, rhs)
		require.False(t, ok)
	})

	t.Run("mismatched arity fails", func(t *testing.T) {
		lhs := f.CreateFunctor("p", []*term.Term{f.CreateConstant("a")})
		rhs := f.CreateFunctor("p", []*term.Term{f.CreateConstant("a"), f.CreateConstant("b")})
		_, ok := Unify(lhs, rhs)
		require.False(t, ok)
	})
}

func TestOccursCheck(t *testing.T) {
	f := term.NewFactory()
	x := f.CreateVariable("X")
	fx := f.CreateFunctor("f", []*term.Term{x})
	_, ok := Unify(x, fx)
	require.False(t, ok, "unify(X, f(X)) must fail the occurs check")
}

func TestSubstituteUnifiers(t *testing.T) {
	f := term.NewFactory()
	x, y := f.CreateVariable("X"), f.CreateVariable("Y")
	a := f.CreateConstant("a")

	source, ok := Unify(x, a)
	require.True(t, ok)

	dest := Empty()
	dest = dest.extend(y, x)

	composed := SubstituteUnifiers(f, source, dest)
	require.True(t, composed.Walk(y) == a)
}
