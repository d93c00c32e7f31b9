package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/reason/pkg/term"
)

func TestBuiltinUnifyAndEquality(t *testing.T) {
	f, db := setup()
	r := New(f, db, nil)
	x := f.CreateVariable("X")

	unifyGoal := f.CreateFunctor("=", []*term.Term{x, f.CreateConstant("good")})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{unifyGoal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)
	require.Equal(t, "good", sols[0].Resolve(f, x).Name())

	eqGoal := f.CreateFunctor("==", []*term.Term{f.CreateConstant("a"), f.CreateConstant("a")})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{eqGoal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)

	neqGoal := f.CreateFunctor("\\==", []*term.Term{f.CreateConstant("a"), f.CreateConstant("b")})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{neqGoal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)
}

func TestBuiltinComparators(t *testing.T) {
	f, db := setup()
	r := New(f, db, nil)
	goal := f.CreateFunctor(">", []*term.Term{f.CreateConstant("3"), f.CreateConstant("2")})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)

	fail := f.CreateFunctor("<", []*term.Term{f.CreateConstant("3"), f.CreateConstant("2")})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{fail})
	require.Empty(t, sols)
	require.NotNil(t, fi)
}

func TestBuiltinAtomPredicates(t *testing.T) {
	f, db := setup()
	r := New(f, db, nil)

	out := f.CreateVariable("Out")
	downcase := f.CreateFunctor("downcase_atom", []*term.Term{f.CreateConstant("HELLO"), out})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{downcase})
	require.Nil(t, fi)
	require.Equal(t, "hello", sols[0].Resolve(f, out).Name())

	chars := f.CreateVariable("Chars")
	toChars := f.CreateFunctor("atom_chars", []*term.Term{f.CreateConstant("ab"), chars})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{toChars})
	require.Nil(t, fi)
	elems, ok := sols[0].Resolve(f, chars).ListElements()
	require.True(t, ok)
	require.Len(t, elems, 2)
	require.Equal(t, "a", elems[0].Name())

	joined := f.CreateVariable("Joined")
	concat := f.CreateFunctor("atom_concat", []*term.Term{f.CreateConstant("foo"), f.CreateConstant("bar"), joined})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{concat})
	require.Nil(t, fi)
	require.Equal(t, "foobar", sols[0].Resolve(f, joined).Name())
}

func TestBuiltinCountMinMaxSum(t *testing.T) {
	f, db := setup()
	x := f.CreateVariable("X")
	for _, v := range []string{"1", "2", "3"} {
		db.AddRule(f.CreateFunctor("n", []*term.Term{f.CreateConstant(v)}), nil)
	}
	r := New(f, db, nil)

	countOut := f.CreateVariable("N")
	countGoal := f.CreateFunctor("count", []*term.Term{f.CreateFunctor("n", []*term.Term{x}), countOut})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{countGoal})
	require.Nil(t, fi)
	require.Equal(t, "3", sols[0].Resolve(f, countOut).Name())

	sumOut := f.CreateVariable("Sum")
	sumGoal := f.CreateFunctor("sum", []*term.Term{f.CreateFunctor("n", []*term.Term{x}), x, sumOut})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{sumGoal})
	require.Nil(t, fi)
	require.Equal(t, "6", sols[0].Resolve(f, sumOut).Name())
}

func TestBuiltinSumOverEmptySetFails(t *testing.T) {
	f, db := setup()
	x := f.CreateVariable("X")
	r := New(f, db, nil)

	sumOut := f.CreateVariable("Sum")
	sumGoal := f.CreateFunctor("sum", []*term.Term{f.CreateFunctor("missing", []*term.Term{x}), x, sumOut})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{sumGoal})
	require.Empty(t, sols)
	require.NotNil(t, fi)
}

func TestBuiltinDistinctDeduplicatesAndBacktracks(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("color", []*term.Term{f.CreateConstant("red")}), nil)
	db.AddRule(f.CreateFunctor("color", []*term.Term{f.CreateConstant("red")}), nil)
	db.AddRule(f.CreateFunctor("color", []*term.Term{f.CreateConstant("blue")}), nil)

	r := New(f, db, nil)
	x := f.CreateVariable("X")
	goal := f.CreateFunctor("distinct", []*term.Term{
		f.CreateFunctor("color", []*term.Term{x}),
	})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 2, "distinct must collapse the duplicate red solution")
	require.Equal(t, "red", sols[0].Resolve(f, x).Name())
	require.Equal(t, "blue", sols[1].Resolve(f, x).Name())
}

func TestBuiltinSortByOrdersSolutions(t *testing.T) {
	f, db := setup()
	for _, v := range []string{"3", "1", "2"} {
		db.AddRule(f.CreateFunctor("n", []*term.Term{f.CreateConstant(v)}), nil)
	}
	r := New(f, db, nil)
	x := f.CreateVariable("X")
	goal := f.CreateFunctor("sortBy", []*term.Term{x, f.CreateFunctor("n", []*term.Term{x})})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 3)
	require.Equal(t, "1", sols[0].Resolve(f, x).Name())
	require.Equal(t, "2", sols[1].Resolve(f, x).Name())
	require.Equal(t, "3", sols[2].Resolve(f, x).Name())
}
