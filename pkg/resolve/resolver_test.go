package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
)

func setup() (*term.Factory, *rules.RuleSet) {
	f := term.NewFactory()
	return f, rules.New(f)
}

func TestResolveWeatherFacts(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("weather", []*term.Term{f.CreateConstant("sunny")}), nil)
	db.AddRule(f.CreateFunctor("weather", []*term.Term{f.CreateConstant("rainy")}), nil)

	r := New(f, db, nil)
	x := f.CreateVariable("X")
	goal := f.CreateFunctor("weather", []*term.Term{x})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 2)
	require.Equal(t, "sunny", sols[0].Resolve(f, x).Name())
	require.Equal(t, "rainy", sols[1].Resolve(f, x).Name())
}

func TestResolveArithmeticRecursion(t *testing.T) {
	f, db := setup()
	// factorial(0, 1).
	// factorial(N, F) :- N > 0, N1 is N - 1, factorial(N1, F1), F is N * F1.
	n := f.CreateVariable("N")
	fr := f.CreateVariable("F")
	n1 := f.CreateVariable("N1")
	f1 := f.CreateVariable("F1")

	db.AddRule(f.CreateFunctor("factorial", []*term.Term{f.CreateConstant("0"), f.CreateConstant("1")}), nil)
	db.AddRule(
		f.CreateFunctor("factorial", []*term.Term{n, fr}),
		[]*term.Term{
			f.CreateFunctor(">", []*term.Term{n, f.CreateConstant("0")}),
			f.CreateFunctor("is", []*term.Term{n1, f.CreateFunctor("-", []*term.Term{n, f.CreateConstant("1")})}),
			f.CreateFunctor("factorial", []*term.Term{n1, f1}),
			f.CreateFunctor("is", []*term.Term{fr, f.CreateFunctor("*", []*term.Term{n, f1})}),
		},
	)

	r := New(f, db, nil)
	result := f.CreateVariable("Result")
	goal := f.CreateFunctor("factorial", []*term.Term{f.CreateConstant("5"), result})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)
	require.Equal(t, "120", sols[0].Resolve(f, result).Name())
}

func TestResolveCutCommitsToFirstMatch(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("itemsInBag", []*term.Term{f.CreateConstant("apple")}), nil)
	db.AddRule(f.CreateFunctor("itemsInBag", []*term.Term{f.CreateConstant("pear")}), nil)

	x := f.CreateVariable("X")
	db.AddRule(
		f.CreateFunctor("rule", []*term.Term{x}),
		[]*term.Term{
			f.CreateFunctor("itemsInBag", []*term.Term{x}),
			f.CreateConstant("!"),
		},
	)
	y := f.CreateVariable("X")
	db.AddRule(
		f.CreateFunctor("rule", []*term.Term{y}),
		[]*term.Term{f.CreateFunctor("=", []*term.Term{y, f.CreateConstant("good")})},
	)

	r := New(f, db, nil)
	q := f.CreateVariable("Q")
	goal := f.CreateFunctor("rule", []*term.Term{q})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 1, "the cut must prevent backtracking into itemsInBag(pear) or the fallback clause")
	require.Equal(t, "apple", sols[0].Resolve(f, q).Name())
}

func TestResolveNoMatchRecordsFailure(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("weather", []*term.Term{f.CreateConstant("sunny")}), nil)

	r := New(f, db, nil)
	goal := f.CreateFunctor("weather", []*term.Term{f.CreateConstant("foggy")})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Empty(t, sols)
	require.NotNil(t, fi)
}

func TestResolveNotAndForallUseIsolatedSubSearch(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("bird", []*term.Term{f.CreateConstant("tweety")}), nil)
	db.AddRule(f.CreateFunctor("bird", []*term.Term{f.CreateConstant("robin")}), nil)
	db.AddRule(f.CreateFunctor("flies", []*term.Term{f.CreateConstant("tweety")}), nil)
	db.AddRule(f.CreateFunctor("flies", []*term.Term{f.CreateConstant("robin")}), nil)

	r := New(f, db, nil)
	x := f.CreateVariable("X")
	notGoal := f.CreateFunctor("not", []*term.Term{
		f.CreateFunctor("flies", []*term.Term{f.CreateConstant("penguin")}),
	})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{notGoal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)

	forallGoal := f.CreateFunctor("forall", []*term.Term{
		f.CreateFunctor("bird", []*term.Term{x}),
		f.CreateFunctor("flies", []*term.Term{x}),
	})
	sols, fi = r.ResolveAll(context.Background(), []*term.Term{forallGoal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)
}

func TestDiagnosticStringReportsDeepestFailureAndStack(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("weather", []*term.Term{f.CreateConstant("sunny")}), nil)

	r := New(f, db, nil)
	goal := f.CreateFunctor("weather", []*term.Term{f.CreateConstant("rainy")})
	st := r.ResolveAllState(context.Background(), []*term.Term{goal})
	require.Empty(t, st.Solutions())
	require.NotNil(t, st.DeepestFailure())

	s := DiagnosticString(st)
	require.Contains(t, s, "weather(rainy)")
	require.Contains(t, s, "failed at depth")
}

func TestDiagnosticStringWithNoFailureRecorded(t *testing.T) {
	require.Equal(t, "no failure recorded", DiagnosticString(nil))
}

func TestResolveFindallCollectsAllSolutions(t *testing.T) {
	f, db := setup()
	db.AddRule(f.CreateFunctor("weather", []*term.Term{f.CreateConstant("sunny")}), nil)
	db.AddRule(f.CreateFunctor("weather", []*term.Term{f.CreateConstant("rainy")}), nil)

	r := New(f, db, nil)
	x := f.CreateVariable("X")
	out := f.CreateVariable("Out")
	goal := f.CreateFunctor("findall", []*term.Term{
		x,
		f.CreateFunctor("weather", []*term.Term{x}),
		out,
	})
	sols, fi := r.ResolveAll(context.Background(), []*term.Term{goal})
	require.Nil(t, fi)
	require.Len(t, sols, 1)
	elems, ok := sols[0].Resolve(f, out).ListElements()
	require.True(t, ok)
	require.Len(t, elems, 2)
}

func TestResolveAssertRetractMutateDatabase(t *testing.T) {
	f, db := setup()
	r := New(f, db, nil)

	fact := f.CreateFunctor("weather", []*term.Term{f.CreateConstant("sunny")})
	assertGoal := f.CreateFunctor("assert", []*term.Term{fact})
	_, fi := r.ResolveAll(context.Background(), []*term.Term{assertGoal})
	require.Nil(t, fi)
	require.True(t, db.HasFact(fact))

	retractGoal := f.CreateFunctor("retract", []*term.Term{fact})
	_, fi = r.ResolveAll(context.Background(), []*term.Term{retractGoal})
	require.Nil(t, fi)
	require.False(t, db.HasFact(fact))
}
