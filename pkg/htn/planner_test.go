package htn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
)

func newTravelDomain(t *testing.T) (*term.Factory, *rules.RuleSet, *Planner) {
	t.Helper()
	f := term.NewFactory()
	db := rules.New(f)

	db.AddRule(f.CreateFunctor("at", []*term.Term{f.CreateConstant("downtown")}), nil)
	db.AddRule(f.CreateFunctor("have-cash", []*term.Term{f.CreateConstant("12")}), nil)
	db.AddRule(f.CreateFunctor("weather-is", []*term.Term{f.CreateConstant("good")}), nil)
	db.AddRule(f.CreateFunctor("distance", []*term.Term{f.CreateConstant("downtown"), f.CreateConstant("park"), f.CreateConstant("2")}), nil)
	db.AddRule(f.CreateFunctor("bus-route", []*term.Term{f.CreateConstant("bus1"), f.CreateConstant("downtown"), f.CreateConstant("park")}), nil)
	db.AddRule(f.CreateFunctor("at-taxi-stand", []*term.Term{f.CreateConstant("taxi1"), f.CreateConstant("downtown")}), nil)

	here, to, dist := f.CreateVariable("Here"), f.CreateVariable("To"), f.CreateVariable("Dist")
	db.AddRule(
		f.CreateFunctor("walking-distance", []*term.Term{here, to}),
		[]*term.Term{
			f.CreateFunctor("distance", []*term.Term{here, to, dist}),
			f.CreateFunctor("=<", []*term.Term{dist, f.CreateConstant("3")}),
		},
	)
	cash := f.CreateVariable("Cash")
	toFare := f.CreateVariable("To")
	db.AddRule(
		f.CreateFunctor("have-taxi-fare", []*term.Term{toFare}),
		[]*term.Term{
			f.CreateFunctor("have-cash", []*term.Term{cash}),
			f.CreateFunctor(">=", []*term.Term{cash, f.CreateConstant("10")}),
		},
	)

	p := New(f, nil)

	p.AddOperator(Operator{
		Head:       f.CreateFunctor("walk", []*term.Term{f.CreateVariable("Here"), f.CreateVariable("To")}),
		DeleteList: []*term.Term{f.CreateFunctor("at", []*term.Term{f.CreateVariable("Here")})},
		AddList:    []*term.Term{f.CreateFunctor("at", []*term.Term{f.CreateVariable("To")})},
	})
	p.AddOperator(Operator{Head: f.CreateFunctor("hail", []*term.Term{f.CreateVariable("Taxi")})})
	p.AddOperator(Operator{Head: f.CreateFunctor("wait-for", []*term.Term{f.CreateVariable("Bus")})})
	p.AddOperator(Operator{
		Head:       f.CreateFunctor("set-cash", []*term.Term{f.CreateVariable("Old"), f.CreateVariable("New")}),
		DeleteList: []*term.Term{f.CreateFunctor("have-cash", []*term.Term{f.CreateVariable("Old")})},
		AddList:    []*term.Term{f.CreateFunctor("have-cash", []*term.Term{f.CreateVariable("New")})},
	})
	p.AddOperator(Operator{
		Head:       f.CreateFunctor("ride", []*term.Term{f.CreateVariable("Vehicle"), f.CreateVariable("Here"), f.CreateVariable("To")}),
		DeleteList: []*term.Term{f.CreateFunctor("at", []*term.Term{f.CreateVariable("Here")})},
		AddList:    []*term.Term{f.CreateFunctor("at", []*term.Term{f.CreateVariable("To")})},
	})

	mHere, mTo := f.CreateVariable("Here"), f.CreateVariable("To")
	p.AddMethod(Method{
		Head:      f.CreateFunctor("travel-to", []*term.Term{mTo}),
		Condition: []*term.Term{f.CreateFunctor("at", []*term.Term{mHere}), f.CreateFunctor("walking-distance", []*term.Term{mHere, mTo})},
		TaskList:  []*term.Term{f.CreateFunctor("walk", []*term.Term{mHere, mTo})},
		Type:      Normal,
	})

	tTo, tHere, tTaxi, tCash := f.CreateVariable("To"), f.CreateVariable("Here"), f.CreateVariable("Taxi"), f.CreateVariable("Cash")
	p.AddMethod(Method{
		Head: f.CreateFunctor("travel-to", []*term.Term{tTo}),
		Condition: []*term.Term{
			f.CreateFunctor("at", []*term.Term{tHere}),
			f.CreateFunctor("at-taxi-stand", []*term.Term{tTaxi, tHere}),
			f.CreateFunctor("have-cash", []*term.Term{tCash}),
			f.CreateFunctor("have-taxi-fare", []*term.Term{tTo}),
		},
		TaskList: []*term.Term{
			f.CreateFunctor("hail", []*term.Term{tTaxi}),
			f.CreateFunctor("set-cash", []*term.Term{tCash, f.CreateConstant("7")}),
			f.CreateFunctor("ride", []*term.Term{tTaxi, tHere, tTo}),
		},
		Type: Normal,
	})

	bTo, bHere, bBus, bCash := f.CreateVariable("To"), f.CreateVariable("Here"), f.CreateVariable("Bus"), f.CreateVariable("Cash")
	p.AddMethod(Method{
		Head: f.CreateFunctor("travel-to", []*term.Term{bTo}),
		Condition: []*term.Term{
			f.CreateFunctor("at", []*term.Term{bHere}),
			f.CreateFunctor("bus-route", []*term.Term{bBus, bHere, bTo}),
			f.CreateFunctor("have-cash", []*term.Term{bCash}),
		},
		TaskList: []*term.Term{
			f.CreateFunctor("wait-for", []*term.Term{bBus}),
			f.CreateFunctor("set-cash", []*term.Term{bCash, f.CreateConstant("9")}),
			f.CreateFunctor("ride", []*term.Term{bBus, bHere, bTo}),
		},
		Type: Normal,
	})

	return f, db, p
}

func opNames(sol Solution) []string {
	names := make([]string, len(sol.Operators))
	for i, o := range sol.Operators {
		names[i] = o.Functor()
	}
	return names
}

func TestFindAllPlansTravelScenario(t *testing.T) {
	f, db, p := newTravelDomain(t)
	goal := f.CreateFunctor("travel-to", []*term.Term{f.CreateConstant("park")})

	sols := p.FindAllPlans(context.Background(), db, []*term.Term{goal})
	require.Len(t, sols, 3, "walk, taxi, and bus must each produce exactly one plan")

	require.Equal(t, []string{"walk"}, opNames(sols[0]))
	require.Equal(t, []string{"hail", "set-cash", "ride"}, opNames(sols[1]))
	require.Equal(t, []string{"wait-for", "set-cash", "ride"}, opNames(sols[2]))

	require.True(t, sols[0].FinalState.HasFact(f.CreateFunctor("at", []*term.Term{f.CreateConstant("park")})))
}

func TestFindPlanStopsAtFirstSolution(t *testing.T) {
	f, db, p := newTravelDomain(t)
	goal := f.CreateFunctor("travel-to", []*term.Term{f.CreateConstant("park")})

	sol, ok := p.FindPlan(context.Background(), db, []*term.Term{goal})
	require.True(t, ok)
	require.Equal(t, []string{"walk"}, opNames(sol))
}

func TestMethodAllOfConcatenatesOperatorSequences(t *testing.T) {
	f := term.NewFactory()
	db := rules.New(f)
	db.AddRule(f.CreateFunctor("slot", []*term.Term{f.CreateConstant("1")}), nil)
	db.AddRule(f.CreateFunctor("slot", []*term.Term{f.CreateConstant("2")}), nil)

	p := New(f, nil)
	p.AddOperator(Operator{Head: f.CreateFunctor("step", []*term.Term{f.CreateVariable("N")})})
	n := f.CreateVariable("N")
	p.AddMethod(Method{
		Head:      f.CreateFunctor("do-both", nil),
		Condition: []*term.Term{f.CreateFunctor("slot", []*term.Term{n})},
		TaskList:  []*term.Term{f.CreateFunctor("step", []*term.Term{n})},
		Type:      AllOf,
	})

	goal := f.CreateFunctor("do-both", nil)
	sols := p.FindAllPlans(context.Background(), db, []*term.Term{goal})
	require.Len(t, sols, 1, "all_of produces one combined plan, not one per condition solution")
	require.Equal(t, []string{"step", "step"}, opNames(sols[0]), "both slot(1) and slot(2) branches must contribute an operator")
}

func TestMethodElseFiresOnlyWithoutRegularMatch(t *testing.T) {
	f := term.NewFactory()
	db := rules.New(f)

	p := New(f, nil)
	p.AddOperator(Operator{Head: f.CreateFunctor("fallback-op", nil)})
	p.AddMethod(Method{
		Head:     f.CreateFunctor("task", nil),
		TaskList: []*term.Term{f.CreateFunctor("fallback-op", nil)},
		Type:     Else,
	})

	goal := f.CreateFunctor("task", nil)
	sols := p.FindAllPlans(context.Background(), db, []*term.Term{goal})
	require.Len(t, sols, 1)
	require.Equal(t, []string{"fallback-op"}, opNames(sols[0]))
}

func TestTryIsVacuousSuccessWhenInnerTaskHasNoPlan(t *testing.T) {
	f := term.NewFactory()
	db := rules.New(f)

	p := New(f, nil)
	p.AddOperator(Operator{Head: f.CreateFunctor("after", nil)})
	// "missing" unifies with no operator and no method: the try wrapper
	// must absorb that failure as a vacuous success rather than failing
	// the whole branch.
	tryGoal := f.CreateFunctor("try", []*term.Term{f.CreateFunctor("missing", nil)})

	sols := p.FindAllPlans(context.Background(), db, []*term.Term{tryGoal, f.CreateFunctor("after", nil)})
	require.Len(t, sols, 1)
	require.Equal(t, []string{"after"}, opNames(sols[0]))
}

func TestCheckFlagsTaskNotFoundAndTaskLoop(t *testing.T) {
	f := term.NewFactory()
	p := New(f, nil)

	p.AddMethod(Method{
		Head:     f.CreateFunctor("a", nil),
		TaskList: []*term.Term{f.CreateFunctor("missing-task", []*term.Term{f.CreateVariable("X")})},
		Type:     Normal,
	})
	p.AddMethod(Method{
		Head:     f.CreateFunctor("b", nil),
		TaskList: []*term.Term{f.CreateFunctor("c", nil)},
		Type:     Normal,
	})
	p.AddMethod(Method{
		Head:     f.CreateFunctor("c", nil),
		TaskList: []*term.Term{f.CreateFunctor("b", nil)},
		Type:     Normal,
	})

	issues := p.Check()
	var foundMissing, foundLoop bool
	for _, is := range issues {
		if is.Kind == "Task Not Found" && is.Message == "missing-task/1" {
			foundMissing = true
		}
		if is.Kind == "Task Loop" {
			foundLoop = true
		}
	}
	require.True(t, foundMissing, "missing-task/1 must be flagged as Task Not Found")
	require.True(t, foundLoop, "the b/0<->c/0 cycle must be flagged as Task Loop")
}
