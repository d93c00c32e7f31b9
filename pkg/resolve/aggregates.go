package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
	"github.com/gitrdm/reason/pkg/unify"
)

// Every aggregate built-in here resolves its Goal argument as a
// standalone sub-resolution (runSub): the goal's own choice points never
// leak onto the parent's stack, matching spec.md §4.4's "a not/forall/
// findall argument is resolved in an isolated sub-search whose choice
// points are discarded once it reports its solutions" requirement.

func biNot(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	sols := st.runSub(ctx, args[0], st.cur.u, st.cur.db)
	if len(sols) > 0 {
		return false
	}
	return st.succeed(rest, st.cur.u)
}

func biForall(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	condSols := st.runSub(ctx, args[0], st.cur.u, st.cur.db)
	for _, cu := range condSols {
		actionSols := st.runSub(ctx, args[1], cu, st.cur.db)
		if len(actionSols) == 0 {
			return false
		}
	}
	return st.succeed(rest, st.cur.u)
}

func biFindall(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	template, goal, out := args[0], args[1], args[2]
	sols := st.runSub(ctx, goal, st.cur.u, st.cur.db)
	results := make([]*term.Term, 0, len(sols))
	for _, s := range sols {
		results = append(results, s.Resolve(st.Factory, template))
	}
	nu, ok := unify.UnifyUnder(st.cur.u, out, st.Factory.CreateList(results))
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

func biFirst(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	sub := &ResolveState{
		Factory: st.Factory, Tracer: st.Tracer, resolver: st.resolver, budget: st.budget,
		cutBar: make(map[uint64]int), collectAll: false, maxResults: 1,
		goalIndexOf: make(map[*term.Term]int),
	}
	sub.cur = cursor{goals: []*term.Term{args[0]}, u: st.cur.u, db: st.cur.db}
	sub.indexGoals(sub.cur.goals)
	sub.run(ctx)
	if len(sub.collected) == 0 {
		return false
	}
	return st.succeed(rest, sub.collected[0])
}

func biDistinct(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	sols := st.runSub(ctx, args[0], st.cur.u, st.cur.db)
	seen := make(map[*term.Term]bool, len(sols))
	var uniq []*unify.Unifier
	for _, s := range sols {
		key := s.Resolve(st.Factory, args[0])
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, s)
	}
	return st.emitReplay(rest, uniq)
}

func biSortBy(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	key, goal := args[0], args[1]
	sols := st.runSub(ctx, goal, st.cur.u, st.cur.db)
	sort.SliceStable(sols, func(i, j int) bool {
		ki := sols[i].Resolve(st.Factory, key)
		kj := sols[j].Resolve(st.Factory, key)
		return term.Compare(ki, kj) < 0
	})
	return st.emitReplay(rest, sols)
}

// emitReplay succeeds with the first of sols (if any), pushing the rest
// as a choice point so backtracking visits them in order.
func (st *ResolveState) emitReplay(rest []*term.Term, sols []*unify.Unifier) bool {
	if len(sols) == 0 {
		return false
	}
	if len(sols) > 1 {
		source := &replaySource{sols: sols[1:], db: st.cur.db}
		st.cps = append(st.cps, &choicePoint{source: source, rest: rest})
	}
	return st.succeed(rest, sols[0])
}

func biCount(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
	sols := st.runSub(ctx, args[0], st.cur.u, st.cur.db)
	n := st.Factory.CreateConstant(fmt.Sprintf("%d", len(sols)))
	nu, ok := unify.UnifyUnder(st.cur.u, args[1], n)
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

// biReduce implements min/3, max/3 and sum/3: Goal, Expr, Result. Expr is
// evaluated once per solution of Goal and the results are combined by op.
func biReduce(op string) builtinHandler {
	return func(ctx context.Context, st *ResolveState, args, rest []*term.Term) bool {
		goal, expr, result := args[0], args[1], args[2]
		sols := st.runSub(ctx, goal, st.cur.u, st.cur.db)
		if len(sols) == 0 {
			return false
		}
		var acc float64
		var accInt bool = true
		first := true
		for _, s := range sols {
			v, ok := st.Factory.Eval(s.Resolve(st.Factory, expr))
			if !ok {
				return false
			}
			f, _ := v.AsFloat64()
			if !v.IsInteger() {
				accInt = false
			}
			switch {
			case first:
				acc = f
				first = false
			case op == "min" && f < acc:
				acc = f
			case op == "max" && f > acc:
				acc = f
			case op == "sum":
				acc += f
			}
		}
		var resultTerm *term.Term
		if accInt {
			resultTerm = st.Factory.CreateConstant(fmt.Sprintf("%d", int64(acc)))
		} else {
			resultTerm = st.Factory.CreateConstant(fmt.Sprintf("%g", acc))
		}
		nu, ok := unify.UnifyUnder(st.cur.u, result, resultTerm)
		if !ok {
			return false
		}
		return st.succeed(rest, nu)
	}
}

// replaySource hands back each precomputed alternative unifier in order;
// used by built-ins (distinct, sortBy) that compute every solution up
// front and then let the caller backtrack through them one at a time.
type replaySource struct {
	sols []*unify.Unifier
	db   *rules.RuleSet
	idx  int
}

func (s *replaySource) Next(st *ResolveState) (prefix []*term.Term, u *unify.Unifier, db *rules.RuleSet, cutID uint64, ok bool) {
	if s.idx >= len(s.sols) {
		return nil, nil, nil, 0, false
	}
	u = s.sols[s.idx]
	s.idx++
	return nil, u, s.db, 0, true
}
