package htn

import (
	"context"
	"fmt"

	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
	"github.com/gitrdm/reason/pkg/unify"
)

// buildAlternatives classifies task and returns every alternative way to
// continue planning past it, in the order spec.md §4.5 step 2 describes:
// try(...) is a special form handled on its own; otherwise a task can be
// both a primitive (operator alternatives) and a compound task (method
// alternatives), tried operators-first.
func (ps *PlanState) buildAlternatives(ctx context.Context, task *term.Term, rest []*term.Term) []altExpansion {
	if task.IsCompound() && task.Functor() == "try" {
		return ps.buildTryAlternatives(ctx, task)
	}
	alts := ps.buildOperatorAlternatives(task)
	alts = append(alts, ps.buildMethodAlternatives(ctx, task)...)
	return alts
}

// buildOperatorAlternatives tries every declared operator whose head
// unifies with task, applying its add/delete lists to a freshly cloned
// RuleSet (spec.md §4.5 "applying the operator ... calls
// ruleset.update(delete_list, add_list) on a fresh cloned ruleset").
func (ps *PlanState) buildOperatorAlternatives(task *term.Term) []altExpansion {
	f := ps.planner.Factory
	var alts []altExpansion
	for _, op := range ps.planner.Operators {
		prefix := fmt.Sprintf("_op%d_", ps.nextUniq())
		freshHead, freshAdd, freshDel := freshenOperator(f, op, prefix)
		u, ok := unify.Unify(task, freshHead)
		if !ok {
			continue
		}
		delResolved, ok := resolveGround(f, u, freshDel)
		if !ok {
			continue
		}
		addResolved, ok := resolveGround(f, u, freshAdd)
		if !ok {
			continue
		}
		newDB, ok := ps.cur.db.CreateNextState(delResolved, addResolved)
		if !ok {
			continue
		}
		var opsAppend []*term.Term
		if !op.Hidden {
			opsAppend = []*term.Term{u.Resolve(f, freshHead)}
		}
		alts = append(alts, altExpansion{tasks: nil, db: newDB, ops: opsAppend})
	}
	return alts
}

// resolveGround resolves every term in ts under u, failing (ok=false) if
// any result is not ground -- RuleSet.Update requires ground fact heads.
func resolveGround(f *term.Factory, u *unify.Unifier, ts []*term.Term) ([]*term.Term, bool) {
	out := make([]*term.Term, len(ts))
	for i, t := range ts {
		r := u.Resolve(f, t)
		if !r.IsGround() {
			return nil, false
		}
		out[i] = r
	}
	return out, true
}

// methodMatch is one method whose head unifies with the task under
// consideration, together with its freshened condition and task list.
type methodMatch struct {
	method Method
	headU  *unify.Unifier
	cond   []*term.Term
	tasks  []*term.Term
}

// buildMethodAlternatives collects every method matching task, applies
// the Else/Default firing-order rule, evaluates each chosen method's
// condition as a resolver query, and expands per method type
// (spec.md §4.5 steps 3-4).
//
// Else/Default selection is approximated structurally: "fires only if no
// [other] method produced a plan" would require searching the whole
// remainder of the tree before deciding, which a lazy DFS cannot do
// without abandoning laziness. Instead a method marked Else or IsDefault
// is only even attempted when no regular method's head matched this
// task at all. See DESIGN.md.
func (ps *PlanState) buildMethodAlternatives(ctx context.Context, task *term.Term) []altExpansion {
	f := ps.planner.Factory
	var regular, defaults, elses []methodMatch
	for _, m := range ps.planner.Methods {
		prefix := fmt.Sprintf("_m%d_", ps.nextUniq())
		freshHead, freshCond, freshTasks := freshenMethod(f, m, prefix)
		u, ok := unify.Unify(task, freshHead)
		if !ok {
			continue
		}
		mm := methodMatch{method: m, headU: u, cond: freshCond, tasks: freshTasks}
		switch {
		case m.Type == Else:
			elses = append(elses, mm)
		case m.IsDefault:
			defaults = append(defaults, mm)
		default:
			regular = append(regular, mm)
		}
	}
	chosen := regular
	if len(chosen) == 0 {
		chosen = defaults
	}
	if len(chosen) == 0 {
		chosen = elses
	}

	var alts []altExpansion
	resolver := ps.resolverFor(ps.cur.db)
	for _, mm := range chosen {
		sols, _ := resolver.ResolveAllFrom(ctx, mm.headU, mm.cond)
		if len(sols) == 0 {
			continue
		}
		if mm.method.Type == AllOf {
			if exp, ok := ps.expandAllOf(ctx, mm, sols); ok {
				alts = append(alts, exp)
			}
			continue
		}
		// Normal, AnyOf and (once chosen) Else all try each condition
		// solution as an independent alternative, in solution order. For
		// AnyOf, FindPlan stops at the first alternative that plans and
		// FindAllPlans returns each succeeding alternative as its own
		// plan; alternatives are never merged.
		for _, sol := range sols {
			subTasks := make([]*term.Term, len(mm.tasks))
			for i, t := range mm.tasks {
				subTasks[i] = sol.Resolve(f, t)
			}
			alts = append(alts, altExpansion{tasks: subTasks, db: ps.cur.db})
		}
	}
	return alts
}

// expandAllOf requires every condition solution's substituted task list
// to plan to completion (first plan found each), concatenating their
// operator sequences and threading the RuleSet from one branch's result
// into the next branch's starting state; if any branch fails outright,
// the whole method fails (spec.md §4.5 "AllOf").
func (ps *PlanState) expandAllOf(ctx context.Context, mm methodMatch, sols []*unify.Unifier) (altExpansion, bool) {
	f := ps.planner.Factory
	db := ps.cur.db
	var ops []*term.Term
	for _, sol := range sols {
		subTasks := make([]*term.Term, len(mm.tasks))
		for i, t := range mm.tasks {
			subTasks[i] = sol.Resolve(f, t)
		}
		branchOps, nextDB, ok := ps.subPlanFirst(ctx, subTasks, db)
		if !ok {
			return altExpansion{}, false
		}
		ops = append(ops, branchOps...)
		db = nextDB
	}
	return altExpansion{tasks: nil, db: db, ops: ops}, true
}

// buildTryAlternatives implements try(...): inner tasks are planned as a
// standalone sub-search that collects every solution, each becoming one
// alternative continuation; if the inner search has no solution at all,
// try is a vacuous success with no state change -- it does not fail the
// enclosing branch (spec.md §4.5 "try is backtracking-transparent;
// multiple inner solutions are preserved"). Implemented as a nested
// PlanState rather than a frame sharing the parent's own plan-node stack,
// mirroring pkg/resolve's standalone sub-resolution simplification; see
// DESIGN.md.
func (ps *PlanState) buildTryAlternatives(ctx context.Context, task *term.Term) []altExpansion {
	inner := task.Args()
	sols := ps.subPlanAll(ctx, inner, ps.cur.db)
	if len(sols) == 0 {
		return []altExpansion{{tasks: nil, db: ps.cur.db}}
	}
	alts := make([]altExpansion, 0, len(sols))
	for _, s := range sols {
		alts = append(alts, altExpansion{tasks: nil, db: s.FinalState, ops: s.Operators})
	}
	return alts
}

// subPlanFirst plans tasks against db as a standalone search and returns
// the first solution's operators and final state.
func (ps *PlanState) subPlanFirst(ctx context.Context, tasks []*term.Term, db *rules.RuleSet) ([]*term.Term, *rules.RuleSet, bool) {
	sub := ps.planner.newState(db, tasks)
	sub.collectAll = false
	sub.maxResults = 1
	sub.run(ctx)
	if len(sub.collected) == 0 {
		return nil, nil, false
	}
	return sub.collected[0].Operators, sub.collected[0].FinalState, true
}

// subPlanAll plans tasks against db as a standalone search and returns
// every solution found.
func (ps *PlanState) subPlanAll(ctx context.Context, tasks []*term.Term, db *rules.RuleSet) []Solution {
	sub := ps.planner.newState(db, tasks)
	sub.collectAll = true
	sub.run(ctx)
	return sub.collected
}

// freshenOperator renames every variable shared across op's head,
// add-list and delete-list together (one rename map), mirroring
// pkg/resolve's freshenRule.
func freshenOperator(f *term.Factory, op Operator, prefix string) (head *term.Term, add, del []*term.Term) {
	args := append([]*term.Term{op.Head}, op.AddList...)
	args = append(args, op.DeleteList...)
	wrapped := f.CreateFunctor("$op", args)
	fresh := f.MakeVariablesUnique(wrapped, prefix)
	fa := fresh.Args()
	head = fa[0]
	add = append([]*term.Term(nil), fa[1:1+len(op.AddList)]...)
	del = append([]*term.Term(nil), fa[1+len(op.AddList):]...)
	return head, add, del
}

// freshenMethod renames every variable shared across m's head, condition
// and task list together.
func freshenMethod(f *term.Factory, m Method, prefix string) (head *term.Term, cond, tasks []*term.Term) {
	args := append([]*term.Term{m.Head}, m.Condition...)
	args = append(args, m.TaskList...)
	wrapped := f.CreateFunctor("$method", args)
	fresh := f.MakeVariablesUnique(wrapped, prefix)
	fa := fresh.Args()
	head = fa[0]
	cond = append([]*term.Term(nil), fa[1:1+len(m.Condition)]...)
	tasks = append([]*term.Term(nil), fa[1+len(m.Condition):]...)
	return head, cond, tasks
}
