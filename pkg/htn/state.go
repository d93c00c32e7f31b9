// Package htn implements the iterative Hierarchical Task Network planner
// described in spec.md §4.5, layered directly on pkg/resolve the way the
// source layers its planner on its resolver: method conditions are plain
// resolver queries, and the planner's own search is driven by an explicit
// stack of plan nodes rather than host-language recursion, mirroring
// pkg/resolve's choice-point stack.
package htn

import (
	"github.com/gitrdm/reason/internal/trace"
	"github.com/gitrdm/reason/pkg/resolve"
	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
)

// planCursor is the planner's current position: the remaining task list,
// the RuleSet in effect, and the operator terms emitted so far on this
// branch.
type planCursor struct {
	tasks []*term.Term
	db    *rules.RuleSet
	ops   []*term.Term
}

// altExpansion is one fully-built alternative continuation: the tasks to
// plan next, the RuleSet it runs against, and the operator terms (if
// any) this alternative contributes to the plan before those tasks run.
// Every alternative source in this package precomputes its alternatives
// eagerly into a slice of these and replays them one at a time, rather
// than generating them lazily -- a deliberate simplification over the
// source's lazier method/condition cursors; see DESIGN.md.
type altExpansion struct {
	tasks []*term.Term
	db    *rules.RuleSet
	ops   []*term.Term
}

// planAltSource produces, on demand, the next way to continue planning
// from the task that created it. Returning ok=false exhausts the choice
// point it belongs to.
type planAltSource interface {
	Next() (altExpansion, bool)
}

// sliceAltSource replays a precomputed list of alternatives in order.
type sliceAltSource struct {
	items []altExpansion
	idx   int
}

func (s *sliceAltSource) Next() (altExpansion, bool) {
	if s.idx >= len(s.items) {
		return altExpansion{}, false
	}
	it := s.items[s.idx]
	s.idx++
	return it, true
}

// planChoicePoint is a single backtracking alternative left on the
// planner's stack.
type planChoicePoint struct {
	source  planAltSource
	rest    []*term.Term // the task-list tail fixed when this choice point was created
	task    *term.Term   // the task this choice point is an alternative for (diagnostics)
	baseOps []*term.Term // the accumulated operator sequence before this task was considered
}

// Solution is one complete plan: the emitted operator sequence (in
// execution order, hidden operators omitted), the final RuleSet, and
// timing/memory metadata gathered via internal/clock (spec.md §4.5 "A
// solution is (operators, final_state) plus elapsed-seconds and
// peak-memory metadata").
type Solution struct {
	Operators       []*term.Term
	FinalState      *rules.RuleSet
	ElapsedSeconds  float64
	PeakMemoryBytes uint64
}

// PlanState holds everything one find_all_plans/find_plan call needs:
// the resolver used to evaluate method conditions, the running plan-node
// stack, the solutions collected so far, and memory/abort accounting.
type PlanState struct {
	planner *Planner
	cur     planCursor
	cps     []*planChoicePoint

	started bool
	iter    int64
	uniq    uint64

	collectAll bool
	maxResults int // 0 = unlimited

	collected []Solution

	// resolverFor builds a pkg/resolve.Resolver bound to db, sharing this
	// state's factory/tracer/budget, used to evaluate method conditions.
	// try(...) and all_of sub-plans run in nested PlanStates instead.
	resolverFor func(db *rules.RuleSet) *resolve.Resolver
}

func (ps *PlanState) nextUniq() uint64 {
	ps.uniq++
	return ps.uniq
}

func (ps *PlanState) dbSize() int64 {
	if ps.cur.db == nil {
		return 0
	}
	return ps.cur.db.DynamicSize()
}

// Tracer exposes the planner's tracer for diagnostics callers that want
// to log around a plan call without reaching into Planner directly.
func (ps *PlanState) Tracer() *trace.Tracer { return ps.planner.Tracer }
