package htn

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/gitrdm/reason/internal/clock"
	"github.com/gitrdm/reason/internal/trace"
	"github.com/gitrdm/reason/pkg/resolve"
	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
)

// Planner is the immutable configuration a host builds once per domain:
// the term factory, the declared operators and methods, and where
// diagnostics go. Plans are run by calling FindAllPlans/FindPlan/NewQuery,
// each of which opens its own PlanState so concurrent plan calls never
// share plan-node stacks (spec.md §4.5, §5 "single-threaded cooperative
// within one resolve/plan call").
type Planner struct {
	Factory   *term.Factory
	Tracer    *trace.Tracer
	Budget    int64 // bytes; 0 means unlimited
	Operators []Operator
	Methods   []Method
	// Declared records declare(Name, Arity) facts: task names the sanity
	// pass (sanity.go) should treat as resolvable even though no method
	// or operator names them directly (spec.md §4.5).
	Declared map[string]bool

	abort atomic.Bool
}

// New builds a Planner. A nil tracer gets a no-op one; a zero budget
// means the memory-budget latch never trips.
func New(f *term.Factory, tracer *trace.Tracer) *Planner {
	if tracer == nil {
		tracer = trace.New(nil, trace.ModeTest)
	}
	return &Planner{Factory: f, Tracer: tracer, Declared: make(map[string]bool)}
}

// AddOperator registers a primitive task.
func (p *Planner) AddOperator(op Operator) { p.Operators = append(p.Operators, op) }

// AddMethod registers a compound-task decomposition.
func (p *Planner) AddMethod(m Method) { p.Methods = append(p.Methods, m) }

// Declare records a declare(name, arity) fact, marking that task name as
// resolvable by the sanity pass even without a matching method or
// operator (e.g. a task the host resolves through some other mechanism).
func (p *Planner) Declare(name string, arity int) {
	p.Declared[taskKey(name, arity)] = true
}

// Abort requests graceful termination of any in-flight plan call,
// observable from another goroutine (spec.md §5's "abort flag ... may be
// set from another thread").
func (p *Planner) Abort() { p.abort.Store(true) }

// ResetAbort clears a previously requested abort, so the planner can be
// reused for another call.
func (p *Planner) ResetAbort() { p.abort.Store(false) }

// IsAborted reports whether Abort has been called since the last
// ResetAbort.
func (p *Planner) IsAborted() bool { return p.abort.Load() }

// FindAllPlans runs initialGoals to exhaustion against initialState and
// returns every plan found, in DFS discovery order (spec.md §4.5).
func (p *Planner) FindAllPlans(ctx context.Context, initialState *rules.RuleSet, initialGoals []*term.Term) []Solution {
	ps := p.newState(initialState, initialGoals)
	ps.collectAll = true
	ps.run(ctx)
	return ps.collected
}

// FindPlan is FindAllPlans that stops after the first solution, still
// honouring any_of/all_of expansion within that one solution.
func (p *Planner) FindPlan(ctx context.Context, initialState *rules.RuleSet, initialGoals []*term.Term) (Solution, bool) {
	ps := p.newState(initialState, initialGoals)
	ps.collectAll = false
	ps.maxResults = 1
	ps.run(ctx)
	if len(ps.collected) == 0 {
		return Solution{}, false
	}
	return ps.collected[0], true
}

// NewQuery opens a PlanState positioned to yield plans one at a time via
// Next, for a host driving find_next_plan.
func (p *Planner) NewQuery(initialState *rules.RuleSet, initialGoals []*term.Term) *PlanState {
	ps := p.newState(initialState, initialGoals)
	ps.collectAll = false
	ps.maxResults = 1
	return ps
}

// Next advances a query opened by NewQuery to its next plan. It returns
// (Solution{}, false) once the query is exhausted.
func (ps *PlanState) Next(ctx context.Context) (Solution, bool) {
	ps.collected = nil
	if !ps.started {
		ps.run(ctx)
	} else if !ps.backtrack() {
		return Solution{}, false
	} else {
		ps.continueRun(ctx)
	}
	if len(ps.collected) == 0 {
		return Solution{}, false
	}
	return ps.collected[0], true
}

func (p *Planner) newState(initialState *rules.RuleSet, initialGoals []*term.Term) *PlanState {
	ps := &PlanState{planner: p}
	ps.resolverFor = func(db *rules.RuleSet) *resolve.Resolver {
		r := resolve.New(p.Factory, db, p.Tracer)
		r.Budget = p.Budget
		return r
	}
	ps.cur = planCursor{tasks: initialGoals, db: initialState}
	return ps
}

// run drives the planner loop from the current cursor, stamping elapsed
// time and peak memory onto every collected solution once the run stops
// (spec.md §4.5's Solution metadata).
func (ps *PlanState) run(ctx context.Context) {
	ps.started = true
	sw := clock.NewStopwatch()
	ps.continueRun(ctx)
	elapsed := sw.Elapsed().Seconds()
	peak := clock.PeakAlloc()
	for i := range ps.collected {
		ps.collected[i].ElapsedSeconds = elapsed
		ps.collected[i].PeakMemoryBytes = peak
	}
}

func (ps *PlanState) continueRun(ctx context.Context) {
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
		if ps.planner.IsAborted() {
			return
		}
		ps.iter++
		if ps.planner.Budget > 0 && ps.iter%256 == 0 {
			if ps.planner.Factory.DynamicSize()+ps.dbSize() > ps.planner.Budget {
				ps.planner.Factory.SetOutOfMemory()
				return
			}
		}
		if ps.planner.Factory.OutOfMemory() {
			return
		}

		if len(ps.cur.tasks) == 0 {
			ps.collected = append(ps.collected, Solution{
				Operators:  append([]*term.Term(nil), ps.cur.ops...),
				FinalState: ps.cur.db,
			})
			if !ps.collectAll || (ps.maxResults > 0 && len(ps.collected) >= ps.maxResults) {
				return
			}
			if !ps.backtrack() {
				return
			}
			continue
		}

		task := ps.cur.tasks[0]
		rest := ps.cur.tasks[1:]
		if ps.step(ctx, task, rest) {
			continue
		}
		if !ps.backtrack() {
			return
		}
	}
}

// step attempts to advance past task, mutating ps.cur on success and
// returning true; on failure it leaves ps.cur untouched and returns
// false so the caller backtracks.
func (ps *PlanState) step(ctx context.Context, task *term.Term, rest []*term.Term) bool {
	alts := ps.buildAlternatives(ctx, task, rest)
	if len(alts) == 0 {
		return false
	}
	source := &sliceAltSource{items: alts}
	exp, ok := source.Next()
	if !ok {
		return false
	}
	ps.cps = append(ps.cps, &planChoicePoint{source: source, rest: rest, task: task, baseOps: ps.cur.ops})
	ps.applyExpansion(exp, rest, ps.cur.ops)
	return true
}

// applyExpansion commits to exp: its prefix tasks run before rest, its
// RuleSet becomes current, and its operator terms (if any) are appended
// onto baseOps -- the plan as it stood immediately before the task that
// produced exp was considered, not whatever ps.cur.ops happens to hold
// right now (which, on the backtrack path, belongs to an already
// abandoned deeper alternative).
func (ps *PlanState) applyExpansion(exp altExpansion, rest []*term.Term, baseOps []*term.Term) {
	ops := baseOps
	if len(exp.ops) > 0 {
		ops = append(append([]*term.Term(nil), baseOps...), exp.ops...)
	}
	ps.cur = planCursor{tasks: joinTasks(exp.tasks, rest), db: exp.db, ops: ops}
}

// backtrack pops plan nodes until one yields another alternative,
// restoring ps.cur from it. It returns false once the stack is empty.
func (ps *PlanState) backtrack() bool {
	for len(ps.cps) > 0 {
		top := ps.cps[len(ps.cps)-1]
		// Restore the ruleset/ops in effect when this choice point was
		// created: everything this alternative's own tasks touched is
		// discarded along with it (spec.md §4.5 step 5, "restore the
		// ruleset snapshot taken on entry").
		exp, ok := top.source.Next()
		if !ok {
			ps.cps = ps.cps[:len(ps.cps)-1]
			continue
		}
		ps.applyExpansion(exp, top.rest, top.baseOps)
		return true
	}
	return false
}

func joinTasks(prefix, rest []*term.Term) []*term.Term {
	if len(prefix) == 0 {
		return rest
	}
	out := make([]*term.Term, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	out = append(out, rest...)
	return out
}

func taskKey(name string, arity int) string {
	return name + "/" + strconv.Itoa(arity)
}
