package resolve

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gitrdm/reason/internal/trace"
	"github.com/gitrdm/reason/pkg/reasonerr"
	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
	"github.com/gitrdm/reason/pkg/unify"
)

// Resolver is the immutable configuration a host builds once per
// reasoning session: the term factory, the rule database to query
// against, and where diagnostics go. Queries are run by calling
// ResolveAll/NewQuery, each of which opens its own ResolveState so
// concurrent queries never share choice-point stacks.
type Resolver struct {
	Factory *term.Factory
	DB      *rules.RuleSet
	Tracer  *trace.Tracer
	Budget  int64 // bytes; 0 means unlimited
	Out     io.Writer
}

// New builds a Resolver. A nil tracer gets a no-op one; a zero budget
// means the memory-budget latch never trips.
func New(f *term.Factory, db *rules.RuleSet, tracer *trace.Tracer) *Resolver {
	if tracer == nil {
		tracer = trace.New(nil, trace.ModeTest)
	}
	return &Resolver{Factory: f, DB: db, Tracer: tracer, Out: os.Stdout}
}

// ResolveAll runs goals to exhaustion and returns every solution found.
// When no solution was found it also returns diagnostics describing the
// deepest failure; when at least one solution was found the diagnostics
// are nil (ResolveAllState keeps them either way). It honours
// ctx cancellation and the Resolver's memory budget; a caller should
// check Factory.OutOfMemory() after return to tell a budget-truncated
// result apart from a naturally exhausted one (spec.md §4.4).
func (r *Resolver) ResolveAll(ctx context.Context, goals []*term.Term) ([]*unify.Unifier, *FailureInfo) {
	st := r.ResolveAllState(ctx, goals)
	if len(st.collected) > 0 {
		return st.collected, nil
	}
	return st.collected, st.deepest
}

// ResolveAllState is ResolveAll but returns the finished ResolveState
// itself rather than just its solutions and deepest failure, so a caller
// that wants a fuller diagnostic (DiagnosticString) can get one without
// re-running the query.
func (r *Resolver) ResolveAllState(ctx context.Context, goals []*term.Term) *ResolveState {
	st := r.newState()
	st.collectAll = true
	defer st.Tracer.Recover()
	st.cur = cursor{goals: goals, u: unify.Empty(), db: r.DB}
	st.indexGoals(goals)
	st.run(ctx)
	return st
}

// ResolveAllFrom is ResolveAll seeded with an already-accumulated unifier
// instead of the empty one, used by pkg/htn to evaluate a method's
// condition goals under the bindings its head unification already
// produced.
func (r *Resolver) ResolveAllFrom(ctx context.Context, start *unify.Unifier, goals []*term.Term) ([]*unify.Unifier, *FailureInfo) {
	st := r.newState()
	st.collectAll = true
	defer st.Tracer.Recover()
	st.cur = cursor{goals: goals, u: start, db: r.DB}
	st.indexGoals(goals)
	st.run(ctx)
	return st.collected, st.deepest
}

// NewQuery opens a ResolveState positioned to yield solutions one at a
// time via Next, for a host that wants an iterator (resolve_next)
// instead of collecting everything up front.
func (r *Resolver) NewQuery(goals []*term.Term) *ResolveState {
	st := r.newState()
	st.collectAll = false
	st.maxResults = 1
	st.cur = cursor{goals: goals, u: unify.Empty(), db: r.DB}
	st.indexGoals(goals)
	return st
}

// Next advances a query opened by NewQuery to its next solution. It
// returns (nil, false) once the query is exhausted.
func (st *ResolveState) Next(ctx context.Context) (*unify.Unifier, bool) {
	defer st.resolver.Tracer.Recover()
	st.collected = nil
	if !st.started {
		st.run(ctx)
	} else if !st.backtrack() {
		return nil, false
	} else {
		st.continueRun(ctx)
	}
	if len(st.collected) == 0 {
		return nil, false
	}
	return st.collected[0], true
}

func (r *Resolver) newState() *ResolveState {
	return &ResolveState{
		Factory:     r.Factory,
		Tracer:      r.Tracer,
		budget:      r.Budget,
		resolver:    r,
		cutBar:      make(map[uint64]int),
		goalIndexOf: make(map[*term.Term]int),
	}
}

func (st *ResolveState) indexGoals(goals []*term.Term) {
	for i, g := range goals {
		st.goalIndexOf[g] = i
	}
}

func (st *ResolveState) dbSize() int64 {
	if st.cur.db == nil {
		return 0
	}
	return st.cur.db.DynamicSize()
}

// run drives the resolver loop from the current cursor until no more
// solutions can be produced (collectAll) or the configured maxResults is
// reached, the budget trips, or ctx is cancelled.
func (st *ResolveState) run(ctx context.Context) {
	st.started = true
	st.continueRun(ctx)
}

func (st *ResolveState) continueRun(ctx context.Context) {
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
		st.iter++
		if st.budget > 0 && st.iter%256 == 0 {
			if st.Factory.DynamicSize()+st.dbSize() > st.budget {
				st.Factory.SetOutOfMemory()
				return
			}
		}
		if st.Factory.OutOfMemory() {
			return
		}

		if len(st.cur.goals) == 0 {
			st.collected = append(st.collected, st.cur.u)
			if !st.collectAll || (st.maxResults > 0 && len(st.collected) >= st.maxResults) {
				return
			}
			if !st.backtrack() {
				return
			}
			continue
		}

		goal := st.cur.u.Walk(st.cur.goals[0])
		rest := st.cur.goals[1:]
		if st.step(ctx, goal, rest) {
			continue
		}
		if !st.backtrack() {
			return
		}
	}
}

// step attempts to advance past goal, mutating st.cur on success and
// returning true; on failure it records diagnostics and returns false,
// leaving st.cur untouched so the caller backtracks.
func (st *ResolveState) step(ctx context.Context, goal *term.Term, rest []*term.Term) bool {
	if goal.IsVariable() {
		reasonerr.Raise(reasonerr.KindBareVariableGoal, "cannot resolve an unbound variable as a goal: %s", goal)
	}

	if isBareCut(goal) {
		st.cps = st.cps[:0]
		st.cur = cursor{goals: rest, u: st.cur.u, db: st.cur.db}
		return true
	}
	if goal.IsCompound() && goal.Functor() == "$cutenter" && goal.Arity() == 1 {
		st.cur = cursor{goals: rest, u: st.cur.u, db: st.cur.db}
		return true
	}
	if goal.IsCompound() && goal.Functor() == "$cutexit" && goal.Arity() == 1 {
		id, _ := goal.Arg(0).AsInt64()
		if barrier, ok := st.cutBar[uint64(id)]; ok {
			if barrier-1 < len(st.cps) {
				st.cps = st.cps[:barrier-1]
			}
			delete(st.cutBar, uint64(id))
		}
		st.cur = cursor{goals: rest, u: st.cur.u, db: st.cur.db}
		return true
	}

	key := fmt.Sprintf("%s/%d", goal.Functor(), goal.Arity())
	if h, ok := builtinRegistry[key]; ok {
		if h(ctx, st, goal.Args(), rest) {
			return true
		}
		st.recordFailure(goal, len(st.cps), st.lastContext)
		return false
	}

	var candidates []rules.Rule
	st.cur.db.AllRulesThatCouldUnify(goal, func(r rules.Rule) bool {
		candidates = append(candidates, r)
		return true
	})
	if len(candidates) == 0 {
		st.recordFailure(goal, len(st.cps), st.lastContext)
		return false
	}

	source := &ruleAltSource{goal: goal, rest: rest, db: st.cur.db, baseU: st.cur.u, candidates: candidates}
	prefix, nu, ndb, cid, ok := source.Next(st)
	if !ok {
		st.recordFailure(goal, len(st.cps), st.lastContext)
		return false
	}
	st.cps = append(st.cps, &choicePoint{source: source, rest: rest, goal: goal})
	if cid != 0 {
		st.cutBar[cid] = len(st.cps)
	}
	st.cur = cursor{goals: joinGoals(prefix, rest), u: nu, db: ndb}
	return true
}

// backtrack pops choice points until one yields another alternative,
// restoring st.cur from it. It returns false once the stack is empty.
func (st *ResolveState) backtrack() bool {
	for len(st.cps) > 0 {
		top := st.cps[len(st.cps)-1]
		prefix, u, db, cid, ok := top.source.Next(st)
		if !ok {
			st.recordFailure(top.goal, len(st.cps), st.lastContext)
			st.cps = st.cps[:len(st.cps)-1]
			continue
		}
		if cid != 0 {
			st.cutBar[cid] = len(st.cps)
		}
		st.cur = cursor{goals: joinGoals(prefix, top.rest), u: u, db: db}
		return true
	}
	return false
}

func joinGoals(prefix, rest []*term.Term) []*term.Term {
	if len(prefix) == 0 {
		return rest
	}
	out := make([]*term.Term, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	out = append(out, rest...)
	return out
}

// ruleAltSource resolves a plain user goal against successive candidate
// clauses, freshening each clause's variables independently.
type ruleAltSource struct {
	goal       *term.Term
	rest       []*term.Term
	db         *rules.RuleSet
	baseU      *unify.Unifier
	candidates []rules.Rule
	idx        int
}

func (s *ruleAltSource) Next(st *ResolveState) (prefix []*term.Term, u *unify.Unifier, db *rules.RuleSet, cutID uint64, ok bool) {
	for s.idx < len(s.candidates) {
		r := s.candidates[s.idx]
		s.idx++
		uid := st.nextUniq()
		prefixName := fmt.Sprintf("_r%d_", uid)
		freshHead, freshTail := freshenRule(st.Factory, r, prefixName)
		nu, okU := unify.UnifyUnder(s.baseU, s.goal, freshHead)
		if !okU {
			continue
		}
		tailGoals, cid := insertCutSentinels(st.Factory, freshTail, st)
		return tailGoals, nu, s.db, cid, true
	}
	return nil, nil, nil, 0, false
}

// freshenRule renames every variable in r's head and tail together
// (sharing one rename map, so a variable occurring in both gets the same
// fresh name), returning the renamed head and tail independently.
func freshenRule(f *term.Factory, r rules.Rule, prefix string) (*term.Term, []*term.Term) {
	wrapped := f.CreateFunctor("$clause", append([]*term.Term{r.Head}, r.Tail...))
	fresh := f.MakeVariablesUnique(wrapped, prefix)
	args := fresh.Args()
	return args[0], append([]*term.Term(nil), args[1:]...)
}

func isBareCut(t *term.Term) bool {
	return t.IsConstant() && t.Name() == "!"
}

// insertCutSentinels rewrites tail so that any literal "!" goal is
// replaced by a "$cutexit"(id) sentinel, preceded by a single
// "$cutenter"(id) marker at the front of the tail, per spec.md §4.4's cut
// protocol. It returns the (possibly unmodified) tail and the id used, or
// 0 if tail contains no cut.
func insertCutSentinels(f *term.Factory, tail []*term.Term, st *ResolveState) ([]*term.Term, uint64) {
	hasCut := false
	for _, g := range tail {
		if isBareCut(g) {
			hasCut = true
			break
		}
	}
	if !hasCut {
		return tail, 0
	}
	id := st.nextUniq()
	idTerm := f.CreateConstant(fmt.Sprintf("%d", id))
	out := make([]*term.Term, 0, len(tail)+2)
	out = append(out, f.CreateFunctor("$cutenter", []*term.Term{idTerm}))
	for _, g := range tail {
		if isBareCut(g) {
			out = append(out, f.CreateFunctor("$cutexit", []*term.Term{idTerm}))
		} else {
			out = append(out, g)
		}
	}
	return out, id
}

// runSub runs goal to exhaustion as a standalone sub-resolution seeded
// with startU, against db, sharing this state's factory, tracer, and
// memory budget (spec.md §4.4's "standalone sub-resolution" protocol for
// not/forall/findall and the other aggregate built-ins). Implemented as
// a nested call to the same iterative engine rather than a frame pushed
// onto the parent's own choice-point stack -- an explicit, documented
// simplification; see DESIGN.md.
func (st *ResolveState) runSub(ctx context.Context, goal *term.Term, startU *unify.Unifier, db *rules.RuleSet) []*unify.Unifier {
	sub := &ResolveState{
		Factory:     st.Factory,
		Tracer:      st.Tracer,
		resolver:    st.resolver,
		budget:      st.budget,
		cutBar:      make(map[uint64]int),
		collectAll:  true,
		goalIndexOf: make(map[*term.Term]int),
	}
	sub.cur = cursor{goals: []*term.Term{goal}, u: startU, db: db}
	sub.indexGoals(sub.cur.goals)
	sub.run(ctx)
	if sub.deepest != nil && (st.deepest == nil || sub.deepest.Depth >= st.deepest.Depth) {
		st.deepest = sub.deepest
	}
	return sub.collected
}
