// Package resolve implements the non-recursive, depth-first SLD resolver
// described in spec.md §4.4: an explicit choice-point stack drives goal
// selection, clause matching, the cut, arithmetic evaluation, and a
// fixed family of built-in predicates, all under a cooperative memory
// budget.
package resolve

import (
	"github.com/gitrdm/reason/internal/trace"
	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
	"github.com/gitrdm/reason/pkg/unify"
)

// cursor is the resolver's current position: the remaining resolvent,
// the unifier accumulated so far, and the RuleSet in effect (assert and
// retract built-ins mutate the RuleSet a cursor points at in place, the
// same way Prolog's database update view works within one query).
type cursor struct {
	goals []*term.Term
	u     *unify.Unifier
	db    *rules.RuleSet
}

// altSource produces, on demand, the next way to continue resolving the
// goal that created it: either another clause whose head unifies, or
// (for built-ins implemented via a standalone sub-resolution) the next
// buffered alternative solution. Returning ok=false means this source is
// exhausted and the choice point it belongs to should be discarded.
type altSource interface {
	Next(st *ResolveState) (prefix []*term.Term, u *unify.Unifier, db *rules.RuleSet, cutID uint64, ok bool)
}

// choicePoint is a single backtracking alternative left on the stack.
type choicePoint struct {
	source altSource
	rest   []*term.Term // the resolvent tail fixed at the point this choice point was created
	goal   *term.Term   // the goal this choice point is an alternative for (diagnostics)
}

// FailureInfo describes the deepest failure observed during a call, used
// for the diagnostics spec.md §4.4 requires: "the deepest (and among
// equal depths, the one with a populated context) failure is kept".
type FailureInfo struct {
	Goal    *term.Term
	Depth   int
	GoalIdx int
	Context []*term.Term

	// Stack is the goal of every choice point still live on the resolver
	// at the moment this failure was recorded, outermost first -- a
	// snapshot of the search stack at the point of deepest failure, used
	// by DiagnosticString.
	Stack []*term.Term
}

// ResolveState holds everything one resolve_all/resolve_next call needs:
// the owning factory, the database, the running choice-point stack, the
// solutions collected so far, memory accounting, and diagnostics.
type ResolveState struct {
	Factory *term.Factory
	Tracer  *trace.Tracer

	resolver  *Resolver
	budget    int64
	cps       []*choicePoint
	cur       cursor
	started   bool
	done      bool
	uniq      uint64
	cutBar    map[uint64]int
	deepest   *FailureInfo
	iter      int64
	collected []*unify.Unifier

	// collectAll, when true, tells the run loop to keep accumulating
	// (resolve_all); when false only the first solution is kept and the
	// loop stops (used by standalone sub-resolution helpers that only
	// need one solution, e.g. first/1, and by find-first-plan style
	// callers).
	collectAll bool
	maxResults int // 0 = unlimited

	// tracingOn records that showTraces/N has switched detailed tracing
	// on during this state's run.
	tracingOn bool

	// goalIndexOf tracks, for diagnostics, which top-level conjunct (by
	// position in the original Goals slice) is currently being resolved.
	goalIndexOf map[*term.Term]int

	// lastContext holds the most recently resolved failureContext/N
	// arguments, attached to every failure recorded after them; it is
	// never cleared, only replaced by a later failureContext call (see
	// builtins.go).
	lastContext []*term.Term
}

func (st *ResolveState) nextUniq() uint64 {
	st.uniq++
	return st.uniq
}

func (st *ResolveState) recordFailure(goal *term.Term, depth int, ctx []*term.Term) {
	if st.deepest != nil && st.deepest.Depth > depth {
		return
	}
	if st.deepest != nil && st.deepest.Depth == depth && st.deepest.Context != nil {
		return
	}
	st.deepest = &FailureInfo{Goal: goal, Depth: depth, GoalIdx: st.goalIndexOf[goal], Context: ctx, Stack: st.cpGoals()}
}

// cpGoals snapshots the goal of every choice point currently on the
// stack, outermost first.
func (st *ResolveState) cpGoals() []*term.Term {
	out := make([]*term.Term, len(st.cps))
	for i, cp := range st.cps {
		out[i] = cp.goal
	}
	return out
}

// DeepestFailure returns the diagnostic information for the deepest
// failure observed by this state, or nil if none was recorded.
func (st *ResolveState) DeepestFailure() *FailureInfo { return st.deepest }

// Solutions returns the unifiers collected so far.
func (st *ResolveState) Solutions() []*unify.Unifier { return st.collected }
