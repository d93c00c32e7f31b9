package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitrdm/reason/internal/trace"
	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
	"github.com/gitrdm/reason/pkg/unify"
)

// builtinHandler implements one built-in predicate. args are the raw
// (unwalked) goal arguments; rest is the resolvent tail that follows the
// goal. On success the handler must set st.cur itself (typically via
// st.succeed) and return true. On failure it must leave st.cur untouched
// and return false; the caller backtracks.
type builtinHandler func(ctx context.Context, st *ResolveState, args []*term.Term, rest []*term.Term) bool

var builtinRegistry map[string]builtinHandler

func init() {
	builtinRegistry = map[string]builtinHandler{
		"true/0":  func(_ context.Context, st *ResolveState, _, rest []*term.Term) bool { return st.succeed(rest, st.cur.u) },
		"false/0": func(_ context.Context, st *ResolveState, _, _ []*term.Term) bool { return false },
		"fail/0":  func(_ context.Context, st *ResolveState, _, _ []*term.Term) bool { return false },

		"=/2":    biUnify,
		"==/2":   biEqual,
		"\\==/2": biNotEqual,
		"is/2":   biIs,
		">/2":    makeCompareHandler(">"),
		">=/2":   makeCompareHandler(">="),
		"</2":    makeCompareHandler("<"),
		"=</2":   makeCompareHandler("=<"),

		"write/1":   biWrite(false),
		"writeln/1": biWrite(true),
		"print/1":   biWrite(false),
		"nl/0": func(_ context.Context, st *ResolveState, _, rest []*term.Term) bool {
			if st.resolver != nil && st.resolver.Out != nil {
				fmt.Fprintln(st.resolver.Out)
			}
			return st.succeed(rest, st.cur.u)
		},

		"atomic/1":        biAtomic,
		"downcase_atom/2": biDowncaseAtom,
		"atom_chars/2":    biAtomChars,
		"atom_concat/3":   biAtomConcat,

		"failureContext/1": biFailureContext,
		"failureContext/2": biFailureContext,
		"failureContext/3": biFailureContext,
		"showTraces/1":     biShowTraces,
		"showTraces/2":     biShowTraces,

		"assert/1":     biAssert,
		"retract/1":    biRetract,
		"retractall/1": biRetractAll,

		"not/1":      biNot,
		"forall/2":   biForall,
		"findall/3":  biFindall,
		"first/1":    biFirst,
		"distinct/1": biDistinct,
		"sortBy/2":   biSortBy,
		"count/2":    biCount,
		"min/3":      biReduce("min"),
		"max/3":      biReduce("max"),
		"sum/3":      biReduce("sum"),
	}
}

func (st *ResolveState) succeed(rest []*term.Term, u *unify.Unifier) bool {
	st.cur = cursor{goals: rest, u: u, db: st.cur.db}
	return true
}

func biUnify(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	nu, ok := unify.UnifyUnder(st.cur.u, args[0], args[1])
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

func biEqual(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	a := st.cur.u.Resolve(st.Factory, args[0])
	b := st.cur.u.Resolve(st.Factory, args[1])
	if a != b {
		return false
	}
	return st.succeed(rest, st.cur.u)
}

func biNotEqual(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	a := st.cur.u.Resolve(st.Factory, args[0])
	b := st.cur.u.Resolve(st.Factory, args[1])
	if a == b {
		return false
	}
	return st.succeed(rest, st.cur.u)
}

func biIs(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	rhs := st.cur.u.Resolve(st.Factory, args[1])
	v, ok := st.Factory.Eval(rhs)
	if !ok {
		return false
	}
	nu, ok := unify.UnifyUnder(st.cur.u, args[0], v)
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

// makeCompareHandler builds the handler for a binary arithmetic
// comparator (">"/">="/"<"/"=<"), evaluated via term.Factory.Eval over
// the already-resolved operands.
func makeCompareHandler(op string) builtinHandler {
	return func(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
		lhs := st.cur.u.Resolve(st.Factory, args[0])
		rhs := st.cur.u.Resolve(st.Factory, args[1])
		expr := st.Factory.CreateFunctor(op, []*term.Term{lhs, rhs})
		v, ok := st.Factory.Eval(expr)
		if !ok || v != st.Factory.True() {
			return false
		}
		return st.succeed(rest, st.cur.u)
	}
}

func biWrite(newline bool) builtinHandler {
	return func(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
		t := st.cur.u.Resolve(st.Factory, args[0])
		if st.resolver != nil && st.resolver.Out != nil {
			if newline {
				fmt.Fprintln(st.resolver.Out, t.String())
			} else {
				fmt.Fprint(st.resolver.Out, t.String())
			}
		}
		return st.succeed(rest, st.cur.u)
	}
}

func biAtomic(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	t := st.cur.u.Resolve(st.Factory, args[0])
	if !t.IsConstant() {
		return false
	}
	return st.succeed(rest, st.cur.u)
}

func biDowncaseAtom(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	t := st.cur.u.Resolve(st.Factory, args[0])
	if !t.IsAtom() {
		return false
	}
	lower := st.Factory.CreateConstant(strings.ToLower(t.Name()))
	nu, ok := unify.UnifyUnder(st.cur.u, args[1], lower)
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

func biAtomChars(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	a := st.cur.u.Resolve(st.Factory, args[0])
	if a.IsAtom() {
		chars := make([]*term.Term, 0, len(a.Name()))
		for _, r := range a.Name() {
			chars = append(chars, st.Factory.CreateConstant(string(r)))
		}
		nu, ok := unify.UnifyUnder(st.cur.u, args[1], st.Factory.CreateList(chars))
		if !ok {
			return false
		}
		return st.succeed(rest, nu)
	}
	list := st.cur.u.Resolve(st.Factory, args[1])
	elems, ok := list.ListElements()
	if !ok {
		return false
	}
	var b strings.Builder
	for _, e := range elems {
		if !e.IsAtom() {
			return false
		}
		b.WriteString(e.Name())
	}
	nu, ok := unify.UnifyUnder(st.cur.u, args[0], st.Factory.CreateConstant(b.String()))
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

func biAtomConcat(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	a := st.cur.u.Resolve(st.Factory, args[0])
	b := st.cur.u.Resolve(st.Factory, args[1])
	if !a.IsAtom() || !b.IsAtom() {
		return false
	}
	joined := st.Factory.CreateConstant(a.Name() + b.Name())
	nu, ok := unify.UnifyUnder(st.cur.u, args[2], joined)
	if !ok {
		return false
	}
	return st.succeed(rest, nu)
}

// biFailureContext always succeeds, stashing its resolved arguments as
// the context attached to every failure this state records from then on,
// until a later failureContext call replaces it -- a simplified stand-in
// for the source's call-site diagnostic stack; see DESIGN.md.
func biFailureContext(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	ctx := make([]*term.Term, len(args))
	for i, a := range args {
		ctx[i] = st.cur.u.Resolve(st.Factory, a)
	}
	st.lastContext = ctx
	return st.succeed(rest, st.cur.u)
}

// biShowTraces sets the shared Tracer's detail to verbose and then
// resolves its argument goals in place, ahead of the rest of the
// resolvent. The detail level is not restored when the argument goals
// finish: it stays verbose for the remainder of this resolve call.
func biShowTraces(_ context.Context, st *ResolveState, args []*term.Term, rest []*term.Term) bool {
	st.tracingOn = true
	if st.Tracer != nil {
		st.Tracer.SetDetail(trace.DetailVerbose)
	}
	return st.succeed(joinGoals(args, rest), st.cur.u)
}

func biAssert(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	fact := st.cur.u.Resolve(st.Factory, args[0])
	st.cur.db.Update(nil, []*term.Term{fact})
	return st.succeed(rest, st.cur.u)
}

func biRetract(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	fact := st.cur.u.Resolve(st.Factory, args[0])
	if !st.cur.db.Update([]*term.Term{fact}, nil) {
		return false
	}
	return st.succeed(rest, st.cur.u)
}

func biRetractAll(_ context.Context, st *ResolveState, args, rest []*term.Term) bool {
	pattern := st.cur.u.Resolve(st.Factory, args[0])
	var toRemove []*term.Term
	st.cur.db.AllRulesThatCouldUnify(pattern, func(r rules.Rule) bool {
		if !r.IsFact() {
			return true
		}
		if _, ok := unify.Unify(pattern, r.Head); ok {
			toRemove = append(toRemove, r.Head)
		}
		return true
	})
	for _, t := range toRemove {
		st.cur.db.Update([]*term.Term{t}, nil)
	}
	return st.succeed(rest, st.cur.u)
}
