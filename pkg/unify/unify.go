// Package unify implements first-order unification with occurs-check
// over the term model in pkg/term, and the ordered-binding substitution
// ("Unifier") that unification produces (spec.md §4.3).
package unify

import "github.com/gitrdm/reason/pkg/term"

// Binding is a single (Variable, Term) pair in a Unifier.
type Binding struct {
	Var  *term.Term
	Term *term.Term
}

// Unifier is an ordered sequence of bindings interpreted as a
// substitution applied left-to-right, exactly as spec.md §3 describes.
// Duplicate left-hand sides may occur transiently during composition;
// Walk below always returns the result of following the *first* matching
// binding whose chain terminates, matching the document's "interpreted
// left-to-right" rule when multiple bindings share an LHS due to
// composition.
type Unifier struct {
	bindings []Binding
}

// Empty returns a fresh, empty Unifier.
func Empty() *Unifier { return &Unifier{} }

// Len returns the number of bindings.
func (u *Unifier) Len() int { return len(u.bindings) }

// Bindings returns the ordered bindings. Callers must not mutate the
// returned slice.
func (u *Unifier) Bindings() []Binding { return u.bindings }

// clone returns a Unifier with the same bindings, safe to append to
// without aliasing the receiver's backing array.
func (u *Unifier) clone() *Unifier {
	cp := make([]Binding, len(u.bindings))
	copy(cp, u.bindings)
	return &Unifier{bindings: cp}
}

// extend returns a new Unifier with (v, t) appended.
func (u *Unifier) extend(v, t *term.Term) *Unifier {
	nu := u.clone()
	nu.bindings = append(nu.bindings, Binding{Var: v, Term: t})
	return nu
}

// Walk follows t through u's bindings (left to right, first match wins)
// until it reaches an unbound variable or a non-variable term.
func (u *Unifier) Walk(t *term.Term) *term.Term {
	for t.IsVariable() {
		bound := u.lookup(t)
		if bound == nil {
			return t
		}
		t = bound
	}
	return t
}

func (u *Unifier) lookup(v *term.Term) *term.Term {
	for _, b := range u.bindings {
		if b.Var == v {
			return b.Term
		}
	}
	return nil
}

// Resolve walks t fully, substituting every bound variable found anywhere
// in its structure (not just at the root) through u, rebuilding compounds
// via f so the result stays interned.
func (u *Unifier) Resolve(f *term.Factory, t *term.Term) *term.Term {
	t = u.Walk(t)
	if !t.IsCompound() {
		return t
	}
	args := t.Args()
	newArgs := make([]*term.Term, len(args))
	changed := false
	for i, a := range args {
		na := u.Resolve(f, a)
		newArgs[i] = na
		if na != a {
			changed = true
		}
	}
	if !changed {
		return t
	}
	return f.CreateFunctor(t.Functor(), newArgs)
}

type pair struct{ a, b *term.Term }

// Unify attempts to unify t1 and t2 under the empty substitution, using
// an explicit work-stack so the pairwise matching of deep terms does not
// recurse through the host call stack (spec.md §4.3 "no host recursion");
// the occurs check below does walk the bound term recursively. It
// returns (nil, false) on failure.
func Unify(t1, t2 *term.Term) (*Unifier, bool) {
	return UnifyUnder(Empty(), t1, t2)
}

// UnifyUnder unifies t1 and t2 under an already-accumulated unifier u,
// returning an extended Unifier on success.
func UnifyUnder(u *Unifier, t1, t2 *term.Term) (*Unifier, bool) {
	stack := []pair{{t1, t2}}
	result := u

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		a := result.Walk(p.a)
		b := result.Walk(p.b)

		switch {
		case a == b:
			// Identical interned constants or variables unify trivially.
			continue

		case a.IsVariable():
			if !occursCheck(result, a, b) {
				return nil, false
			}
			result = result.extend(a, b)

		case b.IsVariable():
			if !occursCheck(result, b, a) {
				return nil, false
			}
			result = result.extend(b, a)

		case a.IsCompound() && b.IsCompound():
			if a.Functor() != b.Functor() || a.Arity() != b.Arity() {
				return nil, false
			}
			aa, ba := a.Args(), b.Args()
			for i := len(aa) - 1; i >= 0; i-- {
				stack = append(stack, pair{aa[i], ba[i]})
			}

		default:
			return nil, false
		}
	}
	return result, true
}

// occursCheck reports whether variable v does NOT occur anywhere inside
// t (after walking t's own subterms through u); unification must fail if
// it does, per spec.md §4.3 "Occurs check is always on".
func occursCheck(u *Unifier, v, t *term.Term) bool {
	t = u.Walk(t)
	if t == v {
		return false
	}
	if !t.IsCompound() {
		return true
	}
	for _, a := range t.Args() {
		if !occursCheck(u, v, a) {
			return false
		}
	}
	return true
}

// SubstituteUnifiers rewrites every binding's right-hand side in dest by
// applying source, then appends those rewritten bindings after source's
// own, producing the unifier that replays "compose a freshly obtained
// unifier onto the current node's accumulated unifier" (spec.md §4.3).
func SubstituteUnifiers(f *term.Factory, source, dest *Unifier) *Unifier {
	result := source.clone()
	for _, b := range dest.bindings {
		result.bindings = append(result.bindings, Binding{
			Var:  b.Var,
			Term: source.Resolve(f, b.Term),
		})
	}
	return result
}
