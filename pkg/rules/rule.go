// Package rules implements the Horn-clause database described in
// spec.md §4.2: a shared, locked base of compile-time rules plus a
// per-instance fact diff recording runtime assert/retract activity, so
// that cloning a RuleSet for a new plan branch is cheap and branches
// diverge independently.
package rules

import (
	"fmt"
	"strings"

	"github.com/gitrdm/reason/pkg/term"
)

// Rule is an immutable (head, tail) pair. A Rule with an empty Tail is a
// fact.
type Rule struct {
	Head *term.Term
	Tail []*term.Term
}

// IsFact reports whether r has no body goals.
func (r Rule) IsFact() bool { return len(r.Tail) == 0 }

// String renders r the way a clause prints in diagnostics:
// "head :- g1, g2." for a rule, or "head." for a fact.
func (r Rule) String() string {
	if r.IsFact() {
		return r.Head.String() + "."
	}
	var parts []string
	for _, g := range r.Tail {
		parts = append(parts, g.String())
	}
	return fmt.Sprintf("%s :- %s.", r.Head.String(), strings.Join(parts, ", "))
}

// key is the rule's identity for uniqueness checking: for a fact this is
// the head's interned ID (ground terms with the same content are the
// same interned Term, so this is exactly the spec's "structural/textual
// form" identity without needing to format any text). Non-fact rules
// never participate in the runtime fact diff, so their key is only used
// by HasEquivalentRule style scans, where it doesn't need to be stable
// across factories.
func (r Rule) key() int64 {
	return r.Head.ID()
}

// equivalentKey identifies a rule's head shape (functor + arity),
// ignoring arguments, as used by RuleSet.HasEquivalentRule.
func equivalentKey(head *term.Term) string {
	return fmt.Sprintf("%s/%d", head.Functor(), head.Arity())
}
