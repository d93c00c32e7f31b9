package rules

import (
	"github.com/gitrdm/reason/pkg/reasonerr"
	"github.com/gitrdm/reason/pkg/term"
)

// base is the shared, append-only portion of a RuleSet family: every
// rule added at "compile time" via AddRule. It locks (refusing further
// AddRule calls) the instant any RuleSet clones it via CreateCopy, so
// that cloned branches can safely assume base never changes under them
// (spec.md §4.2 "Once a copy of a RuleSet has been made, its base
// becomes locked").
type base struct {
	rules  []Rule
	locked bool
	// factIndex maps a fact's key (its ground head's interned ID) to
	// true, for O(1) HasFact lookups against the base without a linear
	// scan; built lazily and invalidated (rebuilt) whenever AddRule
	// appends before the base locks.
	factIndex map[int64]bool
}

func (b *base) rebuildIndex() {
	b.factIndex = make(map[int64]bool, len(b.rules))
	for _, r := range b.rules {
		if r.IsFact() {
			b.factIndex[r.key()] = true
		}
	}
}

// RuleSet is a Horn-clause database: a shared, locked base plus a
// per-instance fact diff. See package doc and spec.md §3/§4.2.
type RuleSet struct {
	factory *term.Factory
	base    *base

	// touched marks every fact key ever affected by a runtime Update on
	// this instance's lineage, so AllRules knows to skip that key at its
	// original base position (it will be re-emitted via addOrder if it
	// is currently active).
	touched map[int64]bool
	// added holds the currently-active runtime-added facts (both
	// genuinely new facts and base facts that were retracted and then
	// re-asserted), keyed by fact key.
	added map[int64]Rule
	// addOrder is the insertion order of added's keys; re-adding a key
	// (after a retract) moves it to the end, which is how a re-added
	// fact "shows up at its later diff position" per spec.md §3.
	addOrder []int64
}

// New creates an empty RuleSet with its own unlocked base.
func New(factory *term.Factory) *RuleSet {
	return &RuleSet{
		factory: factory,
		base:    &base{},
		touched: make(map[int64]bool),
		added:   make(map[int64]Rule),
	}
}

// AddRule appends a compile-time rule to the shared base. It panics with
// a *reasonerr.ContractViolation if the base has already been locked by
// a prior CreateCopy (spec.md §4.2).
func (rs *RuleSet) AddRule(head *term.Term, tail []*term.Term) {
	if rs.base.locked {
		reasonerr.Raise(reasonerr.KindBaseLocked, "AddRule(%s) after a copy was made: base is locked", head)
	}
	rs.base.rules = append(rs.base.rules, Rule{Head: head, Tail: append([]*term.Term(nil), tail...)})
	rs.base.factIndex = nil
}

// isActive reports whether the fact identified by key currently exists
// in this RuleSet: either as a live runtime addition, or (if untouched)
// as a base fact.
func (rs *RuleSet) isActive(key int64) bool {
	if _, ok := rs.added[key]; ok {
		return true
	}
	if rs.touched[key] {
		return false
	}
	return rs.baseHasFact(key)
}

func (rs *RuleSet) baseHasFact(key int64) bool {
	if rs.base.factIndex == nil {
		rs.base.rebuildIndex()
	}
	return rs.base.factIndex[key]
}

// Update edits the fact diff only: facts in remove are retracted, facts
// in add are asserted, per spec.md §4.2. Both slices must contain only
// ground terms (as fact *heads*, i.e. plain terms representing a fact,
// not Rule values). Update panics (fatal contract violation) if any term
// is non-ground, or if an addition names a fact that is already active
// (duplicate assert is a programming error). A removal naming a fact
// that is not currently active returns false (normal goal failure, not a
// panic) and performs no further edits from that point in the call.
func (rs *RuleSet) Update(remove, add []*term.Term) bool {
	for _, t := range remove {
		if !t.IsGround() {
			reasonerr.Raise(reasonerr.KindNonGroundRetract, "retract of non-ground term %s", t)
		}
	}
	for _, t := range add {
		if !t.IsGround() {
			reasonerr.Raise(reasonerr.KindNonGroundAssert, "assert of non-ground term %s", t)
		}
	}

	for _, t := range remove {
		key := t.ID()
		if !rs.isActive(key) {
			return false
		}
		rs.touched[key] = true
		if _, ok := rs.added[key]; ok {
			delete(rs.added, key)
			rs.removeFromOrder(key)
		}
	}

	for _, t := range add {
		key := t.ID()
		if rs.isActive(key) {
			reasonerr.Raise(reasonerr.KindDuplicateFact, "assert of already-active fact %s", t)
		}
		rs.touched[key] = true
		rs.added[key] = Rule{Head: t}
		rs.addOrder = append(rs.addOrder, key)
	}
	return true
}

func (rs *RuleSet) removeFromOrder(key int64) {
	for i, k := range rs.addOrder {
		if k == key {
			rs.addOrder = append(rs.addOrder[:i], rs.addOrder[i+1:]...)
			return
		}
	}
}

// CreateCopy returns a structural clone sharing the same base (which
// becomes locked against further AddRule calls, on every RuleSet sharing
// it -- including rs itself) and duplicating the fact diff, so the copy
// can diverge independently (spec.md §4.2).
func (rs *RuleSet) CreateCopy() *RuleSet {
	rs.base.locked = true

	touched := make(map[int64]bool, len(rs.touched))
	for k, v := range rs.touched {
		touched[k] = v
	}
	added := make(map[int64]Rule, len(rs.added))
	for k, v := range rs.added {
		added[k] = v
	}
	addOrder := append([]int64(nil), rs.addOrder...)

	return &RuleSet{
		factory:  rs.factory,
		base:     rs.base,
		touched:  touched,
		added:    added,
		addOrder: addOrder,
	}
}

// CreateNextState is CreateCopy followed by Update, the convenience
// operators and methods use to apply an add/delete list atomically
// (spec.md §4.2).
func (rs *RuleSet) CreateNextState(remove, add []*term.Term) (*RuleSet, bool) {
	next := rs.CreateCopy()
	ok := next.Update(remove, add)
	return next, ok
}

// HasFact reports whether t (a ground term naming a fact) is currently
// active.
func (rs *RuleSet) HasFact(t *term.Term) bool {
	if !t.IsGround() {
		return false
	}
	return rs.isActive(t.ID())
}

// HasEquivalentRule reports whether some currently-visible rule has a
// head with the same functor name and arity as head, ignoring arguments.
func (rs *RuleSet) HasEquivalentRule(head *term.Term) bool {
	target := equivalentKey(head)
	found := false
	rs.AllRules(func(r Rule) bool {
		if equivalentKey(r.Head) == target {
			found = true
			return false
		}
		return true
	})
	return found
}

// AllRules visits every currently-visible rule in document order
// followed by runtime additions in assertion order, skipping rules whose
// fact key has been deleted, per spec.md §4.2's ordering guarantee. The
// visitor returns false to stop early.
func (rs *RuleSet) AllRules(visit func(Rule) bool) {
	for _, r := range rs.base.rules {
		if r.IsFact() && rs.touched[r.key()] {
			continue
		}
		if !visit(r) {
			return
		}
	}
	for _, key := range rs.addOrder {
		if !visit(rs.added[key]) {
			return
		}
	}
}

// AllRulesThatCouldUnify visits every currently-visible rule whose head
// passes a cheap, index-free shape pre-filter against target: it is not
// full unification, only a quick rejection of heads that plainly cannot
// unify (mismatched functor/arity, a constant clashing with a different
// constant or with a compound, spec.md §4.2).
func (rs *RuleSet) AllRulesThatCouldUnify(target *term.Term, visit func(Rule) bool) {
	rs.AllRules(func(r Rule) bool {
		if couldUnify(target, r.Head) {
			return visit(r)
		}
		return true
	})
}

func couldUnify(a, b *term.Term) bool {
	if a.IsVariable() || b.IsVariable() {
		return true
	}
	if a.IsConstant() && b.IsConstant() {
		return a == b
	}
	if a.IsCompound() != b.IsCompound() {
		return false
	}
	if a.Functor() != b.Functor() || a.Arity() != b.Arity() {
		return false
	}
	aa, ba := a.Args(), b.Args()
	for i := range aa {
		if !couldUnify(aa[i], ba[i]) {
			return false
		}
	}
	return true
}

// ClearAll drops every base rule and every diff entry, returning the
// RuleSet to empty. It panics if the base is locked (clearing a shared
// base out from under sibling clones would violate their invariants).
func (rs *RuleSet) ClearAll() {
	if rs.base.locked {
		reasonerr.Raise(reasonerr.KindBaseLocked, "ClearAll on a locked base")
	}
	rs.base.rules = nil
	rs.base.factIndex = nil
	rs.touched = make(map[int64]bool)
	rs.added = make(map[int64]Rule)
	rs.addOrder = nil
}

// LockRules explicitly locks the base without cloning, for a host that
// wants to freeze compile-time rules before ever calling CreateCopy.
func (rs *RuleSet) LockRules() { rs.base.locked = true }

// ToStringFacts renders every currently-visible fact (IsFact() rules
// only), one per line, in AllRules order -- used by diagnostics and the
// cmd/reason REPL to show the live world state.
func (rs *RuleSet) ToStringFacts() string {
	var out []byte
	rs.AllRules(func(r Rule) bool {
		if !r.IsFact() {
			return true
		}
		out = append(out, r.String()...)
		out = append(out, '\n')
		return true
	})
	return string(out)
}

// DynamicSize estimates this RuleSet's own bookkeeping footprint (not
// counting the shared base, which is charged once by whoever owns it),
// for the resolver/planner memory-budget accounting loop.
func (rs *RuleSet) DynamicSize() int64 {
	return int64(len(rs.touched))*16 + int64(len(rs.added))*32 + int64(len(rs.addOrder))*8
}
