package htn

import "github.com/gitrdm/reason/pkg/term"

// MethodType selects how a method's condition solutions are expanded
// into plan-node alternatives (spec.md §4.5 "Expand according to method
// type"). Try is deliberately not a member: it is a task-level wrapper
// recognized by its functor name, not a method property.
type MethodType int

const (
	// Normal tries each condition solution as an independent alternative,
	// in the order the resolver produced them.
	Normal MethodType = iota
	// AnyOf is expanded exactly like Normal: each condition solution is
	// tried as a separate alternative branch. FindPlan keeps the first
	// branch that plans; FindAllPlans returns one plan per succeeding
	// branch. The succeeding branches are not merged into one plan (see
	// DESIGN.md for how this differs from AllOf).
	AnyOf
	// AllOf requires every condition solution's task list to plan
	// successfully; their operator sequences are concatenated into one
	// combined alternative, or the whole method fails.
	AllOf
	// Else methods are tried only when the head of no non-else,
	// non-default method and no default method unifies with the task.
	// The choice is made on head unification alone: a regular method
	// whose head matches but whose condition fails still keeps the else
	// methods from being tried.
	Else
)

func (mt MethodType) String() string {
	switch mt {
	case Normal:
		return "normal"
	case AnyOf:
		return "any_of"
	case AllOf:
		return "all_of"
	case Else:
		return "else"
	default:
		return "unknown"
	}
}

// Operator is a primitive, directly-executable task: unifying its head
// against a task substitutes that unifier into AddList/DeleteList and
// applies them to a freshly cloned RuleSet via CreateNextState
// (spec.md §4.5).
type Operator struct {
	Head      *term.Term
	AddList   []*term.Term
	DeleteList []*term.Term
	// Hidden operators still execute and mutate state but are omitted
	// from the emitted plan's operator sequence.
	Hidden bool
}

// Method decomposes a compound task into a sub-task list, gated by a
// condition evaluated as a resolver query (spec.md §4.5).
type Method struct {
	Head      *term.Term
	Condition []*term.Term
	TaskList  []*term.Term
	Type      MethodType
	// IsDefault marks a method that is tried only when the head of no
	// regular (non-else, non-default) method unifies with the task. As
	// with Else, a matching regular method whose condition fails still
	// keeps the default methods from being tried.
	IsDefault bool
	// Hidden is stored on the method but not read by the planner or its
	// diagnostics; a hidden method is expanded and reported like any
	// other, and its sub-tasks are planned normally.
	Hidden bool
}
