package resolve

import (
	"fmt"
	"strings"
)

// String renders a FailureInfo the way cmd/reason and the test suite
// surface a failed query: the goal that failed deepest, how many choice
// points were live when it did, and any failureContext/N arguments in
// effect at that point (spec.md §4.4 "deepest failure diagnostics").
func (fi *FailureInfo) String() string {
	if fi == nil {
		return "no failure recorded"
	}
	s := fmt.Sprintf("goal %s failed at depth %d (original goal #%d)", fi.Goal, fi.Depth, fi.GoalIdx)
	if len(fi.Context) > 0 {
		s += fmt.Sprintf(" context=%v", fi.Context)
	}
	return s
}

// DiagnosticString renders a full human-readable dump of a finished
// resolve call: the deepest failure (as FailureInfo.String reports it)
// followed by the search-stack snapshot taken at the moment that failure
// was recorded, outermost first. It mirrors
// HtnGoalResolver::GetSolutionsToString's combination of the failed goal
// with its surrounding call-stack context (SPEC_FULL.md §9).
func DiagnosticString(st *ResolveState) string {
	if st == nil || st.deepest == nil {
		return "no failure recorded"
	}
	var b strings.Builder
	b.WriteString(st.deepest.String())
	if len(st.deepest.Stack) == 0 {
		return b.String()
	}
	b.WriteString("\nstack at failure (outermost first):")
	for i, g := range st.deepest.Stack {
		fmt.Fprintf(&b, "\n  #%d: %s", i+1, g)
	}
	return b.String()
}
