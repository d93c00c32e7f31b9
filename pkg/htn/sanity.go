package htn

import (
	"strings"

	"github.com/gitrdm/reason/pkg/term"
)

// Issue is one finding from the pre-planning sanity pass.
type Issue struct {
	Kind    string // "Task Not Found" or "Task Loop"
	Message string
}

func (i Issue) String() string { return i.Kind + ": " + i.Message }

// Check walks every method's task list, flagging task names/arities that
// resolve to no method, operator, or declare(name, arity) fact as
// "Task Not Found", and any cycle in the method call graph as
// "Task Loop: a/1...b/1...LOOP -> a/1" (spec.md §4.5's pre-planning
// sanity pass, normally owned by an external compiler but implemented
// here directly against the planner's own domain).
func (p *Planner) Check() []Issue {
	resolvable := make(map[string]bool)
	for _, op := range p.Operators {
		resolvable[taskKey(op.Head.Functor(), op.Head.Arity())] = true
	}
	graph := make(map[string]map[string]bool)
	for _, m := range p.Methods {
		head := taskKey(m.Head.Functor(), m.Head.Arity())
		resolvable[head] = true
		if graph[head] == nil {
			graph[head] = make(map[string]bool)
		}
		for _, t := range taskListCallees(m.TaskList) {
			graph[head][t] = true
		}
	}
	for key := range p.Declared {
		resolvable[key] = true
	}

	var issues []Issue
	seenMissing := make(map[string]bool)
	for _, targets := range graph {
		for callee := range targets {
			if !resolvable[callee] && !seenMissing[callee] {
				seenMissing[callee] = true
				issues = append(issues, Issue{Kind: "Task Not Found", Message: callee})
			}
		}
	}

	visited := make(map[string]int) // 0 = unvisited, 1 = on stack, 2 = done
	var path []string
	var visit func(node string)
	visit = func(node string) {
		visited[node] = 1
		path = append(path, node)
		for callee := range graph[node] {
			switch visited[callee] {
			case 1:
				cycle := path[indexOf(path, callee):]
				issues = append(issues, Issue{
					Kind:    "Task Loop",
					Message: strings.Join(cycle, "...") + "...LOOP -> " + callee,
				})
			case 0:
				visit(callee)
			}
		}
		path = path[:len(path)-1]
		visited[node] = 2
	}
	for node := range graph {
		if visited[node] == 0 {
			visit(node)
		}
	}
	return issues
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}

// taskListCallees flattens a method's task list into the task keys it
// references, descending into try(...) wrappers (which are not
// themselves callable task names) to their inner tasks.
func taskListCallees(tasks []*term.Term) []string {
	var out []string
	for _, t := range tasks {
		if t.IsCompound() && t.Functor() == "try" {
			out = append(out, taskListCallees(t.Args())...)
			continue
		}
		out = append(out, taskKey(t.Functor(), t.Arity()))
	}
	return out
}
