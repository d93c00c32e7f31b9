// Command reason is the textual front end spec.md §6 describes: a
// read-eval-print loop over a single in-memory rule database, exposing
// both the resolver (ordinary conjunctions of goals) and the HTN planner
// (a goal wrapped as goals(...)) over stdin/stdout. Exit with "q".
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/reason/internal/trace"
	"github.com/gitrdm/reason/pkg/htn"
	"github.com/gitrdm/reason/pkg/reasonconfig"
	"github.com/gitrdm/reason/pkg/resolve"
	"github.com/gitrdm/reason/pkg/rules"
	"github.com/gitrdm/reason/pkg/term"
	"github.com/gitrdm/reason/pkg/unify"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reason",
		Short: "A read-eval-print loop over the resolver and HTN planner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := reasonconfig.Default()
			if configPath != "" {
				loaded, err := reasonconfig.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return runREPL(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a reasonconfig YAML file")
	return cmd
}

// session holds the one piece of mutable state a REPL line can change: the
// fact database. Its factory and tracer are fixed for the process lifetime.
type session struct {
	factory *term.Factory
	tracer  *trace.Tracer
	budget  int64
	db      *rules.RuleSet
}

func runREPL(ctx context.Context, cfg reasonconfig.Config, in io.Reader, w io.Writer) error {
	f := term.NewFactory()
	s := &session{
		factory: f,
		tracer:  cfg.NewTracer(),
		budget:  cfg.MemoryBudgetBytes,
		db:      rules.New(f),
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(w, "?- ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "q" || line == "quit" {
			return nil
		}
		if line != "" {
			s.evalLine(ctx, w, line)
		}
		fmt.Fprint(w, "?- ")
	}
	return scanner.Err()
}

// evalLine parses one line and dispatches it to the planner when it's a
// single goals(...) wrapper, or to the resolver otherwise, per spec.md §6.
// "listing." is a REPL-only convenience printing the live fact database.
func (s *session) evalLine(ctx context.Context, w io.Writer, line string) {
	if line == "listing." || line == "listing" {
		fmt.Fprint(w, s.db.ToStringFacts())
		return
	}

	goals, err := newParser(s.factory, line).parseGoals()
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	queryID := uuid.New().String()
	s.tracer.Emit(trace.CategoryResolver|trace.CategoryPlanner, "query", zap.String("id", queryID), zap.String("line", line))

	if len(goals) == 1 && goals[0].IsCompound() && goals[0].Functor() == "goals" {
		s.runPlanner(ctx, w, goals[0].Args())
		return
	}
	s.runResolver(ctx, w, goals)
}

func (s *session) runResolver(ctx context.Context, w io.Writer, goals []*term.Term) {
	r := resolve.New(s.factory, s.db, s.tracer)
	r.Budget = s.budget
	st := r.ResolveAllState(ctx, goals)
	solutions := st.Solutions()
	if len(solutions) == 0 {
		fmt.Fprintln(w, "false.")
		if st.DeepestFailure() != nil {
			for _, line := range strings.Split(resolve.DiagnosticString(st), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
		return
	}
	for _, u := range solutions {
		printBindings(w, s.factory, u, goals)
	}
}

func (s *session) runPlanner(ctx context.Context, w io.Writer, tasks []*term.Term) {
	p := htn.New(s.factory, s.tracer)
	p.Budget = s.budget
	for _, issue := range p.Check() {
		fmt.Fprintf(w, "warning: %s\n", issue)
	}
	sols := p.FindAllPlans(ctx, s.db, tasks)
	if len(sols) == 0 {
		fmt.Fprintln(w, "false.")
		return
	}
	for _, sol := range sols {
		ops := make([]string, len(sol.Operators))
		for i, o := range sol.Operators {
			ops[i] = o.String()
		}
		fmt.Fprintf(w, "[%s]\n", strings.Join(ops, ", "))
	}
}

func printBindings(w io.Writer, f *term.Factory, u *unify.Unifier, goals []*term.Term) {
	parts := make([]string, len(goals))
	for i, g := range goals {
		parts[i] = u.Resolve(f, g).String()
	}
	fmt.Fprintf(w, "%s.\n", strings.Join(parts, ", "))
}
