// Package reasonconfig loads the host-level knobs spec.md §6 names under
// "Environment / flags": the trace filter bitmask/detail level and the
// fail-fast mode switch, plus the memory budget pkg/resolve and pkg/htn
// both accept per call. The file is YAML, read with gopkg.in/yaml.v3.
package reasonconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/reason/internal/trace"
)

// Config is the complete set of host-tunable defaults for one reasoning
// session.
type Config struct {
	// MemoryBudgetBytes is the default per-call budget pkg/resolve.Resolver
	// and pkg/htn.Planner are configured with; 0 means unlimited.
	MemoryBudgetBytes int64 `yaml:"memory_budget_bytes"`

	// TraceCategories lists which internal/trace.Category names are
	// enabled ("resolver", "unify", "planner", "builtins", "ruleset").
	TraceCategories []string `yaml:"trace_categories"`
	// TraceDetail is one of "off", "summary", "verbose".
	TraceDetail string `yaml:"trace_detail"`

	// FailFast selects internal/trace.ModeProduction (log + os.Exit(1) on
	// a contract violation) when true, or ModeTest (panic propagates) when
	// false.
	FailFast bool `yaml:"fail_fast"`
}

// Default returns the configuration a host gets with no file at all: no
// budget, tracing off, test-mode contract violations.
func Default() Config {
	return Config{TraceDetail: "off"}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reasonconfig: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("reasonconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

var categoryByName = map[string]trace.Category{
	"resolver": trace.CategoryResolver,
	"unify":    trace.CategoryUnify,
	"planner":  trace.CategoryPlanner,
	"builtins": trace.CategoryBuiltins,
	"ruleset":  trace.CategoryRuleSet,
}

var detailByName = map[string]trace.Detail{
	"off":     trace.DetailOff,
	"summary": trace.DetailSummary,
	"verbose": trace.DetailVerbose,
}

// Filter resolves TraceCategories into the bitmask internal/trace expects,
// ignoring any name it doesn't recognize.
func (c Config) Filter() trace.Category {
	var mask trace.Category
	for _, name := range c.TraceCategories {
		mask |= categoryByName[name]
	}
	return mask
}

// Detail resolves TraceDetail, defaulting to DetailOff for an empty or
// unrecognized value.
func (c Config) Detail() trace.Detail {
	return detailByName[c.TraceDetail]
}

// Mode resolves FailFast into the internal/trace.Mode a Tracer is built
// with.
func (c Config) Mode() trace.Mode {
	if c.FailFast {
		return trace.ModeProduction
	}
	return trace.ModeTest
}

// NewTracer builds the *trace.Tracer this configuration describes: a
// production zap logger in fail-fast mode, a development one otherwise.
func (c Config) NewTracer() *trace.Tracer {
	var t *trace.Tracer
	if c.FailFast {
		t = trace.NewProduction()
	} else {
		t = trace.NewDevelopment()
	}
	t.SetFilter(c.Filter())
	t.SetDetail(c.Detail())
	return t
}
