// Package trace provides the structured diagnostic sink shared by the
// resolver and planner: a bitmask-over-categories × detail-level trace
// filter (spec.md §6 "Environment / flags") and the fail-fast mode switch
// that decides whether a contract violation panics into the test runner
// or terminates the process. Unlike the source's process-wide globals,
// both are scoped to an explicit *Tracer instance per spec.md's Design
// Notes ("Global mutable state" -- never reintroduce true globals).
package trace

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category is one bit of the trace filter bitmask.
type Category uint32

const (
	CategoryResolver Category = 1 << iota
	CategoryUnify
	CategoryPlanner
	CategoryBuiltins
	CategoryRuleSet
)

// Detail is the verbosity level gating a Category's emission.
type Detail int

const (
	DetailOff Detail = iota
	DetailSummary
	DetailVerbose
)

// Mode controls how a *ContractViolation panic is handled once caught at
// a call boundary.
type Mode int

const (
	// ModeTest lets the panic propagate, so `go test` reports it.
	ModeTest Mode = iota
	// ModeProduction recovers the panic, logs it, and calls os.Exit(1).
	ModeProduction
)

// Tracer is an instance-scoped logging and fail-fast policy object. A
// host creates one per logical computation (or shares one across many,
// since it holds no mutable per-call state beyond the filter/mode
// fields, which a host may still change between calls).
type Tracer struct {
	logger *zap.Logger
	filter Category
	detail Detail
	mode   Mode
}

// New builds a Tracer around a *zap.Logger. Pass zap.NewNop() for a
// silent tracer (the default for library use when a host hasn't opted
// into diagnostics).
func New(logger *zap.Logger, mode Mode) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{logger: logger, mode: mode}
}

// NewProduction builds a Tracer with a JSON production zap logger at
// info level and ModeProduction fail-fast behavior.
func NewProduction() *Tracer {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return New(logger, ModeProduction)
}

// NewDevelopment builds a Tracer with a human-readable development zap
// logger and ModeTest fail-fast behavior, the shape reasonconfig.NewTracer
// (and through it cmd/reason) uses for development runs.
func NewDevelopment() *Tracer {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return New(logger, ModeTest)
}

// SetFilter sets which categories are enabled.
func (t *Tracer) SetFilter(c Category) { t.filter = c }

// SetDetail sets the verbosity level.
func (t *Tracer) SetDetail(d Detail) { t.detail = d }

// Enabled reports whether category c should emit at the tracer's current
// detail level.
func (t *Tracer) Enabled(c Category) bool {
	return t.detail != DetailOff && t.filter&c != 0
}

// Emit logs msg under category c if enabled, at DetailVerbose it
// includes fields, at DetailSummary it logs only msg.
func (t *Tracer) Emit(c Category, msg string, fields ...zap.Field) {
	if !t.Enabled(c) {
		return
	}
	if t.detail == DetailVerbose {
		t.logger.Info(msg, fields...)
	} else {
		t.logger.Info(msg)
	}
}

// Logger returns the underlying structured logger for callers that need
// unconditional logging (errors, contract violations) regardless of the
// trace filter.
func (t *Tracer) Logger() *zap.Logger { return t.logger }

// Recover is deferred by call boundaries (resolver/planner top-level
// entry points) to apply the fail-fast policy to a *ContractViolation
// panic: in ModeTest it re-panics so the test runner sees it; in
// ModeProduction it logs and exits the process, matching the source's
// FailFast.cpp behavior (original_source/src/FXPlatform/FailFast.cpp).
func (t *Tracer) Recover() {
	r := recover()
	if r == nil {
		return
	}
	if t.mode == ModeTest {
		panic(r)
	}
	t.logger.Error("contract violation: terminating", zap.Any("panic", r))
	os.Exit(1)
}
