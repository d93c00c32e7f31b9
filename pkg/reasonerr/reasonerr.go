// Package reasonerr defines the contract-violation error taxonomy shared
// by pkg/rules, pkg/resolve and pkg/htn (spec.md §7). Contract violations
// are programming errors, not control-flow failures: they are raised by
// panicking with a *ContractViolation (except an arithmetic operator
// typo, which pkg/term raises as a *term.TypoOperatorError). Callers in
// test mode let the panic propagate and in production mode recover and
// turn it into a logged os.Exit, per internal/trace.Mode.
package reasonerr

import "fmt"

// Kind enumerates the fatal contract violations named in spec.md §7.
type Kind string

const (
	KindMixedFactories   Kind = "mixed_factories"
	KindDuplicateFact    Kind = "duplicate_fact"
	KindNonGroundRetract Kind = "non_ground_retract"
	KindNonGroundAssert  Kind = "non_ground_assert"
	KindArithmeticTypo   Kind = "arithmetic_typo"
	KindBareVariableGoal Kind = "bare_variable_goal"
	KindTooManyArguments Kind = "too_many_arguments"
	KindBaseLocked       Kind = "base_locked"
	KindKeyBufferOverrun Kind = "key_buffer_overrun"
)

// ContractViolation is a fatal, non-retryable programming error. It is
// always delivered by panic, never returned as an error value, matching
// the severity spec.md §7 assigns it: "Terminates the process (or throws
// in test mode)".
type ContractViolation struct {
	Kind    Kind
	Message string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation [%s]: %s", e.Kind, e.Message)
}

// New builds and returns a *ContractViolation; callers panic(New(...)).
func New(kind Kind, format string, args ...any) *ContractViolation {
	return &ContractViolation{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Raise panics with a new ContractViolation. Centralising the panic call
// here (rather than each caller writing "panic(New(...))") keeps a single
// place to add instrumentation later.
func Raise(kind Kind, format string, args ...any) {
	panic(New(kind, format, args...))
}
