package term

import "fmt"

// arithmetic operators recognised by Eval, per spec.md §4.1.
const (
	opUnify = "="
	opGt    = ">"
	opGe    = ">="
	opLt    = "<"
	opLe    = "=<"
	opAdd   = "+"
	opSub   = "-"
	opMul   = "*"
	opDiv   = "/"
	opMin   = "min"
	opMax   = "max"
	opAbs   = "abs"
	opFloat = "float"
	opInt   = "integer"
)

var comparators = map[string]bool{opUnify: true, opGt: true, opGe: true, opLt: true, opLe: true}

var binaryArith = map[string]bool{opAdd: true, opSub: true, opMul: true, opDiv: true, opMin: true, opMax: true}

var unaryArith = map[string]bool{opAbs: true, opFloat: true, opInt: true}

// IsArithmeticOperator reports whether functor/arity names one of the
// recognised arithmetic operators.
func IsArithmeticOperator(functor string, arity int) bool {
	switch {
	case arity == 2:
		return comparators[functor] || binaryArith[functor]
	case arity == 1:
		return unaryArith[functor]
	default:
		return false
	}
}

// IsArithmetic reports whether t is a number constant, or a compound
// whose functor/arity is a recognised arithmetic operator.
func (t *Term) IsArithmetic() bool {
	if t.kind == Constant {
		return t.IsNumber()
	}
	if t.kind == Compound {
		if t.name == "<=" || t.name == "=>" {
			return true // recognised only so Eval can report the typo fatally
		}
		return IsArithmeticOperator(t.name, len(t.args))
	}
	return false
}

// TypoOperatorError is the contract-violation error raised when a term
// uses the common "<=" or "=>" arithmetic typos instead of "=<" or the
// plain unification functor; spec.md §4.1 requires these be reported as
// fatal rather than silently treated as undefined.
type TypoOperatorError struct {
	Functor string
}

func (e *TypoOperatorError) Error() string {
	return fmt.Sprintf("term: %q is not an arithmetic operator (did you mean %q?)", e.Functor, typoSuggestion(e.Functor))
}

func typoSuggestion(functor string) string {
	switch functor {
	case "<=":
		return "=<"
	case "=>":
		return ">="
	default:
		return functor
	}
}

// Eval evaluates t as an arithmetic term. It returns (result, true) when
// t is a number constant (returned unchanged), a recognised comparator
// (returning the factory's True()/False() atom), or a recognised
// arithmetic operator compound whose operands all evaluate to numbers.
// It returns (nil, false) when any leaf is an unbound variable or any
// operand fails to parse as a number -- resolution failure, not an error.
//
// Eval panics with *TypoOperatorError if t uses "<=" or "=>", per the
// fatal contract-violation in spec.md §7.
func (f *Factory) Eval(t *Term) (*Term, bool) {
	if t.kind == Variable {
		return nil, false
	}
	if t.kind == Constant {
		if t.IsNumber() {
			return t, true
		}
		return nil, false
	}

	if t.name == "<=" || t.name == "=>" {
		panic(&TypoOperatorError{Functor: t.name})
	}

	switch len(t.args) {
	case 1:
		if !unaryArith[t.name] {
			return nil, false
		}
		x, ok := f.Eval(t.args[0])
		if !ok {
			return nil, false
		}
		return f.evalUnary(t.name, x)
	case 2:
		lv, lok := f.Eval(t.args[0])
		if !lok {
			return nil, false
		}
		if comparators[t.name] {
			rv, rok := f.Eval(t.args[1])
			if !rok {
				return nil, false
			}
			return f.evalComparator(t.name, lv, rv)
		}
		if binaryArith[t.name] {
			rv, rok := f.Eval(t.args[1])
			if !rok {
				return nil, false
			}
			return f.evalBinary(t.name, lv, rv)
		}
		return nil, false
	default:
		return nil, false
	}
}

func (f *Factory) evalUnary(op string, x *Term) (*Term, bool) {
	xf, _ := x.AsFloat64()
	switch op {
	case opAbs:
		if x.IsInteger() {
			xi, _ := x.AsInt64()
			if xi < 0 {
				xi = -xi
			}
			return f.CreateConstant(fmt.Sprintf("%d", xi)), true
		}
		if xf < 0 {
			xf = -xf
		}
		return f.CreateConstant(formatFloat(xf)), true
	case opFloat:
		return f.CreateConstant(formatFloat(xf)), true
	case opInt:
		return f.CreateConstant(fmt.Sprintf("%d", int64(xf))), true
	}
	return nil, false
}

func (f *Factory) evalComparator(op string, l, r *Term) (*Term, bool) {
	lf, _ := l.AsFloat64()
	rf, _ := r.AsFloat64()
	var result bool
	switch op {
	case opUnify:
		result = lf == rf
	case opGt:
		result = lf > rf
	case opGe:
		result = lf >= rf
	case opLt:
		result = lf < rf
	case opLe:
		result = lf <= rf
	}
	if result {
		return f.tru, true
	}
	return f.fls, true
}

func (f *Factory) evalBinary(op string, l, r *Term) (*Term, bool) {
	bothInt := l.IsInteger() && r.IsInteger()
	lf, _ := l.AsFloat64()
	rf, _ := r.AsFloat64()

	switch op {
	case opAdd, opSub, opMul:
		var res float64
		switch op {
		case opAdd:
			res = lf + rf
		case opSub:
			res = lf - rf
		case opMul:
			res = lf * rf
		}
		if bothInt {
			return f.CreateConstant(fmt.Sprintf("%d", int64(res))), true
		}
		return f.CreateConstant(formatFloat(res)), true
	case opDiv:
		if rf == 0 {
			return nil, false
		}
		if bothInt {
			return f.CreateConstant(fmt.Sprintf("%d", int64(lf/rf))), true
		}
		return f.CreateConstant(formatFloat(lf / rf)), true
	case opMin:
		if lf <= rf {
			if bothInt {
				return l, true
			}
			return f.CreateConstant(formatFloat(lf)), true
		}
		if bothInt {
			return r, true
		}
		return f.CreateConstant(formatFloat(rf)), true
	case opMax:
		if lf >= rf {
			if bothInt {
				return l, true
			}
			return f.CreateConstant(formatFloat(lf)), true
		}
		if bothInt {
			return r, true
		}
		return f.CreateConstant(formatFloat(rf)), true
	}
	return nil, false
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	// Ensure a float always carries a decimal point so IsInteger never
	// misclassifies it on the way back through the constant pool.
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return s
		}
	}
	return s + ".0"
}
