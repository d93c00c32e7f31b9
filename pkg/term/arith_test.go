package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalArithmetic(t *testing.T) {
	f := NewFactory()

	t.Run("integer addition stays integer", func(t *testing.T) {
		sum := f.CreateFunctor("+", []*Term{f.CreateConstant("1"), f.CreateConstant("2")})
		v, ok := f.Eval(sum)
		require.True(t, ok)
		require.Equal(t, "3", v.Name())
	})

	t.Run("mixed addition becomes float", func(t *testing.T) {
		sum := f.CreateFunctor("+", []*Term{f.CreateConstant("1"), f.CreateConstant("2.5")})
		v, ok := f.Eval(sum)
		require.True(t, ok)
		require.True(t, v.IsFloat())
	})

	t.Run("comparator returns true/false atom", func(t *testing.T) {
		gt := f.CreateFunctor(">", []*Term{f.CreateConstant("3"), f.CreateConstant("2")})
		v, ok := f.Eval(gt)
		require.True(t, ok)
		require.True(t, v == f.True())
	})

	t.Run("unbound variable fails", func(t *testing.T) {
		expr := f.CreateFunctor("+", []*Term{f.CreateVariable("X"), f.CreateConstant("2")})
		_, ok := f.Eval(expr)
		require.False(t, ok)
	})

	t.Run("typo operator panics", func(t *testing.T) {
		expr := f.CreateFunctor("<=", []*Term{f.CreateConstant("1"), f.CreateConstant("2")})
		require.Panics(t, func() { f.Eval(expr) })
	})

	t.Run("nested recursion and factorial style expression", func(t *testing.T) {
		// N1 is N - 1 where N = 3
		expr := f.CreateFunctor("-", []*Term{f.CreateConstant("3"), f.CreateConstant("1")})
		v, ok := f.Eval(expr)
		require.True(t, ok)
		require.Equal(t, "2", v.Name())
	})

	t.Run("integer division truncates", func(t *testing.T) {
		div := f.CreateFunctor("/", []*Term{f.CreateConstant("7"), f.CreateConstant("2")})
		v, ok := f.Eval(div)
		require.True(t, ok)
		require.False(t, v.IsFloat())
		require.Equal(t, "3", v.Name())
	})

	t.Run("division with a float operand stays a float", func(t *testing.T) {
		div := f.CreateFunctor("/", []*Term{f.CreateConstant("6"), f.CreateConstant("2.0")})
		v, ok := f.Eval(div)
		require.True(t, ok)
		require.True(t, v.IsFloat())
	})

	t.Run("division by zero fails", func(t *testing.T) {
		div := f.CreateFunctor("/", []*Term{f.CreateConstant("1"), f.CreateConstant("0")})
		_, ok := f.Eval(div)
		require.False(t, ok)
	})
}

func TestResolveArithmeticTerms(t *testing.T) {
	f := NewFactory()
	expr := f.CreateFunctor("p", []*Term{
		f.CreateFunctor("+", []*Term{f.CreateConstant("1"), f.CreateConstant("2")}),
		f.CreateVariable("X"),
	})
	folded := f.ResolveArithmeticTerms(expr)
	require.Equal(t, "p(3,?X)", folded.String())
}
