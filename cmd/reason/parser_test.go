package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/reason/pkg/term"
)

func TestParseGoalsCompoundAndList(t *testing.T) {
	f := term.NewFactory()
	goals, err := newParser(f, "weather(sunny), member(?X, [a,b,c])").parseGoals()
	require.NoError(t, err)
	require.Len(t, goals, 2)
	require.Equal(t, "weather(sunny)", goals[0].String())
	require.Equal(t, "member", goals[1].Functor())
}

func TestParseGoalsInfixArithmetic(t *testing.T) {
	f := term.NewFactory()
	goals, err := newParser(f, "?Cash >= 10").parseGoals()
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, ">=", goals[0].Functor())
	require.Equal(t, 2, goals[0].Arity())
}

func TestParseGoalsSameVariableNameIsSameTerm(t *testing.T) {
	f := term.NewFactory()
	goals, err := newParser(f, "p(?X), q(?X)").parseGoals()
	require.NoError(t, err)
	require.Same(t, goals[0].Args()[0], goals[1].Args()[0])
}

func TestParseGoalsRejectsTrailingGarbage(t *testing.T) {
	f := term.NewFactory()
	_, err := newParser(f, "p(a) )").parseGoals()
	require.Error(t, err)
}
