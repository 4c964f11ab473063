package framework

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

var noopEvaluator = EvaluatorFunc(func(context.Context, *Individual) (*EvaluationResult, error) {
	return &EvaluationResult{}, nil
})

// newTestProblem builds a problem with one choice variable and one objective
// per direction, named f0, f1, ...
func newTestProblem(t *testing.T, constraints []Constraint, directions ...Direction) *Problem {
	t.Helper()
	objectives := make([]Objective, len(directions))
	for i, d := range directions {
		objectives[i] = Objective{Name: fmt.Sprintf("f%d", i), Direction: d}
	}
	x, err := NewChoiceVariable("x", []int{0, 1, 2, 3})
	require.NoError(t, err)
	p, err := NewProblem("test", objectives, []Variable{x}, constraints, noopEvaluator)
	require.NoError(t, err)
	return p
}

// newEvaluated creates an evaluated individual with the given objective
// values in the user's convention.
func newEvaluated(t *testing.T, p *Problem, values ...float64) *Individual {
	t.Helper()
	ind := NewIndividual(p, rand.New(rand.NewPCG(1, 2)))
	for i, o := range p.Objectives() {
		require.NoError(t, ind.SetObjectiveValue(o.Name, values[i]))
	}
	ind.SetEvaluated()
	return ind
}
