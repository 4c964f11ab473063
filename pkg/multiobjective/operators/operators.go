// Package operators contains the variation and selection operators used by
// the evolutionary algorithms. Every operator draws its randomness from a
// caller-owned *rand.Rand so that whole runs are reproducible.
package operators

import (
	"fmt"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

// choiceVariables returns the variables of a problem as choice variables,
// or ErrUnsupportedVariable if any of them has another type.
func choiceVariables(problem *framework.Problem) ([]*framework.ChoiceVariable, error) {
	vars := problem.Variables()
	out := make([]*framework.ChoiceVariable, len(vars))
	for i, v := range vars {
		cv, ok := v.(*framework.ChoiceVariable)
		if !ok {
			return nil, fmt.Errorf("variable %q has type %q: %w", v.Name(), v.Type(), framework.ErrUnsupportedVariable)
		}
		out[i] = cv
	}
	return out, nil
}

func validateProbability(name string, p float64) error {
	if p < 0 || p > 1 || p != p {
		return fmt.Errorf("%s is %v: %w", name, p, framework.ErrInvalidProbability)
	}
	return nil
}

func validateDistributionIndex(name string, eta float64) error {
	if eta < 0 || eta != eta {
		return fmt.Errorf("%s is %v: %w", name, eta, framework.ErrInvalidDistributionIndex)
	}
	return nil
}
