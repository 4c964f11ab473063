package operators

import (
	"fmt"
	"math/rand/v2"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

const DefaultMutationIndexParameter = 20.0

// PolynomialMutationArgs configures PolynomialMutation.
type PolynomialMutationArgs struct {
	// IndexParameter is the distribution index of the continuous operator.
	// Choice variables are mutated uniformly, so it only has to be valid.
	IndexParameter float64 `json:"index_parameter"`
	// VariableProbability is the probability of mutating each variable.
	// When nil, 1/number of variables is used.
	VariableProbability *float64 `json:"variable_probability,omitempty"`
}

func DefaultPolynomialMutationArgs() PolynomialMutationArgs {
	return PolynomialMutationArgs{IndexParameter: DefaultMutationIndexParameter}
}

// PolynomialMutation adapts polynomial mutation to choice variables: a
// mutated variable takes a value drawn uniformly from its allowed list.
type PolynomialMutation struct {
	args PolynomialMutationArgs
}

func NewPolynomialMutation(args PolynomialMutationArgs) (*PolynomialMutation, error) {
	if err := validateDistributionIndex("mutation index parameter", args.IndexParameter); err != nil {
		return nil, err
	}
	if args.VariableProbability != nil {
		if err := validateProbability("mutation variable probability", *args.VariableProbability); err != nil {
			return nil, err
		}
	}
	return &PolynomialMutation{args: args}, nil
}

func (m *PolynomialMutation) Args() PolynomialMutationArgs {
	return m.args
}

// Mutate changes the individual in place. Mutated individuals lose their
// previous evaluation.
func (m *PolynomialMutation) Mutate(individual *framework.Individual, rng *rand.Rand) error {
	vars, err := choiceVariables(individual.Problem())
	if err != nil {
		return err
	}

	prob := 1.0 / float64(len(vars))
	if m.args.VariableProbability != nil {
		prob = *m.args.VariableProbability
	}

	for i, v := range vars {
		if rng.Float64() >= prob {
			continue
		}
		value := framework.Choice(v.At(rng.IntN(v.Len())))
		if err := individual.SetVariableAt(i, value); err != nil {
			return fmt.Errorf("mutation of variable %q: %w", v.Name(), err)
		}
	}
	return nil
}
