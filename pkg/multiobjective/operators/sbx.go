package operators

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"k8s.io/klog/v2"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

const (
	DefaultCrossoverDistributionIndex = 15.0
	DefaultCrossoverProbability       = 1.0
	DefaultCrossoverVariableProb      = 0.5
)

// SimulatedBinaryCrossoverArgs configures SimulatedBinaryCrossover.
type SimulatedBinaryCrossoverArgs struct {
	// DistributionIndex is the SBX eta. Large values create children close
	// to their parents.
	DistributionIndex float64 `json:"distribution_index"`
	// CrossoverProbability is the probability that a pair of parents is
	// crossed at all.
	CrossoverProbability float64 `json:"crossover_probability"`
	// VariableProbability is the probability that each variable is crossed
	// once the pair is selected for crossover.
	VariableProbability float64 `json:"variable_probability"`
}

// DefaultSimulatedBinaryCrossoverArgs returns the usual NSGA-II settings.
func DefaultSimulatedBinaryCrossoverArgs() SimulatedBinaryCrossoverArgs {
	return SimulatedBinaryCrossoverArgs{
		DistributionIndex:    DefaultCrossoverDistributionIndex,
		CrossoverProbability: DefaultCrossoverProbability,
		VariableProbability:  DefaultCrossoverVariableProb,
	}
}

// SimulatedBinaryCrossover adapts SBX to choice variables: the parents'
// choices are mapped to their index in the allowed list, SBX runs on the
// index range [0, k-1] and the rounded results are mapped back to choices.
type SimulatedBinaryCrossover struct {
	args SimulatedBinaryCrossoverArgs
}

func NewSimulatedBinaryCrossover(args SimulatedBinaryCrossoverArgs) (*SimulatedBinaryCrossover, error) {
	if err := validateDistributionIndex("crossover distribution index", args.DistributionIndex); err != nil {
		return nil, err
	}
	if err := validateProbability("crossover probability", args.CrossoverProbability); err != nil {
		return nil, err
	}
	if err := validateProbability("crossover variable probability", args.VariableProbability); err != nil {
		return nil, err
	}
	return &SimulatedBinaryCrossover{args: args}, nil
}

func (c *SimulatedBinaryCrossover) Args() SimulatedBinaryCrossoverArgs {
	return c.args
}

// Generate creates two unevaluated children. The parents are not modified.
func (c *SimulatedBinaryCrossover) Generate(ctx context.Context, parent1, parent2 *framework.Individual, rng *rand.Rand) (*framework.Individual, *framework.Individual, error) {
	if parent1.Problem() != parent2.Problem() {
		return nil, nil, framework.ErrDifferentProblems
	}
	vars, err := choiceVariables(parent1.Problem())
	if err != nil {
		return nil, nil, err
	}

	child1 := parent1.CloneAssignment()
	child2 := parent2.CloneAssignment()

	if rng.Float64() >= c.args.CrossoverProbability {
		return child1, child2, nil
	}

	for i, v := range vars {
		if rng.Float64() >= c.args.VariableProbability {
			continue
		}
		y1, ok1 := v.IndexOf(parent1.VariableAt(i).Choice)
		y2, ok2 := v.IndexOf(parent2.VariableAt(i).Choice)
		if !ok1 || !ok2 {
			klog.FromContext(ctx).V(4).Info("Skipping crossover of variable with a value outside its choices", "variable", v.Name())
			continue
		}
		if y1 == y2 {
			continue
		}

		c1, c2 := c.crossIndices(float64(y1), float64(y2), float64(v.Len()-1), rng)
		if rng.Float64() < 0.5 {
			c1, c2 = c2, c1
		}
		if err := child1.SetVariableAt(i, framework.Choice(v.At(c1))); err != nil {
			return nil, nil, fmt.Errorf("crossover of variable %q: %w", v.Name(), err)
		}
		if err := child2.SetVariableAt(i, framework.Choice(v.At(c2))); err != nil {
			return nil, nil, fmt.Errorf("crossover of variable %q: %w", v.Name(), err)
		}
	}

	return child1, child2, nil
}

// crossIndices runs bounded SBX on two distinct indices within [0, upper]
// and returns the rounded, clamped child indices.
func (c *SimulatedBinaryCrossover) crossIndices(y1, y2, upper float64, rng *rand.Rand) (int, int) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	const lower = 0.0
	eta := c.args.DistributionIndex
	delta := y2 - y1
	u := rng.Float64()

	beta := 1.0 + 2.0*(y1-lower)/delta
	betaQ := spreadFactor(beta, eta, u)
	child1 := 0.5 * ((y1 + y2) - betaQ*delta)

	beta = 1.0 + 2.0*(upper-y2)/delta
	betaQ = spreadFactor(beta, eta, u)
	child2 := 0.5 * ((y1 + y2) + betaQ*delta)

	return clampIndex(child1, upper), clampIndex(child2, upper)
}

// spreadFactor is the SBX beta_q for a bounded variable.
func spreadFactor(beta, eta, u float64) float64 {
	alpha := 2.0 - math.Pow(beta, -(eta+1.0))
	if u <= 1.0/alpha {
		return math.Pow(u*alpha, 1.0/(eta+1.0))
	}
	return math.Pow(1.0/(2.0-u*alpha), 1.0/(eta+1.0))
}

func clampIndex(x, upper float64) int {
	x = math.Round(x)
	x = math.Max(0, math.Min(upper, x))
	return int(x)
}
