package benchmarks

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

const (
	Name = "ZDT1"

	DefaultResolution = 1000
)

// ZDT1 is a benchmark function used to test the correctness
// of multi-objective algorithms. For more details, check the article below:
// https://datacrayon.com/practical-evolutionary-algorithms/synthetic-objective-functions-and-zdt1/
//
// Each variable in [0, 1] is discretised into Resolution+1 evenly spaced
// choices so that the choice-based operators can be used on it.
type ZDT1 struct {
	numVars    int
	resolution int
}

func NewZDT1(numVars, resolution int) (*ZDT1, error) {
	if numVars < 2 {
		return nil, fmt.Errorf("ZDT1 needs at least 2 variables, got %d", numVars)
	}
	if resolution < 1 {
		return nil, fmt.Errorf("ZDT1 resolution must be positive, got %d", resolution)
	}
	return &ZDT1{numVars: numVars, resolution: resolution}, nil
}

func (p *ZDT1) Name() string {
	return Name
}

// Problem builds the unconstrained ZDT1 problem.
func (p *ZDT1) Problem() (*framework.Problem, error) {
	choices := make([]int, p.resolution+1)
	for i := range choices {
		choices[i] = i
	}
	vars := make([]framework.Variable, p.numVars)
	for i := range vars {
		v, err := framework.NewChoiceVariable(fmt.Sprintf("x%d", i), choices)
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	return framework.NewProblem(Name,
		[]framework.Objective{
			{Name: "f1", Direction: framework.Minimize},
			{Name: "f2", Direction: framework.Minimize},
		},
		vars, nil, framework.EvaluatorFunc(p.Evaluate))
}

func (p *ZDT1) Evaluate(_ context.Context, ind *framework.Individual) (*framework.EvaluationResult, error) {
	x := make([]float64, p.numVars)
	for i, v := range ind.Variables() {
		x[i] = float64(v.Choice) / float64(p.resolution)
	}
	return &framework.EvaluationResult{
		Objectives: map[string]float64{
			"f1": p.f1(x),
			"f2": p.f2(x),
		},
	}, nil
}

func (p *ZDT1) f1(x []float64) float64 {
	return x[0]
}

func (p *ZDT1) f2(x []float64) float64 {
	g := 1.0 + 9.0*floats.Sum(x[1:])/float64(len(x)-1)
	return g * (1.0 - math.Sqrt(x[0]/g))
}

// TrueParetoFront generates numPoints points on the true Pareto front for ZDT1
func (p *ZDT1) TrueParetoFront(numPoints int) [][]float64 {
	points := make([][]float64, numPoints)
	for i := 0; i < numPoints; i++ {
		x := float64(i) / float64(numPoints-1)
		points[i] = []float64{x, 1.0 - math.Sqrt(x)}
	}
	return points
}
