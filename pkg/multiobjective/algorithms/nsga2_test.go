package algorithms

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/benchmarks"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/stopping"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/util"
)

// Test problem: ZDT1 benchmark function
func TestNSGA2WithZDT1(t *testing.T) {
	numVars := 10
	popSize := 40

	zdt1, err := benchmarks.NewZDT1(numVars, benchmarks.DefaultResolution)
	require.NoError(t, err)
	problem, err := zdt1.Problem()
	require.NoError(t, err)

	args := DefaultNSGA2Args()
	args.PopulationSize = popSize
	nsga, err := NewNSGA2(args)
	require.NoError(t, err)

	alg, err := New(problem, nsga, stopping.MaxGeneration(100), rand.New(rand.NewPCG(1, 2)), Options{Parallel: true})
	require.NoError(t, err)
	require.NoError(t, alg.Run(context.Background()))

	res := alg.Results()
	assert.Equal(t, Terminated, alg.State())
	assert.Equal(t, 100, res.Generation)
	assert.Equal(t, popSize*100, res.Evaluations)
	if res.Population.Len() != popSize {
		t.Errorf("Expected population size %d, got %d", popSize, res.Population.Len())
	}

	firstFront, err := FirstFront(res.Population)
	require.NoError(t, err)
	if len(firstFront) == 0 {
		t.Fatal("No fronts found in final population")
	}
	assert.NotEmpty(t, res.AdditionalData["first_front_size"])

	// Check if first front is non-dominated
	for i := range firstFront {
		for j := range firstFront {
			if i == j {
				continue
			}
			dominates, err := framework.Dominates(firstFront[i], firstFront[j])
			require.NoError(t, err)
			if dominates {
				t.Error("First front contains dominated solutions")
			}
		}
	}

	// Random individuals have g around 5, the true front has g = 1.
	for _, ind := range firstFront {
		f2, err := ind.ObjectiveValue("f2")
		require.NoError(t, err)
		assert.Less(t, f2, 4.0)
	}

	results, err := util.ObjectivePoints(firstFront, "f1", "f2")
	require.NoError(t, err)
	plot := util.FrontPlot{
		Algorithm:  Name,
		Problem:    zdt1.Name(),
		XObjective: "f1",
		YObjective: "f2",
		Reference:  zdt1.TrueParetoFront(100),
	}
	if err := plot.RenderFile(filepath.Join(t.TempDir(), "zdt1.html"), results); err != nil {
		t.Errorf("Plot failed: %v", err)
	}
}

func TestNSGA2ReachesFeasibility(t *testing.T) {
	problem := sumProblem(t, nil)
	args := DefaultNSGA2Args()
	args.PopulationSize = 20
	nsga, err := NewNSGA2(args)
	require.NoError(t, err)

	alg, err := New(problem, nsga, stopping.MaxGeneration(30), rand.New(rand.NewPCG(3, 4)), Options{})
	require.NoError(t, err)
	require.NoError(t, alg.Run(context.Background()))

	for _, ind := range alg.Population().Individuals() {
		assert.True(t, ind.IsFeasible(), "%s", ind)
		rank, ok := ind.Aux().Rank()
		assert.True(t, ok)
		assert.GreaterOrEqual(t, rank, 1)
		_, ok = ind.Aux().CrowdingDistance()
		assert.True(t, ok)
	}
}

func TestNewNSGA2Validation(t *testing.T) {
	args := DefaultNSGA2Args()
	args.PopulationSize = 1
	_, err := NewNSGA2(args)
	assert.Error(t, err)

	args = DefaultNSGA2Args()
	args.Crossover.CrossoverProbability = 2
	_, err = NewNSGA2(args)
	assert.ErrorIs(t, err, framework.ErrInvalidProbability)

	args = DefaultNSGA2Args()
	args.TournamentCompetitors = 0
	_, err = NewNSGA2(args)
	assert.Error(t, err)

	args = DefaultNSGA2Args()
	args.PopulationSize = 4
	args.TournamentCompetitors = 10
	_, err = NewNSGA2(args)
	assert.ErrorContains(t, err, "exceed the population size")

	problem := sumProblem(t, nil)
	args = DefaultNSGA2Args()
	args.PopulationSize = 4
	args.InitialPopulation = framework.NewRandomPopulation(problem, 3, rand.New(rand.NewPCG(1, 1)))
	_, err = NewNSGA2(args)
	assert.Error(t, err)
}

func TestNSGA2Survive(t *testing.T) {
	problem := sumProblem(t, nil)
	nsga, err := NewNSGA2(NSGA2Args{
		PopulationSize:        3,
		Crossover:             DefaultNSGA2Args().Crossover,
		Mutation:              DefaultNSGA2Args().Mutation,
		TournamentCompetitors: 2,
	})
	require.NoError(t, err)

	// x=0..3 with y=9 are all feasible and mutually non-dominated.
	var individuals []*framework.Individual
	for x := range 4 {
		individuals = append(individuals, evaluated(t, problem, x, 9))
	}
	// Dominated by (0, 9).
	individuals = append(individuals, evaluated(t, problem, 0, 8))

	survivors, err := nsga.survive(individuals, 3)
	require.NoError(t, err)
	require.Len(t, survivors, 3)
	// The two boundary individuals have infinite crowding distance and
	// must survive.
	assert.Contains(t, survivors, individuals[0])
	assert.Contains(t, survivors, individuals[3])
	assert.NotContains(t, survivors, individuals[4])
	assert.Equal(t, "4", nsga.AdditionalData()["first_front_size"])
}
