package operators

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

func evaluatedPopulation(t *testing.T, values ...float64) []*framework.Individual {
	t.Helper()
	p := choiceProblem(t)
	rng := rand.New(rand.NewPCG(1, 2))
	out := make([]*framework.Individual, len(values))
	for i, v := range values {
		ind := framework.NewIndividual(p, rng)
		require.NoError(t, ind.SetObjectiveValue("f", v))
		ind.SetEvaluated()
		out[i] = ind
	}
	return out
}

func TestTournamentSelectorErrors(t *testing.T) {
	_, err := NewTournamentSelector(nil, 2)
	assert.Error(t, err)
	_, err = NewTournamentSelector(framework.ParetoConstrainedDominance{}, 0)
	assert.Error(t, err)

	s, err := NewTournamentSelector(framework.ParetoConstrainedDominance{}, 3)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 1))

	_, err = s.Select(nil, 1, rng)
	assert.ErrorIs(t, err, framework.ErrNotEnoughIndividuals)
	_, err = s.Select(evaluatedPopulation(t, 1, 2), 1, rng)
	assert.ErrorIs(t, err, framework.ErrNotEnoughIndividuals)
}

func TestTournamentSelectorPrefersBetter(t *testing.T) {
	pop := evaluatedPopulation(t, 5, 1, 9, 3, 7, 2, 8, 4, 6, 0)
	s, err := NewTournamentSelector(framework.ParetoConstrainedDominance{}, 2)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 8))
	winners, err := s.Select(pop, 2000, rng)
	require.NoError(t, err)
	require.Len(t, winners, 2000)

	var total float64
	for _, w := range winners {
		v, err := w.ObjectiveValue("f")
		require.NoError(t, err)
		total += v
	}
	// Uniform picks average 4.5; three-way tournaments do much better.
	assert.Less(t, total/float64(len(winners)), 3.0)
}

func TestTournamentSelectorCrowdedComparison(t *testing.T) {
	pop := evaluatedPopulation(t, 1, 2)
	pop[0].Aux().SetRank(2)
	pop[0].Aux().SetCrowdingDistance(1)
	pop[1].Aux().SetRank(1)
	pop[1].Aux().SetCrowdingDistance(1)

	s, err := NewTournamentSelector(framework.CrowdedComparison{}, 2)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(3, 4))
	winners, err := s.Select(pop, 200, rng)
	require.NoError(t, err)
	best := 0
	for _, w := range winners {
		if w == pop[1] {
			best++
		}
	}
	// The rank-1 individual loses only when it is never drawn.
	assert.Greater(t, best, 150)

	// Missing ranking data surfaces as an error.
	unranked := evaluatedPopulation(t, 1, 2)
	_, err = s.Select(unranked, 1, rng)
	assert.ErrorIs(t, err, framework.ErrMissingData)
}
