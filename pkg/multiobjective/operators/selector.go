package operators

import (
	"fmt"
	"math/rand/v2"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

const DefaultTournamentCompetitors = 2

// TournamentSelector picks individuals by running tournaments judged by a
// framework.Comparator, usually ParetoConstrainedDominance or
// CrowdedComparison.
type TournamentSelector struct {
	comparator  framework.Comparator
	competitors int
}

func NewTournamentSelector(comparator framework.Comparator, competitors int) (*TournamentSelector, error) {
	if comparator == nil {
		return nil, fmt.Errorf("tournament selector needs a comparator")
	}
	if competitors < 1 {
		return nil, fmt.Errorf("tournament needs at least 1 competitor, got %d", competitors)
	}
	return &TournamentSelector{comparator: comparator, competitors: competitors}, nil
}

func (s *TournamentSelector) Competitors() int {
	return s.competitors
}

// Select runs k tournaments and returns their winners. The same individual
// can be returned more than once.
func (s *TournamentSelector) Select(individuals []*framework.Individual, k int, rng *rand.Rand) ([]*framework.Individual, error) {
	winners := make([]*framework.Individual, 0, k)
	for range k {
		w, err := s.SelectFitIndividual(individuals, rng)
		if err != nil {
			return nil, err
		}
		winners = append(winners, w)
	}
	return winners, nil
}

// SelectFitIndividual runs one tournament: a random incumbent faces
// Competitors random challengers. A challenger replaces the incumbent when
// preferred, and with probability 0.5 when neither is preferred.
func (s *TournamentSelector) SelectFitIndividual(individuals []*framework.Individual, rng *rand.Rand) (*framework.Individual, error) {
	if len(individuals) == 0 {
		return nil, fmt.Errorf("tournament selection on an empty population: %w", framework.ErrNotEnoughIndividuals)
	}
	if len(individuals) < s.competitors {
		return nil, fmt.Errorf("tournament with %d competitors needs at least as many individuals, got %d: %w", s.competitors, len(individuals), framework.ErrNotEnoughIndividuals)
	}

	winner := individuals[rng.IntN(len(individuals))]
	for range s.competitors {
		challenger := individuals[rng.IntN(len(individuals))]
		r, err := s.comparator.Compare(winner, challenger)
		if err != nil {
			return nil, fmt.Errorf("tournament comparison: %w", err)
		}
		switch r {
		case framework.Second:
			winner = challenger
		case framework.MutuallyPreferred:
			if rng.Float64() < 0.5 {
				winner = challenger
			}
		}
	}
	return winner, nil
}
