package framework

import (
	"fmt"
	"math"
	"sort"
)

// CrowdingDistance calculates the crowding distance of every individual of a
// front and stores it in the individual's AuxData. The order of front is
// left untouched.
func CrowdingDistance(front []*Individual) error {
	if len(front) == 0 {
		return nil
	}
	for _, ind := range front {
		if !ind.evaluated {
			return fmt.Errorf("crowding distance: %w", ErrNotEvaluated)
		}
		if ind.problem != front[0].problem {
			return fmt.Errorf("crowding distance: %w", ErrDifferentProblems)
		}
	}

	if len(front) <= 2 {
		for _, ind := range front {
			ind.aux.SetCrowdingDistance(math.Inf(1))
		}
		return nil
	}

	distances := make([]float64, len(front))
	order := make([]int, len(front))
	numObjectives := front[0].problem.NumberOfObjectives()

	for m := 0; m < numObjectives; m++ {
		for i := range order {
			order[i] = i
		}
		// Sort by each objective
		sort.SliceStable(order, func(i, j int) bool {
			return front[order[i]].objectives[m] < front[order[j]].objectives[m]
		})

		first, last := order[0], order[len(order)-1]
		distances[first] = math.Inf(1)
		distances[last] = math.Inf(1)

		objMin := front[first].objectives[m]
		objMax := front[last].objectives[m]
		objectiveRange := objMax - objMin
		if objectiveRange == 0 {
			continue
		}

		// Calculate distance for intermediate points
		for i := 1; i < len(order)-1; i++ {
			next := front[order[i+1]].objectives[m]
			prev := front[order[i-1]].objectives[m]
			distances[order[i]] += (next - prev) / objectiveRange
		}
	}

	for i, ind := range front {
		ind.aux.SetCrowdingDistance(distances[i])
	}
	return nil
}
