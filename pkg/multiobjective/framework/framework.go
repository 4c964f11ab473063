package framework

import "fmt"

// SortResult is the output of NonDominatedSort.
type SortResult struct {
	// Fronts holds the individuals of each front; Fronts[0] is the
	// non-dominated set.
	Fronts [][]*Individual
	// FrontIndices holds, for each front, the positions of its members in
	// the sorted slice.
	FrontIndices [][]int
	// DominationCounter is, for each individual, the number of individuals
	// dominating it.
	DominationCounter []int
}

// NonDominatedSort partitions the individuals into dominance fronts using
// ParetoConstrainedDominance and stamps every ranked individual with its
// 1-based front number. When firstFrontOnly is set only the first front is
// built.
func NonDominatedSort(individuals []*Individual, firstFrontOnly bool) (*SortResult, error) {
	if len(individuals) < 2 {
		return nil, fmt.Errorf("non-dominated sort needs at least 2 individuals, got %d: %w", len(individuals), ErrNotEnoughIndividuals)
	}

	cmp := ParetoConstrainedDominance{}
	dominated := make([][]int, len(individuals))
	domCount := make([]int, len(individuals))

	// Calculate domination for each unordered pair
	for i := 0; i < len(individuals); i++ {
		for j := i + 1; j < len(individuals); j++ {
			r, err := cmp.Compare(individuals[i], individuals[j])
			if err != nil {
				return nil, fmt.Errorf("comparing individuals %d and %d: %w", i, j, err)
			}
			switch r {
			case First:
				dominated[i] = append(dominated[i], j)
				domCount[j]++
			case Second:
				dominated[j] = append(dominated[j], i)
				domCount[i]++
			}
		}
	}

	result := &SortResult{
		DominationCounter: append([]int(nil), domCount...),
	}

	// Find first front
	var currentFront []int
	for i := range individuals {
		if domCount[i] == 0 {
			currentFront = append(currentFront, i)
		}
	}

	// Peel off subsequent fronts
	rank := 1
	for len(currentFront) > 0 {
		front := make([]*Individual, len(currentFront))
		for k, idx := range currentFront {
			individuals[idx].aux.SetRank(rank)
			front[k] = individuals[idx]
		}
		result.Fronts = append(result.Fronts, front)
		result.FrontIndices = append(result.FrontIndices, currentFront)
		if firstFrontOnly {
			break
		}

		var nextFront []int
		for _, idx := range currentFront {
			for _, dominatedIdx := range dominated[idx] {
				domCount[dominatedIdx]--
				if domCount[dominatedIdx] == 0 {
					nextFront = append(nextFront, dominatedIdx)
				}
			}
		}
		currentFront = nextFront
		rank++
	}

	return result, nil
}
