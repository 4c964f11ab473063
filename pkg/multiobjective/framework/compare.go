package framework

import "fmt"

// PreferredSolution is the outcome of comparing two individuals.
type PreferredSolution int

const (
	// First means the first individual is preferred.
	First PreferredSolution = iota
	// Second means the second individual is preferred.
	Second
	// MutuallyPreferred means neither individual is preferred.
	MutuallyPreferred
)

func (p PreferredSolution) String() string {
	switch p {
	case First:
		return "First"
	case Second:
		return "Second"
	case MutuallyPreferred:
		return "MutuallyPreferred"
	default:
		return fmt.Sprintf("PreferredSolution(%d)", int(p))
	}
}

// Comparator is a binary relation over two individuals.
type Comparator interface {
	Compare(a, b *Individual) (PreferredSolution, error)
}

// ParetoConstrainedDominance compares individuals by constraint violation
// first and then by Pareto dominance over the objectives.
type ParetoConstrainedDominance struct{}

var _ Comparator = ParetoConstrainedDominance{}

func (ParetoConstrainedDominance) Compare(a, b *Individual) (PreferredSolution, error) {
	if a.problem != b.problem {
		return MutuallyPreferred, ErrDifferentProblems
	}
	if !a.evaluated || !b.evaluated {
		return MutuallyPreferred, ErrNotEvaluated
	}

	if a.problem.HasConstraints() {
		va, vb := a.ConstraintViolation(), b.ConstraintViolation()
		if va < vb {
			return First, nil
		}
		if vb < va {
			return Second, nil
		}
	}

	return paretoCompare(a.objectives, b.objectives), nil
}

// paretoCompare scans minimise-signed objective vectors.
func paretoCompare(a, b []float64) PreferredSolution {
	firstLeads, secondLeads := false, false
	for i := range a {
		switch {
		case a[i] < b[i]:
			firstLeads = true
		case b[i] < a[i]:
			secondLeads = true
		}
		if firstLeads && secondLeads {
			return MutuallyPreferred
		}
	}
	switch {
	case firstLeads:
		return First
	case secondLeads:
		return Second
	default:
		return MutuallyPreferred
	}
}

// Dominates reports whether a dominates b under ParetoConstrainedDominance.
func Dominates(a, b *Individual) (bool, error) {
	r, err := ParetoConstrainedDominance{}.Compare(a, b)
	if err != nil {
		return false, err
	}
	return r == First, nil
}

// CrowdedComparison prefers the lower rank and, on equal rank, the larger
// crowding distance. Both individuals must have been ranked with
// NonDominatedSort and measured with CrowdingDistance.
type CrowdedComparison struct{}

var _ Comparator = CrowdedComparison{}

func (CrowdedComparison) Compare(a, b *Individual) (PreferredSolution, error) {
	rankA, ok := a.aux.Rank()
	if !ok {
		return MutuallyPreferred, fmt.Errorf("rank of first individual: %w", ErrMissingData)
	}
	rankB, ok := b.aux.Rank()
	if !ok {
		return MutuallyPreferred, fmt.Errorf("rank of second individual: %w", ErrMissingData)
	}
	distA, ok := a.aux.CrowdingDistance()
	if !ok {
		return MutuallyPreferred, fmt.Errorf("crowding distance of first individual: %w", ErrMissingData)
	}
	distB, ok := b.aux.CrowdingDistance()
	if !ok {
		return MutuallyPreferred, fmt.Errorf("crowding distance of second individual: %w", ErrMissingData)
	}

	switch {
	case rankA < rankB:
		return First, nil
	case rankB < rankA:
		return Second, nil
	case distB > distA:
		return Second, nil
	default:
		return First, nil
	}
}
