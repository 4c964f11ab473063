package framework

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParetoConstrainedDominance(t *testing.T) {
	p := newTestProblem(t, nil, Minimize, Minimize, Maximize)

	tests := []struct {
		name string
		a, b []float64
		want PreferredSolution
	}{
		{name: "equal", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: MutuallyPreferred},
		{name: "first dominates", a: []float64{1, 2, 4}, b: []float64{1, 3, 3}, want: First},
		{name: "second dominates", a: []float64{2, 2, 3}, b: []float64{1, 2, 3}, want: Second},
		{name: "maximised objective decides", a: []float64{1, 2, 3}, b: []float64{1, 2, 5}, want: Second},
		{name: "trade-off", a: []float64{1, 5, 3}, b: []float64{2, 1, 3}, want: MutuallyPreferred},
		{name: "trade-off on maximised", a: []float64{1, 2, 1}, b: []float64{2, 2, 9}, want: MutuallyPreferred},
	}

	cmp := ParetoConstrainedDominance{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newEvaluated(t, p, tc.a...)
			b := newEvaluated(t, p, tc.b...)

			got, err := cmp.Compare(a, b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			reverse, err := cmp.Compare(b, a)
			require.NoError(t, err)
			switch tc.want {
			case First:
				assert.Equal(t, Second, reverse)
			case Second:
				assert.Equal(t, First, reverse)
			default:
				assert.Equal(t, MutuallyPreferred, reverse)
			}

			self, err := cmp.Compare(a, a)
			require.NoError(t, err)
			assert.Equal(t, MutuallyPreferred, self)
		})
	}
}

func TestParetoConstrainedDominanceViolationFirst(t *testing.T) {
	limit, err := NewScalarConstraint("limit", LessThanOrEqual, 10)
	require.NoError(t, err)
	p := newTestProblem(t, []Constraint{limit}, Minimize, Minimize)

	feasible := newEvaluated(t, p, 100, 100)
	require.NoError(t, feasible.SetConstraintValue("limit", ScalarValue(3)))
	infeasible := newEvaluated(t, p, 0, 0)
	require.NoError(t, infeasible.SetConstraintValue("limit", ScalarValue(12)))
	worse := newEvaluated(t, p, 0, 0)
	require.NoError(t, worse.SetConstraintValue("limit", ScalarValue(20)))

	cmp := ParetoConstrainedDominance{}
	got, err := cmp.Compare(feasible, infeasible)
	require.NoError(t, err)
	assert.Equal(t, First, got)

	got, err = cmp.Compare(worse, infeasible)
	require.NoError(t, err)
	assert.Equal(t, Second, got)

	// Same violation falls back to the objectives.
	other := newEvaluated(t, p, 1, 1)
	require.NoError(t, other.SetConstraintValue("limit", ScalarValue(12)))
	got, err = cmp.Compare(infeasible, other)
	require.NoError(t, err)
	assert.Equal(t, First, got)
}

func TestParetoConstrainedDominanceErrors(t *testing.T) {
	p1 := newTestProblem(t, nil, Minimize)
	p2 := newTestProblem(t, nil, Minimize)
	a := newEvaluated(t, p1, 1)

	_, err := ParetoConstrainedDominance{}.Compare(a, newEvaluated(t, p2, 1))
	assert.ErrorIs(t, err, ErrDifferentProblems)

	_, err = ParetoConstrainedDominance{}.Compare(a, a.CloneAssignment())
	assert.ErrorIs(t, err, ErrNotEvaluated)
}

func TestCrowdedComparison(t *testing.T) {
	p := newTestProblem(t, nil, Minimize)
	mk := func(rank int, dist float64) *Individual {
		ind := newEvaluated(t, p, 0)
		ind.Aux().SetRank(rank)
		ind.Aux().SetCrowdingDistance(dist)
		return ind
	}

	tests := []struct {
		name string
		a, b *Individual
		want PreferredSolution
	}{
		{name: "lower rank wins", a: mk(1, 0.1), b: mk(2, math.Inf(1)), want: First},
		{name: "higher rank loses", a: mk(3, 5), b: mk(2, 0), want: Second},
		{name: "larger distance wins", a: mk(1, 0.2), b: mk(1, 0.5), want: Second},
		{name: "infinite distance wins", a: mk(2, math.Inf(1)), b: mk(2, 3), want: First},
		{name: "tie defaults to first", a: mk(1, 0.5), b: mk(1, 0.5), want: First},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CrowdedComparison{}.Compare(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCrowdedComparisonMissingData(t *testing.T) {
	p := newTestProblem(t, nil, Minimize)
	ranked := newEvaluated(t, p, 0)
	ranked.Aux().SetRank(1)
	full := newEvaluated(t, p, 0)
	full.Aux().SetRank(1)
	full.Aux().SetCrowdingDistance(1)

	_, err := CrowdedComparison{}.Compare(newEvaluated(t, p, 0), full)
	assert.ErrorIs(t, err, ErrMissingData)
	_, err = CrowdedComparison{}.Compare(full, ranked)
	assert.ErrorIs(t, err, ErrMissingData)
}
