package benchmarks

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

func TestZDT1(t *testing.T) {
	_, err := NewZDT1(1, 10)
	assert.Error(t, err)
	_, err = NewZDT1(3, 0)
	assert.Error(t, err)

	z, err := NewZDT1(3, 10)
	require.NoError(t, err)
	p, err := z.Problem()
	require.NoError(t, err)
	assert.Equal(t, 3, p.NumberOfVariables())
	assert.False(t, p.HasConstraints())

	// x = (0, 0, 0) lies on the Pareto front: g = 1.
	ind, err := framework.NewIndividualFromValues(p, []framework.VariableValue{
		framework.Choice(0), framework.Choice(0), framework.Choice(0),
	})
	require.NoError(t, err)
	res, err := z.Evaluate(context.Background(), ind)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Objectives["f1"])
	assert.Equal(t, 1.0, res.Objectives["f2"])

	ind, err = framework.NewIndividualFromValues(p, []framework.VariableValue{
		framework.Choice(4), framework.Choice(10), framework.Choice(10),
	})
	require.NoError(t, err)
	res, err = z.Evaluate(context.Background(), ind)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, res.Objectives["f1"], 1e-12)
	assert.InDelta(t, 10*(1-math.Sqrt(0.04)), res.Objectives["f2"], 1e-12)

	front := z.TrueParetoFront(5)
	require.Len(t, front, 5)
	assert.Equal(t, []float64{0, 1}, front[0])
	assert.Equal(t, []float64{1, 0}, front[4])
}
