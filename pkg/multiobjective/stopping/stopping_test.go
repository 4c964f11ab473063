package stopping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleConditions(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		counters  Counters
		want      bool
	}{
		{"generation below", MaxGeneration(10), Counters{Generation: 9}, false},
		{"generation reached", MaxGeneration(10), Counters{Generation: 10}, true},
		{"generation beyond", MaxGeneration(10), Counters{Generation: 11}, true},
		{"evaluations below", MaxFunctionEvaluations(20), Counters{Evaluations: 19}, false},
		{"evaluations reached", MaxFunctionEvaluations(20), Counters{Evaluations: 20}, true},
		{"duration below", MaxDuration(time.Minute), Counters{Elapsed: 59 * time.Second}, false},
		{"duration reached", MaxDuration(time.Minute), Counters{Elapsed: time.Minute}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.condition.IsMet(tt.counters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogicalConditions(t *testing.T) {
	anyOf := Any(MaxFunctionEvaluations(20), MaxGeneration(10))
	allOf := All(MaxFunctionEvaluations(20), MaxGeneration(10))

	tests := []struct {
		counters Counters
		wantAny  bool
		wantAll  bool
	}{
		{Counters{Generation: 1, Evaluations: 10}, false, false},
		{Counters{Generation: 2, Evaluations: 20}, true, false},
		{Counters{Generation: 10, Evaluations: 5}, true, false},
		{Counters{Generation: 10, Evaluations: 100}, true, true},
	}
	for _, tt := range tests {
		got, err := anyOf.IsMet(tt.counters)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAny, got, "any %+v", tt.counters)

		got, err = allOf.IsMet(tt.counters)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAll, got, "all %+v", tt.counters)
	}
}

func TestLogicalConditionErrors(t *testing.T) {
	_, err := Any().IsMet(Counters{})
	assert.ErrorIs(t, err, ErrEmptyCondition)
	_, err = All().IsMet(Counters{})
	assert.ErrorIs(t, err, ErrEmptyCondition)

	nested := Any(MaxGeneration(1), All(MaxGeneration(2)))
	_, err = nested.IsMet(Counters{Generation: 5})
	assert.ErrorIs(t, err, ErrNestedCondition)
}

func TestConditionString(t *testing.T) {
	c := Any(MaxGeneration(3), MaxDuration(90*time.Second), MaxFunctionEvaluations(100))
	assert.Equal(t, "any[max_generation(3), max_duration(1m30s), max_function_evaluations(100)]", c.String())
	assert.True(t, IsLogical(c))
	assert.False(t, IsLogical(MaxGeneration(3)))
}
