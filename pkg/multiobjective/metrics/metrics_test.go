package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/component-base/metrics/testutil"
)

func TestRecord(t *testing.T) {
	Register()
	// A second call must not panic on duplicate registration.
	Register()

	RecordGeneration("NSGA2", "metrics-test", 7, 20*time.Millisecond)
	got, err := testutil.GetGaugeMetricValue(Generation.WithLabelValues("NSGA2", "metrics-test"))
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)

	RecordEvaluations("NSGA2", "metrics-test", 10)
	RecordEvaluations("NSGA2", "metrics-test", 0)
	RecordEvaluations("NSGA2", "metrics-test", 5)
	got, err = testutil.GetCounterMetricValue(FunctionEvaluations.WithLabelValues("NSGA2", "metrics-test"))
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)

	RecordFirstFrontSize("NSGA2", "metrics-test", 4)
	got, err = testutil.GetGaugeMetricValue(FirstFrontSize.WithLabelValues("NSGA2", "metrics-test"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)

	count, err := testutil.GetHistogramMetricCount(GenerationDuration.WithLabelValues("NSGA2", "metrics-test"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
