package history

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/ktesting"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

func testProblem(t *testing.T, numVars int) *framework.Problem {
	t.Helper()
	vars := make([]framework.Variable, numVars)
	for i := range vars {
		v, err := framework.NewChoiceVariable(string(rune('a'+i)), []int{0, 1, 2})
		require.NoError(t, err)
		vars[i] = v
	}
	c, err := framework.NewScalarConstraint("budget", framework.LessThanOrEqual, 3)
	require.NoError(t, err)
	p, err := framework.NewProblem("history-test",
		[]framework.Objective{
			{Name: "cost", Direction: framework.Minimize},
			{Name: "score", Direction: framework.Maximize},
		},
		vars, []framework.Constraint{c},
		framework.EvaluatorFunc(func(context.Context, *framework.Individual) (*framework.EvaluationResult, error) {
			return nil, errors.New("not used")
		}))
	require.NoError(t, err)
	return p
}

func testSnapshot(t *testing.T, p *framework.Problem, size, generation int) *Snapshot {
	t.Helper()
	rng := rand.New(rand.NewPCG(4, 2))
	pop := framework.NewRandomPopulation(p, size, rng)
	for i, ind := range pop.Individuals() {
		require.NoError(t, ind.SetObjectiveValue("cost", float64(i)))
		require.NoError(t, ind.SetObjectiveValue("score", float64(10*i)))
		require.NoError(t, ind.SetConstraintValue("budget", framework.ScalarValue(uint64(i))))
		ind.SetEvaluated()
		ind.Aux().SetRank(1)
		ind.Aux().SetCrowdingDistance(math.Inf(1))
	}
	return &Snapshot{
		Options:                     map[string]string{"parallel": "false"},
		Problem:                     p.Record(),
		Individuals:                 pop.Records(),
		Generation:                  generation,
		NumberOfFunctionEvaluations: size * generation,
		Algorithm:                   "NSGA2",
		Took:                        NewTook(time.Hour + 2*time.Minute + 3500*time.Millisecond),
		ExportedOn:                  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
}

func TestSaveAndRead(t *testing.T) {
	dir := t.TempDir()
	p := testProblem(t, 3)
	s := testSnapshot(t, p, 4, 5)

	path, err := Save(context.Background(), dir, History, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "History_NSGA2_gen5.json"), path)

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.Generation, got.Generation)
	assert.Equal(t, s.NumberOfFunctionEvaluations, got.NumberOfFunctionEvaluations)
	assert.Equal(t, s.Took, got.Took)
	assert.Equal(t, s.ExportedOn, got.ExportedOn)
	assert.Equal(t, s.Problem, got.Problem)

	pop, err := got.Population(p)
	require.NoError(t, err)
	require.Equal(t, 4, pop.Len())
	for i, ind := range pop.Individuals() {
		assert.True(t, ind.IsEvaluated())
		score, err := ind.ObjectiveValue("score")
		require.NoError(t, err)
		assert.Equal(t, float64(10*i), score)
		d, ok := ind.Aux().CrowdingDistance()
		require.True(t, ok)
		assert.True(t, math.IsInf(d, 1))
	}
}

func TestSnapshotEncodesNonFiniteAsStrings(t *testing.T) {
	dir := t.TempDir()
	p := testProblem(t, 1)
	path, err := Save(context.Background(), dir, Final, testSnapshot(t, p, 2, 1))
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"crowding_distance": "Infinity"`)
	assert.Contains(t, string(raw), `"exported_on": "2024-05-01T12:00:00Z"`)
}

func TestReadFilesSortedByGeneration(t *testing.T) {
	dir := t.TempDir()
	p := testProblem(t, 2)
	for _, g := range []int{10, 0, 2} {
		prefix := History
		if g == 0 {
			prefix = Init
		}
		_, err := Save(context.Background(), dir, prefix, testSnapshot(t, p, 2, g))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	all, err := ReadFiles(dir)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{0, 2, 10}, []int{all[0].Generation, all[1].Generation, all[2].Generation})

	g, ok := GenerationOf(filepath.Join(dir, "Final_NSGA2_gen42.json"))
	assert.True(t, ok)
	assert.Equal(t, 42, g)
	_, ok = GenerationOf("notes.txt")
	assert.False(t, ok)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	corrupt := filepath.Join(t.TempDir(), "History_NSGA2_gen1.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	_, err = ReadFile(corrupt)
	assert.Error(t, err)
}

func TestSeedPopulation(t *testing.T) {
	dir := t.TempDir()
	p := testProblem(t, 3)
	path, err := Save(context.Background(), dir, Final, testSnapshot(t, p, 4, 7))
	require.NoError(t, err)

	pop, err := SeedPopulation(context.Background(), path, p, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, pop.Len())

	_, err = SeedPopulation(context.Background(), path, p, 6)
	var mismatch *ResumeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, ResumeMismatchError{What: "individuals", Expected: 6, Actual: 4}, *mismatch)
	assert.Contains(t, err.Error(), "6")
	assert.Contains(t, err.Error(), "4")

	_, err = SeedPopulation(context.Background(), path, testProblem(t, 5), 4)
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, ResumeMismatchError{What: "variables", Expected: 5, Actual: 3}, *mismatch)
}

func TestLogsCarryCallerValues(t *testing.T) {
	logger, ctx := ktesting.NewTestContext(t)
	ctx = klog.NewContext(ctx, logger.WithValues("algorithm", "NSGA2"))
	p := testProblem(t, 2)

	path, err := Save(ctx, t.TempDir(), Final, testSnapshot(t, p, 2, 3))
	require.NoError(t, err)
	_, err = SeedPopulation(ctx, path, p, 2)
	require.NoError(t, err)

	logs := logger.GetSink().(ktesting.Underlier).GetBuffer().String()
	assert.Contains(t, logs, "Exported snapshot")
	assert.Contains(t, logs, "Seeded population from snapshot")
	assert.Contains(t, logs, `algorithm="NSGA2"`)
}

func TestTook(t *testing.T) {
	d := 3*time.Hour + 25*time.Minute + 1500*time.Millisecond
	took := NewTook(d)
	assert.Equal(t, Took{Hours: 3, Minutes: 25, Seconds: 1.5}, took)
	assert.Equal(t, d, took.Duration())
}
