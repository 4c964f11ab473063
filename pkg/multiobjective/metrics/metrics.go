package metrics

import (
	"sync"
	"time"

	"k8s.io/component-base/metrics"
	"k8s.io/component-base/metrics/legacyregistry"
)

const subsystem = "multiobjective"

var (
	Generation = metrics.NewGaugeVec(
		&metrics.GaugeOpts{
			Subsystem:      subsystem,
			Name:           "generation",
			Help:           "Current generation of the optimisation run",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"algorithm", "problem"},
	)

	FunctionEvaluations = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Subsystem:      subsystem,
			Name:           "function_evaluations_total",
			Help:           "Number of individuals evaluated",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"algorithm", "problem"},
	)

	GenerationDuration = metrics.NewHistogramVec(
		&metrics.HistogramOpts{
			Subsystem:      subsystem,
			Name:           "generation_duration_seconds",
			Help:           "Time taken to evolve one generation",
			Buckets:        metrics.ExponentialBuckets(0.001, 2, 15),
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"algorithm", "problem"},
	)

	FirstFrontSize = metrics.NewGaugeVec(
		&metrics.GaugeOpts{
			Subsystem:      subsystem,
			Name:           "first_front_size",
			Help:           "Number of individuals in the first non-dominated front",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"algorithm", "problem"},
	)

	PlanLookups = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Subsystem:      subsystem,
			Name:           "plan_lookups_total",
			Help:           "Number of placement plan lookups made by the scheduler plugin",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"result"},
	)

	registerOnce sync.Once
)

// Register registers the optimiser metrics with the legacy registry.
func Register() {
	registerOnce.Do(func() {
		legacyregistry.MustRegister(Generation)
		legacyregistry.MustRegister(FunctionEvaluations)
		legacyregistry.MustRegister(GenerationDuration)
		legacyregistry.MustRegister(FirstFrontSize)
		legacyregistry.MustRegister(PlanLookups)
	})
}

// RecordGeneration records the end of a generation.
func RecordGeneration(algorithm, problem string, generation int, took time.Duration) {
	Generation.WithLabelValues(algorithm, problem).Set(float64(generation))
	GenerationDuration.WithLabelValues(algorithm, problem).Observe(took.Seconds())
}

func RecordEvaluations(algorithm, problem string, n int) {
	if n <= 0 {
		return
	}
	FunctionEvaluations.WithLabelValues(algorithm, problem).Add(float64(n))
}

func RecordFirstFrontSize(algorithm, problem string, size int) {
	FirstFrontSize.WithLabelValues(algorithm, problem).Set(float64(size))
}

// RecordPlanLookup counts a plugin lookup; result is "hit", "miss", "expired"
// or "error".
func RecordPlanLookup(result string) {
	PlanLookups.WithLabelValues(result).Inc()
}
