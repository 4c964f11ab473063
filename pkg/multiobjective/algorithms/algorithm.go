package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/history"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/metrics"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/stopping"
)

// ErrTerminated is returned by Run when the algorithm already finished.
var ErrTerminated = errors.New("algorithm already terminated")

type State int

const (
	Uninitialised State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "Uninitialised"
	case Running:
		return "Running"
	case Terminated:
		return "Terminated"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// ExportOptions enables snapshots of the population.
type ExportOptions struct {
	// Dir is where the snapshots are written.
	Dir string
	// GenerationStep writes a History snapshot every GenerationStep
	// generations. Zero only writes the Init and Final snapshots.
	GenerationStep int
}

type Options struct {
	// Parallel evaluates individuals concurrently.
	Parallel bool
	// Export is nil when no snapshot is written.
	Export *ExportOptions
	// Clock defaults to the real clock.
	Clock clock.PassiveClock
}

// Handle is what a Strategy sees of the running algorithm.
type Handle interface {
	Problem() *framework.Problem
	Rand() *rand.Rand
	Generation() int
	Evaluations() int
	// Evaluate evaluates the individuals that are not evaluated yet.
	Evaluate(ctx context.Context, individuals []*framework.Individual) error
}

// Strategy is the concrete evolutionary algorithm run by the driver.
type Strategy interface {
	Name() string
	// Initialise returns the first, evaluated, population.
	Initialise(ctx context.Context, h Handle) (*framework.Population, error)
	// Evolve returns the evaluated population of the next generation.
	Evolve(ctx context.Context, h Handle, population *framework.Population) (*framework.Population, error)
	// Options describes the strategy settings for snapshots.
	Options() map[string]string
	AdditionalData() map[string]string
}

// Algorithm runs a Strategy on a Problem until the stopping condition is
// met, keeping track of generations, function evaluations and time.
type Algorithm struct {
	problem  *framework.Problem
	strategy Strategy
	stop     stopping.Condition
	rng      *rand.Rand
	options  Options
	clock    clock.PassiveClock

	state       State
	population  *framework.Population
	generation  int
	evaluations int
	start       time.Time
	elapsed     time.Duration
}

var _ Handle = &Algorithm{}

func New(problem *framework.Problem, strategy Strategy, stop stopping.Condition, rng *rand.Rand, options Options) (*Algorithm, error) {
	switch {
	case problem == nil:
		return nil, errors.New("algorithm needs a problem")
	case strategy == nil:
		return nil, errors.New("algorithm needs a strategy")
	case stop == nil:
		return nil, errors.New("algorithm needs a stopping condition")
	case rng == nil:
		return nil, errors.New("algorithm needs a random generator")
	}
	if e := options.Export; e != nil {
		if e.Dir == "" {
			return nil, errors.New("export directory must not be empty")
		}
		if e.GenerationStep < 0 {
			return nil, fmt.Errorf("export generation step must not be negative, got %d", e.GenerationStep)
		}
	}
	c := options.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	return &Algorithm{
		problem:  problem,
		strategy: strategy,
		stop:     stop,
		rng:      rng,
		options:  options,
		clock:    c,
	}, nil
}

func (a *Algorithm) Name() string                 { return a.strategy.Name() }
func (a *Algorithm) Problem() *framework.Problem { return a.problem }
func (a *Algorithm) Rand() *rand.Rand             { return a.rng }
func (a *Algorithm) State() State                 { return a.state }
func (a *Algorithm) Generation() int              { return a.generation }
func (a *Algorithm) Evaluations() int             { return a.evaluations }

// Population returns the current population, nil before Run.
func (a *Algorithm) Population() *framework.Population {
	return a.population
}

func (a *Algorithm) counters() stopping.Counters {
	return stopping.Counters{
		Generation:  a.generation,
		Evaluations: a.evaluations,
		Elapsed:     a.elapsed,
	}
}

// Run initialises the population and evolves it until the stopping
// condition is met. The context carries the logger and is passed to the
// evaluator; cancelling it does not stop the run.
func (a *Algorithm) Run(ctx context.Context) error {
	if a.state == Terminated {
		return ErrTerminated
	}
	logger := klog.FromContext(ctx).WithValues("algorithm", a.Name(), "problem", a.problem.Name())
	ctx = klog.NewContext(ctx, logger)

	a.state = Running
	a.start = a.clock.Now()
	logger.V(2).Info("Starting optimisation", "stop", a.stop.String(), "parallel", a.options.Parallel)

	pop, err := a.strategy.Initialise(ctx, a)
	if err != nil {
		a.state = Terminated
		return fmt.Errorf("initialising %s: %w", a.Name(), err)
	}
	a.population = pop
	a.elapsed = a.clock.Since(a.start)
	if err := a.export(ctx, history.Init); err != nil {
		a.state = Terminated
		return err
	}
	// The initial population is the first generation.
	a.generation = 1
	metrics.RecordGeneration(a.Name(), a.problem.Name(), a.generation, a.elapsed)

	for {
		if e := a.options.Export; e != nil && e.GenerationStep > 0 && a.generation%e.GenerationStep == 0 {
			if err := a.export(ctx, history.History); err != nil {
				a.state = Terminated
				return err
			}
		}

		started := a.clock.Now()
		pop, err := a.strategy.Evolve(ctx, a, a.population)
		if err != nil {
			a.state = Terminated
			return fmt.Errorf("evolving generation %d: %w", a.generation, err)
		}
		a.population = pop
		a.generation++
		a.elapsed = a.clock.Since(a.start)
		metrics.RecordGeneration(a.Name(), a.problem.Name(), a.generation, a.clock.Since(started))
		logger.V(2).Info("Evolved generation", "generation", a.generation, "evaluations", a.evaluations, "elapsed", a.elapsed)

		met, err := a.stop.IsMet(a.counters())
		if err != nil {
			a.state = Terminated
			return fmt.Errorf("checking stopping condition: %w", err)
		}
		if met {
			break
		}
	}

	a.state = Terminated
	if err := a.export(ctx, history.Final); err != nil {
		return err
	}
	logger.V(2).Info("Optimisation finished", "generations", a.generation, "evaluations", a.evaluations, "took", a.elapsed)
	return nil
}

func (a *Algorithm) export(ctx context.Context, prefix history.Prefix) error {
	e := a.options.Export
	if e == nil {
		return nil
	}
	if _, err := history.Save(ctx, e.Dir, prefix, a.Snapshot()); err != nil {
		return fmt.Errorf("exporting %s snapshot of generation %d: %w", prefix, a.generation, err)
	}
	return nil
}

// Snapshot describes the current state of the run.
func (a *Algorithm) Snapshot() *history.Snapshot {
	options := map[string]string{
		"parallel":           strconv.FormatBool(a.options.Parallel),
		"stopping_condition": a.stop.String(),
	}
	if e := a.options.Export; e != nil {
		options["generation_step"] = strconv.Itoa(e.GenerationStep)
	}
	for k, v := range a.strategy.Options() {
		options[k] = v
	}
	s := &history.Snapshot{
		Options:                     options,
		Problem:                     a.problem.Record(),
		Generation:                  a.generation,
		NumberOfFunctionEvaluations: a.evaluations,
		Algorithm:                   a.Name(),
		AdditionalData:              a.strategy.AdditionalData(),
		Took:                        history.NewTook(a.elapsed),
		ExportedOn:                  a.clock.Now().UTC().Format(time.RFC3339),
	}
	if a.population != nil {
		s.Individuals = a.population.Records()
	}
	return s
}

// Results is the outcome of a run.
type Results struct {
	Population     *framework.Population
	Generation     int
	Evaluations    int
	Elapsed        time.Duration
	Algorithm      string
	AdditionalData map[string]string
}

func (a *Algorithm) Results() Results {
	return Results{
		Population:     a.population,
		Generation:     a.generation,
		Evaluations:    a.evaluations,
		Elapsed:        a.elapsed,
		Algorithm:      a.Name(),
		AdditionalData: a.strategy.AdditionalData(),
	}
}
