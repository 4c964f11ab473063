package placement

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/algorithms"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/history"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/stopping"
)

// Options tunes Optimize beyond what the request describes.
type Options struct {
	// CacheTTL is how long evaluations are memoised, zero keeps them for
	// the whole run.
	CacheTTL time.Duration
	// Clock defaults to the real clock.
	Clock clock.PassiveClock
}

// Result is the outcome of Optimize.
type Result struct {
	Cluster *Cluster
	Problem *framework.Problem
	Results algorithms.Results
	// Front is the first non-dominated front of the final population.
	Front []*framework.Individual
	Best  *framework.Individual
	// Seed reproduces the run.
	Seed uint64
}

// StoppingCondition converts the stopping section of a request.
func StoppingCondition(s v1alpha1.StoppingSpec) (stopping.Condition, error) {
	var conditions []stopping.Condition
	if s.MaxGenerations != nil {
		conditions = append(conditions, stopping.MaxGeneration(*s.MaxGenerations))
	}
	if s.MaxDuration != nil {
		conditions = append(conditions, stopping.MaxDuration(s.MaxDuration.Duration))
	}
	if s.MaxFunctionEvaluations != nil {
		conditions = append(conditions, stopping.MaxFunctionEvaluations(*s.MaxFunctionEvaluations))
	}
	if len(conditions) == 0 {
		return nil, stopping.ErrEmptyCondition
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	switch s.Mode {
	case v1alpha1.StoppingModeAll:
		return stopping.All(conditions...), nil
	case v1alpha1.StoppingModeAny, "":
		return stopping.Any(conditions...), nil
	}
	return nil, fmt.Errorf("unknown stopping mode %q", s.Mode)
}

// NSGA2Args converts the algorithm section of a defaulted request.
func NSGA2Args(a v1alpha1.AlgorithmSpec) algorithms.NSGA2Args {
	args := algorithms.DefaultNSGA2Args()
	if a.PopulationSize != nil {
		args.PopulationSize = int(*a.PopulationSize)
	}
	if a.CrossoverProbability != nil {
		args.Crossover.CrossoverProbability = *a.CrossoverProbability
	}
	if a.CrossoverVariableProbability != nil {
		args.Crossover.VariableProbability = *a.CrossoverVariableProbability
	}
	if a.CrossoverDistributionIndex != nil {
		args.Crossover.DistributionIndex = *a.CrossoverDistributionIndex
	}
	if a.MutationIndexParameter != nil {
		args.Mutation.IndexParameter = *a.MutationIndexParameter
	}
	args.Mutation.VariableProbability = a.MutationVariableProbability
	if a.TournamentCompetitors != nil {
		args.TournamentCompetitors = int(*a.TournamentCompetitors)
	}
	return args
}

// Optimize searches placements for a request. The request is defaulted and
// validated first.
func Optimize(ctx context.Context, req *v1alpha1.PlacementRequest, opts Options) (*Result, error) {
	logger := klog.FromContext(ctx).WithValues("request", klog.KObj(req))
	ctx = klog.NewContext(ctx, logger)

	v1alpha1.SetDefaults_PlacementRequest(req)
	if errs := v1alpha1.ValidatePlacementRequest(req); len(errs) > 0 {
		return nil, fmt.Errorf("invalid placement request: %w", errs.ToAggregate())
	}

	cluster, err := NewCluster(&req.Spec)
	if err != nil {
		return nil, err
	}
	evaluator := NewCachingEvaluator(NewEvaluator(cluster), opts.CacheTTL)
	problem, err := NewProblem(cluster, evaluator)
	if err != nil {
		return nil, err
	}

	a := req.Spec.Algorithm
	args := NSGA2Args(a)
	if a.ResumeFrom != "" {
		pop, err := history.SeedPopulation(ctx, a.ResumeFrom, problem, args.PopulationSize)
		if err != nil {
			return nil, err
		}
		args.InitialPopulation = pop
	}
	strategy, err := algorithms.NewNSGA2(args)
	if err != nil {
		return nil, err
	}
	stop, err := StoppingCondition(a.Stopping)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if a.Seed != nil {
		seed = *a.Seed
	}
	options := algorithms.Options{Clock: opts.Clock}
	if a.Parallel != nil {
		options.Parallel = *a.Parallel
	}
	if e := a.Export; e != nil {
		options.Export = &algorithms.ExportOptions{Dir: e.Dir, GenerationStep: int(e.GenerationStep)}
	}
	alg, err := algorithms.New(problem, strategy, stop, rand.New(rand.NewPCG(seed, seed)), options)
	if err != nil {
		return nil, err
	}

	logger.V(2).Info("Optimising placement", "services", len(cluster.Services), "nodes", len(cluster.Nodes), "seed", seed)
	if err := alg.Run(ctx); err != nil {
		return nil, err
	}

	results := alg.Results()
	front, err := algorithms.FirstFront(results.Population)
	if err != nil {
		return nil, err
	}
	best, err := BestIndividual(front, cluster.Weights)
	if err != nil {
		return nil, err
	}
	logger.V(2).Info("Placement found", "feasible", best.IsFeasible(), "front", len(front),
		"cacheHits", evaluator.Hits(), "cacheMisses", evaluator.Misses())
	return &Result{
		Cluster: cluster,
		Problem: problem,
		Results: results,
		Front:   front,
		Best:    best,
		Seed:    seed,
	}, nil
}
