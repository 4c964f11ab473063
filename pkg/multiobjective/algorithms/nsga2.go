package algorithms

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"k8s.io/klog/v2"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/metrics"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/operators"
)

const (
	Name = "NSGA2"

	DefaultPopulationSize = 100
)

// NSGA2Args configures the NSGA-II strategy.
type NSGA2Args struct {
	PopulationSize        int
	Crossover             operators.SimulatedBinaryCrossoverArgs
	Mutation              operators.PolynomialMutationArgs
	TournamentCompetitors int
	// InitialPopulation replaces the random initial population, e.g. when
	// resuming from a snapshot. Its size must be PopulationSize.
	InitialPopulation *framework.Population
}

func DefaultNSGA2Args() NSGA2Args {
	return NSGA2Args{
		PopulationSize:        DefaultPopulationSize,
		Crossover:             operators.DefaultSimulatedBinaryCrossoverArgs(),
		Mutation:              operators.DefaultPolynomialMutationArgs(),
		TournamentCompetitors: operators.DefaultTournamentCompetitors,
	}
}

// NSGA2 is the elitist non-dominated sorting genetic algorithm. Offspring
// are bred from tournament winners, merged with their parents, and the
// best fronts survive. The last front that does not fit is truncated by
// crowding distance.
type NSGA2 struct {
	args      NSGA2Args
	crossover *operators.SimulatedBinaryCrossover
	mutation  *operators.PolynomialMutation
	selector  *operators.TournamentSelector

	firstFrontSize int
}

var _ Strategy = &NSGA2{}

func NewNSGA2(args NSGA2Args) (*NSGA2, error) {
	if args.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be at least 2, got %d", args.PopulationSize)
	}
	if args.TournamentCompetitors > args.PopulationSize {
		return nil, fmt.Errorf("tournament competitors %d exceed the population size %d", args.TournamentCompetitors, args.PopulationSize)
	}
	if p := args.InitialPopulation; p != nil && p.Len() != args.PopulationSize {
		return nil, fmt.Errorf("initial population has %d individuals, want %d", p.Len(), args.PopulationSize)
	}
	crossover, err := operators.NewSimulatedBinaryCrossover(args.Crossover)
	if err != nil {
		return nil, err
	}
	mutation, err := operators.NewPolynomialMutation(args.Mutation)
	if err != nil {
		return nil, err
	}
	selector, err := operators.NewTournamentSelector(framework.CrowdedComparison{}, args.TournamentCompetitors)
	if err != nil {
		return nil, err
	}
	return &NSGA2{
		args:      args,
		crossover: crossover,
		mutation:  mutation,
		selector:  selector,
	}, nil
}

func (n *NSGA2) Name() string {
	return Name
}

// Initialise evaluates the initial population and ranks it so that the
// first tournament can use the crowded comparison.
func (n *NSGA2) Initialise(ctx context.Context, h Handle) (*framework.Population, error) {
	pop := n.args.InitialPopulation
	if pop == nil {
		pop = framework.NewRandomPopulation(h.Problem(), n.args.PopulationSize, h.Rand())
	}
	if err := h.Evaluate(ctx, pop.Individuals()); err != nil {
		return nil, err
	}
	survivors, err := n.survive(pop.Individuals(), n.args.PopulationSize)
	if err != nil {
		return nil, err
	}
	n.recordFront(h)
	return framework.NewPopulation(survivors...), nil
}

func (n *NSGA2) Evolve(ctx context.Context, h Handle, population *framework.Population) (*framework.Population, error) {
	logger := klog.FromContext(ctx)
	rng := h.Rand()
	size := n.args.PopulationSize

	offspring := make([]*framework.Individual, 0, size)
	for len(offspring) < size {
		parents, err := n.selector.Select(population.Individuals(), 2, rng)
		if err != nil {
			return nil, fmt.Errorf("selecting parents: %w", err)
		}
		c1, c2, err := n.crossover.Generate(ctx, parents[0], parents[1], rng)
		if err != nil {
			return nil, fmt.Errorf("crossover: %w", err)
		}
		for _, c := range []*framework.Individual{c1, c2} {
			if len(offspring) == size {
				break
			}
			if err := n.mutation.Mutate(c, rng); err != nil {
				return nil, fmt.Errorf("mutation: %w", err)
			}
			offspring = append(offspring, c)
		}
	}
	if err := h.Evaluate(ctx, offspring); err != nil {
		return nil, err
	}

	combined := make([]*framework.Individual, 0, population.Len()+len(offspring))
	combined = append(combined, population.Individuals()...)
	combined = append(combined, offspring...)
	survivors, err := n.survive(combined, size)
	if err != nil {
		return nil, err
	}
	n.recordFront(h)
	logger.V(4).Info("Selected survivors", "generation", h.Generation(), "firstFront", n.firstFrontSize)
	return framework.NewPopulation(survivors...), nil
}

// survive keeps the size best individuals: whole fronts while they fit,
// then the most isolated members of the first front that does not.
func (n *NSGA2) survive(individuals []*framework.Individual, size int) ([]*framework.Individual, error) {
	sorted, err := framework.NonDominatedSort(individuals, false)
	if err != nil {
		return nil, err
	}
	n.firstFrontSize = len(sorted.Fronts[0])

	next := make([]*framework.Individual, 0, size)
	for _, front := range sorted.Fronts {
		if err := framework.CrowdingDistance(front); err != nil {
			return nil, err
		}
		if len(next)+len(front) <= size {
			next = append(next, front...)
			if len(next) == size {
				break
			}
			continue
		}

		remaining := append([]*framework.Individual(nil), front...)
		sort.SliceStable(remaining, func(i, j int) bool {
			di, _ := remaining[i].Aux().CrowdingDistance()
			dj, _ := remaining[j].Aux().CrowdingDistance()
			return di > dj
		})
		next = append(next, remaining[:size-len(next)]...)
		break
	}
	return next, nil
}

func (n *NSGA2) recordFront(h Handle) {
	metrics.RecordFirstFrontSize(n.Name(), h.Problem().Name(), n.firstFrontSize)
}

func (n *NSGA2) Options() map[string]string {
	a := n.args
	opts := map[string]string{
		"population_size":                strconv.Itoa(a.PopulationSize),
		"crossover_distribution_index":   strconv.FormatFloat(a.Crossover.DistributionIndex, 'g', -1, 64),
		"crossover_probability":          strconv.FormatFloat(a.Crossover.CrossoverProbability, 'g', -1, 64),
		"crossover_variable_probability": strconv.FormatFloat(a.Crossover.VariableProbability, 'g', -1, 64),
		"mutation_index_parameter":       strconv.FormatFloat(a.Mutation.IndexParameter, 'g', -1, 64),
		"tournament_competitors":         strconv.Itoa(a.TournamentCompetitors),
	}
	if a.Mutation.VariableProbability != nil {
		opts["mutation_variable_probability"] = strconv.FormatFloat(*a.Mutation.VariableProbability, 'g', -1, 64)
	}
	return opts
}

func (n *NSGA2) AdditionalData() map[string]string {
	return map[string]string{
		"first_front_size": strconv.Itoa(n.firstFrontSize),
	}
}

// FirstFront returns the non-dominated individuals of an evaluated
// population.
func FirstFront(population *framework.Population) ([]*framework.Individual, error) {
	if population.Len() == 1 {
		return population.Individuals(), nil
	}
	sorted, err := framework.NonDominatedSort(population.Individuals(), true)
	if err != nil {
		return nil, err
	}
	return sorted.Fronts[0], nil
}
