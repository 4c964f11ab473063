package algorithms

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/metrics"
)

// Evaluate evaluates the individuals, concurrently when Options.Parallel
// is set.
func (a *Algorithm) Evaluate(ctx context.Context, individuals []*framework.Individual) error {
	if a.options.Parallel {
		return a.DoParallelEvaluation(ctx, individuals)
	}
	return a.DoEvaluation(ctx, individuals)
}

// EvaluateIndividual evaluates one individual unless it is already
// evaluated. It reports whether the evaluator was called.
func (a *Algorithm) EvaluateIndividual(ctx context.Context, individual *framework.Individual) (bool, error) {
	if individual.IsEvaluated() {
		return false, nil
	}
	if err := evaluate(ctx, a.problem, individual); err != nil {
		return false, err
	}
	a.addEvaluations(1)
	return true, nil
}

// DoEvaluation evaluates the individuals one after the other.
func (a *Algorithm) DoEvaluation(ctx context.Context, individuals []*framework.Individual) error {
	for _, ind := range pending(individuals) {
		if err := evaluate(ctx, a.problem, ind); err != nil {
			return err
		}
		a.addEvaluations(1)
	}
	return nil
}

// DoParallelEvaluation evaluates the individuals on up to GOMAXPROCS
// goroutines. Each goroutine only writes to its own individual, so the
// outcome is identical to DoEvaluation.
func (a *Algorithm) DoParallelEvaluation(ctx context.Context, individuals []*framework.Individual) error {
	todo := pending(individuals)
	if len(todo) == 0 {
		return nil
	}

	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, ind := range todo {
		g.Go(func() error {
			return evaluate(ctx, a.problem, ind)
		})
	}
	if err := g.Wait(); err != nil {
		done := 0
		for _, ind := range todo {
			if ind.IsEvaluated() {
				done++
			}
		}
		a.addEvaluations(done)
		return err
	}
	a.addEvaluations(len(todo))
	return nil
}

func (a *Algorithm) addEvaluations(n int) {
	a.evaluations += n
	metrics.RecordEvaluations(a.Name(), a.problem.Name(), n)
}

// pending returns the individuals not evaluated yet, each one once.
func pending(individuals []*framework.Individual) []*framework.Individual {
	seen := make(map[*framework.Individual]struct{}, len(individuals))
	out := make([]*framework.Individual, 0, len(individuals))
	for _, ind := range individuals {
		if ind.IsEvaluated() {
			continue
		}
		if _, ok := seen[ind]; ok {
			continue
		}
		seen[ind] = struct{}{}
		out = append(out, ind)
	}
	return out
}

// evaluate calls the problem evaluator and stores its result on the
// individual.
func evaluate(ctx context.Context, problem *framework.Problem, ind *framework.Individual) error {
	if ind.Problem() != problem {
		return framework.ErrDifferentProblems
	}
	res, err := problem.Evaluator().Evaluate(ctx, ind)
	if err != nil {
		return &framework.EvaluationError{Problem: problem.Name(), Err: err}
	}
	if res == nil {
		return &framework.EvaluationError{Problem: problem.Name(), Err: framework.ErrMissingResult}
	}

	if err := checkResult(problem, res); err != nil {
		return err
	}
	for _, o := range problem.Objectives() {
		if err := ind.SetObjectiveValue(o.Name, res.Objectives[o.Name]); err != nil {
			return &framework.EvaluationError{Problem: problem.Name(), Name: o.Name, Err: err}
		}
	}
	for _, c := range problem.Constraints() {
		if err := ind.SetConstraintValue(c.Name(), res.Constraints[c.Name()]); err != nil {
			return &framework.EvaluationError{Problem: problem.Name(), Name: c.Name(), Err: err}
		}
	}
	ind.SetEvaluated()

	if logger := klog.FromContext(ctx); logger.V(5).Enabled() {
		logger.V(5).Info("Evaluated individual", "individual", ind.String(), "objectives", fmt.Sprint(ind.ObjectiveValues()), "violation", ind.ConstraintViolation())
	}
	return nil
}

// checkResult verifies that res holds a valid value for every objective and
// constraint of problem and nothing else. Nothing is written to the
// individual unless the whole result is usable.
func checkResult(problem *framework.Problem, res *framework.EvaluationResult) error {
	for _, o := range problem.Objectives() {
		v, ok := res.Objectives[o.Name]
		if !ok {
			return &framework.EvaluationError{Problem: problem.Name(), Name: o.Name, Err: framework.ErrMissingResult}
		}
		if math.IsNaN(v) {
			return &framework.EvaluationError{Problem: problem.Name(), Name: o.Name, Err: framework.ErrNaNObjective}
		}
	}
	for _, c := range problem.Constraints() {
		v, ok := res.Constraints[c.Name()]
		if !ok || v == nil {
			return &framework.EvaluationError{Problem: problem.Name(), Name: c.Name(), Err: framework.ErrMissingResult}
		}
		if err := c.Validate(v); err != nil {
			return &framework.EvaluationError{Problem: problem.Name(), Name: c.Name(), Err: err}
		}
	}
	if len(res.Objectives) != problem.NumberOfObjectives() || len(res.Constraints) != problem.NumberOfConstraints() {
		for name := range res.Objectives {
			if _, err := problem.ObjectiveIndex(name); err != nil {
				return &framework.EvaluationError{Problem: problem.Name(), Name: name, Err: err}
			}
		}
		for name := range res.Constraints {
			if _, err := problem.ConstraintIndex(name); err != nil {
				return &framework.EvaluationError{Problem: problem.Name(), Name: name, Err: err}
			}
		}
	}
	return nil
}
