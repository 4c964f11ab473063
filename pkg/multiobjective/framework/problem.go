package framework

import (
	"context"
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Direction tells whether an objective is minimised or maximised.
type Direction string

const (
	Minimize Direction = "minimize"
	Maximize Direction = "maximize"
)

// Objective is one of the competing goals of a Problem.
type Objective struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
}

// EvaluationResult is returned by an Evaluator. Objectives must contain a
// value for every objective of the problem and Constraints a value for
// every constraint.
type EvaluationResult struct {
	Objectives  map[string]float64
	Constraints map[string]ConstraintValue
}

// Evaluator computes the objective and constraint values of an individual.
// Implementations are called concurrently on different individuals and
// must not modify the individual they receive.
type Evaluator interface {
	Evaluate(ctx context.Context, individual *Individual) (*EvaluationResult, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, individual *Individual) (*EvaluationResult, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, individual *Individual) (*EvaluationResult, error) {
	return f(ctx, individual)
}

// Problem is the immutable description of an optimisation problem. It is
// shared by every Individual created from it.
type Problem struct {
	name string

	objectives     []Objective
	objectiveIndex map[string]int

	variables     []Variable
	variableIndex map[string]int

	constraints     []Constraint
	constraintIndex map[string]int

	evaluator Evaluator
}

// NewProblem validates and builds a Problem. All validation errors are
// reported together.
func NewProblem(name string, objectives []Objective, variables []Variable, constraints []Constraint, evaluator Evaluator) (*Problem, error) {
	var errs []error
	if name == "" {
		errs = append(errs, errors.New("problem name must not be empty"))
	}
	if len(objectives) == 0 {
		errs = append(errs, errors.New("problem needs at least one objective"))
	}
	if len(variables) == 0 {
		errs = append(errs, errors.New("problem needs at least one variable"))
	}
	if evaluator == nil {
		errs = append(errs, errors.New("problem needs an evaluator"))
	}

	p := &Problem{
		name:            name,
		objectives:      append([]Objective(nil), objectives...),
		objectiveIndex:  make(map[string]int, len(objectives)),
		variables:       append([]Variable(nil), variables...),
		variableIndex:   make(map[string]int, len(variables)),
		constraints:     append([]Constraint(nil), constraints...),
		constraintIndex: make(map[string]int, len(constraints)),
		evaluator:       evaluator,
	}

	for i, o := range p.objectives {
		if o.Name == "" {
			errs = append(errs, fmt.Errorf("objective #%d has no name", i))
			continue
		}
		if o.Direction != Minimize && o.Direction != Maximize {
			errs = append(errs, fmt.Errorf("objective %q has unknown direction %q", o.Name, o.Direction))
		}
		if _, ok := p.objectiveIndex[o.Name]; ok {
			errs = append(errs, fmt.Errorf("objective %q is defined twice", o.Name))
			continue
		}
		p.objectiveIndex[o.Name] = i
	}
	for i, v := range p.variables {
		if v == nil {
			errs = append(errs, fmt.Errorf("variable #%d is nil", i))
			continue
		}
		if _, ok := p.variableIndex[v.Name()]; ok {
			errs = append(errs, fmt.Errorf("variable %q is defined twice", v.Name()))
			continue
		}
		p.variableIndex[v.Name()] = i
	}
	for i, c := range p.constraints {
		if c == nil {
			errs = append(errs, fmt.Errorf("constraint #%d is nil", i))
			continue
		}
		if _, ok := p.constraintIndex[c.Name()]; ok {
			errs = append(errs, fmt.Errorf("constraint %q is defined twice", c.Name()))
			continue
		}
		p.constraintIndex[c.Name()] = i
	}

	if err := utilerrors.NewAggregate(errs); err != nil {
		return nil, fmt.Errorf("invalid problem %q: %w", name, err)
	}
	return p, nil
}

func (p *Problem) Name() string {
	return p.name
}

// Objectives returns a copy of the objectives in problem order.
func (p *Problem) Objectives() []Objective {
	return append([]Objective(nil), p.objectives...)
}

// Variables returns a copy of the variables in problem order.
func (p *Problem) Variables() []Variable {
	return append([]Variable(nil), p.variables...)
}

// Constraints returns a copy of the constraints in problem order.
func (p *Problem) Constraints() []Constraint {
	return append([]Constraint(nil), p.constraints...)
}

func (p *Problem) Evaluator() Evaluator {
	return p.evaluator
}

func (p *Problem) NumberOfObjectives() int  { return len(p.objectives) }
func (p *Problem) NumberOfVariables() int   { return len(p.variables) }
func (p *Problem) NumberOfConstraints() int { return len(p.constraints) }
func (p *Problem) HasConstraints() bool     { return len(p.constraints) > 0 }

// ObjectiveIndex returns the position of the named objective.
func (p *Problem) ObjectiveIndex(name string) (int, error) {
	i, ok := p.objectiveIndex[name]
	if !ok {
		return 0, unknownName("objective", name)
	}
	return i, nil
}

// VariableIndex returns the position of the named variable.
func (p *Problem) VariableIndex(name string) (int, error) {
	i, ok := p.variableIndex[name]
	if !ok {
		return 0, unknownName("variable", name)
	}
	return i, nil
}

// ConstraintIndex returns the position of the named constraint.
func (p *Problem) ConstraintIndex(name string) (int, error) {
	i, ok := p.constraintIndex[name]
	if !ok {
		return 0, unknownName("constraint", name)
	}
	return i, nil
}

// Variable returns the named variable.
func (p *Problem) Variable(name string) (Variable, error) {
	i, err := p.VariableIndex(name)
	if err != nil {
		return nil, err
	}
	return p.variables[i], nil
}

// Constraint returns the named constraint.
func (p *Problem) Constraint(name string) (Constraint, error) {
	i, err := p.ConstraintIndex(name)
	if err != nil {
		return nil, err
	}
	return p.constraints[i], nil
}

// IsMaximized reports whether the i-th objective is maximised.
func (p *Problem) IsMaximized(i int) bool {
	return p.objectives[i].Direction == Maximize
}
