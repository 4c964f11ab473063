package framework

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownName is returned when a variable, objective or constraint
	// name does not exist on the problem.
	ErrUnknownName = errors.New("unknown name")
	// ErrTypeMismatch is returned when a value does not match the kind of
	// the variable or constraint it is written to.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNaNObjective is returned when NaN is written to an objective.
	ErrNaNObjective = errors.New("objective value is NaN")
	ErrMissingData  = errors.New("missing auxiliary data")

	ErrNotEnoughIndividuals = errors.New("not enough individuals")
	ErrNotEvaluated         = errors.New("individual is not evaluated")
	ErrDifferentProblems    = errors.New("individuals belong to different problems")

	ErrUnsupportedVariable      = errors.New("unsupported variable type")
	ErrInvalidProbability       = errors.New("probability must be between 0 and 1")
	ErrInvalidDistributionIndex = errors.New("distribution index must be a non-negative number")
)

// NameError reports a name that is unknown to, or missing from, a problem.
type NameError struct {
	// Kind is one of "variable", "objective" or "constraint".
	Kind string
	Name string
	Err  error
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *NameError) Unwrap() error {
	return e.Err
}

func unknownName(kind, name string) error {
	return &NameError{Kind: kind, Name: name, Err: ErrUnknownName}
}

// EvaluationError wraps a failure of the problem Evaluator or a result that
// does not cover the problem's objectives and constraints.
type EvaluationError struct {
	// Problem is the name of the problem being evaluated.
	Problem string
	// Name is the objective or constraint at fault, if any.
	Name string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("evaluation of problem %q failed: %v", e.Problem, e.Err)
	}
	return fmt.Sprintf("evaluation of problem %q failed for %q: %v", e.Problem, e.Name, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ErrMissingResult is wrapped by EvaluationError when the Evaluator omits
// a required objective or constraint.
var ErrMissingResult = errors.New("evaluator did not return a value")
