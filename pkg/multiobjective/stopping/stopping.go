// Package stopping decides when an optimisation run terminates.
//
// Conditions are evaluated by the driver after every generation against the
// run's Counters. Any and All combine simple conditions; logical conditions
// cannot be nested.
package stopping

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNestedCondition is returned when Any or All contains another
	// logical condition.
	ErrNestedCondition = errors.New("logical stopping conditions cannot be nested")
	// ErrEmptyCondition is returned when Any or All has no children.
	ErrEmptyCondition = errors.New("logical stopping condition has no children")
)

// Counters is the progress of a run at the end of a generation.
type Counters struct {
	Generation  int
	Evaluations int
	Elapsed     time.Duration
}

type Condition interface {
	Name() string
	IsMet(c Counters) (bool, error)
	String() string
}

// MaxGeneration stops once the generation counter reaches the limit.
type MaxGeneration int

func (m MaxGeneration) Name() string { return "max_generation" }

func (m MaxGeneration) IsMet(c Counters) (bool, error) {
	return c.Generation >= int(m), nil
}

func (m MaxGeneration) String() string {
	return fmt.Sprintf("%s(%d)", m.Name(), int(m))
}

// MaxDuration stops once the elapsed time reaches the limit.
type MaxDuration time.Duration

func (m MaxDuration) Name() string { return "max_duration" }

func (m MaxDuration) IsMet(c Counters) (bool, error) {
	return c.Elapsed >= time.Duration(m), nil
}

func (m MaxDuration) String() string {
	return fmt.Sprintf("%s(%s)", m.Name(), time.Duration(m))
}

// MaxFunctionEvaluations stops once the number of evaluated individuals
// reaches the limit.
type MaxFunctionEvaluations int

func (m MaxFunctionEvaluations) Name() string { return "max_function_evaluations" }

func (m MaxFunctionEvaluations) IsMet(c Counters) (bool, error) {
	return c.Evaluations >= int(m), nil
}

func (m MaxFunctionEvaluations) String() string {
	return fmt.Sprintf("%s(%d)", m.Name(), int(m))
}

type logical struct {
	name       string
	all        bool
	conditions []Condition
}

// Any is met when at least one of its conditions is met.
func Any(conditions ...Condition) Condition {
	return &logical{name: "any", conditions: conditions}
}

// All is met when every one of its conditions is met.
func All(conditions ...Condition) Condition {
	return &logical{name: "all", all: true, conditions: conditions}
}

func (l *logical) Name() string { return l.name }

// Conditions returns the children of a logical condition.
func (l *logical) Conditions() []Condition {
	return append([]Condition(nil), l.conditions...)
}

func (l *logical) IsMet(c Counters) (bool, error) {
	if len(l.conditions) == 0 {
		return false, fmt.Errorf("%s(): %w", l.name, ErrEmptyCondition)
	}
	for _, child := range l.conditions {
		if IsLogical(child) {
			return false, fmt.Errorf("%s contains %s: %w", l.name, child.Name(), ErrNestedCondition)
		}
	}
	// All children are checked even after the outcome is known so that
	// every child reports its errors.
	met := l.all
	for _, child := range l.conditions {
		ok, err := child.IsMet(c)
		if err != nil {
			return false, err
		}
		if l.all {
			met = met && ok
		} else {
			met = met || ok
		}
	}
	return met, nil
}

func (l *logical) String() string {
	parts := make([]string, len(l.conditions))
	for i, c := range l.conditions {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s[%s]", l.name, strings.Join(parts, ", "))
}

// IsLogical reports whether c was built by Any or All.
func IsLogical(c Condition) bool {
	_, ok := c.(*logical)
	return ok
}
