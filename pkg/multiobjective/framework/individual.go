package framework

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// AuxData is the side table algorithms use to attach ranking data to an
// Individual. The set of slots is closed; each slot is either set or absent.
type AuxData struct {
	rank             *int
	crowdingDistance *float64
}

// Rank returns the non-dominated front the individual belongs to (1 is the
// best front).
func (a *AuxData) Rank() (int, bool) {
	if a.rank == nil {
		return 0, false
	}
	return *a.rank, true
}

func (a *AuxData) SetRank(rank int) {
	a.rank = &rank
}

// CrowdingDistance returns the value set by CrowdingDistance().
func (a *AuxData) CrowdingDistance() (float64, bool) {
	if a.crowdingDistance == nil {
		return 0, false
	}
	return *a.crowdingDistance, true
}

func (a *AuxData) SetCrowdingDistance(d float64) {
	a.crowdingDistance = &d
}

// Reset clears every slot.
func (a *AuxData) Reset() {
	a.rank = nil
	a.crowdingDistance = nil
}

func (a AuxData) clone() AuxData {
	var c AuxData
	if r, ok := a.Rank(); ok {
		c.SetRank(r)
	}
	if d, ok := a.CrowdingDistance(); ok {
		c.SetCrowdingDistance(d)
	}
	return c
}

// Individual is one candidate solution of a Problem.
type Individual struct {
	problem *Problem

	variables []VariableValue
	// objectives are stored minimise-signed: maximised objectives are
	// negated when written.
	objectives  []float64
	constraints []ConstraintValue
	evaluated   bool

	aux AuxData
}

// NewIndividual creates an unevaluated individual with random variable
// values drawn from rng.
func NewIndividual(problem *Problem, rng *rand.Rand) *Individual {
	ind := newBlankIndividual(problem)
	for i, v := range problem.variables {
		ind.variables[i] = v.Random(rng)
	}
	return ind
}

// NewIndividualFromValues creates an unevaluated individual with the given
// variable values, in problem order.
func NewIndividualFromValues(problem *Problem, values []VariableValue) (*Individual, error) {
	if len(values) != len(problem.variables) {
		return nil, fmt.Errorf("problem %q has %d variables, got %d values: %w", problem.name, len(problem.variables), len(values), ErrTypeMismatch)
	}
	ind := newBlankIndividual(problem)
	for i, v := range values {
		if err := problem.variables[i].Validate(v); err != nil {
			return nil, err
		}
		ind.variables[i] = v
	}
	return ind, nil
}

func newBlankIndividual(problem *Problem) *Individual {
	ind := &Individual{
		problem:     problem,
		variables:   make([]VariableValue, len(problem.variables)),
		objectives:  make([]float64, len(problem.objectives)),
		constraints: make([]ConstraintValue, len(problem.constraints)),
	}
	for i := range ind.objectives {
		ind.objectives[i] = math.NaN()
	}
	return ind
}

func (ind *Individual) Problem() *Problem {
	return ind.problem
}

// Variables returns a copy of the variable values in problem order.
func (ind *Individual) Variables() []VariableValue {
	return append([]VariableValue(nil), ind.variables...)
}

// VariableAt returns the value of the i-th variable.
func (ind *Individual) VariableAt(i int) VariableValue {
	return ind.variables[i]
}

// Variable returns the value of the named variable.
func (ind *Individual) Variable(name string) (VariableValue, error) {
	i, err := ind.problem.VariableIndex(name)
	if err != nil {
		return VariableValue{}, err
	}
	return ind.variables[i], nil
}

// SetVariable assigns a variable. Changing the assignment discards any
// previous evaluation.
func (ind *Individual) SetVariable(name string, v VariableValue) error {
	i, err := ind.problem.VariableIndex(name)
	if err != nil {
		return err
	}
	return ind.SetVariableAt(i, v)
}

// SetVariableAt assigns the i-th variable.
func (ind *Individual) SetVariableAt(i int, v VariableValue) error {
	if i < 0 || i >= len(ind.variables) {
		return fmt.Errorf("variable index %d out of range [0, %d)", i, len(ind.variables))
	}
	if err := ind.problem.variables[i].Validate(v); err != nil {
		return err
	}
	if ind.variables[i].Equal(v) {
		return nil
	}
	ind.variables[i] = v
	ind.reset()
	return nil
}

func (ind *Individual) reset() {
	for i := range ind.objectives {
		ind.objectives[i] = math.NaN()
	}
	for i := range ind.constraints {
		ind.constraints[i] = nil
	}
	ind.evaluated = false
	ind.aux.Reset()
}

// ObjectiveValue returns the named objective in the user's convention
// (maximised objectives are positive when large).
func (ind *Individual) ObjectiveValue(name string) (float64, error) {
	i, err := ind.problem.ObjectiveIndex(name)
	if err != nil {
		return 0, err
	}
	return ind.objectiveAt(i), nil
}

// ObjectiveValues returns all objectives, in problem order and in the
// user's convention.
func (ind *Individual) ObjectiveValues() []float64 {
	out := make([]float64, len(ind.objectives))
	for i := range ind.objectives {
		out[i] = ind.objectiveAt(i)
	}
	return out
}

func (ind *Individual) objectiveAt(i int) float64 {
	if ind.problem.IsMaximized(i) {
		return -ind.objectives[i]
	}
	return ind.objectives[i]
}

// SetObjectiveValue stores the named objective. The value is given in the
// user's convention.
func (ind *Individual) SetObjectiveValue(name string, v float64) error {
	i, err := ind.problem.ObjectiveIndex(name)
	if err != nil {
		return err
	}
	if math.IsNaN(v) {
		return fmt.Errorf("objective %q: %w", name, ErrNaNObjective)
	}
	if ind.problem.IsMaximized(i) {
		v = -v
	}
	ind.objectives[i] = v
	return nil
}

// ConstraintValue returns the value of the named constraint, or nil when it
// has not been computed yet.
func (ind *Individual) ConstraintValue(name string) (ConstraintValue, error) {
	i, err := ind.problem.ConstraintIndex(name)
	if err != nil {
		return nil, err
	}
	return ind.constraints[i], nil
}

// SetConstraintValue stores the value of the named constraint.
func (ind *Individual) SetConstraintValue(name string, v ConstraintValue) error {
	i, err := ind.problem.ConstraintIndex(name)
	if err != nil {
		return err
	}
	if err := ind.problem.constraints[i].Validate(v); err != nil {
		return err
	}
	ind.constraints[i] = v
	return nil
}

// ConstraintViolation returns the saturating sum of the violations of all
// constraints. Constraints without a value count as fully violated.
func (ind *Individual) ConstraintViolation() uint64 {
	var total uint64
	for i, c := range ind.problem.constraints {
		total = saturatingAdd(total, c.Violation(ind.constraints[i]))
	}
	return total
}

// IsFeasible reports whether every constraint is met.
func (ind *Individual) IsFeasible() bool {
	return ind.ConstraintViolation() == 0
}

func (ind *Individual) IsEvaluated() bool {
	return ind.evaluated
}

// SetEvaluated marks the current assignment as evaluated.
func (ind *Individual) SetEvaluated() {
	ind.evaluated = true
}

// Aux gives access to the algorithm side table.
func (ind *Individual) Aux() *AuxData {
	return &ind.aux
}

// Clone returns a deep copy sharing the same Problem.
func (ind *Individual) Clone() *Individual {
	c := &Individual{
		problem:     ind.problem,
		variables:   append([]VariableValue(nil), ind.variables...),
		objectives:  append([]float64(nil), ind.objectives...),
		constraints: make([]ConstraintValue, len(ind.constraints)),
		evaluated:   ind.evaluated,
		aux:         ind.aux.clone(),
	}
	for i, v := range ind.constraints {
		c.constraints[i] = cloneConstraintValue(v)
	}
	return c
}

// CloneAssignment returns an unevaluated individual with the same variable
// values. Offspring start from it.
func (ind *Individual) CloneAssignment() *Individual {
	c := newBlankIndividual(ind.problem)
	copy(c.variables, ind.variables)
	return c
}

func (ind *Individual) String() string {
	var b strings.Builder
	b.WriteString("Individual{")
	for i, v := range ind.problem.variables {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", v.Name(), ind.variables[i])
	}
	b.WriteString(" |")
	for i, o := range ind.problem.objectives {
		fmt.Fprintf(&b, " %s=%g", o.Name, ind.objectiveAt(i))
	}
	fmt.Fprintf(&b, " | evaluated=%t}", ind.evaluated)
	return b.String()
}

func cloneConstraintValue(v ConstraintValue) ConstraintValue {
	switch cv := v.(type) {
	case GroupValue:
		return append(GroupValue(nil), cv...)
	case ResourceUsage:
		out := make(ResourceUsage, len(cv))
		for k, r := range cv {
			out[k] = r
		}
		return out
	default:
		return v
	}
}
