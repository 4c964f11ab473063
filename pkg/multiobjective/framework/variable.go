package framework

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// VariableType identifies the kind of a decision variable.
type VariableType string

const (
	// ChoiceVariableType is a variable restricted to an enumerated set of
	// integer values.
	ChoiceVariableType VariableType = "choice"
	// RealVariableType is a bounded real-valued variable.
	RealVariableType VariableType = "real"
)

// VariableValue holds the value of one decision variable. Only the field
// matching Type is meaningful.
type VariableValue struct {
	Type   VariableType
	Choice int
	Real   float64
}

// Choice returns a choice variable value.
func Choice(v int) VariableValue {
	return VariableValue{Type: ChoiceVariableType, Choice: v}
}

// Real returns a real variable value.
func Real(v float64) VariableValue {
	return VariableValue{Type: RealVariableType, Real: v}
}

// Equal reports whether both values have the same type and value.
func (v VariableValue) Equal(o VariableValue) bool {
	if v.Type != o.Type {
		return false
	}
	if v.Type == ChoiceVariableType {
		return v.Choice == o.Choice
	}
	return v.Real == o.Real
}

func (v VariableValue) String() string {
	switch v.Type {
	case ChoiceVariableType:
		return strconv.Itoa(v.Choice)
	case RealVariableType:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	default:
		return "<unset>"
	}
}

// Variable describes one decision variable of a Problem.
type Variable interface {
	Name() string
	Type() VariableType
	// Random draws a valid value using the caller's generator.
	Random(rng *rand.Rand) VariableValue
	// Validate returns an error if the value cannot be assigned to the
	// variable.
	Validate(v VariableValue) error
}

// ChoiceVariable is a variable whose value must be one of an ordered list
// of integers. For placement problems the choices are node ids.
type ChoiceVariable struct {
	name    string
	choices []int
	index   map[int]int
}

var _ Variable = &ChoiceVariable{}

// NewChoiceVariable creates a choice variable. The list must be non-empty
// and must not contain duplicates.
func NewChoiceVariable(name string, choices []int) (*ChoiceVariable, error) {
	if name == "" {
		return nil, fmt.Errorf("choice variable name must not be empty")
	}
	if len(choices) == 0 {
		return nil, fmt.Errorf("choice variable %q has no choices", name)
	}
	index := make(map[int]int, len(choices))
	for i, c := range choices {
		if _, ok := index[c]; ok {
			return nil, fmt.Errorf("choice variable %q has duplicated choice %d", name, c)
		}
		index[c] = i
	}
	return &ChoiceVariable{
		name:    name,
		choices: append([]int(nil), choices...),
		index:   index,
	}, nil
}

func (c *ChoiceVariable) Name() string {
	return c.name
}

func (c *ChoiceVariable) Type() VariableType {
	return ChoiceVariableType
}

// Choices returns a copy of the allowed values.
func (c *ChoiceVariable) Choices() []int {
	return append([]int(nil), c.choices...)
}

// Len returns the number of allowed values.
func (c *ChoiceVariable) Len() int {
	return len(c.choices)
}

// At returns the choice stored at the given index.
func (c *ChoiceVariable) At(i int) int {
	return c.choices[i]
}

// IndexOf returns the position of a value in the allowed list.
func (c *ChoiceVariable) IndexOf(v int) (int, bool) {
	i, ok := c.index[v]
	return i, ok
}

func (c *ChoiceVariable) Random(rng *rand.Rand) VariableValue {
	return Choice(c.choices[rng.IntN(len(c.choices))])
}

func (c *ChoiceVariable) Validate(v VariableValue) error {
	if v.Type != ChoiceVariableType {
		return fmt.Errorf("variable %q expects a %s value, got %q: %w", c.name, ChoiceVariableType, v.Type, ErrTypeMismatch)
	}
	if _, ok := c.index[v.Choice]; !ok {
		return fmt.Errorf("variable %q: %d is not one of the choices %v: %w", c.name, v.Choice, c.choices, ErrTypeMismatch)
	}
	return nil
}

// RealVariable is a real-valued variable bounded by [Min, Max].
type RealVariable struct {
	name     string
	min, max float64
}

var _ Variable = &RealVariable{}

func NewRealVariable(name string, min, max float64) (*RealVariable, error) {
	if name == "" {
		return nil, fmt.Errorf("real variable name must not be empty")
	}
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return nil, fmt.Errorf("real variable %q has invalid bounds [%v, %v]", name, min, max)
	}
	return &RealVariable{name: name, min: min, max: max}, nil
}

func (r *RealVariable) Name() string {
	return r.name
}

func (r *RealVariable) Type() VariableType {
	return RealVariableType
}

// Bounds returns the lower and upper bound of the variable.
func (r *RealVariable) Bounds() (float64, float64) {
	return r.min, r.max
}

func (r *RealVariable) Random(rng *rand.Rand) VariableValue {
	return Real(r.min + rng.Float64()*(r.max-r.min))
}

func (r *RealVariable) Validate(v VariableValue) error {
	if v.Type != RealVariableType {
		return fmt.Errorf("variable %q expects a %s value, got %q: %w", r.name, RealVariableType, v.Type, ErrTypeMismatch)
	}
	if math.IsNaN(v.Real) || v.Real < r.min || v.Real > r.max {
		return fmt.Errorf("variable %q: %v is outside [%v, %v]: %w", r.name, v.Real, r.min, r.max, ErrTypeMismatch)
	}
	return nil
}
