package framework

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// ConstraintKind is the tag of the constraint variant.
type ConstraintKind string

const (
	ScalarConstraintKind   ConstraintKind = "scalar"
	GroupConstraintKind    ConstraintKind = "group"
	CapacityConstraintKind ConstraintKind = "capacity"
)

// DefaultStrictPenalty is added to the distance from the target when a
// strict relational constraint (!=, <, >) is not met.
const DefaultStrictPenalty uint64 = 1000

// ConstraintValue is the value an Evaluator computes for a constraint. It is
// one of ScalarValue, GroupValue or ResourceUsage.
type ConstraintValue interface {
	Kind() ConstraintKind
}

// ScalarValue is checked against a ScalarConstraint target.
type ScalarValue uint64

func (ScalarValue) Kind() ConstraintKind { return ScalarConstraintKind }

// GroupValue holds the node id assigned to each service of a
// GroupConstraint, in the constraint's service order.
type GroupValue []int

func (GroupValue) Kind() ConstraintKind { return GroupConstraintKind }

// ResourceUsage maps a node id to the resources requested on it.
type ResourceUsage map[int]Resources

func (ResourceUsage) Kind() ConstraintKind { return CapacityConstraintKind }

// Resources is the (cpu, memory, disk, network) tuple used both for requests
// and for capacity bounds. CPU is in millicores, Memory and Disk in bytes,
// Network in bits per second.
type Resources struct {
	CPU     uint64 `json:"cpu"`
	Memory  uint64 `json:"memory"`
	Disk    uint64 `json:"disk"`
	Network uint64 `json:"network"`
}

// Add returns the element-wise saturating sum.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		CPU:     saturatingAdd(r.CPU, o.CPU),
		Memory:  saturatingAdd(r.Memory, o.Memory),
		Disk:    saturatingAdd(r.Disk, o.Disk),
		Network: saturatingAdd(r.Network, o.Network),
	}
}

// Exceeds reports whether any dimension is larger than the bound.
func (r Resources) Exceeds(bound Resources) bool {
	return r.CPU > bound.CPU || r.Memory > bound.Memory || r.Disk > bound.Disk || r.Network > bound.Network
}

func (r Resources) String() string {
	return fmt.Sprintf("cpu=%dm memory=%s disk=%s network=%s",
		r.CPU, humanize.IBytes(r.Memory), humanize.IBytes(r.Disk), humanize.SI(float64(r.Network), "bps"))
}

// Constraint is implemented by the three constraint variants. Violation is
// zero if and only if IsMet is true.
type Constraint interface {
	Name() string
	Kind() ConstraintKind
	Validate(v ConstraintValue) error
	IsMet(v ConstraintValue) bool
	Violation(v ConstraintValue) uint64
}

// RelationalOperator is the comparison used by a ScalarConstraint.
type RelationalOperator string

const (
	Equal              RelationalOperator = "="
	NotEqual           RelationalOperator = "!="
	LessThan           RelationalOperator = "<"
	LessThanOrEqual    RelationalOperator = "<="
	GreaterThan        RelationalOperator = ">"
	GreaterThanOrEqual RelationalOperator = ">="
)

func (op RelationalOperator) valid() bool {
	switch op {
	case Equal, NotEqual, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return true
	}
	return false
}

func (op RelationalOperator) strict() bool {
	return op == NotEqual || op == LessThan || op == GreaterThan
}

// ScalarConstraint compares a ScalarValue against Target.
type ScalarConstraint struct {
	name     string
	operator RelationalOperator
	target   uint64
	penalty  uint64
}

var _ Constraint = &ScalarConstraint{}

// NewScalarConstraint creates a relational constraint using
// DefaultStrictPenalty.
func NewScalarConstraint(name string, op RelationalOperator, target uint64) (*ScalarConstraint, error) {
	return NewScalarConstraintWithPenalty(name, op, target, DefaultStrictPenalty)
}

// NewScalarConstraintWithPenalty creates a relational constraint with a
// custom penalty for strict operators. The penalty must be at least 1.
func NewScalarConstraintWithPenalty(name string, op RelationalOperator, target, penalty uint64) (*ScalarConstraint, error) {
	if name == "" {
		return nil, fmt.Errorf("constraint name must not be empty")
	}
	if !op.valid() {
		return nil, fmt.Errorf("constraint %q has unknown operator %q", name, op)
	}
	if penalty == 0 {
		return nil, fmt.Errorf("constraint %q: strict penalty must be at least 1", name)
	}
	return &ScalarConstraint{name: name, operator: op, target: target, penalty: penalty}, nil
}

func (s *ScalarConstraint) Name() string                 { return s.name }
func (s *ScalarConstraint) Kind() ConstraintKind         { return ScalarConstraintKind }
func (s *ScalarConstraint) Operator() RelationalOperator { return s.operator }
func (s *ScalarConstraint) Target() uint64               { return s.target }
func (s *ScalarConstraint) Penalty() uint64              { return s.penalty }

func (s *ScalarConstraint) Validate(v ConstraintValue) error {
	if _, ok := v.(ScalarValue); !ok {
		return kindMismatch(s.name, s.Kind(), v)
	}
	return nil
}

func (s *ScalarConstraint) IsMet(v ConstraintValue) bool {
	return s.Violation(v) == 0
}

func (s *ScalarConstraint) Violation(v ConstraintValue) uint64 {
	sv, ok := v.(ScalarValue)
	if !ok {
		return math.MaxUint64
	}
	value := uint64(sv)

	var met bool
	switch s.operator {
	case Equal:
		met = value == s.target
	case NotEqual:
		met = value != s.target
	case LessThan:
		met = value < s.target
	case LessThanOrEqual:
		met = value <= s.target
	case GreaterThan:
		met = value > s.target
	case GreaterThanOrEqual:
		met = value >= s.target
	}
	if met {
		return 0
	}

	distance := value - s.target
	if s.target > value {
		distance = s.target - value
	}
	if s.operator.strict() {
		return saturatingAdd(distance, s.penalty)
	}
	return distance
}

func (s *ScalarConstraint) String() string {
	return fmt.Sprintf("%s: value %s %d", s.name, s.operator, s.target)
}

// GroupConstraint requires all its services to be placed on the same node.
type GroupConstraint struct {
	name     string
	services []string
}

var _ Constraint = &GroupConstraint{}

func NewGroupConstraint(name string, services []string) (*GroupConstraint, error) {
	if name == "" {
		return nil, fmt.Errorf("constraint name must not be empty")
	}
	seen := make(map[string]struct{}, len(services))
	for _, s := range services {
		if _, ok := seen[s]; ok {
			return nil, fmt.Errorf("constraint %q lists service %q twice", name, s)
		}
		seen[s] = struct{}{}
	}
	return &GroupConstraint{name: name, services: append([]string(nil), services...)}, nil
}

func (g *GroupConstraint) Name() string         { return g.name }
func (g *GroupConstraint) Kind() ConstraintKind { return GroupConstraintKind }

// Services returns the services of the group in order.
func (g *GroupConstraint) Services() []string {
	return append([]string(nil), g.services...)
}

func (g *GroupConstraint) Validate(v ConstraintValue) error {
	gv, ok := v.(GroupValue)
	if !ok {
		return kindMismatch(g.name, g.Kind(), v)
	}
	if len(gv) != len(g.services) {
		return fmt.Errorf("constraint %q expects %d node ids, got %d: %w", g.name, len(g.services), len(gv), ErrTypeMismatch)
	}
	return nil
}

func (g *GroupConstraint) IsMet(v ConstraintValue) bool {
	return g.Violation(v) == 0
}

func (g *GroupConstraint) Violation(v ConstraintValue) uint64 {
	gv, ok := v.(GroupValue)
	if !ok {
		return math.MaxUint64
	}
	for i := 1; i < len(gv); i++ {
		if gv[i] != gv[0] {
			return 1
		}
	}
	return 0
}

func (g *GroupConstraint) String() string {
	return fmt.Sprintf("%s: same node for [%s]", g.name, strings.Join(g.services, ", "))
}

// CapacityConstraint bounds the resources requested on each node.
type CapacityConstraint struct {
	name   string
	bounds map[int]Resources
}

var _ Constraint = &CapacityConstraint{}

func NewCapacityConstraint(name string, bounds map[int]Resources) (*CapacityConstraint, error) {
	if name == "" {
		return nil, fmt.Errorf("constraint name must not be empty")
	}
	b := make(map[int]Resources, len(bounds))
	for k, v := range bounds {
		b[k] = v
	}
	return &CapacityConstraint{name: name, bounds: b}, nil
}

func (c *CapacityConstraint) Name() string         { return c.name }
func (c *CapacityConstraint) Kind() ConstraintKind { return CapacityConstraintKind }

// Bounds returns a copy of the per-node capacity.
func (c *CapacityConstraint) Bounds() map[int]Resources {
	b := make(map[int]Resources, len(c.bounds))
	for k, v := range c.bounds {
		b[k] = v
	}
	return b
}

func (c *CapacityConstraint) Validate(v ConstraintValue) error {
	if _, ok := v.(ResourceUsage); !ok {
		return kindMismatch(c.name, c.Kind(), v)
	}
	return nil
}

func (c *CapacityConstraint) IsMet(v ConstraintValue) bool {
	return c.Violation(v) == 0
}

// Violation counts the nodes whose usage exceeds their bound.
func (c *CapacityConstraint) Violation(v ConstraintValue) uint64 {
	usage, ok := v.(ResourceUsage)
	if !ok {
		return math.MaxUint64
	}
	var violated uint64
	for node, used := range usage {
		bound, ok := c.bounds[node]
		if !ok {
			continue
		}
		if used.Exceeds(bound) {
			violated++
		}
	}
	return violated
}

func (c *CapacityConstraint) String() string {
	nodes := make([]int, 0, len(c.bounds))
	for n := range c.bounds {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	return fmt.Sprintf("%s: capacity bound on nodes %v", c.name, nodes)
}

func kindMismatch(name string, want ConstraintKind, v ConstraintValue) error {
	got := "nil"
	if v != nil {
		got = string(v.Kind())
	}
	return fmt.Errorf("constraint %q expects a %s value, got %s: %w", name, want, got, ErrTypeMismatch)
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
