package placement

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

const (
	ProblemName = "MicroservicePlacement"

	ConstraintNodeCapacity = "node_capacity"
	ConstraintMaxNodes     = "max_nodes"
	// ColocationPrefix prefixes the name of a colocation group to get the
	// name of its constraint.
	ColocationPrefix = "colocate_"
)

// Objectives are the objectives of the placement problem, all minimised.
var Objectives = []framework.Objective{
	{Name: v1alpha1.ObjectiveCommunicationCost, Direction: framework.Minimize},
	{Name: v1alpha1.ObjectiveResourceCost, Direction: framework.Minimize},
	{Name: v1alpha1.ObjectiveLoadImbalance, Direction: framework.Minimize},
}

// NewProblem builds the placement problem of a cluster: one choice variable
// per service whose choices are the indices of the nodes it may run on.
// When evaluator is nil the plain cluster Evaluator is used.
func NewProblem(c *Cluster, evaluator framework.Evaluator) (*framework.Problem, error) {
	variables := make([]framework.Variable, 0, len(c.Services))
	for _, s := range c.Services {
		choices := s.AllowedNodes
		if len(choices) == 0 {
			choices = make([]int, len(c.Nodes))
			for i := range choices {
				choices[i] = i
			}
		}
		v, err := framework.NewChoiceVariable(s.Name, choices)
		if err != nil {
			return nil, err
		}
		variables = append(variables, v)
	}

	var constraints []framework.Constraint
	bounds := make(map[int]framework.Resources)
	for i, n := range c.Nodes {
		if n.Capacity != nil {
			bounds[i] = *n.Capacity
		}
	}
	capacity, err := framework.NewCapacityConstraint(ConstraintNodeCapacity, bounds)
	if err != nil {
		return nil, err
	}
	constraints = append(constraints, capacity)
	for _, g := range c.ColocationGroups {
		group, err := framework.NewGroupConstraint(ColocationPrefix+g.Name, g.Services)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, group)
	}
	if c.MaxNodes > 0 {
		maxNodes, err := framework.NewScalarConstraint(ConstraintMaxNodes, framework.LessThanOrEqual, uint64(c.MaxNodes))
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, maxNodes)
	}

	if evaluator == nil {
		evaluator = NewEvaluator(c)
	}
	return framework.NewProblem(ProblemName, Objectives, variables, constraints, evaluator)
}

// Evaluator computes the placement objectives and constraints of an
// individual of the problem built by NewProblem.
type Evaluator struct {
	cluster *Cluster
	// groups holds the service indices of each colocation group.
	groups [][]int
}

var _ framework.Evaluator = &Evaluator{}

func NewEvaluator(c *Cluster) *Evaluator {
	e := &Evaluator{cluster: c}
	for _, g := range c.ColocationGroups {
		members := make([]int, 0, len(g.Services))
		for _, s := range g.Services {
			i, _ := c.ServiceIndex(s)
			members = append(members, i)
		}
		e.groups = append(e.groups, members)
	}
	return e
}

func (e *Evaluator) Evaluate(ctx context.Context, ind *framework.Individual) (*framework.EvaluationResult, error) {
	assignment, err := Assignment(ind)
	if err != nil {
		return nil, err
	}
	result, err := e.EvaluateAssignment(assignment)
	if err != nil {
		return nil, err
	}
	klog.FromContext(ctx).V(5).Info("Evaluated placement", "assignment", assignment, "objectives", result.Objectives)
	return result, nil
}

// EvaluateAssignment evaluates the placement of service i on node
// assignment[i].
func (e *Evaluator) EvaluateAssignment(assignment []int) (*framework.EvaluationResult, error) {
	c := e.cluster
	if len(assignment) != len(c.Services) {
		return nil, fmt.Errorf("assignment has %d services, cluster has %d", len(assignment), len(c.Services))
	}
	for i, n := range assignment {
		if n < 0 || n >= len(c.Nodes) {
			return nil, fmt.Errorf("service %q is assigned to unknown node %d", c.Services[i].Name, n)
		}
	}

	usage := make(framework.ResourceUsage)
	for i, n := range assignment {
		usage[n] = usage[n].Add(c.Services[i].Requests)
	}

	result := &framework.EvaluationResult{
		Objectives: map[string]float64{
			v1alpha1.ObjectiveCommunicationCost: e.communicationCost(assignment),
			v1alpha1.ObjectiveResourceCost:      e.resourceCost(usage),
			v1alpha1.ObjectiveLoadImbalance:     e.loadImbalance(usage),
		},
		Constraints: map[string]framework.ConstraintValue{
			ConstraintNodeCapacity: usage,
		},
	}
	for gi, g := range c.ColocationGroups {
		nodes := make(framework.GroupValue, len(e.groups[gi]))
		for j, s := range e.groups[gi] {
			nodes[j] = assignment[s]
		}
		result.Constraints[ColocationPrefix+g.Name] = nodes
	}
	if c.MaxNodes > 0 {
		result.Constraints[ConstraintMaxNodes] = framework.ScalarValue(len(usage))
	}
	return result, nil
}

// communicationCost weighs the traffic exchanged between every pair of
// nodes by their network cost. With A the services x nodes assignment
// matrix, the node traffic is Aᵀ T A.
func (e *Evaluator) communicationCost(assignment []int) float64 {
	c := e.cluster
	a := mat.NewDense(len(c.Services), len(c.Nodes), nil)
	for i, n := range assignment {
		a.Set(i, n, 1)
	}
	var sent, traffic, cost mat.Dense
	sent.Mul(a.T(), c.Traffic)
	traffic.Mul(&sent, a)
	cost.MulElem(&traffic, c.NetworkCost)
	return mat.Sum(&cost)
}

// resourceCost is the hourly cost of the nodes running at least one service.
func (e *Evaluator) resourceCost(usage framework.ResourceUsage) float64 {
	costs := make([]float64, 0, len(usage))
	for i, n := range e.cluster.Nodes {
		if _, used := usage[i]; used {
			costs = append(costs, n.HourlyCost)
		}
	}
	return floats.Sum(costs)
}

// loadImbalance is the standard deviation of the CPU load of all nodes once
// the services are placed. Nodes without a CPU capacity only count their
// base load.
func (e *Evaluator) loadImbalance(usage framework.ResourceUsage) float64 {
	loads := make([]float64, len(e.cluster.Nodes))
	for i, n := range e.cluster.Nodes {
		loads[i] = n.BaseLoad
		if n.Capacity != nil && n.Capacity.CPU > 0 {
			loads[i] += float64(usage[i].CPU) / float64(n.Capacity.CPU)
		}
	}
	return stat.PopStdDev(loads, nil)
}

// Assignment returns the node index of every service of an individual.
func Assignment(ind *framework.Individual) ([]int, error) {
	values := ind.Variables()
	assignment := make([]int, len(values))
	for i, v := range values {
		if v.Type != framework.ChoiceVariableType {
			return nil, fmt.Errorf("variable #%d has type %q: %w", i, v.Type, framework.ErrTypeMismatch)
		}
		assignment[i] = v.Choice
	}
	return assignment, nil
}
