package placement

import (
	"errors"
	"fmt"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PlanDataKey is the ConfigMap key holding the serialised plan.
const PlanDataKey = "plan.json"

// ErrNoSolution is returned when there is no individual to pick from.
var ErrNoSolution = errors.New("no placement to choose from")

// WeightedScore is the weighted sum of the objective values of an evaluated
// individual. Objectives without a weight count with weight 1.
func WeightedScore(ind *framework.Individual, weights map[string]float64) (float64, error) {
	if !ind.IsEvaluated() {
		return 0, framework.ErrNotEvaluated
	}
	var score float64
	for _, o := range ind.Problem().Objectives() {
		v, err := ind.ObjectiveValue(o.Name)
		if err != nil {
			return 0, err
		}
		w, ok := weights[o.Name]
		if !ok {
			w = 1
		}
		score += w * v
	}
	return score, nil
}

type scored struct {
	ind   *framework.Individual
	score float64
}

// rank orders individuals feasible first, then by violation, then by
// weighted score.
func rank(individuals []*framework.Individual, weights map[string]float64) ([]scored, error) {
	s := make([]scored, 0, len(individuals))
	for _, ind := range individuals {
		score, err := WeightedScore(ind, weights)
		if err != nil {
			return nil, err
		}
		s = append(s, scored{ind: ind, score: score})
	}
	sort.SliceStable(s, func(i, j int) bool {
		vi, vj := s[i].ind.ConstraintViolation(), s[j].ind.ConstraintViolation()
		if vi != vj {
			return vi < vj
		}
		return s[i].score < s[j].score
	})
	return s, nil
}

// BestIndividual returns the feasible individual with the lowest weighted
// score. Without feasible individuals, the least violating one is returned.
func BestIndividual(individuals []*framework.Individual, weights map[string]float64) (*framework.Individual, error) {
	if len(individuals) == 0 {
		return nil, ErrNoSolution
	}
	s, err := rank(individuals, weights)
	if err != nil {
		return nil, err
	}
	return s[0].ind, nil
}

// Assignments maps every service of the cluster to the name of its node.
func Assignments(c *Cluster, ind *framework.Individual) (map[string]string, error) {
	assignment, err := Assignment(ind)
	if err != nil {
		return nil, err
	}
	if len(assignment) != len(c.Services) {
		return nil, fmt.Errorf("individual has %d services, cluster has %d", len(assignment), len(c.Services))
	}
	out := make(map[string]string, len(assignment))
	for i, n := range assignment {
		if n < 0 || n >= len(c.Nodes) {
			return nil, fmt.Errorf("service %q is assigned to unknown node %d", c.Services[i].Name, n)
		}
		out[c.Services[i].Name] = c.Nodes[n].Name
	}
	return out, nil
}

// PlanOptions describes the run that produced a plan.
type PlanOptions struct {
	Name      string
	Namespace string
	// TTL sets the plan expiration, zero never expires.
	TTL         time.Duration
	Now         time.Time
	Algorithm   string
	Generations int
	Evaluations int
}

// NewPlan turns the individuals of a front into a plan, best solution first.
// Individuals with the same assignment are listed once.
func NewPlan(c *Cluster, front []*framework.Individual, opts PlanOptions) (*v1alpha1.PlacementPlan, error) {
	if len(front) == 0 {
		return nil, ErrNoSolution
	}
	ranked, err := rank(front, c.Weights)
	if err != nil {
		return nil, err
	}

	generatedAt := metav1.NewTime(opts.Now)
	plan := &v1alpha1.PlacementPlan{
		TypeMeta: metav1.TypeMeta{
			APIVersion: v1alpha1.SchemeGroupVersion.String(),
			Kind:       "PlacementPlan",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.Name,
			Namespace: opts.Namespace,
		},
		Spec: v1alpha1.PlacementPlanSpec{
			ClusterNodes:        c.NodeNames(),
			GeneratedAt:         &generatedAt,
			Algorithm:           opts.Algorithm,
			Generations:         opts.Generations,
			FunctionEvaluations: opts.Evaluations,
		},
		Status: v1alpha1.PlacementPlanStatus{
			Phase: v1alpha1.PlacementPlanPhaseActive,
		},
	}
	if opts.TTL > 0 {
		expiration := metav1.NewTime(opts.Now.Add(opts.TTL))
		plan.Spec.ExpirationTime = &expiration
	}

	seen := make(map[string]struct{}, len(ranked))
	for _, s := range ranked {
		key := assignmentKey(s.ind)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		assignments, err := Assignments(c, s.ind)
		if err != nil {
			return nil, err
		}
		objectives := make(map[string]float64, len(Objectives))
		for _, o := range s.ind.Problem().Objectives() {
			v, err := s.ind.ObjectiveValue(o.Name)
			if err != nil {
				return nil, err
			}
			objectives[o.Name] = v
		}
		plan.Spec.Solutions = append(plan.Spec.Solutions, v1alpha1.PlacementSolution{
			Rank:                len(plan.Spec.Solutions) + 1,
			WeightedScore:       s.score,
			Objectives:          objectives,
			Feasible:            s.ind.IsFeasible(),
			ConstraintViolation: s.ind.ConstraintViolation(),
			Assignments:         assignments,
		})
	}
	return plan, nil
}

// PlanConfigMap stores a plan in a ConfigMap named after the plan.
func PlanConfigMap(plan *v1alpha1.PlacementPlan) (*corev1.ConfigMap, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding plan %q: %w", plan.Name, err)
	}
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "ConfigMap",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      plan.Name,
			Namespace: plan.Namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "placement-optimizer",
			},
		},
		Data: map[string]string{
			PlanDataKey: string(data),
		},
	}, nil
}

// PlanFromConfigMap reads a plan stored by PlanConfigMap.
func PlanFromConfigMap(cm *corev1.ConfigMap) (*v1alpha1.PlacementPlan, error) {
	data, ok := cm.Data[PlanDataKey]
	if !ok {
		return nil, fmt.Errorf("config map %s/%s has no %q key", cm.Namespace, cm.Name, PlanDataKey)
	}
	plan := &v1alpha1.PlacementPlan{}
	if err := json.Unmarshal([]byte(data), plan); err != nil {
		return nil, fmt.Errorf("decoding plan of config map %s/%s: %w", cm.Namespace, cm.Name, err)
	}
	return plan, nil
}
