package placement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

func cpu(v string) corev1.ResourceList {
	return corev1.ResourceList{corev1.ResourceCPU: resource.MustParse(v)}
}

// shopRequest places frontend -> backend -> db on two nodes of zone-1 and
// a cheaper, larger node of zone-2.
func shopRequest() *v1alpha1.PlacementRequest {
	return &v1alpha1.PlacementRequest{
		ObjectMeta: metav1.ObjectMeta{Name: "shop", Namespace: "default"},
		Spec: v1alpha1.PlacementRequestSpec{
			Services: []v1alpha1.ServiceSpec{
				{
					Name:         "frontend",
					Requests:     cpu("500m"),
					Dependencies: []v1alpha1.Dependency{{Service: "backend", Traffic: resource.MustParse("100M")}},
				},
				{
					Name:         "backend",
					Requests:     cpu("1"),
					Dependencies: []v1alpha1.Dependency{{Service: "db", Traffic: resource.MustParse("50M")}},
				},
				{
					Name: "db",
					Requests: corev1.ResourceList{
						corev1.ResourceCPU:    resource.MustParse("1"),
						corev1.ResourceMemory: resource.MustParse("1Gi"),
					},
				},
			},
			Nodes: []v1alpha1.NodeSpec{
				{Name: "node-a", Zone: "zone-1", Capacity: cpu("2"), HourlyCost: 1},
				{Name: "node-b", Zone: "zone-1", Capacity: cpu("2"), HourlyCost: 1},
				{Name: "node-c", Zone: "zone-2", Capacity: cpu("4"), HourlyCost: 0.5},
			},
			ZoneCosts: []v1alpha1.ZoneCost{{From: "zone-1", To: "zone-2", Cost: 20}},
		},
	}
}

func shopCluster(t *testing.T) *Cluster {
	t.Helper()
	c, err := NewCluster(&shopRequest().Spec)
	require.NoError(t, err)
	return c
}

// placed returns the evaluated individual placing service i on nodes[i].
func placed(t *testing.T, p *framework.Problem, nodes ...int) *framework.Individual {
	t.Helper()
	values := make([]framework.VariableValue, len(nodes))
	for i, n := range nodes {
		values[i] = framework.Choice(n)
	}
	ind, err := framework.NewIndividualFromValues(p, values)
	require.NoError(t, err)

	result, err := p.Evaluator().Evaluate(context.Background(), ind)
	require.NoError(t, err)
	for name, v := range result.Objectives {
		require.NoError(t, ind.SetObjectiveValue(name, v))
	}
	for name, v := range result.Constraints {
		require.NoError(t, ind.SetConstraintValue(name, v))
	}
	ind.SetEvaluated()
	return ind
}
