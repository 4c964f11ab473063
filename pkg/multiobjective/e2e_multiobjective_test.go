//go:build e2e
// +build e2e

package multiobjective

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/e2e-framework/klient/k8s"
	"sigs.k8s.io/e2e-framework/klient/k8s/resources"
	"sigs.k8s.io/e2e-framework/klient/wait"
	"sigs.k8s.io/e2e-framework/klient/wait/conditions"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/features"

	"github.com/mihai-snyk/placement-optimizer/apis/config"
	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/placement"
)

const (
	schedulerName = "multi-objective-scheduler"

	// kwok simulates the nodes, so pods must tolerate its taint.
	kwokNodeKey = "kwok.x-k8s.io/node"
)

type e2eKey int

const (
	nodesKey e2eKey = iota
	planKey
	podsKey
)

// clusterNode describes a simulated node of the test cluster.
type clusterNode struct {
	name   string
	zone   string
	cpu    string
	memory string
}

var testCluster = []clusterNode{
	{name: "small-node", zone: "zone-1", cpu: "8", memory: "32Gi"},
	{name: "medium-node", zone: "zone-1", cpu: "16", memory: "64Gi"},
	{name: "large-node", zone: "zone-2", cpu: "32", memory: "128Gi"},
}

func TestSchedulerFollowsPlan(t *testing.T) {
	want := map[string]string{"frontend": "medium-node", "db": "large-node"}

	planFeature := features.New("placement plan").
		WithLabel("type", "multi-objective").
		WithSetup("register simulated nodes", func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			r := cfg.Client().Resources()

			nodes := make([]*corev1.Node, 0, len(testCluster))
			for _, n := range testCluster {
				node := n.object()
				require.NoError(t, r.Create(ctx, node), "creating node %s", n.name)
				nodes = append(nodes, node)
			}
			for _, node := range nodes {
				require.NoError(t, waitFor(r, node, 10*time.Second, nodeReady), "node %s not ready", node.Name)
			}
			return context.WithValue(ctx, nodesKey, nodes)
		}).
		WithSetup("publish the plan", func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			nodeNames := make([]string, 0, len(testCluster))
			for _, n := range testCluster {
				nodeNames = append(nodeNames, n.name)
			}
			plan := &v1alpha1.PlacementPlan{
				ObjectMeta: metav1.ObjectMeta{Name: config.DefaultPlanName, Namespace: config.DefaultPlanNamespace},
				Spec: v1alpha1.PlacementPlanSpec{
					ClusterNodes: nodeNames,
					Solutions:    []v1alpha1.PlacementSolution{{Rank: 1, Feasible: true, Assignments: want}},
				},
				Status: v1alpha1.PlacementPlanStatus{Phase: v1alpha1.PlacementPlanPhaseActive},
			}
			cm, err := placement.PlanConfigMap(plan)
			require.NoError(t, err)
			require.NoError(t, cfg.Client().Resources().Create(ctx, cm))
			return context.WithValue(ctx, planKey, cm)
		}).
		Assess("pods land on their planned node", func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
			r := cfg.Client().Resources(workloadNamespace)

			pods := []*corev1.Pod{
				servicePod("frontend-0", "frontend", "100m", "100Mi"),
				servicePod("db-0", "db", "500m", "1Gi"),
			}
			for _, pod := range pods {
				assert.NoError(t, r.Create(ctx, pod))
			}
			ctx = context.WithValue(ctx, podsKey, pods)

			for _, pod := range pods {
				err := waitFor(r, pod, 30*time.Second, func(o k8s.Object) bool {
					return o.(*corev1.Pod).Spec.NodeName != ""
				})
				if !assert.NoError(t, err, "pod %s not bound", pod.Name) {
					continue
				}
				service := pod.Labels[v1alpha1.ServiceLabel]
				assert.Equal(t, want[service], pod.Spec.NodeName, "node of %s", pod.Name)
			}
			return ctx
		}).
		Teardown(cleanup).
		Feature()

	testenv.Test(t, planFeature)
}

func (n clusterNode) object() *corev1.Node {
	allocatable := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse(n.cpu),
		corev1.ResourceMemory: resource.MustParse(n.memory),
		corev1.ResourcePods:   resource.MustParse("110"),
	}
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:        n.name,
			Annotations: map[string]string{kwokNodeKey: "fake"},
			Labels: map[string]string{
				corev1.LabelHostname:     n.name,
				corev1.LabelOSStable:     "linux",
				corev1.LabelArchStable:   "amd64",
				corev1.LabelTopologyZone: n.zone,
				"type":                   "kwok",
			},
		},
		Spec: corev1.NodeSpec{
			Taints: []corev1.Taint{{Key: kwokNodeKey, Value: "fake", Effect: corev1.TaintEffectNoSchedule}},
		},
		Status: corev1.NodeStatus{
			Allocatable: allocatable,
			Capacity:    allocatable.DeepCopy(),
			NodeInfo: corev1.NodeSystemInfo{
				Architecture:    "amd64",
				OperatingSystem: "linux",
				KubeletVersion:  "fake",
			},
			Phase: corev1.NodeRunning,
		},
	}
}

func servicePod(name, service, cpu, memory string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: workloadNamespace,
			Labels:    map[string]string{v1alpha1.ServiceLabel: service},
		},
		Spec: corev1.PodSpec{
			SchedulerName: schedulerName,
			Containers: []corev1.Container{{
				Name:  service,
				Image: "nginx",
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceCPU:    resource.MustParse(cpu),
						corev1.ResourceMemory: resource.MustParse(memory),
					},
				},
			}},
			NodeSelector: map[string]string{"type": "kwok"},
			Tolerations: []corev1.Toleration{{
				Key:      kwokNodeKey,
				Operator: corev1.TolerationOpExists,
				Effect:   corev1.TaintEffectNoSchedule,
			}},
		},
	}
}

func nodeReady(o k8s.Object) bool {
	for _, cond := range o.(*corev1.Node).Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// waitFor polls obj until match holds. obj is refreshed in place.
func waitFor(r *resources.Resources, obj k8s.Object, timeout time.Duration, match func(k8s.Object) bool) error {
	err := wait.For(conditions.New(r).ResourceMatch(obj, match), wait.WithTimeout(timeout), wait.WithInterval(time.Second))
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", obj.GetName(), err)
	}
	return nil
}

func cleanup(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
	r := cfg.Client().Resources()

	var objs []k8s.Object
	if pods, ok := ctx.Value(podsKey).([]*corev1.Pod); ok {
		for _, pod := range pods {
			objs = append(objs, pod)
		}
	}
	if cm, ok := ctx.Value(planKey).(*corev1.ConfigMap); ok {
		objs = append(objs, cm)
	}
	if nodes, ok := ctx.Value(nodesKey).([]*corev1.Node); ok {
		for _, node := range nodes {
			objs = append(objs, node)
		}
	}
	for _, obj := range objs {
		if err := r.Delete(ctx, obj); err != nil {
			t.Logf("deleting %s: %v", obj.GetName(), err)
		}
	}
	return ctx
}
