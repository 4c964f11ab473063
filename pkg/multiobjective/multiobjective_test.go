package multiobjective

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientsetfake "k8s.io/client-go/kubernetes/fake"
	"k8s.io/kubernetes/pkg/scheduler/framework"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/mihai-snyk/placement-optimizer/apis/config"
	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/placement"
)

// fakeHandle only provides the client set to the plugin.
type fakeHandle struct {
	framework.Handle
	cs kubernetes.Interface
}

func (h *fakeHandle) ClientSet() kubernetes.Interface {
	return h.cs
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func planConfigMap(t *testing.T, namespace, name string, expiration *metav1.Time) *v1.ConfigMap {
	t.Helper()
	plan := &v1alpha1.PlacementPlan{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: v1alpha1.PlacementPlanSpec{
			ClusterNodes:   []string{"node-a", "node-b"},
			ExpirationTime: expiration,
			Solutions: []v1alpha1.PlacementSolution{
				{Rank: 1, Feasible: true, Assignments: map[string]string{"frontend": "node-b", "db": "node-a"}},
				{Rank: 2, Feasible: true, Assignments: map[string]string{"frontend": "node-a", "db": "node-a"}},
			},
		},
		Status: v1alpha1.PlacementPlanStatus{Phase: v1alpha1.PlacementPlanPhaseActive},
	}
	cm, err := placement.PlanConfigMap(plan)
	require.NoError(t, err)
	return cm
}

func newPlugin(t *testing.T, args runtime.Object, objects ...runtime.Object) *MultiObjective {
	t.Helper()
	cs := clientsetfake.NewSimpleClientset(objects...)
	p, err := New(context.Background(), args, &fakeHandle{cs: cs})
	require.NoError(t, err)
	mo := p.(*MultiObjective)
	mo.clock = testingclock.NewFakePassiveClock(now)
	return mo
}

func pod(service string) *v1.Pod {
	p := &v1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "pod-" + service, Namespace: "default"}}
	if service != "" {
		p.Labels = map[string]string{v1alpha1.ServiceLabel: service}
	}
	return p
}

func TestNew(t *testing.T) {
	p := newPlugin(t, nil)
	assert.Equal(t, Name, p.Name())
	assert.Equal(t, config.DefaultPlanNamespace, p.args.PlanNamespace)
	assert.Equal(t, config.DefaultPlanName, p.args.PlanName)
	assert.Nil(t, p.ScoreExtensions())

	p = newPlugin(t, &config.MultiObjectiveArgs{PlanNamespace: "optimizer", ServiceLabel: "app"})
	assert.Equal(t, "optimizer", p.args.PlanNamespace)
	assert.Equal(t, "app", p.args.ServiceLabel)

	p = newPlugin(t, &runtime.Unknown{
		Raw:         []byte(`{"planName":"shop-plan","planCacheTTL":"1m"}`),
		ContentType: runtime.ContentTypeJSON,
	})
	assert.Equal(t, "shop-plan", p.args.PlanName)
	assert.Equal(t, time.Minute, p.args.PlanCacheTTL.Duration)

	_, err := New(context.Background(), &config.MultiObjectiveArgs{ServiceLabel: "not a label"}, &fakeHandle{})
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	cm := planConfigMap(t, config.DefaultPlanNamespace, config.DefaultPlanName, nil)
	p := newPlugin(t, nil, cm)
	ctx := context.Background()
	nodes := []*framework.NodeInfo{}

	tests := []struct {
		name   string
		pod    *v1.Pod
		skip   bool
		scores map[string]int64
	}{
		{
			name:   "planned service",
			pod:    pod("frontend"),
			scores: map[string]int64{"node-a": framework.MinNodeScore, "node-b": framework.MaxNodeScore},
		},
		{
			name:   "second planned service",
			pod:    pod("db"),
			scores: map[string]int64{"node-a": framework.MaxNodeScore, "node-b": framework.MinNodeScore},
		},
		{
			name: "unplanned service",
			pod:  pod("cache"),
			skip: true,
		},
		{
			name: "pod without service",
			pod:  pod(""),
			skip: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := framework.NewCycleState()
			status := p.PreScore(ctx, state, tt.pod, nodes)
			if tt.skip {
				assert.True(t, status.IsSkip(), status.Message())
				return
			}
			require.True(t, status.IsSuccess(), status.Message())
			for node, want := range tt.scores {
				got, status := p.Score(ctx, state, tt.pod, node)
				require.True(t, status.IsSuccess(), status.Message())
				assert.Equal(t, want, got, node)
			}
		})
	}
}

func TestScoreWithoutPreScore(t *testing.T) {
	p := newPlugin(t, nil)
	_, status := p.Score(context.Background(), framework.NewCycleState(), pod("frontend"), "node-a")
	assert.Equal(t, framework.Error, status.Code())
}

func TestPreScoreWithoutPlan(t *testing.T) {
	p := newPlugin(t, nil)
	status := p.PreScore(context.Background(), framework.NewCycleState(), pod("frontend"), nil)
	assert.True(t, status.IsSkip())
}

func TestPreScoreExpiredPlan(t *testing.T) {
	expired := metav1.NewTime(now.Add(-time.Minute))
	cm := planConfigMap(t, config.DefaultPlanNamespace, config.DefaultPlanName, &expired)
	p := newPlugin(t, nil, cm)
	status := p.PreScore(context.Background(), framework.NewCycleState(), pod("frontend"), nil)
	assert.True(t, status.IsSkip())
}

func TestPlanIsCached(t *testing.T) {
	cm := planConfigMap(t, config.DefaultPlanNamespace, config.DefaultPlanName, nil)
	p := newPlugin(t, nil, cm)
	ctx := context.Background()

	first, err := p.plan(ctx)
	require.NoError(t, err)

	cs := p.handle.ClientSet()
	require.NoError(t, cs.CoreV1().ConfigMaps(cm.Namespace).Delete(ctx, cm.Name, metav1.DeleteOptions{}))
	second, err := p.plan(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	p = newPlugin(t, &config.MultiObjectiveArgs{PlanCacheTTL: &metav1.Duration{}}, cm)
	_, err = p.plan(ctx)
	require.NoError(t, err)
	require.NoError(t, p.handle.ClientSet().CoreV1().ConfigMaps(cm.Namespace).Delete(ctx, cm.Name, metav1.DeleteOptions{}))
	_, err = p.plan(ctx)
	assert.Error(t, err, "a zero TTL reads the config map every time")
}
