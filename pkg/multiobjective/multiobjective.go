package multiobjective

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/klog/v2"
	"k8s.io/kubernetes/pkg/scheduler/framework"
	frameworkruntime "k8s.io/kubernetes/pkg/scheduler/framework/runtime"
	"k8s.io/utils/clock"

	"github.com/mihai-snyk/placement-optimizer/apis/config"
	"github.com/mihai-snyk/placement-optimizer/apis/config/validation"
	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/metrics"
	"github.com/mihai-snyk/placement-optimizer/pkg/placement"
)

// MultiObjective scores the node a placement plan chose for the service of
// a pod above every other node.
type MultiObjective struct {
	handle framework.Handle
	args   *config.MultiObjectiveArgs
	plans  *cache.Cache
	clock  clock.PassiveClock
}

var _ framework.PreScorePlugin = &MultiObjective{}
var _ framework.ScorePlugin = &MultiObjective{}

const (
	Name = "MultiObjective"

	preScoreStateKey = "PreScore" + Name
	planCacheKey     = "plan"
)

// preScoreState is computed at PreScore and used at Score.
type preScoreState struct {
	service string
	node    string
}

// Clone implements the mandatory Clone interface. We don't really copy the data since
// there is no need for that.
func (s *preScoreState) Clone() framework.StateData {
	return s
}

func New(ctx context.Context, obj runtime.Object, handle framework.Handle) (framework.Plugin, error) {
	logger := klog.FromContext(ctx)
	logger.V(5).Info("creating instance of MultiObjective")

	args := &config.MultiObjectiveArgs{}
	if a, ok := obj.(*config.MultiObjectiveArgs); ok {
		args = a.DeepCopy()
	} else if err := frameworkruntime.DecodeInto(obj, args); err != nil {
		return nil, fmt.Errorf("want args to be of type MultiObjectiveArgs, got %T: %w", obj, err)
	}
	config.SetDefaults_MultiObjectiveArgs(args)
	if err := validation.ValidateMultiObjectiveArgs(nil, args); err != nil {
		return nil, err
	}
	logger.V(5).Info("plugin MultiObjective called with args", "planNamespace", args.PlanNamespace,
		"planName", args.PlanName, "serviceLabel", args.ServiceLabel, "planCacheTTL", args.PlanCacheTTL.Duration)

	metrics.Register()
	return &MultiObjective{
		handle: handle,
		args:   args,
		plans:  cache.New(args.PlanCacheTTL.Duration, 2*args.PlanCacheTTL.Duration),
		clock:  clock.RealClock{},
	}, nil
}

func (p *MultiObjective) Name() string {
	return Name
}

// PreScore looks up the planned node of the pod's service. Pods that are not
// part of an active plan are skipped, leaving the score to other plugins.
func (p *MultiObjective) PreScore(ctx context.Context, state *framework.CycleState, pod *v1.Pod, nodes []*framework.NodeInfo) *framework.Status {
	logger := klog.FromContext(ctx)

	service := pod.Labels[p.args.ServiceLabel]
	if service == "" {
		return framework.NewStatus(framework.Skip)
	}
	plan, err := p.plan(ctx)
	if err != nil {
		metrics.RecordPlanLookup("error")
		logger.V(4).Info("Cannot load placement plan", "pod", klog.KObj(pod), "err", err)
		return framework.NewStatus(framework.Skip)
	}
	if plan.IsExpired(metav1.NewTime(p.clock.Now())) {
		metrics.RecordPlanLookup("expired")
		logger.V(4).Info("Placement plan expired", "pod", klog.KObj(pod), "plan", klog.KObj(plan))
		return framework.NewStatus(framework.Skip)
	}
	best := plan.Best()
	if best == nil {
		metrics.RecordPlanLookup("miss")
		return framework.NewStatus(framework.Skip)
	}
	node, ok := best.Assignments[service]
	if !ok {
		metrics.RecordPlanLookup("miss")
		logger.V(5).Info("Service is not part of the placement plan", "pod", klog.KObj(pod), "service", service)
		return framework.NewStatus(framework.Skip)
	}

	metrics.RecordPlanLookup("hit")
	logger.V(5).Info("Found planned node", "pod", klog.KObj(pod), "service", service, "node", node)
	state.Write(preScoreStateKey, &preScoreState{service: service, node: node})
	return nil
}

// Score gives the planned node the maximum score and every other node the
// minimum score.
func (p *MultiObjective) Score(ctx context.Context, state *framework.CycleState, pod *v1.Pod, nodeName string) (int64, *framework.Status) {
	s, err := getPreScoreState(state)
	if err != nil {
		return 0, framework.AsStatus(err)
	}
	if s.node == nodeName {
		return framework.MaxNodeScore, nil
	}
	return framework.MinNodeScore, nil
}

func (p *MultiObjective) ScoreExtensions() framework.ScoreExtensions {
	return nil
}

// plan returns the cached plan, reading the plan ConfigMap when the cache
// entry expired. A zero PlanCacheTTL reads the ConfigMap every time.
func (p *MultiObjective) plan(ctx context.Context) (*v1alpha1.PlacementPlan, error) {
	if v, ok := p.plans.Get(planCacheKey); ok {
		return v.(*v1alpha1.PlacementPlan), nil
	}
	cm, err := p.handle.ClientSet().CoreV1().ConfigMaps(p.args.PlanNamespace).Get(ctx, p.args.PlanName, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	plan, err := placement.PlanFromConfigMap(cm)
	if err != nil {
		return nil, err
	}
	if p.args.PlanCacheTTL.Duration > 0 {
		p.plans.Set(planCacheKey, plan, cache.DefaultExpiration)
	}
	klog.FromContext(ctx).V(4).Info("Loaded placement plan", "configMap", klog.KObj(cm), "solutions", len(plan.Spec.Solutions))
	return plan, nil
}

func getPreScoreState(cycleState *framework.CycleState) (*preScoreState, error) {
	c, err := cycleState.Read(preScoreStateKey)
	if err != nil {
		return nil, fmt.Errorf("reading %q from cycleState: %w", preScoreStateKey, err)
	}
	s, ok := c.(*preScoreState)
	if !ok {
		return nil, fmt.Errorf("%+v  convert to multiobjective.preScoreState error", c)
	}
	return s, nil
}
