package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	agv1alpha1 "github.com/diktyo-io/appgroup-api/pkg/apis/appgroup/v1alpha1"
	ntv1alpha1 "github.com/diktyo-io/networktopology-api/pkg/apis/networktopology/v1alpha1"
	"github.com/go-logr/logr"
	jsoniter "github.com/json-iterator/go"
	"github.com/paypal/load-watcher/pkg/watcher"
	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apiserver/pkg/server/healthz"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/component-base/metrics/legacyregistry"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/metrics"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/util"
	"github.com/mihai-snyk/placement-optimizer/pkg/placement"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewOptimizerCommand creates the command searching Pareto-optimal
// placements for a PlacementRequest.
func NewOptimizerCommand() *cobra.Command {
	o := NewOptions()
	cmd := &cobra.Command{
		Use:   "placement-optimizer",
		Short: "Search Pareto-optimal microservice placements",
		Long: `placement-optimizer reads a PlacementRequest, runs NSGA-II over the
service to node assignments and writes the resulting placement plan. The
plan can be applied as the ConfigMap read by the MultiObjective scheduler
plugin.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			return Run(cmd.Context(), o, cmd.OutOrStdout())
		},
		Args: cobra.NoArgs,
	}
	o.AddFlags(cmd.Flags())
	return cmd
}

// Run optimises the request described by o and writes the plan to out when
// the output is stdout.
func Run(ctx context.Context, o *Options, out io.Writer) error {
	logger := klog.FromContext(ctx)

	req, err := LoadRequest(o)
	if err != nil {
		return err
	}

	metrics.Register()
	if o.MetricsBindAddress != "" {
		server := serveMetrics(logger, o.MetricsBindAddress)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error(err, "Shutting down metrics server")
			}
		}()
	}

	res, err := placement.Optimize(ctx, req, placement.Options{CacheTTL: o.CacheTTL})
	if err != nil {
		return err
	}
	logger.Info("Optimisation finished", "generations", res.Results.Generation,
		"evaluations", res.Results.Evaluations, "elapsed", res.Results.Elapsed, "front", len(res.Front), "seed", res.Seed)

	plan, err := placement.NewPlan(res.Cluster, res.Front, placement.PlanOptions{
		Name:        o.PlanName,
		Namespace:   o.PlanNamespace,
		TTL:         o.PlanTTL,
		Now:         time.Now(),
		Algorithm:   res.Results.Algorithm,
		Generations: res.Results.Generation,
		Evaluations: res.Results.Evaluations,
	})
	if err != nil {
		return err
	}
	if best := plan.Best(); !best.Feasible {
		logger.Info("No feasible placement found, the plan holds the least violating ones", "violation", best.ConstraintViolation)
	}

	if o.Plot != "" {
		if err := plotFront(o.Plot, res); err != nil {
			return fmt.Errorf("plotting front: %w", err)
		}
		logger.V(2).Info("Front plotted", "file", o.Plot)
	}

	cm, err := placement.PlanConfigMap(plan)
	if err != nil {
		return err
	}
	if err := writeOutput(o, out, plan, cm); err != nil {
		return err
	}

	if o.Apply {
		cs, err := newClientSet(o.Kubeconfig)
		if err != nil {
			return err
		}
		if err := ApplyPlan(ctx, cs, cm); err != nil {
			return err
		}
		logger.Info("Plan applied", "configMap", klog.KObj(cm))
	}
	return nil
}

// LoadRequest reads the request and merges the optional inputs into it.
func LoadRequest(o *Options) (*v1alpha1.PlacementRequest, error) {
	req := &v1alpha1.PlacementRequest{}
	data, err := os.ReadFile(o.Request)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, req); err != nil {
		return nil, fmt.Errorf("decoding placement request %s: %w", o.Request, err)
	}

	if o.AppGroup != "" {
		ag := &agv1alpha1.AppGroup{}
		if err := readFile(o.AppGroup, ag); err != nil {
			return nil, err
		}
		if err := placement.ApplyAppGroup(&req.Spec, ag); err != nil {
			return nil, err
		}
	}
	if o.NetworkTopology != "" {
		nt := &ntv1alpha1.NetworkTopology{}
		if err := readFile(o.NetworkTopology, nt); err != nil {
			return nil, err
		}
		costs, err := placement.ZoneCostsFromTopology(nt, o.TopologyWeight)
		if err != nil {
			return nil, err
		}
		// explicit zone costs of the request win
		req.Spec.ZoneCosts = append(costs, req.Spec.ZoneCosts...)
	}
	if o.LoadMetrics != "" {
		m := &watcher.WatcherMetrics{}
		if err := readFile(o.LoadMetrics, m); err != nil {
			return nil, err
		}
		placement.ApplyLoadMetrics(&req.Spec, m)
	}
	return req, nil
}

// readFile decodes a YAML or JSON file.
func readFile(path string, obj interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func writeOutput(o *Options, out io.Writer, plan *v1alpha1.PlacementPlan, cm *corev1.ConfigMap) error {
	var (
		data []byte
		err  error
	)
	switch o.Format {
	case FormatConfigMap:
		data, err = yaml.Marshal(cm)
	default:
		data, err = json.MarshalIndent(plan, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}

	if o.Output == "-" {
		_, err = out.Write(data)
		return err
	}
	return os.WriteFile(o.Output, data, 0o644)
}

func plotFront(path string, res *placement.Result) error {
	p := util.FrontPlot{
		Algorithm:  res.Results.Algorithm,
		Problem:    placement.ProblemName,
		XObjective: v1alpha1.ObjectiveCommunicationCost,
		YObjective: v1alpha1.ObjectiveResourceCost,
	}
	points, err := util.ObjectivePoints(res.Front, p.XObjective, p.YObjective)
	if err != nil {
		return err
	}
	return p.RenderFile(path, points)
}

func newClientSet(kubeconfig string) (kubernetes.Interface, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig %q: %w", kubeconfig, err)
	}
	return kubernetes.NewForConfig(config)
}

// ApplyPlan creates the plan ConfigMap or replaces the data of an existing one.
func ApplyPlan(ctx context.Context, cs kubernetes.Interface, cm *corev1.ConfigMap) error {
	client := cs.CoreV1().ConfigMaps(cm.Namespace)
	existing, err := client.Get(ctx, cm.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = client.Create(ctx, cm, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	existing = existing.DeepCopy()
	if existing.Labels == nil {
		existing.Labels = map[string]string{}
	}
	for k, v := range cm.Labels {
		existing.Labels[k] = v
	}
	existing.Data = cm.Data
	_, err = client.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

func serveMetrics(logger logr.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", legacyregistry.Handler())
	healthz.InstallHandler(mux, healthz.PingHealthz)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server failed")
		}
	}()
	return server
}
