package app

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/mihai-snyk/placement-optimizer/apis/config"
	"github.com/mihai-snyk/placement-optimizer/pkg/placement"
)

const (
	FormatPlan      = "plan"
	FormatConfigMap = "configmap"
)

// Options holds the optimizer command line.
type Options struct {
	// Request is the path of the PlacementRequest YAML file.
	Request string

	// AppGroup, NetworkTopology and LoadMetrics are optional inputs merged
	// into the request before optimising.
	AppGroup        string
	NetworkTopology string
	TopologyWeight  string
	LoadMetrics     string

	// Output is where the plan is written, "-" for stdout.
	Output        string
	Format        string
	PlanName      string
	PlanNamespace string
	PlanTTL       time.Duration

	// Plot writes an HTML scatter of the first front when set.
	Plot string

	CacheTTL time.Duration

	// Apply creates or updates the plan ConfigMap in the cluster.
	Apply      bool
	Kubeconfig string

	MetricsBindAddress string
}

func NewOptions() *Options {
	return &Options{
		TopologyWeight: placement.DefaultTopologyWeight,
		Output:         "-",
		Format:         FormatPlan,
		PlanName:       config.DefaultPlanName,
		PlanNamespace:  config.DefaultPlanNamespace,
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Request, "request", "f", o.Request, "Path to the PlacementRequest YAML file")
	fs.StringVar(&o.AppGroup, "app-group", o.AppGroup, "Optional AppGroup YAML file whose workload dependencies are added as service traffic")
	fs.StringVar(&o.NetworkTopology, "network-topology", o.NetworkTopology, "Optional NetworkTopology YAML file providing the zone costs")
	fs.StringVar(&o.TopologyWeight, "topology-weight", o.TopologyWeight, "Weight of the NetworkTopology to read zone costs from")
	fs.StringVar(&o.LoadMetrics, "load-metrics", o.LoadMetrics, "Optional load-watcher metrics JSON file providing node base loads")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "File the plan is written to, - for stdout")
	fs.StringVar(&o.Format, "format", o.Format, fmt.Sprintf("Output format, one of %q or %q", FormatPlan, FormatConfigMap))
	fs.StringVar(&o.PlanName, "plan-name", o.PlanName, "Name of the generated plan")
	fs.StringVar(&o.PlanNamespace, "plan-namespace", o.PlanNamespace, "Namespace of the generated plan")
	fs.DurationVar(&o.PlanTTL, "plan-ttl", o.PlanTTL, "How long the plan stays valid, 0 never expires")
	fs.StringVar(&o.Plot, "plot", o.Plot, "Write an HTML plot of the communication and resource costs of the front to this file")
	fs.DurationVar(&o.CacheTTL, "evaluation-cache-ttl", o.CacheTTL, "How long placement evaluations are memoised, 0 for the whole run")
	fs.BoolVar(&o.Apply, "apply", o.Apply, "Create or update the plan ConfigMap read by the scheduler plugin")
	fs.StringVar(&o.Kubeconfig, "kubeconfig", o.Kubeconfig, "Path to the kubeconfig used by --apply")
	fs.StringVar(&o.MetricsBindAddress, "metrics-bind-address", o.MetricsBindAddress, "Serve optimisation metrics on this address while running")
}

func (o *Options) Validate() error {
	if o.Request == "" {
		return fmt.Errorf("--request is required")
	}
	if o.Format != FormatPlan && o.Format != FormatConfigMap {
		return fmt.Errorf("unsupported format %q, want %q or %q", o.Format, FormatPlan, FormatConfigMap)
	}
	if o.Output == "" {
		return fmt.Errorf("--output must not be empty")
	}
	if errs := validation.IsDNS1123Subdomain(o.PlanName); len(errs) > 0 {
		return fmt.Errorf("invalid plan name %q: %v", o.PlanName, errs)
	}
	if errs := validation.IsDNS1123Label(o.PlanNamespace); len(errs) > 0 {
		return fmt.Errorf("invalid plan namespace %q: %v", o.PlanNamespace, errs)
	}
	if o.PlanTTL < 0 {
		return fmt.Errorf("plan-ttl must not be negative, got %v", o.PlanTTL)
	}
	if o.CacheTTL < 0 {
		return fmt.Errorf("evaluation-cache-ttl must not be negative, got %v", o.CacheTTL)
	}
	return nil
}
