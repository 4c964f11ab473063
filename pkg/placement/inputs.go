package placement

import (
	"fmt"

	agv1alpha1 "github.com/diktyo-io/appgroup-api/pkg/apis/appgroup/v1alpha1"
	ntv1alpha1 "github.com/diktyo-io/networktopology-api/pkg/apis/networktopology/v1alpha1"
	"github.com/paypal/load-watcher/pkg/watcher"
	corev1 "k8s.io/api/core/v1"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
)

// DefaultTopologyWeight is the NetworkTopology weight read when none is given.
const DefaultTopologyWeight = "UserDefined"

// ApplyAppGroup adds the dependencies of an AppGroup to the services of the
// request. Workloads are matched to services by their selector. The minimum
// bandwidth of a dependency is used as its traffic.
func ApplyAppGroup(spec *v1alpha1.PlacementRequestSpec, ag *agv1alpha1.AppGroup) error {
	services := make(map[string]int, len(spec.Services))
	for i, s := range spec.Services {
		services[s.Name] = i
	}
	for _, w := range ag.Spec.Workloads {
		i, ok := services[w.Workload.Selector]
		if !ok {
			return fmt.Errorf("app group %q workload %q matches no service", ag.Name, w.Workload.Selector)
		}
		for _, d := range w.Dependencies {
			if _, ok := services[d.Workload.Selector]; !ok {
				return fmt.Errorf("app group %q workload %q depends on %q which matches no service", ag.Name, w.Workload.Selector, d.Workload.Selector)
			}
			spec.Services[i].Dependencies = append(spec.Services[i].Dependencies, v1alpha1.Dependency{
				Service: d.Workload.Selector,
				Traffic: d.MinBandwidth.DeepCopy(),
			})
		}
	}
	return nil
}

// ZoneCostsFromTopology returns the zone network costs of the named weight
// of a NetworkTopology. An empty weight reads DefaultTopologyWeight.
func ZoneCostsFromTopology(nt *ntv1alpha1.NetworkTopology, weight string) ([]v1alpha1.ZoneCost, error) {
	if weight == "" {
		weight = DefaultTopologyWeight
	}
	for _, w := range nt.Spec.Weights {
		if w.Name != weight {
			continue
		}
		var costs []v1alpha1.ZoneCost
		for _, t := range w.TopologyList {
			if string(t.TopologyKey) != corev1.LabelTopologyZone {
				continue
			}
			for _, o := range t.OriginList {
				for _, c := range o.CostList {
					costs = append(costs, v1alpha1.ZoneCost{
						From: o.Origin,
						To:   c.Destination,
						Cost: c.NetworkCost,
					})
				}
			}
		}
		return costs, nil
	}
	return nil, fmt.Errorf("network topology %q has no weight %q", nt.Name, weight)
}

// ApplyLoadMetrics sets the base load of the nodes that have none from the
// average CPU utilisation reported by load-watcher.
func ApplyLoadMetrics(spec *v1alpha1.PlacementRequestSpec, metrics *watcher.WatcherMetrics) {
	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		if n.BaseLoad != nil {
			continue
		}
		nm, ok := metrics.Data.NodeMetricsMap[n.Name]
		if !ok {
			continue
		}
		for _, m := range nm.Metrics {
			if m.Type == watcher.CPU && m.Operator == watcher.Average {
				load := min(max(m.Value/100, 0), 1)
				n.BaseLoad = &load
				break
			}
		}
	}
}
