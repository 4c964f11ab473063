package placement

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

// Service is a service of the cluster in index form.
type Service struct {
	Name     string
	Requests framework.Resources
	// AllowedNodes are node indices, all nodes when empty.
	AllowedNodes []int
}

// Node is a node of the cluster in index form.
type Node struct {
	Name string
	Zone string
	// Capacity is nil when the node does not bound the placed services.
	Capacity   *framework.Resources
	HourlyCost float64
	BaseLoad   float64
}

// Cluster is the placement input. Services and nodes are addressed by their
// position in Services and Nodes.
type Cluster struct {
	Services []Service
	Nodes    []Node

	// Traffic is the services x services matrix of the traffic service i
	// sends to service j, in Mbit/s.
	Traffic *mat.Dense
	// NetworkCost is the nodes x nodes matrix of the cost of sending one
	// unit of traffic from node a to node b.
	NetworkCost *mat.Dense

	ColocationGroups []v1alpha1.ColocationGroup
	// MaxNodes is zero when the number of used nodes is not bounded.
	MaxNodes int
	Weights  map[string]float64

	serviceIndex map[string]int
	nodeIndex    map[string]int
}

// NewCluster converts a placement request into a Cluster.
func NewCluster(spec *v1alpha1.PlacementRequestSpec) (*Cluster, error) {
	if len(spec.Services) == 0 {
		return nil, fmt.Errorf("cluster has no services")
	}
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("cluster has no nodes")
	}
	c := &Cluster{
		Services:         make([]Service, 0, len(spec.Services)),
		Nodes:            make([]Node, 0, len(spec.Nodes)),
		ColocationGroups: spec.ColocationGroups,
		Weights:          spec.Weights,
		serviceIndex:     make(map[string]int, len(spec.Services)),
		nodeIndex:        make(map[string]int, len(spec.Nodes)),
	}
	if spec.MaxNodes != nil {
		c.MaxNodes = int(*spec.MaxNodes)
	}

	for i, n := range spec.Nodes {
		if _, ok := c.nodeIndex[n.Name]; ok {
			return nil, fmt.Errorf("node %q is defined twice", n.Name)
		}
		c.nodeIndex[n.Name] = i
		node := Node{
			Name:       n.Name,
			Zone:       n.Zone,
			HourlyCost: n.HourlyCost,
		}
		if len(n.Capacity) > 0 {
			capacity := capacityOf(n.Capacity)
			node.Capacity = &capacity
		}
		if n.BaseLoad != nil {
			node.BaseLoad = *n.BaseLoad
		}
		c.Nodes = append(c.Nodes, node)
	}

	for i, s := range spec.Services {
		if _, ok := c.serviceIndex[s.Name]; ok {
			return nil, fmt.Errorf("service %q is defined twice", s.Name)
		}
		c.serviceIndex[s.Name] = i
		svc := Service{
			Name:     s.Name,
			Requests: requestsOf(s.Requests),
		}
		for _, name := range s.AllowedNodes {
			n, ok := c.nodeIndex[name]
			if !ok {
				return nil, fmt.Errorf("service %q allows unknown node %q", s.Name, name)
			}
			svc.AllowedNodes = append(svc.AllowedNodes, n)
		}
		c.Services = append(c.Services, svc)
	}

	c.Traffic = mat.NewDense(len(c.Services), len(c.Services), nil)
	for i, s := range spec.Services {
		for _, d := range s.Dependencies {
			j, ok := c.serviceIndex[d.Service]
			if !ok {
				return nil, fmt.Errorf("service %q depends on unknown service %q", s.Name, d.Service)
			}
			c.Traffic.Set(i, j, c.Traffic.At(i, j)+megabits(d.Traffic))
		}
	}
	for _, g := range c.ColocationGroups {
		for _, s := range g.Services {
			if _, ok := c.serviceIndex[s]; !ok {
				return nil, fmt.Errorf("colocation group %q references unknown service %q", g.Name, s)
			}
		}
	}

	c.NetworkCost = NetworkCostMatrix(c.Nodes, spec.ZoneCosts)
	return c, nil
}

// ServiceIndex returns the position of the named service.
func (c *Cluster) ServiceIndex(name string) (int, bool) {
	i, ok := c.serviceIndex[name]
	return i, ok
}

// NodeIndex returns the position of the named node.
func (c *Cluster) NodeIndex(name string) (int, bool) {
	i, ok := c.nodeIndex[name]
	return i, ok
}

// NodeNames returns the node names in cluster order.
func (c *Cluster) NodeNames() []string {
	names := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		names[i] = n.Name
	}
	return names
}

// NetworkCostMatrix builds the node network cost matrix. Two nodes of the
// same zone cost DefaultSameZoneCost, zone pairs without a ZoneCost cost
// DefaultCrossZoneCost and a node sending to itself costs nothing. A zone
// cost applies in both directions unless the reverse pair is also listed;
// later entries win.
func NetworkCostMatrix(nodes []Node, zoneCosts []v1alpha1.ZoneCost) *mat.Dense {
	type zonePair struct{ from, to string }
	explicit := make(map[zonePair]int64, len(zoneCosts))
	costs := make(map[zonePair]int64, 2*len(zoneCosts))
	for _, zc := range zoneCosts {
		p := zonePair{zc.From, zc.To}
		explicit[p] = zc.Cost
		costs[p] = zc.Cost
		r := zonePair{zc.To, zc.From}
		if _, ok := explicit[r]; !ok {
			costs[r] = zc.Cost
		}
	}

	m := mat.NewDense(len(nodes), len(nodes), nil)
	for a := range nodes {
		for b := range nodes {
			if a == b {
				continue
			}
			from, to := nodes[a].Zone, nodes[b].Zone
			cost := v1alpha1.DefaultCrossZoneCost
			if v, ok := costs[zonePair{from, to}]; ok {
				cost = v
			} else if from == to {
				cost = v1alpha1.DefaultSameZoneCost
			}
			m.Set(a, b, float64(cost))
		}
	}
	return m
}

func requestsOf(rl corev1.ResourceList) framework.Resources {
	return framework.Resources{
		CPU:     quantity(rl, corev1.ResourceCPU, 0),
		Memory:  quantity(rl, corev1.ResourceMemory, 0),
		Disk:    quantity(rl, corev1.ResourceEphemeralStorage, 0),
		Network: quantity(rl, v1alpha1.ResourceNetworkBandwidth, 0),
	}
}

// capacityOf leaves the resources missing from rl unbounded.
func capacityOf(rl corev1.ResourceList) framework.Resources {
	return framework.Resources{
		CPU:     quantity(rl, corev1.ResourceCPU, math.MaxUint64),
		Memory:  quantity(rl, corev1.ResourceMemory, math.MaxUint64),
		Disk:    quantity(rl, corev1.ResourceEphemeralStorage, math.MaxUint64),
		Network: quantity(rl, v1alpha1.ResourceNetworkBandwidth, math.MaxUint64),
	}
}

// quantity returns CPU in millicores and everything else in base units.
func quantity(rl corev1.ResourceList, name corev1.ResourceName, missing uint64) uint64 {
	q, ok := rl[name]
	if !ok {
		return missing
	}
	var v int64
	if name == corev1.ResourceCPU {
		v = q.MilliValue()
	} else {
		v = q.Value()
	}
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func megabits(q resource.Quantity) float64 {
	return q.AsApproximateFloat64() / 1e6
}
