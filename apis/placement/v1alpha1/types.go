/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const GroupName = "placement.x-k8s.io"

// SchemeGroupVersion is group version used for the placement types
var SchemeGroupVersion = schema.GroupVersion{Group: GroupName, Version: "v1alpha1"}

const (
	// ResourceNetworkBandwidth is the network bandwidth a service needs and a
	// node offers, in bits per second.
	ResourceNetworkBandwidth corev1.ResourceName = "network-bandwidth"

	// ServiceLabel is the default pod label naming the service a pod belongs to
	ServiceLabel = "app.kubernetes.io/name"
)

// PlacementRequest describes a cluster, the services to place on it and how
// to search for placements.
// +kubebuilder:object:root=true
type PlacementRequest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec PlacementRequestSpec `json:"spec"`
}

// PlacementRequestSpec defines the placement problem
type PlacementRequestSpec struct {
	// Services are the services to place
	Services []ServiceSpec `json:"services"`

	// Nodes are the nodes services can be placed on
	Nodes []NodeSpec `json:"nodes"`

	// ZoneCosts is the network cost of sending traffic between zones.
	// Missing pairs use DefaultCrossZoneCost.
	ZoneCosts []ZoneCost `json:"zoneCosts,omitempty"`

	// ColocationGroups lists services that must share a node
	ColocationGroups []ColocationGroup `json:"colocationGroups,omitempty"`

	// MaxNodes bounds the number of nodes used by the placement
	MaxNodes *int32 `json:"maxNodes,omitempty"`

	// Weights are the objective weights used to pick the best placement of
	// the front. Objectives without a weight count with weight 1.
	Weights map[string]float64 `json:"weights,omitempty"`

	// Algorithm configures the search
	Algorithm AlgorithmSpec `json:"algorithm,omitempty"`
}

// ServiceSpec describes one service
type ServiceSpec struct {
	// Name of the service, also the value of the service label of its pods
	Name string `json:"name"`

	// Requests are the resources the service needs
	Requests corev1.ResourceList `json:"requests,omitempty"`

	// Dependencies is the traffic this service sends to other services
	Dependencies []Dependency `json:"dependencies,omitempty"`

	// AllowedNodes restricts the nodes the service can run on. Empty means any node.
	AllowedNodes []string `json:"allowedNodes,omitempty"`
}

// Dependency is the traffic sent to another service
type Dependency struct {
	Service string `json:"service"`

	// Traffic is the volume of traffic, e.g. "20M" bits per second
	Traffic resource.Quantity `json:"traffic"`
}

// NodeSpec describes one node
type NodeSpec struct {
	Name string `json:"name"`

	// Zone is the topology zone of the node
	Zone string `json:"zone,omitempty"`

	// Capacity is what the node can offer to the placed services
	Capacity corev1.ResourceList `json:"capacity"`

	// HourlyCost is paid when at least one service runs on the node
	HourlyCost float64 `json:"hourlyCost,omitempty"`

	// BaseLoad is the CPU utilisation of the node before placement, in [0, 1]
	BaseLoad *float64 `json:"baseLoad,omitempty"`
}

// ZoneCost is the network cost between two zones, in both directions
type ZoneCost struct {
	From string `json:"from"`
	To   string `json:"to"`
	Cost int64  `json:"cost"`
}

// ColocationGroup is a set of services that must run on the same node
type ColocationGroup struct {
	Name     string   `json:"name"`
	Services []string `json:"services"`
}

// StoppingMode combines the stopping limits
// +kubebuilder:validation:Enum=Any;All
type StoppingMode string

const (
	// StoppingModeAny stops when any limit is reached
	StoppingModeAny StoppingMode = "Any"
	// StoppingModeAll stops when every limit is reached
	StoppingModeAll StoppingMode = "All"
)

// StoppingSpec configures when the search stops. At least one limit must be set.
type StoppingSpec struct {
	MaxGenerations         *int32           `json:"maxGenerations,omitempty"`
	MaxDuration            *metav1.Duration `json:"maxDuration,omitempty"`
	MaxFunctionEvaluations *int32           `json:"maxFunctionEvaluations,omitempty"`
	Mode                   StoppingMode     `json:"mode,omitempty"`
}

// ExportSpec configures population snapshots
type ExportSpec struct {
	// Dir is the directory snapshots are written to
	Dir string `json:"dir"`

	// GenerationStep writes a snapshot every GenerationStep generations.
	// Zero only writes the initial and final snapshots.
	GenerationStep int32 `json:"generationStep,omitempty"`
}

// AlgorithmSpec configures the NSGA-II search
type AlgorithmSpec struct {
	PopulationSize *int32 `json:"populationSize,omitempty"`

	CrossoverProbability         *float64 `json:"crossoverProbability,omitempty"`
	CrossoverVariableProbability *float64 `json:"crossoverVariableProbability,omitempty"`
	CrossoverDistributionIndex   *float64 `json:"crossoverDistributionIndex,omitempty"`

	MutationIndexParameter *float64 `json:"mutationIndexParameter,omitempty"`
	// MutationVariableProbability defaults to 1 / number of services
	MutationVariableProbability *float64 `json:"mutationVariableProbability,omitempty"`

	TournamentCompetitors *int32 `json:"tournamentCompetitors,omitempty"`

	// Parallel evaluates placements concurrently
	Parallel *bool `json:"parallel,omitempty"`

	// Seed makes the search reproducible
	Seed *uint64 `json:"seed,omitempty"`

	Stopping StoppingSpec `json:"stopping,omitempty"`

	Export *ExportSpec `json:"export,omitempty"`

	// ResumeFrom is a snapshot file whose population seeds the search
	ResumeFrom string `json:"resumeFrom,omitempty"`
}
