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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PlacementPlan is the output of the optimizer: the non-dominated placements
// found for a PlacementRequest, best first. The scheduler plugin consumes the
// first solution.
// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced,shortName={plan,plans}
// +kubebuilder:printcolumn:name="Phase",JSONPath=".status.phase",type=string,description="Current phase of the plan"
// +kubebuilder:printcolumn:name="Age",JSONPath=".metadata.creationTimestamp",type=date,description="Age is the time PlacementPlan was created."
type PlacementPlan struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PlacementPlanSpec   `json:"spec,omitempty"`
	Status PlacementPlanStatus `json:"status,omitempty"`
}

// PlacementPlanSpec defines the placements found by the optimizer
type PlacementPlanSpec struct {
	// ClusterNodes contains the list of node names that existed when solutions were generated
	ClusterNodes []string `json:"clusterNodes"`

	// Solutions contains the non-dominated placements, best first
	Solutions []PlacementSolution `json:"solutions"`

	// ExpirationTime is when the plan should no longer be used
	ExpirationTime *metav1.Time `json:"expirationTime,omitempty"`

	// GeneratedAt indicates when the plan was generated
	GeneratedAt *metav1.Time `json:"generatedAt"`

	// Algorithm is the name of the algorithm that generated the plan
	Algorithm string `json:"algorithm,omitempty"`

	// Generations is the number of generations the algorithm ran for
	Generations int `json:"generations,omitempty"`

	// FunctionEvaluations is the number of placements evaluated
	FunctionEvaluations int `json:"functionEvaluations,omitempty"`
}

// PlacementPlanStatus defines the observed state of PlacementPlan
type PlacementPlanStatus struct {
	// Phase represents the current phase of the plan
	// +kubebuilder:validation:Enum=Active;Expired
	Phase PlacementPlanPhase `json:"phase,omitempty"`

	// Conditions represent the latest available observations of the plan's current state
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// PlacementPlanPhase represents the phase of a plan
type PlacementPlanPhase string

const (
	// PlacementPlanPhaseActive indicates the plan is active and can be used
	PlacementPlanPhaseActive PlacementPlanPhase = "Active"

	// PlacementPlanPhaseExpired indicates the plan has expired
	PlacementPlanPhaseExpired PlacementPlanPhase = "Expired"
)

// PlacementSolution represents a single placement from the non-dominated front
type PlacementSolution struct {
	// Rank is the position of the solution in the plan (1 = best)
	Rank int `json:"rank"`

	// WeightedScore is the weighted objective sum used to order the solutions
	WeightedScore float64 `json:"weightedScore"`

	// Objectives contains the individual objective values
	Objectives map[string]float64 `json:"objectives"`

	// Feasible is true when every constraint is met
	Feasible bool `json:"feasible"`

	// ConstraintViolation is the total violation of the placement
	ConstraintViolation uint64 `json:"constraintViolation,omitempty"`

	// Assignments maps every service to the node it should run on
	Assignments map[string]string `json:"assignments"`
}

// +kubebuilder:object:root=true

// PlacementPlanList contains a list of PlacementPlan
type PlacementPlanList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PlacementPlan `json:"items"`
}

// Best returns the first solution, or nil when the plan is empty.
func (p *PlacementPlan) Best() *PlacementSolution {
	if len(p.Spec.Solutions) == 0 {
		return nil
	}
	return &p.Spec.Solutions[0]
}

// IsExpired reports whether the plan expired at now.
func (p *PlacementPlan) IsExpired(now metav1.Time) bool {
	if p.Status.Phase == PlacementPlanPhaseExpired {
		return true
	}
	return p.Spec.ExpirationTime != nil && !now.Before(p.Spec.ExpirationTime)
}
