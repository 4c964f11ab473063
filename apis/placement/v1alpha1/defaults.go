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
	"k8s.io/utils/ptr"
)

// Objective names of the placement problem
const (
	ObjectiveCommunicationCost = "communication_cost"
	ObjectiveResourceCost      = "resource_cost"
	ObjectiveLoadImbalance     = "load_imbalance"
)

const (
	// DefaultSameZoneCost is the network cost between two nodes of one zone
	DefaultSameZoneCost int64 = 1
	// DefaultCrossZoneCost is the network cost between zones without a ZoneCost
	DefaultCrossZoneCost int64 = 10
)

var (
	DefaultPopulationSize              int32   = 100
	DefaultCrossoverProbability         float64 = 1.0
	DefaultCrossoverVariableProbability float64 = 0.5
	DefaultCrossoverDistributionIndex   float64 = 15
	DefaultMutationIndexParameter       float64 = 20
	DefaultTournamentCompetitors        int32   = 2
	DefaultMaxGenerations               int32   = 250
)

// SetDefaults_PlacementRequest sets the default algorithm settings.
func SetDefaults_PlacementRequest(obj *PlacementRequest) {
	a := &obj.Spec.Algorithm
	if a.PopulationSize == nil {
		a.PopulationSize = ptr.To(DefaultPopulationSize)
	}
	if a.CrossoverProbability == nil {
		a.CrossoverProbability = ptr.To(DefaultCrossoverProbability)
	}
	if a.CrossoverVariableProbability == nil {
		a.CrossoverVariableProbability = ptr.To(DefaultCrossoverVariableProbability)
	}
	if a.CrossoverDistributionIndex == nil {
		a.CrossoverDistributionIndex = ptr.To(DefaultCrossoverDistributionIndex)
	}
	if a.MutationIndexParameter == nil {
		a.MutationIndexParameter = ptr.To(DefaultMutationIndexParameter)
	}
	if a.TournamentCompetitors == nil {
		a.TournamentCompetitors = ptr.To(DefaultTournamentCompetitors)
	}
	if a.Parallel == nil {
		a.Parallel = ptr.To(false)
	}

	s := &a.Stopping
	if s.MaxGenerations == nil && s.MaxDuration == nil && s.MaxFunctionEvaluations == nil {
		s.MaxGenerations = ptr.To(DefaultMaxGenerations)
	}
	if s.Mode == "" {
		s.Mode = StoppingModeAny
	}
}
