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
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

var supportedResources = sets.New(
	corev1.ResourceCPU,
	corev1.ResourceMemory,
	corev1.ResourceEphemeralStorage,
	ResourceNetworkBandwidth,
)

var objectives = sets.New(
	ObjectiveCommunicationCost,
	ObjectiveResourceCost,
	ObjectiveLoadImbalance,
)

// ValidatePlacementRequest validates a defaulted PlacementRequest.
func ValidatePlacementRequest(req *PlacementRequest) field.ErrorList {
	var allErrs field.ErrorList
	spec := &req.Spec
	specPath := field.NewPath("spec")

	nodes := sets.New[string]()
	nodesPath := specPath.Child("nodes")
	if len(spec.Nodes) == 0 {
		allErrs = append(allErrs, field.Required(nodesPath, "at least one node is required"))
	}
	for i, n := range spec.Nodes {
		p := nodesPath.Index(i)
		allErrs = append(allErrs, validateName(p.Child("name"), n.Name)...)
		if nodes.Has(n.Name) {
			allErrs = append(allErrs, field.Duplicate(p.Child("name"), n.Name))
		}
		nodes.Insert(n.Name)
		allErrs = append(allErrs, validateResources(p.Child("capacity"), n.Capacity)...)
		if n.HourlyCost < 0 {
			allErrs = append(allErrs, field.Invalid(p.Child("hourlyCost"), n.HourlyCost, "must be non-negative"))
		}
		if n.BaseLoad != nil && (*n.BaseLoad < 0 || *n.BaseLoad > 1) {
			allErrs = append(allErrs, field.Invalid(p.Child("baseLoad"), *n.BaseLoad, "must be between 0 and 1"))
		}
	}

	services := sets.New[string]()
	servicesPath := specPath.Child("services")
	if len(spec.Services) == 0 {
		allErrs = append(allErrs, field.Required(servicesPath, "at least one service is required"))
	}
	for i, s := range spec.Services {
		p := servicesPath.Index(i)
		allErrs = append(allErrs, validateName(p.Child("name"), s.Name)...)
		if services.Has(s.Name) {
			allErrs = append(allErrs, field.Duplicate(p.Child("name"), s.Name))
		}
		services.Insert(s.Name)
		allErrs = append(allErrs, validateResources(p.Child("requests"), s.Requests)...)
		for j, n := range s.AllowedNodes {
			if !nodes.Has(n) {
				allErrs = append(allErrs, field.NotFound(p.Child("allowedNodes").Index(j), n))
			}
		}
	}
	for i, s := range spec.Services {
		for j, d := range s.Dependencies {
			p := servicesPath.Index(i).Child("dependencies").Index(j)
			switch {
			case d.Service == s.Name:
				allErrs = append(allErrs, field.Invalid(p.Child("service"), d.Service, "a service cannot depend on itself"))
			case !services.Has(d.Service):
				allErrs = append(allErrs, field.NotFound(p.Child("service"), d.Service))
			}
			if d.Traffic.Sign() < 0 {
				allErrs = append(allErrs, field.Invalid(p.Child("traffic"), d.Traffic.String(), "must be non-negative"))
			}
		}
	}

	for i, zc := range spec.ZoneCosts {
		p := specPath.Child("zoneCosts").Index(i)
		if zc.From == "" {
			allErrs = append(allErrs, field.Required(p.Child("from"), ""))
		}
		if zc.To == "" {
			allErrs = append(allErrs, field.Required(p.Child("to"), ""))
		}
		if zc.Cost < 0 {
			allErrs = append(allErrs, field.Invalid(p.Child("cost"), zc.Cost, "must be non-negative"))
		}
	}

	groups := sets.New[string]()
	for i, g := range spec.ColocationGroups {
		p := specPath.Child("colocationGroups").Index(i)
		allErrs = append(allErrs, validateName(p.Child("name"), g.Name)...)
		if groups.Has(g.Name) {
			allErrs = append(allErrs, field.Duplicate(p.Child("name"), g.Name))
		}
		groups.Insert(g.Name)
		if len(g.Services) == 0 {
			allErrs = append(allErrs, field.Required(p.Child("services"), ""))
		}
		members := sets.New[string]()
		for j, s := range g.Services {
			sp := p.Child("services").Index(j)
			if !services.Has(s) {
				allErrs = append(allErrs, field.NotFound(sp, s))
			}
			if members.Has(s) {
				allErrs = append(allErrs, field.Duplicate(sp, s))
			}
			members.Insert(s)
		}
	}

	if spec.MaxNodes != nil && *spec.MaxNodes < 1 {
		allErrs = append(allErrs, field.Invalid(specPath.Child("maxNodes"), *spec.MaxNodes, "must be at least 1"))
	}
	for name, w := range spec.Weights {
		p := specPath.Child("weights").Key(name)
		if !objectives.Has(name) {
			allErrs = append(allErrs, field.NotSupported(p, name, sets.List(objectives)))
		}
		if w < 0 {
			allErrs = append(allErrs, field.Invalid(p, w, "must be non-negative"))
		}
	}

	allErrs = append(allErrs, validateAlgorithm(specPath.Child("algorithm"), &spec.Algorithm)...)
	return allErrs
}

func validateName(p *field.Path, name string) field.ErrorList {
	if name == "" {
		return field.ErrorList{field.Required(p, "")}
	}
	var allErrs field.ErrorList
	for _, msg := range validation.IsDNS1123Label(name) {
		allErrs = append(allErrs, field.Invalid(p, name, msg))
	}
	return allErrs
}

func validateResources(p *field.Path, rl corev1.ResourceList) field.ErrorList {
	var allErrs field.ErrorList
	for name, q := range rl {
		rp := p.Key(string(name))
		if !supportedResources.Has(name) {
			allErrs = append(allErrs, field.NotSupported(rp, name, sets.List(supportedResources)))
			continue
		}
		if q.Sign() < 0 {
			allErrs = append(allErrs, field.Invalid(rp, q.String(), "must be non-negative"))
		}
	}
	return allErrs
}

func validateProbability(p *field.Path, v *float64) field.ErrorList {
	if v == nil {
		return field.ErrorList{field.Required(p, "")}
	}
	if *v < 0 || *v > 1 {
		return field.ErrorList{field.Invalid(p, *v, "must be between 0 and 1")}
	}
	return nil
}

func validateDistributionIndex(p *field.Path, v *float64) field.ErrorList {
	if v == nil {
		return field.ErrorList{field.Required(p, "")}
	}
	if *v < 0 {
		return field.ErrorList{field.Invalid(p, *v, "must be non-negative")}
	}
	return nil
}

func validateAlgorithm(p *field.Path, a *AlgorithmSpec) field.ErrorList {
	var allErrs field.ErrorList
	if a.PopulationSize == nil {
		allErrs = append(allErrs, field.Required(p.Child("populationSize"), ""))
	} else if *a.PopulationSize < 2 {
		allErrs = append(allErrs, field.Invalid(p.Child("populationSize"), *a.PopulationSize, "must be at least 2"))
	}
	allErrs = append(allErrs, validateProbability(p.Child("crossoverProbability"), a.CrossoverProbability)...)
	allErrs = append(allErrs, validateProbability(p.Child("crossoverVariableProbability"), a.CrossoverVariableProbability)...)
	allErrs = append(allErrs, validateDistributionIndex(p.Child("crossoverDistributionIndex"), a.CrossoverDistributionIndex)...)
	allErrs = append(allErrs, validateDistributionIndex(p.Child("mutationIndexParameter"), a.MutationIndexParameter)...)
	if a.MutationVariableProbability != nil {
		allErrs = append(allErrs, validateProbability(p.Child("mutationVariableProbability"), a.MutationVariableProbability)...)
	}
	if a.TournamentCompetitors == nil {
		allErrs = append(allErrs, field.Required(p.Child("tournamentCompetitors"), ""))
	} else if *a.TournamentCompetitors < 1 {
		allErrs = append(allErrs, field.Invalid(p.Child("tournamentCompetitors"), *a.TournamentCompetitors, "must be at least 1"))
	} else if a.PopulationSize != nil && *a.TournamentCompetitors > *a.PopulationSize {
		allErrs = append(allErrs, field.Invalid(p.Child("tournamentCompetitors"), *a.TournamentCompetitors,
			fmt.Sprintf("must not exceed the population size %d", *a.PopulationSize)))
	}

	sp := p.Child("stopping")
	s := &a.Stopping
	if s.MaxGenerations == nil && s.MaxDuration == nil && s.MaxFunctionEvaluations == nil {
		allErrs = append(allErrs, field.Required(sp, "at least one of maxGenerations, maxDuration or maxFunctionEvaluations is required"))
	}
	if s.MaxGenerations != nil && *s.MaxGenerations < 1 {
		allErrs = append(allErrs, field.Invalid(sp.Child("maxGenerations"), *s.MaxGenerations, "must be at least 1"))
	}
	if s.MaxFunctionEvaluations != nil && *s.MaxFunctionEvaluations < 1 {
		allErrs = append(allErrs, field.Invalid(sp.Child("maxFunctionEvaluations"), *s.MaxFunctionEvaluations, "must be at least 1"))
	}
	if s.MaxDuration != nil && s.MaxDuration.Duration <= 0 {
		allErrs = append(allErrs, field.Invalid(sp.Child("maxDuration"), s.MaxDuration.Duration.String(), "must be positive"))
	}
	if s.Mode != StoppingModeAny && s.Mode != StoppingModeAll {
		allErrs = append(allErrs, field.NotSupported(sp.Child("mode"), s.Mode, []StoppingMode{StoppingModeAny, StoppingModeAll}))
	}

	if e := a.Export; e != nil {
		ep := p.Child("export")
		if e.Dir == "" {
			allErrs = append(allErrs, field.Required(ep.Child("dir"), ""))
		}
		if e.GenerationStep < 0 {
			allErrs = append(allErrs, field.Invalid(ep.Child("generationStep"), e.GenerationStep, "must be non-negative"))
		}
	}
	return allErrs
}
