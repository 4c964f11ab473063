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

package config

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mihai-snyk/placement-optimizer/apis/placement/v1alpha1"
)

var (
	DefaultPlanNamespace = metav1.NamespaceSystem
	DefaultPlanName      = "placement-plan"
	DefaultPlanCacheTTL  = 30 * time.Second
)

// SetDefaults_MultiObjectiveArgs sets the default parameters for the MultiObjective plugin.
func SetDefaults_MultiObjectiveArgs(obj *MultiObjectiveArgs) {
	if obj.PlanNamespace == "" {
		obj.PlanNamespace = DefaultPlanNamespace
	}
	if obj.PlanName == "" {
		obj.PlanName = DefaultPlanName
	}
	if obj.ServiceLabel == "" {
		obj.ServiceLabel = v1alpha1.ServiceLabel
	}
	if obj.PlanCacheTTL == nil {
		obj.PlanCacheTTL = &metav1.Duration{Duration: DefaultPlanCacheTTL}
	}
}
