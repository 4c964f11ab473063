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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// MultiObjectiveArgs holds arguments used to configure the MultiObjective plugin.
type MultiObjectiveArgs struct {
	metav1.TypeMeta `json:",inline"`

	// PlanNamespace is the namespace of the ConfigMap holding the placement plan
	PlanNamespace string `json:"planNamespace,omitempty"`
	// PlanName is the name of the ConfigMap holding the placement plan
	PlanName string `json:"planName,omitempty"`
	// ServiceLabel is the pod label naming the service of a pod
	ServiceLabel string `json:"serviceLabel,omitempty"`
	// PlanCacheTTL is how long a loaded plan is used before it is read again
	PlanCacheTTL *metav1.Duration `json:"planCacheTTL,omitempty"`
}
