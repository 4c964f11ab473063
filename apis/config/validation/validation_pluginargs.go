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

package validation

import (
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/mihai-snyk/placement-optimizer/apis/config"
)

// ValidateMultiObjectiveArgs validates that MultiObjectiveArgs are correct.
func ValidateMultiObjectiveArgs(path *field.Path, args *config.MultiObjectiveArgs) error {
	var allErrs field.ErrorList

	for _, msg := range validation.IsDNS1123Label(args.PlanNamespace) {
		allErrs = append(allErrs, field.Invalid(path.Child("planNamespace"), args.PlanNamespace, msg))
	}
	for _, msg := range validation.IsDNS1123Subdomain(args.PlanName) {
		allErrs = append(allErrs, field.Invalid(path.Child("planName"), args.PlanName, msg))
	}
	for _, msg := range validation.IsQualifiedName(args.ServiceLabel) {
		allErrs = append(allErrs, field.Invalid(path.Child("serviceLabel"), args.ServiceLabel, msg))
	}
	if args.PlanCacheTTL != nil && args.PlanCacheTTL.Duration < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("planCacheTTL"), args.PlanCacheTTL.Duration.String(), "must not be negative"))
	}

	return allErrs.ToAggregate()
}
