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
	"slices"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

var (
	supportedProblems      = []string{string(ProblemZDT1), string(ProblemDTLZ2)}
	supportedAlgorithms    = []string{string(AlgorithmNSGA2), string(AlgorithmMOEAD), string(AlgorithmParetoSweep)}
	supportedScalarization = []string{"WeightedSum", "Tchebycheff", "PBI"}
)

// ValidateBenchmarkRun checks a defaulted BenchmarkRun. Solver specific
// constraints beyond simple ranges are left to the solver configs.
func ValidateBenchmarkRun(run *BenchmarkRun) field.ErrorList {
	var errs field.ErrorList
	if run.APIVersion != GroupVersion {
		errs = append(errs, field.Invalid(field.NewPath("apiVersion"), run.APIVersion, "must be "+GroupVersion))
	}
	if run.Kind != Kind {
		errs = append(errs, field.Invalid(field.NewPath("kind"), run.Kind, "must be "+Kind))
	}

	spec := &run.Spec
	path := field.NewPath("spec")
	errs = append(errs, validateProblem(path.Child("problem"), &spec.Problem)...)

	switch spec.Algorithm {
	case AlgorithmNSGA2:
		if n := spec.NSGA2; n != nil {
			p := path.Child("nsga2")
			errs = append(errs, validateMin(p.Child("populationSize"), n.PopulationSize, 2)...)
			errs = append(errs, validateMin(p.Child("generations"), n.Generations, 0)...)
			if v := n.CrossoverProbability; v != nil && !(*v >= 0 && *v <= 1) {
				errs = append(errs, field.Invalid(p.Child("crossoverProbability"), *v, "must be within [0, 1]"))
			}
			errs = append(errs, validateNonNegative(p.Child("crossoverIndex"), n.CrossoverIndex)...)
			errs = append(errs, validateNonNegative(p.Child("mutationIndex"), n.MutationIndex)...)
		}
	case AlgorithmMOEAD:
		if m := spec.MOEAD; m != nil {
			p := path.Child("moead")
			errs = append(errs, validateMin(p.Child("divisions"), m.Divisions, 1)...)
			errs = append(errs, validateMin(p.Child("neighborhoodSize"), m.NeighborhoodSize, 1)...)
			errs = append(errs, validateMin(p.Child("generations"), m.Generations, 0)...)
			if m.Scalarization != "" && !slices.Contains(supportedScalarization, m.Scalarization) {
				errs = append(errs, field.NotSupported(p.Child("scalarization"), m.Scalarization, supportedScalarization))
			}
			errs = append(errs, validateNonNegative(p.Child("theta"), m.Theta)...)
		}
	case AlgorithmParetoSweep:
		if s := spec.Sweep; s != nil {
			errs = append(errs, validateMin(path.Child("sweep", "divisions"), s.Divisions, 1)...)
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("algorithm"), spec.Algorithm, supportedAlgorithms))
	}

	errs = append(errs, validateMin(path.Child("parallelism"), spec.Parallelism, 1)...)
	return errs
}

func validateProblem(path *field.Path, p *ProblemSpec) field.ErrorList {
	var errs field.ErrorList
	switch p.Name {
	case ProblemZDT1:
		errs = append(errs, validateMin(path.Child("variables"), p.Variables, 2)...)
		if p.Objectives != nil && *p.Objectives != 2 {
			errs = append(errs, field.Invalid(path.Child("objectives"), *p.Objectives, "ZDT1 has exactly 2 objectives"))
		}
	case ProblemDTLZ2:
		errs = append(errs, validateMin(path.Child("objectives"), p.Objectives, 2)...)
		if p.Objectives != nil && p.Variables != nil && *p.Variables < *p.Objectives {
			errs = append(errs, field.Invalid(path.Child("variables"), *p.Variables, "must be at least the number of objectives"))
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("name"), p.Name, supportedProblems))
	}
	return errs
}

func validateMin(path *field.Path, v *int, lo int) field.ErrorList {
	if v != nil && *v < lo {
		return field.ErrorList{field.Invalid(path, *v, fmt.Sprintf("must be at least %d", lo))}
	}
	return nil
}

func validateNonNegative(path *field.Path, v *float64) field.ErrorList {
	if v != nil && !(*v >= 0) {
		return field.ErrorList{field.Invalid(path, *v, "must be non-negative")}
	}
	return nil
}
