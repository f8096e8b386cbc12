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

import "k8s.io/utils/ptr"

const (
	DefaultParallelism = 1
	DefaultZDT1Vars    = 30
	DefaultDTLZ2Objs   = 3
	DefaultSweepDivs   = 20
	defaultMOEADDivsM2 = 99
	defaultMOEADDivsM3 = 13
)

// SetDefaults_BenchmarkRun fills in unset optional fields. It only touches
// the parameter block of the selected algorithm.
func SetDefaults_BenchmarkRun(obj *BenchmarkRun) {
	spec := &obj.Spec

	if spec.Parallelism == nil {
		spec.Parallelism = ptr.To(DefaultParallelism)
	}
	if spec.Memoize == nil {
		spec.Memoize = ptr.To(false)
	}

	p := &spec.Problem
	switch p.Name {
	case ProblemZDT1:
		if p.Variables == nil {
			p.Variables = ptr.To(DefaultZDT1Vars)
		}
		if p.Objectives == nil {
			p.Objectives = ptr.To(2)
		}
	case ProblemDTLZ2:
		if p.Objectives == nil {
			p.Objectives = ptr.To(DefaultDTLZ2Objs)
		}
		if p.Variables == nil {
			// k = 10 distance variables, the usual DTLZ2 setting.
			p.Variables = ptr.To(*p.Objectives + 9)
		}
	}

	switch spec.Algorithm {
	case AlgorithmNSGA2:
		if spec.NSGA2 == nil {
			spec.NSGA2 = &NSGA2Spec{}
		}
	case AlgorithmMOEAD:
		if spec.MOEAD == nil {
			spec.MOEAD = &MOEADSpec{}
		}
		if spec.MOEAD.Divisions == nil {
			divs := defaultMOEADDivsM2
			if p.Objectives != nil && *p.Objectives > 2 {
				divs = defaultMOEADDivsM3
			}
			spec.MOEAD.Divisions = ptr.To(divs)
		}
	case AlgorithmParetoSweep:
		if spec.Sweep == nil {
			spec.Sweep = &SweepSpec{}
		}
		if spec.Sweep.Divisions == nil {
			spec.Sweep.Divisions = ptr.To(DefaultSweepDivs)
		}
	}
}
