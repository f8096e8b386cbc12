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

const (
	// GroupVersion is the apiVersion every BenchmarkRun document must carry.
	GroupVersion = "optimization.mihai-snyk.io/v1alpha1"
	// Kind is the kind of a BenchmarkRun document.
	Kind = "BenchmarkRun"
)

// BenchmarkRun describes one run of a multi-objective solver on a benchmark
// problem: which problem, which algorithm with which parameters, and where to
// write the resulting plot.
type BenchmarkRun struct {
	metav1.TypeMeta `json:",inline"`

	Spec BenchmarkRunSpec `json:"spec"`
}

// BenchmarkRunSpec defines the run.
type BenchmarkRunSpec struct {
	// Problem selects the benchmark problem
	Problem ProblemSpec `json:"problem"`

	// Algorithm selects the solver
	// +kubebuilder:validation:Enum=NSGA-II;MOEA/D;ParetoSweep
	Algorithm AlgorithmName `json:"algorithm"`

	// Seed seeds the random generator. Zero or unset uses the default seed.
	Seed *uint64 `json:"seed,omitempty"`

	// Parallelism bounds the number of concurrent objective evaluations
	Parallelism *int `json:"parallelism,omitempty"`

	// Memoize caches objective evaluations keyed by decision vector
	Memoize *bool `json:"memoize,omitempty"`

	NSGA2 *NSGA2Spec `json:"nsga2,omitempty"`
	MOEAD *MOEADSpec `json:"moead,omitempty"`
	Sweep *SweepSpec `json:"sweep,omitempty"`

	// Output controls the artifacts written after the run
	Output OutputSpec `json:"output,omitempty"`
}

// ProblemName names a benchmark problem.
type ProblemName string

const (
	ProblemZDT1  ProblemName = "ZDT1"
	ProblemDTLZ2 ProblemName = "DTLZ2"
)

// ProblemSpec selects and sizes a benchmark problem.
type ProblemSpec struct {
	Name ProblemName `json:"name"`

	// Variables is the number of decision variables
	Variables *int `json:"variables,omitempty"`

	// Objectives is the number of objectives. ZDT1 always has 2.
	Objectives *int `json:"objectives,omitempty"`
}

// AlgorithmName names a solver.
type AlgorithmName string

const (
	AlgorithmNSGA2       AlgorithmName = "NSGA-II"
	AlgorithmMOEAD       AlgorithmName = "MOEA/D"
	AlgorithmParetoSweep AlgorithmName = "ParetoSweep"
)

// NSGA2Spec holds the NSGA-II parameters. Unset fields take the solver
// defaults.
type NSGA2Spec struct {
	PopulationSize       *int     `json:"populationSize,omitempty"`
	Generations          *int     `json:"generations,omitempty"`
	CrossoverProbability *float64 `json:"crossoverProbability,omitempty"`
	CrossoverIndex       *float64 `json:"crossoverIndex,omitempty"`
	MutationIndex        *float64 `json:"mutationIndex,omitempty"`
}

// MOEADSpec holds the MOEA/D parameters. Unset fields take the solver
// defaults.
type MOEADSpec struct {
	// Divisions is the simplex lattice resolution H
	Divisions        *int `json:"divisions,omitempty"`
	NeighborhoodSize *int `json:"neighborhoodSize,omitempty"`
	Generations      *int `json:"generations,omitempty"`

	// +kubebuilder:validation:Enum=WeightedSum;Tchebycheff;PBI
	Scalarization string `json:"scalarization,omitempty"`

	// Theta is the PBI penalty
	Theta *float64 `json:"theta,omitempty"`
}

// SweepSpec holds the weighted-sum sweep parameters.
type SweepSpec struct {
	// Divisions is the number of weight steps between the two objectives
	Divisions *int `json:"divisions,omitempty"`
}

// OutputSpec controls run artifacts.
type OutputSpec struct {
	// PlotPath is where the HTML front plot is written. Empty derives a
	// name from the problem and algorithm; "-" disables plotting.
	PlotPath string `json:"plotPath,omitempty"`
}
