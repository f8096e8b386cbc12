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
	"os"

	"sigs.k8s.io/yaml"
)

// Decode parses a YAML or JSON BenchmarkRun, rejecting unknown fields, then
// applies defaults and validates it.
func Decode(data []byte) (*BenchmarkRun, error) {
	run := &BenchmarkRun{}
	if err := yaml.UnmarshalStrict(data, run); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", Kind, err)
	}
	SetDefaults_BenchmarkRun(run)
	if errs := ValidateBenchmarkRun(run); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s: %w", Kind, errs.ToAggregate())
	}
	return run, nil
}

// Load reads and decodes the BenchmarkRun at path.
func Load(path string) (*BenchmarkRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	run, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return run, nil
}
