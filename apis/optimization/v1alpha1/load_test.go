package v1alpha1

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"
)

const minimalRun = `
apiVersion: optimization.mihai-snyk.io/v1alpha1
kind: BenchmarkRun
spec:
  problem:
    name: ZDT1
  algorithm: NSGA-II
`

func TestDecodeAppliesDefaults(t *testing.T) {
	run, err := Decode([]byte(minimalRun))
	require.NoError(t, err)

	want := BenchmarkRunSpec{
		Problem:     ProblemSpec{Name: ProblemZDT1, Variables: ptr.To(30), Objectives: ptr.To(2)},
		Algorithm:   AlgorithmNSGA2,
		Parallelism: ptr.To(1),
		Memoize:     ptr.To(false),
		NSGA2:       &NSGA2Spec{},
	}
	if diff := cmp.Diff(want, run.Spec); diff != "" {
		t.Errorf("unexpected spec (-want +got):\n%s", diff)
	}
}

func TestSetDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   BenchmarkRunSpec
		want BenchmarkRunSpec
	}{
		{
			name: "dtlz2 with moead",
			in: BenchmarkRunSpec{
				Problem:   ProblemSpec{Name: ProblemDTLZ2},
				Algorithm: AlgorithmMOEAD,
			},
			want: BenchmarkRunSpec{
				Problem:     ProblemSpec{Name: ProblemDTLZ2, Variables: ptr.To(12), Objectives: ptr.To(3)},
				Algorithm:   AlgorithmMOEAD,
				Parallelism: ptr.To(1),
				Memoize:     ptr.To(false),
				MOEAD:       &MOEADSpec{Divisions: ptr.To(13)},
			},
		},
		{
			name: "two objective moead keeps explicit values",
			in: BenchmarkRunSpec{
				Problem:     ProblemSpec{Name: ProblemDTLZ2, Objectives: ptr.To(2), Variables: ptr.To(5)},
				Algorithm:   AlgorithmMOEAD,
				Parallelism: ptr.To(4),
				MOEAD:       &MOEADSpec{Scalarization: "PBI"},
			},
			want: BenchmarkRunSpec{
				Problem:     ProblemSpec{Name: ProblemDTLZ2, Variables: ptr.To(5), Objectives: ptr.To(2)},
				Algorithm:   AlgorithmMOEAD,
				Parallelism: ptr.To(4),
				Memoize:     ptr.To(false),
				MOEAD:       &MOEADSpec{Divisions: ptr.To(99), Scalarization: "PBI"},
			},
		},
		{
			name: "sweep",
			in: BenchmarkRunSpec{
				Problem:   ProblemSpec{Name: ProblemZDT1, Variables: ptr.To(4)},
				Algorithm: AlgorithmParetoSweep,
				Memoize:   ptr.To(true),
			},
			want: BenchmarkRunSpec{
				Problem:     ProblemSpec{Name: ProblemZDT1, Variables: ptr.To(4), Objectives: ptr.To(2)},
				Algorithm:   AlgorithmParetoSweep,
				Parallelism: ptr.To(1),
				Memoize:     ptr.To(true),
				Sweep:       &SweepSpec{Divisions: ptr.To(20)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &BenchmarkRun{Spec: tt.in}
			SetDefaults_BenchmarkRun(run)
			if diff := cmp.Diff(tt.want, run.Spec); diff != "" {
				t.Errorf("unexpected spec (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateBenchmarkRun(t *testing.T) {
	valid := func() *BenchmarkRun {
		run := &BenchmarkRun{Spec: BenchmarkRunSpec{
			Problem:   ProblemSpec{Name: ProblemDTLZ2},
			Algorithm: AlgorithmMOEAD,
		}}
		run.APIVersion, run.Kind = GroupVersion, Kind
		SetDefaults_BenchmarkRun(run)
		return run
	}
	require.Empty(t, ValidateBenchmarkRun(valid()))

	tests := []struct {
		name   string
		mutate func(*BenchmarkRun)
		field  string
	}{
		{"kind", func(r *BenchmarkRun) { r.Kind = "Pod" }, "kind"},
		{"problem", func(r *BenchmarkRun) { r.Spec.Problem.Name = "ZDT9" }, "spec.problem.name"},
		{"objectives", func(r *BenchmarkRun) { r.Spec.Problem.Objectives = ptr.To(1) }, "spec.problem.objectives"},
		{"variables", func(r *BenchmarkRun) { r.Spec.Problem.Variables = ptr.To(2) }, "spec.problem.variables"},
		{"algorithm", func(r *BenchmarkRun) { r.Spec.Algorithm = "SPEA2" }, "spec.algorithm"},
		{"scalarization", func(r *BenchmarkRun) { r.Spec.MOEAD.Scalarization = "Chebyshev" }, "spec.moead.scalarization"},
		{"theta", func(r *BenchmarkRun) { r.Spec.MOEAD.Theta = ptr.To(-1.0) }, "spec.moead.theta"},
		{"parallelism", func(r *BenchmarkRun) { r.Spec.Parallelism = ptr.To(0) }, "spec.parallelism"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := valid()
			tt.mutate(run)
			errs := ValidateBenchmarkRun(run)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": minimalRun + "  generations: 10\n",
		"wrong version": `
apiVersion: v1
kind: BenchmarkRun
spec:
  problem:
    name: ZDT1
  algorithm: NSGA-II
`,
		"bad nsga2 block": minimalRun + `  nsga2:
    populationSize: 1
    crossoverProbability: 1.5
`,
		"malformed": "spec: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalRun+"  seed: 42\n  output:\n    plotPath: front.html\n"), 0o600))

	run, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), *run.Spec.Seed)
	assert.Equal(t, "front.html", run.Spec.Output.PlotPath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
