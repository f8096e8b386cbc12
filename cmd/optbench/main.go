// Command optbench runs a multi-objective solver on a benchmark problem and
// reports the quality of the front it finds.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/mihai-snyk/optimization-core/apis/optimization/v1alpha1"
)

type options struct {
	config      string
	problem     string
	algorithm   string
	variables   int
	objectives  int
	seed        uint64
	parallelism int
	memoize     bool
	plot        string
	timeout     time.Duration
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.config, "config", "", "Path to a BenchmarkRun YAML file. When set, the run flags below are ignored.")
	fs.StringVar(&o.problem, "problem", string(v1alpha1.ProblemZDT1), "Benchmark problem: ZDT1 or DTLZ2.")
	fs.StringVar(&o.algorithm, "algorithm", string(v1alpha1.AlgorithmNSGA2), "Solver: NSGA-II, MOEA/D or ParetoSweep.")
	fs.IntVar(&o.variables, "variables", 0, "Number of decision variables; 0 uses the problem default.")
	fs.IntVar(&o.objectives, "objectives", 0, "Number of objectives (DTLZ2 only); 0 uses the problem default.")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed; 0 uses the default seed.")
	fs.IntVar(&o.parallelism, "parallelism", 1, "Maximum concurrent objective evaluations.")
	fs.BoolVar(&o.memoize, "memoize", false, "Cache objective evaluations by decision vector.")
	fs.StringVar(&o.plot, "plot", "", "Output path of the HTML front plot; '-' disables plotting.")
	fs.DurationVar(&o.timeout, "timeout", 0, "Abort the run after this long; 0 disables the limit.")
}

// benchmarkRun loads the config file, or builds an equivalent BenchmarkRun
// from the flags.
func (o *options) benchmarkRun() (*v1alpha1.BenchmarkRun, error) {
	if o.config != "" {
		return v1alpha1.Load(o.config)
	}
	run := &v1alpha1.BenchmarkRun{
		TypeMeta: metav1.TypeMeta{APIVersion: v1alpha1.GroupVersion, Kind: v1alpha1.Kind},
		Spec: v1alpha1.BenchmarkRunSpec{
			Problem:     v1alpha1.ProblemSpec{Name: v1alpha1.ProblemName(o.problem)},
			Algorithm:   v1alpha1.AlgorithmName(o.algorithm),
			Seed:        ptr.To(o.seed),
			Parallelism: ptr.To(o.parallelism),
			Memoize:     ptr.To(o.memoize),
			Output:      v1alpha1.OutputSpec{PlotPath: o.plot},
		},
	}
	if o.variables > 0 {
		run.Spec.Problem.Variables = ptr.To(o.variables)
	}
	if o.objectives > 0 {
		run.Spec.Problem.Objectives = ptr.To(o.objectives)
	}
	v1alpha1.SetDefaults_BenchmarkRun(run)
	if errs := v1alpha1.ValidateBenchmarkRun(run); len(errs) > 0 {
		return nil, errs.ToAggregate()
	}
	return run, nil
}

func main() {
	os.Exit(runMain(os.Args[1:]))
}

func runMain(args []string) int {
	opts := &options{}
	fs := pflag.NewFlagSet("optbench", pflag.ExitOnError)
	opts.addFlags(fs)
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	fs.AddGoFlagSet(klogFlags)
	_ = fs.Parse(args)
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	logger := klog.Background()
	ctx = klog.NewContext(ctx, logger)

	run, err := opts.benchmarkRun()
	if err != nil {
		logger.Error(err, "Invalid benchmark run")
		return 2
	}
	summary, err := runBenchmark(ctx, logger, run)
	if err != nil {
		logger.Error(err, "Benchmark failed", "problem", run.Spec.Problem.Name, "algorithm", run.Spec.Algorithm)
		return 1
	}
	summary.print(os.Stdout)
	return 0
}
