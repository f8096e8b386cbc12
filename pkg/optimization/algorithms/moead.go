package algorithms

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

const MOEADName = "MOEA/D"

// MOEADConfig holds the tunables of the decomposition loop.
type MOEADConfig struct {
	// Divisions is the lattice resolution H used for up to three objectives.
	Divisions int
	// PopulationSize is the number of random weight vectors used above
	// three objectives.
	PopulationSize   int
	NeighborhoodSize int

	Scalarization Scalarization
	// Theta is the PBI penalty. Zero scores by the projected distance d1 alone.
	Theta float64

	// F and CR drive the DE/rand/1 recombination.
	F  float64
	CR float64

	// MutationProbability zero means 1/numVariables.
	MutationProbability float64
	MutationIndex       float64

	// MaxReplacements caps how many neighbors one child may replace. Zero
	// means no cap.
	MaxReplacements int
	Generations     int
	Parallelism     int
}

func DefaultMOEADConfig() MOEADConfig {
	return MOEADConfig{
		Divisions:        99,
		PopulationSize:   100,
		NeighborhoodSize: 20,
		Scalarization:    Tchebycheff,
		Theta:            DefaultPBITheta,
		F:                0.5,
		CR:               1.0,
		MutationIndex:    20,
		MaxReplacements:  2,
		Generations:      250,
		Parallelism:      1,
	}
}

func (c *MOEADConfig) Validate(numObjectives int) error {
	var errs field.ErrorList
	if numObjectives <= 3 && c.Divisions < 1 {
		errs = append(errs, field.Invalid(field.NewPath("divisions"), c.Divisions, "must be positive"))
	}
	if numObjectives > 3 && c.PopulationSize < 2 {
		errs = append(errs, field.Invalid(field.NewPath("populationSize"), c.PopulationSize, "must be at least 2"))
	}
	if c.NeighborhoodSize < 1 {
		errs = append(errs, field.Invalid(field.NewPath("neighborhoodSize"), c.NeighborhoodSize, "must be positive"))
	}
	if !c.Scalarization.Valid() {
		errs = append(errs, field.NotSupported(field.NewPath("scalarization"), c.Scalarization,
			[]string{string(WeightedSum), string(Tchebycheff), string(PBI)}))
	}
	if c.Theta < 0 {
		errs = append(errs, field.Invalid(field.NewPath("theta"), c.Theta, "must be non-negative"))
	}
	if c.F < 0 {
		errs = append(errs, field.Invalid(field.NewPath("f"), c.F, "must be non-negative"))
	}
	errs = append(errs, validateProbability(field.NewPath("cr"), c.CR)...)
	errs = append(errs, validateProbability(field.NewPath("mutationProbability"), c.MutationProbability)...)
	if c.MutationIndex < 0 {
		errs = append(errs, field.Invalid(field.NewPath("mutationIndex"), c.MutationIndex, "must be non-negative"))
	}
	if c.MaxReplacements < 0 {
		errs = append(errs, field.Invalid(field.NewPath("maxReplacements"), c.MaxReplacements, "must be non-negative"))
	}
	if c.Generations < 0 {
		errs = append(errs, field.Invalid(field.NewPath("generations"), c.Generations, "must be non-negative"))
	}
	return framework.NewConfigurationError(errs)
}

// MOEADStats is one entry of the MOEA/D history.
type MOEADStats struct {
	Generation int
	IdealPoint []float64
	FrontSize  int
}

// MOEADResult is the final state of a run. Solutions[i] belongs to Weights[i].
type MOEADResult struct {
	Solutions   []framework.Individual
	Weights     [][]float64
	Front       []framework.Individual
	IdealPoint  []float64
	Generations int
	Evaluations int
	History     []MOEADStats
}

// MOEAD is the decomposition-based evolutionary algorithm.
type MOEAD struct {
	Config  MOEADConfig
	Problem framework.Problem

	bounds        []framework.Bounds
	weights       [][]float64
	neighborhoods [][]int
	rng           *rand.Rand
}

// NewMOEAD validates the configuration, generates the weight vectors and
// their neighborhoods. A nil rng uses the default seed.
func NewMOEAD(config MOEADConfig, problem framework.Problem, rng *rand.Rand) (*MOEAD, error) {
	if errs := validateProblem(problem); len(errs) > 0 {
		return nil, framework.NewConfigurationError(errs)
	}
	m := problem.NumObjectives()
	if err := config.Validate(m); err != nil {
		return nil, err
	}
	bounds := framework.CloneBounds(problem.Bounds())
	if config.MutationProbability == 0 {
		config.MutationProbability = 1.0 / float64(len(bounds))
	}
	rng = framework.RandOrDefault(rng)

	weights := GenerateWeights(m, config.Divisions, config.PopulationSize, rng)
	return &MOEAD{
		Config:        config,
		Problem:       problem,
		bounds:        bounds,
		weights:       weights,
		neighborhoods: Neighborhoods(weights, config.NeighborhoodSize),
		rng:           rng,
	}, nil
}

// Weights returns the weight vectors of the run, one per subproblem.
func (d *MOEAD) Weights() [][]float64 {
	return d.weights
}

// Neighborhoods returns the precomputed neighbor indices per subproblem.
func (d *MOEAD) Neighborhoods() [][]int {
	return d.neighborhoods
}

func (d *MOEAD) scalarize(f framework.ObjectiveSpacePoint, i int, z []float64) float64 {
	return Scalarize(d.Config.Scalarization, f, d.weights[i], z, d.Config.Theta)
}

// Run executes MOEA/D. Offspring are evaluated and applied one subproblem at
// a time since each replacement changes what later subproblems recombine.
func (d *MOEAD) Run(ctx context.Context) (*MOEADResult, error) {
	logger := klog.FromContext(ctx)
	n := len(d.weights)
	logger.V(4).Info("Starting MOEA/D", "problem", d.Problem.Name(), "subproblems", n,
		"neighborhoodSize", d.Config.NeighborhoodSize, "scalarization", d.Config.Scalarization)

	xs := make([][]float64, n)
	for i := range xs {
		xs[i] = framework.RandomVector(d.bounds, d.rng)
	}
	objs, err := framework.EvaluatePopulation(ctx, d.Problem, xs, d.Config.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("evaluating initial population: %w", err)
	}
	solutions := make([]framework.Individual, n)
	z := make([]float64, d.Problem.NumObjectives())
	for k := range z {
		z[k] = math.Inf(1)
	}
	for i := range solutions {
		solutions[i] = framework.Individual{Variables: xs[i], Objectives: objs[i]}
		updateIdeal(z, objs[i])
	}

	res := &MOEADResult{Weights: d.weights, Evaluations: n}
	res.History = append(res.History, d.stats(0, solutions, z))

	for gen := 1; gen <= d.Config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			d.finish(res, solutions, z)
			return res, err
		}
		for i := 0; i < n; i++ {
			y := d.reproduce(solutions, i)
			fy, err := d.Problem.Evaluate(y)
			if err != nil {
				return nil, fmt.Errorf("generation %d, subproblem %d: %w", gen, i, err)
			}
			res.Evaluations++
			updateIdeal(z, fy)

			replaced := 0
			for _, j := range d.neighborhoods[i] {
				if d.Config.MaxReplacements > 0 && replaced >= d.Config.MaxReplacements {
					break
				}
				if d.scalarize(fy, j, z) < d.scalarize(solutions[j].Objectives, j, z) {
					solutions[j] = framework.Individual{
						Variables:  append([]float64(nil), y...),
						Objectives: append(framework.ObjectiveSpacePoint(nil), fy...),
					}
					replaced++
				}
			}
		}
		res.Generations = gen
		stats := d.stats(gen, solutions, z)
		res.History = append(res.History, stats)
		logger.V(5).Info("Generation finished", "generation", gen, "idealPoint", stats.IdealPoint, "frontSize", stats.FrontSize)
	}

	d.finish(res, solutions, z)
	logger.V(4).Info("MOEA/D finished", "generations", res.Generations, "evaluations", res.Evaluations, "frontSize", len(res.Front))
	return res, nil
}

// reproduce builds a child for subproblem i with DE/rand/1 over its
// neighborhood followed by polynomial mutation.
func (d *MOEAD) reproduce(solutions []framework.Individual, i int) []float64 {
	hood := d.neighborhoods[i]
	r1 := hood[d.rng.Intn(len(hood))]
	r2 := hood[d.rng.Intn(len(hood))]
	for tries := 0; r2 == r1 && len(hood) > 1 && tries < 8; tries++ {
		r2 = hood[d.rng.Intn(len(hood))]
	}

	base := solutions[i].Variables
	a, b := solutions[r1].Variables, solutions[r2].Variables
	y := make([]float64, len(base))
	jrand := d.rng.Intn(len(base))
	for k := range y {
		if k == jrand || d.rng.Float64() < d.Config.CR {
			y[k] = base[k] + d.Config.F*(a[k]-b[k])
		} else {
			y[k] = base[k]
		}
	}
	framework.Clamp(y, d.bounds)
	PolynomialMutation(y, d.bounds, d.Config.MutationIndex, d.Config.MutationProbability, d.rng)
	return y
}

func updateIdeal(z []float64, f framework.ObjectiveSpacePoint) {
	for k := range z {
		if f[k] < z[k] {
			z[k] = f[k]
		}
	}
}

func (d *MOEAD) stats(gen int, solutions []framework.Individual, z []float64) MOEADStats {
	return MOEADStats{
		Generation: gen,
		IdealPoint: append([]float64(nil), z...),
		FrontSize:  len(framework.NonDominatedFilter(objectives(solutions))),
	}
}

func (d *MOEAD) finish(res *MOEADResult, solutions []framework.Individual, z []float64) {
	res.Solutions = make([]framework.Individual, len(solutions))
	for i := range solutions {
		res.Solutions[i] = solutions[i].Clone()
	}
	res.IdealPoint = append([]float64(nil), z...)
	res.Front = nil
	for _, idx := range framework.NonDominatedFilter(objectives(solutions)) {
		res.Front = append(res.Front, solutions[idx].Clone())
	}
}

func objectives(individuals []framework.Individual) []framework.ObjectiveSpacePoint {
	points := make([]framework.ObjectiveSpacePoint, len(individuals))
	for i := range individuals {
		points[i] = individuals[i].Objectives
	}
	return points
}
