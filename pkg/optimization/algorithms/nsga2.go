package algorithms

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

const (
	Name = "NSGA-II"
)

// NSGA2Config holds the tunables of the NSGA-II loop.
type NSGA2Config struct {
	PopulationSize int
	Generations    int

	CrossoverProbability float64
	// MutationProbability is the per-variable mutation rate. Zero means
	// 1/numVariables.
	MutationProbability float64
	// CrossoverIndex and MutationIndex are the SBX and polynomial mutation
	// distribution indices.
	CrossoverIndex float64
	MutationIndex  float64
	TournamentSize int

	// Parallelism bounds concurrent objective evaluations. Values <= 1
	// evaluate on the calling goroutine.
	Parallelism int

	// ReferencePoint enables the per-generation hypervolume diagnostic for
	// two-objective problems.
	ReferencePoint []float64
}

// DefaultNSGA2Config returns the settings commonly used for ZDT-style problems.
func DefaultNSGA2Config() NSGA2Config {
	return NSGA2Config{
		PopulationSize:       100,
		Generations:          250,
		CrossoverProbability: 0.9,
		CrossoverIndex:       20,
		MutationIndex:        20,
		TournamentSize:       2,
		Parallelism:          1,
	}
}

// Validate checks the configuration against a problem with the given number
// of objectives.
func (c *NSGA2Config) Validate(numObjectives int) error {
	var errs field.ErrorList
	if c.PopulationSize < 2 {
		errs = append(errs, field.Invalid(field.NewPath("populationSize"), c.PopulationSize, "must be at least 2"))
	}
	if c.Generations < 0 {
		errs = append(errs, field.Invalid(field.NewPath("generations"), c.Generations, "must be non-negative"))
	}
	errs = append(errs, validateProbability(field.NewPath("crossoverProbability"), c.CrossoverProbability)...)
	errs = append(errs, validateProbability(field.NewPath("mutationProbability"), c.MutationProbability)...)
	if c.CrossoverIndex < 0 {
		errs = append(errs, field.Invalid(field.NewPath("crossoverIndex"), c.CrossoverIndex, "must be non-negative"))
	}
	if c.MutationIndex < 0 {
		errs = append(errs, field.Invalid(field.NewPath("mutationIndex"), c.MutationIndex, "must be non-negative"))
	}
	if c.TournamentSize < 2 || c.TournamentSize > c.PopulationSize {
		errs = append(errs, field.Invalid(field.NewPath("tournamentSize"), c.TournamentSize, "must be between 2 and populationSize"))
	}
	if c.ReferencePoint != nil && (numObjectives != 2 || len(c.ReferencePoint) != 2) {
		errs = append(errs, field.Invalid(field.NewPath("referencePoint"), c.ReferencePoint, "hypervolume tracking needs a two-objective problem and a two-component point"))
	}
	return framework.NewConfigurationError(errs)
}

func validateProbability(path *field.Path, p float64) field.ErrorList {
	if !(p >= 0 && p <= 1) {
		return field.ErrorList{field.Invalid(path, p, "must be within [0, 1]")}
	}
	return nil
}

func validateProblem(p framework.Problem) field.ErrorList {
	if p == nil {
		return field.ErrorList{field.Required(field.NewPath("problem"), "")}
	}
	errs := framework.ValidateFiniteBounds(field.NewPath("problem", "bounds"), p.Bounds())
	if p.NumObjectives() < 1 {
		errs = append(errs, field.Invalid(field.NewPath("problem", "numObjectives"), p.NumObjectives(), "must be positive"))
	}
	return errs
}

// GenerationStats is one entry of the NSGA-II history.
type GenerationStats struct {
	Generation int
	FrontSize  int
	// Hypervolume of the first front, set only when a reference point is configured.
	Hypervolume float64
}

// NSGAIIResult is the final state of a run.
type NSGAIIResult struct {
	Population  []framework.Individual
	Front       []framework.Individual
	Generations int
	Evaluations int
	History     []GenerationStats
}

// NSGAII runs the elitist non-dominated sorting genetic algorithm.
type NSGAII struct {
	Config  NSGA2Config
	Problem framework.Problem

	bounds []framework.Bounds
	rng    *rand.Rand
}

// NewNSGAII validates the configuration and returns a ready solver. A nil rng
// uses the default seed.
func NewNSGAII(config NSGA2Config, problem framework.Problem, rng *rand.Rand) (*NSGAII, error) {
	errs := validateProblem(problem)
	if len(errs) > 0 {
		return nil, framework.NewConfigurationError(errs)
	}
	if err := config.Validate(problem.NumObjectives()); err != nil {
		return nil, err
	}
	bounds := framework.CloneBounds(problem.Bounds())
	if config.MutationProbability == 0 {
		config.MutationProbability = 1.0 / float64(len(bounds))
	}
	return &NSGAII{
		Config:  config,
		Problem: problem,
		bounds:  bounds,
		rng:     framework.RandOrDefault(rng),
	}, nil
}

// Initialize creates a random population inside the problem bounds.
func (n *NSGAII) Initialize(ctx context.Context) ([]framework.Individual, error) {
	xs := make([][]float64, n.Config.PopulationSize)
	for i := range xs {
		xs[i] = framework.RandomVector(n.bounds, n.rng)
	}
	return n.evaluate(ctx, xs)
}

func (n *NSGAII) evaluate(ctx context.Context, xs [][]float64) ([]framework.Individual, error) {
	objs, err := framework.EvaluatePopulation(ctx, n.Problem, xs, n.Config.Parallelism)
	if err != nil {
		return nil, err
	}
	individuals := make([]framework.Individual, len(xs))
	for i := range xs {
		individuals[i] = framework.Individual{Variables: xs[i], Objectives: objs[i]}
	}
	return individuals, nil
}

// offspring produces PopulationSize children by tournament, SBX and
// polynomial mutation. All random draws happen here, in order.
func (n *NSGAII) offspring(population []framework.Individual) [][]float64 {
	size := n.Config.PopulationSize
	children := make([][]float64, 0, size+1)
	for len(children) < size {
		p1 := population[TournamentSelect(population, n.Config.TournamentSize, n.rng)]
		p2 := population[TournamentSelect(population, n.Config.TournamentSize, n.rng)]

		c1, c2 := SBX(p1.Variables, p2.Variables, n.bounds, n.Config.CrossoverIndex, n.Config.CrossoverProbability, n.rng)
		PolynomialMutation(c1, n.bounds, n.Config.MutationIndex, n.Config.MutationProbability, n.rng)
		PolynomialMutation(c2, n.bounds, n.Config.MutationIndex, n.Config.MutationProbability, n.rng)
		children = append(children, c1, c2)
	}
	return children[:size]
}

// Select fills the next generation front by front from combined, truncating
// the last admitted front by descending crowding distance. The returned
// individuals are deep copies.
func Select(combined []framework.Individual, size int) []framework.Individual {
	fronts := framework.NonDominatedSort(combined)
	next := make([]framework.Individual, 0, size)
	for _, front := range fronts {
		if len(next) == size {
			break
		}
		framework.CrowdingDistance(combined, front)
		if len(next)+len(front) > size {
			ordered := append([]int(nil), front...)
			sort.SliceStable(ordered, func(i, j int) bool {
				return combined[ordered[i]].Distance > combined[ordered[j]].Distance
			})
			front = ordered[:size-len(next)]
		}
		for _, idx := range front {
			next = append(next, combined[idx].Clone())
		}
	}
	return next
}

// Run executes the NSGA-II algorithm. On cancellation the last complete
// generation is returned together with the context error.
func (n *NSGAII) Run(ctx context.Context) (*NSGAIIResult, error) {
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting NSGA-II", "problem", n.Problem.Name(),
		"populationSize", n.Config.PopulationSize, "generations", n.Config.Generations)

	population, err := n.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluating initial population: %w", err)
	}
	population = Select(population, n.Config.PopulationSize)

	res := &NSGAIIResult{Evaluations: len(population)}
	res.History = append(res.History, n.stats(0, population))

	for gen := 1; gen <= n.Config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			n.finish(res, population)
			return res, err
		}

		children, err := n.evaluate(ctx, n.offspring(population))
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		res.Evaluations += len(children)

		combined := make([]framework.Individual, 0, len(population)+len(children))
		combined = append(combined, population...)
		combined = append(combined, children...)
		population = Select(combined, n.Config.PopulationSize)

		res.Generations = gen
		stats := n.stats(gen, population)
		res.History = append(res.History, stats)
		logger.V(5).Info("Generation finished", "generation", gen, "frontSize", stats.FrontSize, "hypervolume", stats.Hypervolume)
	}

	n.finish(res, population)
	logger.V(4).Info("NSGA-II finished", "generations", res.Generations, "evaluations", res.Evaluations, "frontSize", len(res.Front))
	return res, nil
}

func (n *NSGAII) stats(gen int, population []framework.Individual) GenerationStats {
	s := GenerationStats{Generation: gen}
	var front []framework.ObjectiveSpacePoint
	for _, ind := range population {
		if ind.Rank == 0 {
			front = append(front, ind.Objectives)
		}
	}
	s.FrontSize = len(front)
	if n.Config.ReferencePoint != nil {
		s.Hypervolume = Hypervolume2D(front, n.Config.ReferencePoint)
	}
	return s
}

func (n *NSGAII) finish(res *NSGAIIResult, population []framework.Individual) {
	res.Population = population
	res.Front = nil
	for _, ind := range population {
		if ind.Rank == 0 {
			res.Front = append(res.Front, ind.Clone())
		}
	}
}
