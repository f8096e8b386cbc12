package benchmarks

import (
	"math"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// DTLZ2 has a spherical Pareto front
// It's easier than DTLZ1 as it has no local fronts
type DTLZ2 struct {
	numVars       int
	numObjectives int
}

var (
	_ framework.Problem             = &DTLZ2{}
	_ framework.ParetoFrontProvider = &DTLZ2{}
)

func NewDTLZ2(numVars, numObjectives int) *DTLZ2 {
	// Recommended: numVars = numObjectives + k - 1, where k = 10 for DTLZ2
	return &DTLZ2{
		numVars:       numVars,
		numObjectives: numObjectives,
	}
}

func (p *DTLZ2) Name() string {
	return "DTLZ2"
}

func (p *DTLZ2) NumObjectives() int {
	return p.numObjectives
}

func (p *DTLZ2) ObjectiveFuncs() []framework.ObjectiveFunc {
	funcs := make([]framework.ObjectiveFunc, p.numObjectives)
	for i := 0; i < p.numObjectives; i++ {
		funcs[i] = func(x []float64) float64 {
			return p.objective(x, i)
		}
	}
	return funcs
}

func (p *DTLZ2) Evaluate(x []float64) (framework.ObjectiveSpacePoint, error) {
	return evaluateFuncs(p, x, p.ObjectiveFuncs())
}

func (p *DTLZ2) g(x []float64) float64 {
	sum := 0.0
	for i := p.numObjectives - 1; i < p.numVars; i++ {
		sum += math.Pow(x[i]-0.5, 2)
	}
	return sum
}

func (p *DTLZ2) objective(x []float64, objIdx int) float64 {
	f := 1 + p.g(x)

	// Product of cos terms
	for i := 0; i < p.numObjectives-objIdx-1; i++ {
		f *= math.Cos(x[i] * math.Pi / 2)
	}

	// Last term is sin for all objectives except the first
	if objIdx > 0 {
		f *= math.Sin(x[p.numObjectives-objIdx-1] * math.Pi / 2)
	}

	return f
}

func (p *DTLZ2) Bounds() []framework.Bounds {
	b := make([]framework.Bounds, p.numVars)
	for i := range p.numVars {
		b[i] = framework.Bounds{L: 0.0, H: 1.0}
	}
	return b
}

// TrueParetoFront samples the unit sphere octant sum(f_i^2) = 1 for 2 and 3
// objectives and returns nil otherwise.
func (p *DTLZ2) TrueParetoFront(numPoints int) []framework.ObjectiveSpacePoint {
	if p.numObjectives == 2 {
		points := make([]framework.ObjectiveSpacePoint, numPoints)
		for i := 0; i < numPoints; i++ {
			theta := (math.Pi / 2) * float64(i) / float64(max(numPoints-1, 1))
			points[i] = framework.ObjectiveSpacePoint{
				math.Cos(theta),
				math.Sin(theta),
			}
		}
		return points
	}
	if p.numObjectives == 3 {
		sqrtN := max(int(math.Sqrt(float64(numPoints))), 2)
		points := make([]framework.ObjectiveSpacePoint, 0, sqrtN*sqrtN)

		for i := 0; i < sqrtN; i++ {
			theta := (math.Pi / 2) * float64(i) / float64(sqrtN-1)
			for j := 0; j < sqrtN; j++ {
				phi := (math.Pi / 2) * float64(j) / float64(sqrtN-1)
				points = append(points, framework.ObjectiveSpacePoint{
					math.Cos(theta) * math.Cos(phi),
					math.Sin(theta) * math.Cos(phi),
					math.Sin(phi),
				})
			}
		}
		return points
	}
	return nil
}
