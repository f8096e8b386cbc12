package benchmarks

import (
	"math"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// ZDT1 is a benchmark function used to test the correctness
// of multi-objective algorithms. For more details, check the article below:
// https://datacrayon.com/practical-evolutionary-algorithms/synthetic-objective-functions-and-zdt1/
type ZDT1 struct {
	numVars int
}

var (
	_ framework.Problem             = &ZDT1{}
	_ framework.ParetoFrontProvider = &ZDT1{}
)

func NewZDT1(numVars int) *ZDT1 {
	return &ZDT1{
		numVars,
	}
}

func (p *ZDT1) Name() string {
	return "ZDT1"
}

func (p *ZDT1) NumObjectives() int {
	return 2
}

func (p *ZDT1) ObjectiveFuncs() []framework.ObjectiveFunc {
	return []framework.ObjectiveFunc{
		p.f1, p.f2,
	}
}

func (p *ZDT1) Evaluate(x []float64) (framework.ObjectiveSpacePoint, error) {
	return evaluateFuncs(p, x, p.ObjectiveFuncs())
}

func (p *ZDT1) f1(x []float64) float64 {
	return x[0]
}

func (p *ZDT1) f2(x []float64) float64 {
	g := 1.0
	for i := 1; i < len(x); i++ {
		g += 9.0 * x[i] / float64(len(x)-1)
	}
	return g * (1.0 - math.Sqrt(x[0]/g))
}

func (p *ZDT1) Bounds() []framework.Bounds {
	b := make([]framework.Bounds, p.numVars)
	for i := range p.numVars {
		b[i] = framework.Bounds{
			L: 0.0,
			H: 1.0,
		}
	}
	return b
}

// TrueParetoFront generates numPoints points on the true Pareto front for ZDT1
func (p *ZDT1) TrueParetoFront(numPoints int) []framework.ObjectiveSpacePoint {
	points := make([]framework.ObjectiveSpacePoint, numPoints)
	for i := 0; i < numPoints; i++ {
		x := float64(i) / float64(max(numPoints-1, 1))
		points[i] = framework.ObjectiveSpacePoint{
			x, 1.0 - math.Sqrt(x),
		}
	}
	return points
}
