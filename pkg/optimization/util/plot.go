package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// referencePoints is the number of true Pareto front samples drawn when the
// problem knows its front.
const referencePoints = 100

var fileNameReplacer = strings.NewReplacer("/", "", " ", "_")

// FrontFileName is the default output name for a plot of algorithm on problem.
func FrontFileName(problem framework.Problem, algorithmName string) string {
	return fileNameReplacer.Replace(fmt.Sprintf("%s_%s_results.html", problem.Name(), algorithmName))
}

// PlotFront writes an HTML scatter plot of a 2-objective front to path. If
// the problem implements framework.ParetoFrontProvider its true front is
// drawn alongside for comparison.
func PlotFront(front []framework.ObjectiveSpacePoint, problem framework.Problem, algorithmName, path string) error {
	scatter, err := frontChart(front, problem, algorithmName)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := scatter.Render(f); err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}

// RenderFront is PlotFront for an arbitrary writer.
func RenderFront(w io.Writer, front []framework.ObjectiveSpacePoint, problem framework.Problem, algorithmName string) error {
	scatter, err := frontChart(front, problem, algorithmName)
	if err != nil {
		return err
	}
	return scatter.Render(w)
}

func frontChart(front []framework.ObjectiveSpacePoint, problem framework.Problem, algorithmName string) (*charts.Scatter, error) {
	if len(front) == 0 {
		return nil, fmt.Errorf("results are empty for %s benchmark", problem.Name())
	}
	for _, p := range front {
		if len(p) != 2 {
			return nil, fmt.Errorf("can only plot 2 objectives for %s benchmark, got %d", problem.Name(), len(p))
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s Results for %s Benchmark", algorithmName, problem.Name()),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "f1(x)",
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "f2(x)",
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}))

	if provider, ok := problem.(framework.ParetoFrontProvider); ok {
		scatter.AddSeries("True Pareto Front", scatterData(provider.TrueParetoFront(referencePoints), "circle"))
	}
	scatter.AddSeries(fmt.Sprintf("%s Solutions", algorithmName), scatterData(front, "triangle")).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
			charts.WithEmphasisOpts(opts.Emphasis{}),
		)
	return scatter, nil
}

func scatterData(points []framework.ObjectiveSpacePoint, symbol string) []opts.ScatterData {
	data := make([]opts.ScatterData, len(points))
	for i, p := range points {
		data[i] = opts.ScatterData{
			Value:      []float64{p[0], p[1]},
			Symbol:     symbol,
			SymbolSize: 10,
		}
	}
	return data
}
