package util

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

// FrontPlot describes a 2D scatter plot of a non-dominated front.
type FrontPlot struct {
	Algorithm string
	Problem   string
	// XObjective and YObjective name the plotted objectives.
	XObjective string
	YObjective string
	// Reference is an optional known front, e.g. the true Pareto front of
	// a benchmark.
	Reference [][]float64
}

// ObjectivePoints extracts the two named objectives of every individual,
// in the user's convention.
func ObjectivePoints(individuals []*framework.Individual, x, y string) ([][]float64, error) {
	points := make([][]float64, len(individuals))
	for i, ind := range individuals {
		vx, err := ind.ObjectiveValue(x)
		if err != nil {
			return nil, err
		}
		vy, err := ind.ObjectiveValue(y)
		if err != nil {
			return nil, err
		}
		points[i] = []float64{vx, vy}
	}
	return points, nil
}

// Render writes the scatter plot of the found front as an HTML page.
func (p FrontPlot) Render(w io.Writer, found [][]float64) error {
	if len(found) == 0 {
		return fmt.Errorf("results are empty for %s", p.Problem)
	}
	for _, point := range found {
		if len(point) != 2 {
			return fmt.Errorf("can only plot 2D for %s", p.Problem)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s Results for %s", p.Algorithm, p.Problem),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: p.XObjective,
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: p.YObjective,
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	if len(p.Reference) > 0 {
		ref := make([]opts.ScatterData, len(p.Reference))
		for i, point := range p.Reference {
			ref[i] = opts.ScatterData{
				Value:      point,
				Symbol:     "circle",
				SymbolSize: 10,
			}
		}
		scatter.AddSeries("Reference Front", ref)
	}

	foundX := make([]opts.ScatterData, len(found))
	for i, point := range found {
		foundX[i] = opts.ScatterData{
			Value:      []float64{point[0], point[1]},
			Symbol:     "triangle",
			SymbolSize: 10,
		}
	}
	scatter.AddSeries(fmt.Sprintf("%s Solutions", p.Algorithm), foundX).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
			charts.WithEmphasisOpts(opts.Emphasis{}),
		)

	return scatter.Render(w)
}

// RenderFile writes the plot to path.
func (p FrontPlot) RenderFile(path string, found [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Render(f, found)
}
