// Package chart renders the dataset, the fitted line and the cost history to image files.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"carprice/dataset"
	"carprice/ml"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch

	// MaxKm is the right edge of the fit line.
	MaxKm = 250000
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	lineColor  = color.RGBA{A: 255}
)

// Regression draws the dataset as a scatter plot and, when showLine is set,
// the line theta0 + theta1*km over [0, MaxKm].
func Regression(ds *dataset.Dataset, c ml.Coefficients, showLine bool, path string) error {
	if ds.Len() == 0 {
		return errors.New("nothing to plot")
	}
	p := plot.New()
	p.Title.Text = "Data points and linear regression"
	p.X.Label.Text = "km"
	p.Y.Label.Text = "price"

	points := make(plotter.XYs, ds.Len())
	for i, r := range ds.Records {
		points[i].X = r.Km
		points[i].Y = r.Price
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return err
	}
	scatter.Color = pointColor
	p.Add(scatter)
	p.Legend.Add("Data points", scatter)

	if showLine {
		line, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: ml.Predict(0, c)},
			{X: MaxKm, Y: ml.Predict(MaxKm, c)},
		})
		if err != nil {
			return err
		}
		line.Color = lineColor
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("Fit line from linear regression", line)
	}

	return save(p, path)
}

// CostHistory draws cost against iteration, starting at iteration 1.
func CostHistory(costs []float64, path string) error {
	if len(costs) == 0 {
		return errors.New("no cost recorded")
	}
	p := plot.New()
	p.Title.Text = "Cost function"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "cost"

	points := make(plotter.XYs, len(costs))
	for i, cost := range costs {
		points[i].X = float64(i + 1)
		points[i].Y = cost
	}
	line, err := plotter.NewLine(points)
	if err != nil {
		return err
	}
	line.Color = lineColor
	p.Add(line)
	p.Legend.Add("Cost function", line)

	return save(p, path)
}

// Evolution returns a progress callback that writes one regression frame per call into dir.
func Evolution(ds *dataset.Dataset, dir string, onError func(error)) ml.ProgressFunc {
	return func(iteration int, c ml.Coefficients) {
		path := filepath.Join(dir, fmt.Sprintf("evolution_%06d.png", iteration))
		if err := Regression(ds, c, true, path); err != nil && onError != nil {
			onError(err)
		}
	}
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(width, height, path)
}
