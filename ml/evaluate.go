package ml

import (
	"math"

	"carprice/dataset"
	"gonum.org/v1/gonum/stat"
)

// Report summarizes how well a line fits a dataset.
type Report struct {
	Cost     float64 `json:"cost"`
	RMSE     float64 `json:"rmse"`
	RSquared float64 `json:"r_squared"`
}

// Evaluate scores c against ds. RSquared is NaN when prices have no spread.
func Evaluate(ds *dataset.Dataset, c Coefficients) Report {
	cost := Cost(ds, c)
	report := Report{
		Cost: cost,
		RMSE: math.Sqrt(2 * cost),
	}
	if ds.Len() > 0 {
		report.RSquared = stat.RSquared(ds.Km(), ds.Prices(), nil, c.Theta0, c.Theta1)
	}
	return report
}

// LeastSquares returns the closed-form ordinary least squares line.
func LeastSquares(ds *dataset.Dataset) (Coefficients, error) {
	if ds.Len() < 2 {
		return Coefficients{}, ErrInsufficientData
	}
	alpha, beta := stat.LinearRegression(ds.Km(), ds.Prices(), nil, false)
	return Coefficients{Theta0: alpha, Theta1: beta}, nil
}
