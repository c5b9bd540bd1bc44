package ml

import (
	"fmt"
	"math"

	"carprice/dataset"
)

// Predict returns the estimated price for km.
func Predict(km float64, c Coefficients) float64 {
	return c.Theta0 + c.Theta1*km
}

// Cost is the halved mean squared error of c over ds.
func Cost(ds *dataset.Dataset, c Coefficients) float64 {
	n := ds.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range ds.Records {
		diff := Predict(r.Km, c) - r.Price
		sum += diff * diff
	}
	return sum / float64(2*n)
}

// ExpectedInputForTargetOutput inverts Predict: the mileage expected for a
// target price, truncated toward zero. It fails with ErrUndefinedInverse when
// the slope is zero and ErrOutOfRange when the mileage does not fit an int.
func ExpectedInputForTargetOutput(target float64, c Coefficients) (int, error) {
	if c.Theta1 == 0 {
		return 0, ErrUndefinedInverse
	}
	return Truncate((target - c.Theta0) / c.Theta1)
}

// Truncate converts v to an int toward zero, failing with ErrOutOfRange for
// NaN and values outside the int range.
func Truncate(v float64) (int, error) {
	// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
	if math.IsNaN(v) || v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return 0, fmt.Errorf("%w: %g", ErrOutOfRange, v)
	}
	return int(v), nil
}
