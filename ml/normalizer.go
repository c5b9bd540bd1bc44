package ml

import (
	"fmt"
	"math"

	"carprice/dataset"
	"gonum.org/v1/gonum/stat"
)

// NormalizationStats holds the column statistics used to standardize a dataset.
type NormalizationStats struct {
	KmMean    float64 `json:"km_mean"`
	KmStd     float64 `json:"km_std"`
	PriceMean float64 `json:"price_mean"`
	PriceStd  float64 `json:"price_std"`
}

// Validate reports ErrDegenerateData when either column has no spread.
func (s NormalizationStats) Validate() error {
	if s.KmStd == 0 || s.PriceStd == 0 {
		return ErrDegenerateData
	}
	return nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	return stat.Mean(values, nil), nil
}

// StdDeviation returns the population standard deviation around mean (divides by N).
func StdDeviation(values []float64, mean float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	return math.Sqrt(stat.MomentAbout(2, values, mean, nil)), nil
}

// Normalize standardizes values elementwise.
func Normalize(values []float64, mean, std float64) ([]float64, error) {
	if std == 0 {
		return nil, ErrDegenerateData
	}
	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = (v - mean) / std
	}
	return result, nil
}

// ComputeStats computes the mean and standard deviation of both columns.
func ComputeStats(ds *dataset.Dataset) (NormalizationStats, error) {
	var stats NormalizationStats
	km := ds.Km()
	prices := ds.Prices()

	var err error
	if stats.KmMean, err = Mean(km); err != nil {
		return stats, fmt.Errorf("km mean: %w", err)
	}
	if stats.PriceMean, err = Mean(prices); err != nil {
		return stats, fmt.Errorf("price mean: %w", err)
	}
	if stats.KmStd, err = StdDeviation(km, stats.KmMean); err != nil {
		return stats, fmt.Errorf("km std: %w", err)
	}
	if stats.PriceStd, err = StdDeviation(prices, stats.PriceMean); err != nil {
		return stats, fmt.Errorf("price std: %w", err)
	}
	return stats, nil
}

// ToNormalizedCoefficients maps raw coefficients into standardized space.
func ToNormalizedCoefficients(c Coefficients, s NormalizationStats) Coefficients {
	return Coefficients{
		Theta0: (c.Theta0 - s.PriceMean + c.Theta1*s.KmMean) / s.PriceStd,
		Theta1: s.KmStd / s.PriceStd * c.Theta1,
	}
}

// ToRawCoefficients is the exact inverse of ToNormalizedCoefficients.
func ToRawCoefficients(n Coefficients, s NormalizationStats) Coefficients {
	return Coefficients{
		Theta0: s.PriceMean + s.PriceStd*(n.Theta0-n.Theta1*s.KmMean/s.KmStd),
		Theta1: s.PriceStd / s.KmStd * n.Theta1,
	}
}

// normalized is a dataset in standardized space.
type normalized struct {
	km    []float64
	price []float64
}

func normalizeDataset(ds *dataset.Dataset, s NormalizationStats) (*normalized, error) {
	km, err := Normalize(ds.Km(), s.KmMean, s.KmStd)
	if err != nil {
		return nil, err
	}
	price, err := Normalize(ds.Prices(), s.PriceMean, s.PriceStd)
	if err != nil {
		return nil, err
	}
	return &normalized{km: km, price: price}, nil
}
