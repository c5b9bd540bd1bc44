package ml

import "errors"

var (
	ErrEmptyInput       = errors.New("empty input")
	ErrNoData           = errors.New("no data")
	ErrDegenerateData   = errors.New("standard deviation of mileage or price is zero")
	ErrInsufficientData = errors.New("not enough data points")
	ErrUndefinedInverse = errors.New("theta1 is zero, inverse prediction undefined")
	ErrInvalidConfig    = errors.New("invalid training config")
	ErrDiverged         = errors.New("training diverged, try a smaller learning rate")
	ErrOutOfRange       = errors.New("result out of integer range")
)
