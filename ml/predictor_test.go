package ml

import (
	"errors"
	"math"
	"testing"

	"carprice/dataset"
)

func TestPredict(t *testing.T) {
	if got := Predict(0, Coefficients{Theta0: 5, Theta1: 0}); got != 5 {
		t.Fatalf("expected 5, got %f", got)
	}
	if got := Predict(1000, Coefficients{Theta0: 5, Theta1: 0}); got != 5 {
		t.Fatalf("expected flat line to give 5, got %f", got)
	}

	c := Coefficients{Theta0: 8000, Theta1: -0.02}
	for _, pair := range [][2]float64{{0, 1}, {1000, 2500}, {-50, 70000}} {
		a, b := pair[0], pair[1]
		left := Predict(a+b, c)
		right := Predict(a, c) + c.Theta1*b
		if !almostEqual(left, right, tolerance) {
			t.Errorf("linearity broken for a=%f b=%f: %f != %f", a, b, left, right)
		}
	}
}

func TestCost(t *testing.T) {
	ds, _ := dataset.New([]float64{0, 1, 2}, []float64{1, 3, 5})

	if got := Cost(ds, Coefficients{Theta0: 1, Theta1: 2}); got != 0 {
		t.Fatalf("expected zero cost for exact fit, got %f", got)
	}

	// errors are -1, -3, -5 -> (1+9+25)/6
	got := Cost(ds, Coefficients{})
	if !almostEqual(got, 35.0/6.0, tolerance) {
		t.Fatalf("expected %f, got %f", 35.0/6.0, got)
	}

	for _, c := range []Coefficients{{Theta0: -100, Theta1: 3}, {Theta0: 1, Theta1: 2.0001}} {
		if cost := Cost(ds, c); cost <= 0 {
			t.Errorf("expected positive cost for %+v, got %f", c, cost)
		}
	}

	if got := Cost(&dataset.Dataset{}, Coefficients{}); got != 0 {
		t.Fatalf("expected zero cost on empty dataset, got %f", got)
	}
}

func TestExpectedInputForTargetOutput(t *testing.T) {
	tests := []struct {
		name    string
		target  float64
		c       Coefficients
		want    int
		wantErr error
	}{
		{name: "exact", target: 5000, c: Coefficients{Theta0: 10000, Theta1: -0.05}, want: 100000},
		{name: "truncates toward zero", target: 7, c: Coefficients{Theta0: 0, Theta1: 2}, want: 3},
		{name: "negative truncates toward zero", target: -7, c: Coefficients{Theta0: 0, Theta1: 2}, want: -3},
		{name: "zero slope", target: 5000, c: Coefficients{Theta0: 10000, Theta1: 0}, wantErr: ErrUndefinedInverse},
		{name: "zero slope zero intercept", target: 0, c: Coefficients{}, wantErr: ErrUndefinedInverse},
		{name: "quotient above int range", target: 1e6, c: Coefficients{Theta1: 1e-20}, wantErr: ErrOutOfRange},
		{name: "quotient below int range", target: 1e6, c: Coefficients{Theta1: -1e-20}, wantErr: ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectedInputForTargetOutput(tt.target, tt.c)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		v       float64
		want    int
		wantErr error
	}{
		{v: 2.9, want: 2},
		{v: -2.9, want: -2},
		{v: float64(math.MinInt), want: math.MinInt},
		{v: float64(math.MaxInt), wantErr: ErrOutOfRange},
		{v: -1e19, wantErr: ErrOutOfRange},
		{v: math.NaN(), wantErr: ErrOutOfRange},
		{v: math.Inf(1), wantErr: ErrOutOfRange},
	}
	for _, tt := range tests {
		got, err := Truncate(tt.v)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("Truncate(%g): expected error %v, got %v", tt.v, tt.wantErr, err)
		}
		if err == nil && got != tt.want {
			t.Fatalf("Truncate(%g) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
