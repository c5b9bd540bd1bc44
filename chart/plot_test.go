package chart

import (
	"os"
	"path/filepath"
	"testing"

	"carprice/dataset"
	"carprice/ml"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]float64{0, 50000, 100000}, []float64{10000, 7400, 5000})
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected %s to be non-empty", path)
	}
}

func TestRegression(t *testing.T) {
	dir := t.TempDir()
	for _, showLine := range []bool{true, false} {
		path := filepath.Join(dir, "sub", "fit.png")
		if err := Regression(testDataset(t), ml.Coefficients{Theta0: 10000, Theta1: -0.05}, showLine, path); err != nil {
			t.Fatalf("showLine=%v: unexpected error: %v", showLine, err)
		}
		assertNonEmptyFile(t, path)
	}
	if err := Regression(&dataset.Dataset{}, ml.Coefficients{}, true, filepath.Join(dir, "empty.png")); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestCostHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost.png")
	if err := CostHistory([]float64{100, 50, 25, 12.5}, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertNonEmptyFile(t, path)
	if err := CostHistory(nil, path); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestEvolution(t *testing.T) {
	dir := t.TempDir()
	var errs []error
	progress := Evolution(testDataset(t), dir, func(err error) { errs = append(errs, err) })
	progress(0, ml.Coefficients{Theta0: 1})
	progress(20, ml.Coefficients{Theta0: 2, Theta1: -0.01})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	assertNonEmptyFile(t, filepath.Join(dir, "evolution_000000.png"))
	assertNonEmptyFile(t, filepath.Join(dir, "evolution_000020.png"))
}
