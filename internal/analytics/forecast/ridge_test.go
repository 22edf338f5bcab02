package forecast

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSolveRidge_OLS(t *testing.T) {
	x := [][]float64{{1, 1}, {1, 2}, {1, 3}, {1, 4}}
	y := []float64{1, 3, 2, 5}

	fit, err := SolveRidge(x, y, 0)
	if err != nil {
		t.Fatalf("SolveRidge failed: %v", err)
	}

	if !almostEqual(fit.Beta[0], 0, 1e-9) || !almostEqual(fit.Beta[1], 1.1, 1e-9) {
		t.Errorf("Expected beta [0 1.1], got %v", fit.Beta)
	}
	if !almostEqual(fit.MSE, 1.35, 1e-9) {
		t.Errorf("Expected MSE 1.35, got %f", fit.MSE)
	}
	// RSS is 2.7 over 4 rows.
	if !almostEqual(fit.RMSE, math.Sqrt(0.675), 1e-9) {
		t.Errorf("Expected RMSE %f, got %f", math.Sqrt(0.675), fit.RMSE)
	}
	if fit.N != 4 || fit.P != 2 {
		t.Errorf("Expected n=4 p=2, got n=%d p=%d", fit.N, fit.P)
	}
	if len(fit.GramInverse) != 2 || len(fit.GramInverse[0]) != 2 {
		t.Errorf("Expected 2x2 Gram inverse, got %v", fit.GramInverse)
	}
}

func TestSolveRidge_PerfectFit(t *testing.T) {
	x := [][]float64{{1, 1}, {1, 2}, {1, 3}, {1, 4}}
	y := []float64{2, 4, 6, 8}

	fit, err := SolveRidge(x, y, 0)
	if err != nil {
		t.Fatalf("SolveRidge failed: %v", err)
	}
	if !almostEqual(fit.RSquared, 1, 1e-9) {
		t.Errorf("Expected R² 1, got %f", fit.RSquared)
	}
	if !almostEqual(fit.MAE, 0, 1e-9) {
		t.Errorf("Expected MAE 0, got %f", fit.MAE)
	}
}

func TestSolveRidge_InterceptUnpenalized(t *testing.T) {
	// Centered regressor: a huge penalty drives the slope to zero while the
	// intercept stays at the mean of y.
	x := [][]float64{{1, -1.5}, {1, -0.5}, {1, 0.5}, {1, 1.5}}
	y := []float64{1, 3, 2, 5}

	fit, err := SolveRidge(x, y, 1e6)
	if err != nil {
		t.Fatalf("SolveRidge failed: %v", err)
	}
	if !almostEqual(fit.Beta[0], 2.75, 1e-9) {
		t.Errorf("Expected intercept 2.75, got %f", fit.Beta[0])
	}
	if !almostEqual(fit.Beta[1], 0, 1e-4) {
		t.Errorf("Expected slope near 0, got %f", fit.Beta[1])
	}
}

func TestSolveRidge_Singular(t *testing.T) {
	x := [][]float64{{1, 1, 2}, {1, 2, 4}, {1, 3, 6}, {1, 4, 8}}
	y := []float64{1, 2, 3, 4}

	_, err := SolveRidge(x, y, 0)
	if !errors.Is(err, ErrSingularMatrix) {
		t.Fatalf("Expected ErrSingularMatrix, got %v", err)
	}

	// A positive penalty regularizes the collinear columns.
	if _, err := SolveRidge(x, y, 0.1); err != nil {
		t.Errorf("Expected ridge to solve collinear system, got %v", err)
	}
}

func TestSolveRidge_DegreesOfFreedom(t *testing.T) {
	x := [][]float64{{1, 1, 0}, {1, 2, 1}, {1, 3, 0}}
	y := []float64{1, 2, 3}

	_, err := SolveRidge(x, y, 1)
	if !errors.Is(err, ErrInsufficientDegreesOfFreedom) {
		t.Fatalf("Expected ErrInsufficientDegreesOfFreedom, got %v", err)
	}

	var te *TrainingError
	if !errors.As(err, &te) || te.Have != 3 || te.Need != 3 {
		t.Errorf("Expected have=3 need=3, got %+v", te)
	}
	if errors.Is(err, ErrSingularMatrix) {
		t.Error("Degrees-of-freedom error must not match ErrSingularMatrix")
	}
}

func TestInvertGaussJordan_Pivoting(t *testing.T) {
	// Zero leading entry forces a row swap.
	m := mat.NewDense(2, 2, []float64{0, 2, 4, 0})
	inv, err := invertGaussJordan(m)
	if err != nil {
		t.Fatalf("invertGaussJordan failed: %v", err)
	}
	want := []float64{0, 0.25, 0.5, 0}
	for i, v := range inv.RawMatrix().Data {
		if !almostEqual(v, want[i], 1e-12) {
			t.Errorf("inverse[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestPredictRow_LengthMismatch(t *testing.T) {
	if v := predictRow([]float64{1, 2}, []float64{1}); !math.IsNaN(v) {
		t.Errorf("Expected NaN for mismatched lengths, got %f", v)
	}
}
