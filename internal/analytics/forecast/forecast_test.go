package forecast

import (
	"math"
	"testing"
)

func TestErrorMetrics(t *testing.T) {
	actual := []float64{100, 200, 0, 400}
	predicted := []float64{110, 180, 5, 400}

	if got := CalculateMAE(actual, predicted); !almostEqual(got, 35.0/4, 1e-12) {
		t.Errorf("CalculateMAE = %f, want %f", got, 35.0/4)
	}
	if want := math.Sqrt(525.0 / 4); !almostEqual(CalculateRMSE(actual, predicted), want, 1e-12) {
		t.Errorf("CalculateRMSE = %f, want %f", CalculateRMSE(actual, predicted), want)
	}
	// Zero actuals are skipped: (10% + 10% + 0%) / 3.
	if got := CalculateMAPE(actual, predicted); !almostEqual(got, 20.0/3, 1e-12) {
		t.Errorf("CalculateMAPE = %f, want %f", got, 20.0/3)
	}
}

func TestErrorMetrics_Degenerate(t *testing.T) {
	tests := map[string][2][]float64{
		"empty":     {nil, nil},
		"mismatch":  {{1, 2}, {1}},
		"all zeros": {{0, 0}, {3, 4}},
	}
	for name, tt := range tests {
		if got := CalculateMAPE(tt[0], tt[1]); got != 0 {
			t.Errorf("%s: CalculateMAPE = %f, want 0", name, got)
		}
	}
	if CalculateRMSE(nil, nil) != 0 || CalculateMAE([]float64{1}, nil) != 0 {
		t.Error("Expected zero for empty or mismatched input")
	}
}
