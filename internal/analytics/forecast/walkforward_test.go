package forecast

import (
	"testing"
)

func linearRows(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = []float64{1, float64(i)}
		y[i] = 2*float64(i) + 1
	}
	return x, y
}

func TestWalkForward_InsufficientPoints(t *testing.T) {
	x, y := linearRows(20)
	if m, ok := NewWalkForwardValidator(WalkForwardConfig{}).Validate(x, y, 0); ok || m != nil {
		t.Errorf("Expected no metrics below warm-up, got %+v", m)
	}

	// Warm-up 30, step 3 over 57 rows gives 9 points.
	x, y = linearRows(57)
	if _, ok := NewWalkForwardValidator(WalkForwardConfig{}).Validate(x, y, 0); ok {
		t.Error("Expected fewer than 10 points to report nothing")
	}
}

func TestWalkForward_ExactLine(t *testing.T) {
	x, y := linearRows(60)
	m, ok := NewWalkForwardValidator(WalkForwardConfig{Warmup: 30, Step: 3, MinPoints: 10}).Validate(x, y, 0)
	if !ok {
		t.Fatal("Expected metrics")
	}
	if m.NPoints != 10 {
		t.Errorf("Expected 10 points, got %d", m.NPoints)
	}
	if !almostEqual(m.MAE, 0, 1e-6) || !almostEqual(m.MAPE, 0, 1e-6) || !almostEqual(m.Bias, 0, 1e-6) {
		t.Errorf("Expected zero error on a noiseless line, got %+v", m)
	}
}

func TestWalkForward_BiasSign(t *testing.T) {
	x, y := linearRows(60)
	// The last rows jump down, so a model trained on the earlier line over-predicts.
	for i := 30; i < 60; i++ {
		y[i] -= 100
	}
	m, ok := NewWalkForwardValidator(WalkForwardConfig{}).Validate(x, y, 0)
	if !ok {
		t.Fatal("Expected metrics")
	}
	if m.Bias <= 0 {
		t.Errorf("Expected positive bias (predicted minus actual), got %f", m.Bias)
	}
	if m.MAPE <= 0 {
		t.Errorf("Expected positive MAPE, got %f", m.MAPE)
	}
}
