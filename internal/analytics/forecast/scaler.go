package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/analytics/anomaly"
)

// constantStdThreshold marks a column as constant.
const constantStdThreshold = 1e-10

// Scaler z-scores every non-intercept column. Means and Stds are aligned with
// the feature vector; index 0 is fixed at mean 0, std 1.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitScaler computes per-column population mean and standard deviation.
func FitScaler(x [][]float64) *Scaler {
	if len(x) == 0 {
		return &Scaler{}
	}
	p := len(x[0])
	s := &Scaler{
		Means: make([]float64, p),
		Stds:  make([]float64, p),
	}
	s.Stds[0] = 1

	col := make([]float64, len(x))
	for j := 1; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		std := math.Sqrt(variance)
		if std < constantStdThreshold || math.IsNaN(std) {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return s
}

// Width is the number of columns the scaler was fitted on.
func (s *Scaler) Width() int {
	return len(s.Means)
}

// Check verifies that means and stds both have width p and every std is a
// finite positive number.
func (s *Scaler) Check(p int) error {
	if len(s.Means) != p || len(s.Stds) != p {
		return fmt.Errorf("scaler has %d means and %d stds, want %d", len(s.Means), len(s.Stds), p)
	}
	for j := range s.Stds {
		if !analytics.IsFinite(s.Means[j]) {
			return fmt.Errorf("scaler mean %d is not finite", j)
		}
		if !analytics.IsFinite(s.Stds[j]) || s.Stds[j] <= 0 {
			return fmt.Errorf("scaler std %d is %v", j, s.Stds[j])
		}
	}
	return nil
}

// Apply scales one raw feature vector. The intercept is passed through.
func (s *Scaler) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if j == 0 || j >= len(s.Means) || j >= len(s.Stds) {
			out[j] = v
			continue
		}
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out
}

// Transform scales every row.
func (s *Scaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.Apply(row)
	}
	return out
}

// Unscale maps coefficients fitted on standardized features back to the raw
// feature space: slopes become beta/std and the intercept absorbs the means.
func (s *Scaler) Unscale(beta []float64) []float64 {
	raw := make([]float64, len(beta))
	if len(beta) == 0 {
		return raw
	}
	raw[0] = beta[0]
	for j := 1; j < len(beta) && j < len(s.Means); j++ {
		raw[j] = beta[j] / s.Stds[j]
		raw[0] -= raw[j] * s.Means[j]
	}
	return raw
}

// Winsorize clamps targets into the IQR fences and returns the clamped copy
// together with the indices that were moved.
func Winsorize(targets []float64) ([]float64, []int) {
	out := make([]float64, len(targets))
	copy(out, targets)
	if len(targets) < 4 {
		return out, nil
	}

	fences := anomaly.NewIQRDetector().Fences(targets)
	var clamped []int
	for i, v := range out {
		if !fences.Contains(v) {
			out[i] = fences.Clamp(v)
			clamped = append(clamped, i)
		}
	}
	return out, clamped
}

// designMatrix extracts feature vectors and targets from rows.
func designMatrix(rows []TrainingRow) ([][]float64, []float64) {
	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Features
		y[i] = r.Target
	}
	return x, y
}
