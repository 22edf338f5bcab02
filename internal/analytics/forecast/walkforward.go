package forecast

import (
	"math"
)

// OOSMetrics are out-of-sample errors from walk-forward validation.
// Bias is the mean of predicted minus actual.
type OOSMetrics struct {
	MAE     float64 `json:"mae"`
	MAPE    float64 `json:"mape"`
	Bias    float64 `json:"bias"`
	NPoints int     `json:"n_points"`
}

// WalkForwardValidator backtests a fixed-lambda ridge model on an expanding window.
type WalkForwardValidator struct {
	cfg WalkForwardConfig
}

// NewWalkForwardValidator creates a validator, filling zero fields with defaults.
func NewWalkForwardValidator(cfg WalkForwardConfig) *WalkForwardValidator {
	if cfg.Warmup <= 0 {
		cfg.Warmup = 30
	}
	if cfg.Step <= 0 {
		cfg.Step = 3
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = 10
	}
	return &WalkForwardValidator{cfg: cfg}
}

// Validate trains on rows [0, t) and predicts row t for every step t from the
// warm-up to the end. ok is false when fewer than MinPoints steps produced a
// prediction; no metrics are reported in that case.
func (v *WalkForwardValidator) Validate(x [][]float64, y []float64, lambda float64) (*OOSMetrics, bool) {
	var actual, predicted []float64
	for t := v.cfg.Warmup; t < len(x); t += v.cfg.Step {
		fit, err := SolveRidge(x[:t], y[:t], lambda)
		if err != nil {
			continue
		}
		p := predictRow(fit.Beta, x[t])
		if math.IsNaN(p) {
			continue
		}
		actual = append(actual, y[t])
		predicted = append(predicted, p)
	}

	points := len(actual)
	if points < v.cfg.MinPoints {
		return nil, false
	}

	bias := 0.0
	for i := range actual {
		bias += predicted[i] - actual[i]
	}
	return &OOSMetrics{
		MAE:     CalculateMAE(actual, predicted),
		MAPE:    CalculateMAPE(actual, predicted),
		Bias:    bias / float64(points),
		NPoints: points,
	}, true
}
