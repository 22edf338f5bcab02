package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// IntervalCalibrator turns a point prediction into a prediction interval.
type IntervalCalibrator struct {
	cfg IntervalConfig
	z   float64
}

// NewIntervalCalibrator creates a calibrator.
func NewIntervalCalibrator(cfg IntervalConfig) *IntervalCalibrator {
	if cfg.Confidence <= 0 {
		cfg.Confidence = 0.95
	}
	return &IntervalCalibrator{cfg: cfg, z: zScore(cfg.Confidence)}
}

// Margin returns the half-width of the interval for the scaled feature
// vector xs and point prediction yhat, and whether the statistical method
// produced it.
func (c *IntervalCalibrator) Margin(m *Model, xs []float64, yhat float64) (float64, bool) {
	if c.cfg.Method != IntervalEmpirical && m.HasStatisticalInterval() && len(xs) == m.P {
		ginv := mat.NewDense(m.P, m.P, flatten(m.GramInverse, m.P))
		xv := mat.NewVecDense(len(xs), append([]float64(nil), xs...))
		leverage := mat.Inner(xv, ginv, xv)
		se := math.Sqrt(m.MSE * (1 + leverage))
		if margin := c.z * se; !math.IsNaN(margin) && !math.IsInf(margin, 0) && margin >= 0 {
			return margin, true
		}
	}
	return c.empiricalMargin(m.Tier, yhat), false
}

// empiricalMargin is the tier percentage of the prediction clamped to the
// configured absolute bounds.
func (c *IntervalCalibrator) empiricalMargin(tier Tier, yhat float64) float64 {
	pct, ok := c.cfg.EmpiricalPct[tier]
	if !ok {
		pct = DefaultEngineConfig().Interval.EmpiricalPct[tier]
	}
	margin := pct * math.Abs(yhat)
	if math.IsNaN(margin) || margin < c.cfg.MinMargin {
		margin = c.cfg.MinMargin
	}
	if c.cfg.MaxMargin > 0 && margin > c.cfg.MaxMargin {
		margin = c.cfg.MaxMargin
	}
	return margin
}
