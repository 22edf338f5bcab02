package forecast

import (
	"fmt"
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
)

// FitMetrics are in-sample fit statistics.
type FitMetrics struct {
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	RSquared float64 `json:"r_squared"`
}

// Model is a trained snapshot. It is immutable once built; retraining
// produces a new Model.
type Model struct {
	RegressionType string      `json:"regression_type"`
	Tier           Tier        `json:"tier"`
	Beta           []float64   `json:"beta"`
	Lambda         float64     `json:"lambda"`
	Scaler         *Scaler     `json:"scaler,omitempty"`
	N              int         `json:"n"`
	P              int         `json:"p"`
	MSE            float64     `json:"mse,omitempty"`
	GramInverse    [][]float64 `json:"gram_inverse,omitempty"`
	InSample       FitMetrics  `json:"in_sample"`
	OOS            *OOSMetrics `json:"oos,omitempty"`
	CVMAE          float64     `json:"cv_mae,omitempty"`
	MeanRevenue    float64     `json:"mean_revenue"`
	Winsorized     int         `json:"winsorized"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
	DataQuality    DataQuality `json:"data_quality"`
	TrainedAt      time.Time   `json:"trained_at"`
}

// FeatureNames returns the positional names of the coefficients.
func (m *Model) FeatureNames() []string {
	return m.Tier.FeatureNames()
}

// Coefficients maps feature names to their standardized coefficients.
func (m *Model) Coefficients() map[string]float64 {
	names := m.FeatureNames()
	out := make(map[string]float64, len(names))
	for i, n := range names {
		if i < len(m.Beta) {
			out[n] = m.Beta[i]
		}
	}
	return out
}

// HasStatisticalInterval reports whether the residual variance and the Gram
// inverse needed for SE_pred are available.
func (m *Model) HasStatisticalInterval() bool {
	if m.MSE <= 0 || !analytics.IsFinite(m.MSE) || len(m.GramInverse) != m.P {
		return false
	}
	for _, row := range m.GramInverse {
		if len(row) != m.P {
			return false
		}
	}
	return true
}

// Check verifies the structural invariants len(beta) == p == tier width, a
// scaler of width p on every non-fallback tier, and a p x p Gram inverse
// when one is stored.
func (m *Model) Check() error {
	if !m.Tier.Valid() {
		return fmt.Errorf("unknown tier %q", m.Tier)
	}
	if len(m.Beta) == 0 {
		return fmt.Errorf("empty coefficient vector")
	}
	if len(m.Beta) != m.P || m.P != m.Tier.Width() {
		return fmt.Errorf("coefficient length %d, p %d, tier %s width %d",
			len(m.Beta), m.P, m.Tier, m.Tier.Width())
	}
	for i, b := range m.Beta {
		if !analytics.IsFinite(b) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if m.Scaler == nil {
		if m.Tier != TierFallback {
			return fmt.Errorf("tier %s requires a scaler", m.Tier)
		}
	} else if err := m.Scaler.Check(m.P); err != nil {
		return err
	}
	if m.GramInverse != nil {
		if len(m.GramInverse) != m.P {
			return fmt.Errorf("gram inverse has %d rows, want %d", len(m.GramInverse), m.P)
		}
		for i, row := range m.GramInverse {
			if len(row) != m.P {
				return fmt.Errorf("gram inverse row %d has %d columns, want %d", i, len(row), m.P)
			}
		}
	}
	return nil
}

// Age is the time elapsed since training.
func (m *Model) Age(now time.Time) time.Duration {
	return now.Sub(m.TrainedAt)
}

func (m *Model) scaler() *Scaler {
	if m.Scaler != nil && m.Scaler.Width() == m.P {
		return m.Scaler
	}
	s := &Scaler{Means: make([]float64, m.P), Stds: make([]float64, m.P)}
	for i := range s.Stds {
		s.Stds[i] = 1
	}
	return s
}
