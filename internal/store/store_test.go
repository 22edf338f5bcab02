package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

func TestNewPredictionRecord(t *testing.T) {
	generated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := forecast.Prediction{
		Date:             time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC),
		PredictedRevenue: 640,
		IntervalLow:      520,
		IntervalHigh:     760,
		Category:         "high",
		Features:         map[string]float64{"drying_pain": 5, "is_weekend": 0},
	}
	m := &forecast.Model{Tier: forecast.TierFull, Lambda: 3, InSample: forecast.FitMetrics{RSquared: 0.72}}

	rec := NewPredictionRecord(p, m, generated)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, forecast.TierFull, rec.ModelTier)
	assert.Equal(t, 3.0, rec.Lambda)
	assert.Equal(t, 0.72, rec.InSampleR2)
	assert.Equal(t, p.Features, rec.Features)
	assert.Equal(t, generated, rec.GeneratedAt)

	closed := NewPredictionRecord(forecast.Prediction{Date: p.Date, IsClosedDay: true, Category: "closed"}, nil, generated)
	assert.True(t, closed.IsClosedDay)
	assert.Nil(t, closed.Features)
	assert.Zero(t, closed.InSampleR2)
}
