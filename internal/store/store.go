// Package store defines the data collaborators of the forecast service: the
// revenue and weather readers and the prediction tracker.
package store

import (
	"context"
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

// RevenueReader returns daily revenue totals in [from, to].
type RevenueReader interface {
	DailyRevenue(ctx context.Context, from, to time.Time) (analytics.RevenueSeries, error)
}

// WeatherReader returns daily weather rows, observed or forecast, in [from, to].
type WeatherReader interface {
	DailyWeather(ctx context.Context, from, to time.Time) (analytics.WeatherSeries, error)
}

// PredictionTracker records issued predictions and scores them against actuals.
type PredictionTracker interface {
	UpsertPrediction(ctx context.Context, rec PredictionRecord) error
	Accuracy(ctx context.Context, from, to time.Time) (*Accuracy, error)
}

// PredictionRecord is one issued prediction, keyed by date.
type PredictionRecord struct {
	Date             time.Time          `json:"date"`
	PredictedRevenue float64            `json:"predicted_revenue"`
	IntervalLow      float64            `json:"interval_low"`
	IntervalHigh     float64            `json:"interval_high"`
	WeatherImpactPct float64            `json:"weather_impact_pct"`
	Category         string             `json:"category"`
	IsClosedDay      bool               `json:"is_closed_day"`
	ModelTier        forecast.Tier      `json:"model_tier"`
	Lambda           float64            `json:"lambda"`
	InSampleR2       float64            `json:"in_sample_r2"`
	Features         map[string]float64 `json:"features,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// NewPredictionRecord stamps a prediction with the model that produced it.
func NewPredictionRecord(p forecast.Prediction, m *forecast.Model, generatedAt time.Time) PredictionRecord {
	rec := PredictionRecord{
		Date:             analytics.Day(p.Date),
		PredictedRevenue: p.PredictedRevenue,
		IntervalLow:      p.IntervalLow,
		IntervalHigh:     p.IntervalHigh,
		WeatherImpactPct: p.WeatherImpactPct,
		Category:         p.Category,
		IsClosedDay:      p.IsClosedDay,
		Features:         p.Features,
		GeneratedAt:      generatedAt,
	}
	if m != nil {
		rec.ModelTier = m.Tier
		rec.Lambda = m.Lambda
		rec.InSampleR2 = m.InSample.RSquared
	}
	return rec
}

// Accuracy aggregates tracked predictions that have a realized actual.
// Closed days are excluded.
type Accuracy struct {
	Days           int     `json:"days"`
	MAE            float64 `json:"mae"`
	MAPE           float64 `json:"mape"`
	Bias           float64 `json:"bias"`
	WithinInterval float64 `json:"within_interval_pct"`
}
