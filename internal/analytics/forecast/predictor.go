package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/lavapop/cashcast/internal/analytics"
)

// Prediction categories.
const (
	CategoryHigh   = "high"
	CategoryNormal = "normal"
	CategoryLow    = "low"
	CategoryClosed = "closed"

	highRatio = 1.15
	lowRatio  = 0.85
)

// Prediction is the forecast for one day.
type Prediction struct {
	Date             time.Time          `json:"date"`
	PredictedRevenue float64            `json:"predicted_revenue"`
	IntervalLow      float64            `json:"interval_low"`
	IntervalHigh     float64            `json:"interval_high"`
	WeatherImpactPct float64            `json:"weather_impact_pct"`
	Category         string             `json:"category"`
	IsClosedDay      bool               `json:"is_closed_day"`
	ClosedReason     string             `json:"closed_reason,omitempty"`
	HolidayName      string             `json:"holiday_name,omitempty"`
	StatInterval     bool               `json:"statistical_interval"`
	Features         map[string]float64 `json:"features,omitempty"`
}

// Predictor generates recursive multi-day forecasts from a trained Model.
type Predictor struct {
	engineer   *FeatureEngineer
	calendar   Calendar
	calibrator *IntervalCalibrator
}

// NewPredictor creates a Predictor. The engineer must be configured with the
// same drying weights the model was trained with.
func NewPredictor(engineer *FeatureEngineer, calendar Calendar, interval IntervalConfig) *Predictor {
	return &Predictor{
		engineer:   engineer,
		calendar:   calendar,
		calibrator: NewIntervalCalibrator(interval),
	}
}

// forecastRun is the immutable input of one forecast.
type forecastRun struct {
	model   *Model
	scaler  *Scaler
	history map[string]float64
	weather map[string]analytics.WeatherDay
	start   time.Time
}

// Forecast predicts horizon days starting at start. History dated on or
// after start is ignored; lags past the last actual use this run's earlier
// predictions.
func (p *Predictor) Forecast(model *Model, history analytics.RevenueSeries, weather analytics.WeatherSeries, start time.Time, horizon int) []Prediction {
	run := forecastRun{
		model:   model,
		scaler:  model.scaler(),
		history: history.ByDate(),
		weather: weather.ByDate(),
		start:   analytics.Day(start),
	}

	var sofar []Prediction
	for i := 0; i < horizon; i++ {
		date := run.start.AddDate(0, 0, i)
		next := p.step(run, sofar, date)
		sofar = append(sofar[:len(sofar):len(sofar)], next)
	}
	return sofar
}

// step produces the prediction for date given the predictions already made
// in this run. It does not modify sofar.
func (p *Predictor) step(run forecastRun, sofar []Prediction, date time.Time) Prediction {
	pred := Prediction{Date: date}

	if p.calendar != nil {
		if name, ok := p.calendar.Holiday(date); ok {
			pred.HolidayName = name
		}
		if reason, ok := p.calendar.ClosedDay(date); ok {
			pred.IsClosedDay = true
			pred.ClosedReason = reason
			pred.Category = CategoryClosed
			return pred
		}
	}

	lookup := run.lookup(sofar)
	raw, missing := p.rawFeatures(run, lookup, date)
	xs := run.scaler.Apply(raw)
	// Unavailable inputs are neutral: their scaled value is the training mean.
	for _, idx := range missing {
		xs[idx] = 0
	}

	m := run.model
	yhat := sanitize(predictRow(m.Beta, xs))

	impact := 0.0
	for _, idx := range m.Tier.ImpactIndices() {
		if idx < len(m.Beta) {
			impact += m.Beta[idx] * xs[idx]
		}
	}
	if m.MeanRevenue > 0 {
		pred.WeatherImpactPct = sanitize(impact / m.MeanRevenue * 100)
	}

	point := math.Max(0, yhat)
	margin, statistical := p.calibrator.Margin(m, xs, point)
	if !analytics.IsFinite(margin) {
		margin = p.calibrator.cfg.MaxMargin
	}

	pred.PredictedRevenue = point
	pred.IntervalLow = math.Max(0, point-margin)
	pred.IntervalHigh = math.Max(0, point+margin)
	pred.StatInterval = statistical
	pred.Category = categorize(point, m.MeanRevenue)
	pred.Features = namedVector(m.Tier, raw)
	return pred
}

// lookup resolves revenue for a date: actuals strictly before the forecast
// start, then open-day predictions already produced in this run.
func (run forecastRun) lookup(sofar []Prediction) revenueLookup {
	return func(d time.Time) (float64, bool) {
		d = analytics.Day(d)
		if d.Before(run.start) {
			v, ok := run.history[analytics.DateKey(d)]
			return v, ok
		}
		for _, prev := range sofar {
			if prev.Date.Equal(d) && !prev.IsClosedDay {
				return prev.PredictedRevenue, true
			}
		}
		return 0, false
	}
}

// rawFeatures assembles the unscaled vector for the model's tier and
// returns the indices whose inputs were unavailable.
func (p *Predictor) rawFeatures(run forecastRun, lookup revenueLookup, date time.Time) ([]float64, []int) {
	tier := run.model.Tier
	missing := map[string]bool{}

	w, haveWeather := run.weather[analytics.DateKey(date)]
	f := p.engineer.calendarFeatures(date, w)
	if !haveWeather {
		for name := range weatherFeatures {
			missing[name] = true
		}
	}

	if v, ok := lookup(date.AddDate(0, 0, -1)); ok && v > 0 {
		f.Lag1 = v
	} else {
		missing[FeatureLag1] = true
	}
	if v, ok := lookup(date.AddDate(0, 0, -7)); ok && v > 0 {
		f.Lag7 = v
	} else {
		missing[FeatureLag7] = true
	}

	if tier == TierFull {
		if ma, ok := windowValues(date, lookup, maWindow, maMinPresent); ok {
			f.MA7 = stat.Mean(ma, nil)
		} else {
			missing[FeatureMA7] = true
		}
		if vol, ok := windowValues(date, lookup, volatilityWindow, volatilityMinDays); ok {
			f.Volatility14 = stat.StdDev(vol, nil)
		} else {
			missing[FeatureVolatility14] = true
		}
	}

	raw := f.Project(tier).Vector()
	var idx []int
	for i, name := range tier.FeatureNames() {
		if missing[name] {
			idx = append(idx, i)
		}
	}
	return raw, idx
}

func namedVector(tier Tier, raw []float64) map[string]float64 {
	names := tier.FeatureNames()
	out := make(map[string]float64, len(names))
	for i, n := range names {
		if i < len(raw) {
			out[n] = raw[i]
		}
	}
	return out
}

func categorize(revenue, mean float64) string {
	if mean <= 0 {
		return CategoryNormal
	}
	ratio := revenue / mean
	switch {
	case ratio >= highRatio:
		return CategoryHigh
	case ratio <= lowRatio:
		return CategoryLow
	default:
		return CategoryNormal
	}
}

// sanitize maps non-finite values to zero.
func sanitize(v float64) float64 {
	if !analytics.IsFinite(v) {
		return 0
	}
	return v
}

