package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/analytics/anomaly"
)

const (
	rainThreshold      = 2.0  // mm
	heavyRainThreshold = 10.0 // mm
	fullSunHours       = 8.0

	maWindow          = 7
	maMinPresent      = 5
	volatilityWindow  = 14
	volatilityMinDays = 10
)

// TrainingRow is one labeled day.
type TrainingRow struct {
	Date      time.Time          `json:"date"`
	Target    float64            `json:"target"`
	Features  []float64          `json:"features"`
	Named     map[string]float64 `json:"named_features"`
	IsOutlier bool               `json:"is_outlier"`
}

// DataQuality counts what happened to the candidate days of one training build.
type DataQuality struct {
	TotalDays       int `json:"total_days"`
	MissingWeather  int `json:"missing_weather"`
	MissingLags     int `json:"missing_lags"`
	UsableDays      int `json:"usable_days"`
	OutlierCount    int `json:"outlier_count"`
	HolidaysInRange int `json:"holidays_in_range"`
}

// FeatureSet is a tier-specific feature record with a fixed vector layout.
type FeatureSet interface {
	Tier() Tier
	// Vector returns the features in the tier's positional order, intercept first.
	Vector() []float64
}

// FullFeatures carries every engineered feature.
type FullFeatures struct {
	Lag1, Lag7, MA7, Volatility14 float64
	DowSin, DowCos                float64
	IsWeekend                     float64
	DryingPain                    float64
	IsRainy, IsHeavyRain          float64
	IsHoliday, IsHolidayEve       float64
	WeekendDrying, WeekendRain    float64
	HolidayDrying                 float64
}

func (f FullFeatures) Tier() Tier { return TierFull }

func (f FullFeatures) Vector() []float64 {
	return []float64{
		1, f.Lag1, f.Lag7, f.MA7, f.Volatility14, f.DowSin, f.DowCos,
		f.IsWeekend, f.DryingPain, f.IsRainy, f.IsHeavyRain, f.IsHoliday,
		f.IsHolidayEve, f.WeekendDrying, f.WeekendRain, f.HolidayDrying,
	}
}

// ReducedFeatures is the eight-column layout.
type ReducedFeatures struct {
	Lag1, Lag7    float64
	IsWeekend     float64
	DryingPain    float64
	IsRainy       float64
	IsHoliday     float64
	WeekendDrying float64
}

func (f ReducedFeatures) Tier() Tier { return TierReduced }

func (f ReducedFeatures) Vector() []float64 {
	return []float64{1, f.Lag1, f.Lag7, f.IsWeekend, f.DryingPain, f.IsRainy, f.IsHoliday, f.WeekendDrying}
}

// MinimalFeatures holds the two lags.
type MinimalFeatures struct {
	Lag1, Lag7 float64
}

func (f MinimalFeatures) Tier() Tier { return TierMinimal }

func (f MinimalFeatures) Vector() []float64 { return []float64{1, f.Lag1, f.Lag7} }

// FallbackFeatures is the intercept-only layout of the mean model.
type FallbackFeatures struct{}

func (FallbackFeatures) Tier() Tier { return TierFallback }

func (FallbackFeatures) Vector() []float64 { return []float64{1} }

// Project narrows the full record to the tier's layout.
func (f FullFeatures) Project(t Tier) FeatureSet {
	switch t {
	case TierFull:
		return f
	case TierReduced:
		return ReducedFeatures{
			Lag1: f.Lag1, Lag7: f.Lag7, IsWeekend: f.IsWeekend, DryingPain: f.DryingPain,
			IsRainy: f.IsRainy, IsHoliday: f.IsHoliday, WeekendDrying: f.WeekendDrying,
		}
	case TierMinimal:
		return MinimalFeatures{Lag1: f.Lag1, Lag7: f.Lag7}
	default:
		return FallbackFeatures{}
	}
}

// NamedFeatures zips a feature set with its tier's names.
func NamedFeatures(fs FeatureSet) map[string]float64 {
	names := fs.Tier().FeatureNames()
	vec := fs.Vector()
	named := make(map[string]float64, len(names))
	for i, n := range names {
		named[n] = vec[i]
	}
	return named
}

// revenueLookup resolves the revenue realized (or assumed) on a date.
type revenueLookup func(date time.Time) (float64, bool)

// FeatureEngineer turns raw daily series into labeled training rows.
type FeatureEngineer struct {
	weights  DryingWeights
	calendar Calendar
	detector *anomaly.IQRDetector
}

// NewFeatureEngineer creates a FeatureEngineer.
func NewFeatureEngineer(weights DryingWeights, calendar Calendar) *FeatureEngineer {
	return &FeatureEngineer{
		weights:  weights,
		calendar: calendar,
		detector: anomaly.NewIQRDetector(),
	}
}

// SunHours estimates sunshine hours from cloud cover percent.
func SunHours(cloudCover float64) float64 {
	return math.Max(0, fullSunHours*(1-cloudCover/100))
}

// DryingPain scores how unfavorable the weather is for air-drying laundry.
func (fe *FeatureEngineer) DryingPain(w analytics.WeatherDay) float64 {
	sunDeficit := math.Max(0, fullSunHours-SunHours(w.CloudCover))
	return fe.weights.Humidity*w.Humidity +
		fe.weights.Precip*w.Precipitation +
		fe.weights.SunDeficit*sunDeficit
}

// calendarFeatures fills the weather, calendar and interaction columns.
func (fe *FeatureEngineer) calendarFeatures(date time.Time, w analytics.WeatherDay) FullFeatures {
	var f FullFeatures

	dow := mondayIndex(date)
	f.DowSin = math.Sin(2 * math.Pi * float64(dow) / 7)
	f.DowCos = math.Cos(2 * math.Pi * float64(dow) / 7)
	if dow >= 5 {
		f.IsWeekend = 1
	}

	f.DryingPain = fe.DryingPain(w)
	if w.Precipitation >= rainThreshold {
		f.IsRainy = 1
	}
	if w.Precipitation >= heavyRainThreshold {
		f.IsHeavyRain = 1
	}

	if fe.calendar != nil {
		if _, ok := fe.calendar.Holiday(date); ok {
			f.IsHoliday = 1
		}
		if _, ok := fe.calendar.HolidayEve(date); ok {
			f.IsHolidayEve = 1
		}
	}

	f.WeekendDrying = f.IsWeekend * f.DryingPain
	f.WeekendRain = f.IsWeekend * f.IsRainy
	f.HolidayDrying = f.IsHoliday * f.DryingPain
	return f
}

// Build assembles the training rows for a tier and reports data quality.
func (fe *FeatureEngineer) Build(revenue analytics.RevenueSeries, weather analytics.WeatherSeries, tier Tier) ([]TrainingRow, DataQuality) {
	sorted := revenue.Sorted()
	history := sorted.ByDate()
	weatherByDate := weather.ByDate()
	lookup := func(d time.Time) (float64, bool) {
		v, ok := history[analytics.DateKey(d)]
		return v, ok
	}

	quality := DataQuality{TotalDays: len(sorted)}

	if fe.calendar != nil {
		for _, r := range sorted {
			if _, ok := fe.calendar.Holiday(r.Date); ok {
				quality.HolidaysInRange++
			}
		}
	}

	rows := make([]TrainingRow, 0, len(sorted))
	for i := tier.Lookback(); i < len(sorted); i++ {
		day := sorted[i]
		date := analytics.Day(day.Date)

		w, ok := weatherByDate[analytics.DateKey(date)]
		if !ok {
			quality.MissingWeather++
			continue
		}

		lag1, ok1 := lookup(date.AddDate(0, 0, -1))
		lag7, ok7 := lookup(date.AddDate(0, 0, -7))
		if !ok1 || !ok7 || lag1 == 0 || lag7 == 0 {
			quality.MissingLags++
			continue
		}

		f := fe.calendarFeatures(date, w)
		f.Lag1 = lag1
		f.Lag7 = lag7

		if tier == TierFull {
			ma, okMA := windowValues(date, lookup, maWindow, maMinPresent)
			vol, okVol := windowValues(date, lookup, volatilityWindow, volatilityMinDays)
			if !okMA || !okVol {
				quality.MissingLags++
				continue
			}
			f.MA7 = stat.Mean(ma, nil)
			f.Volatility14 = stat.StdDev(vol, nil)
		}

		fs := f.Project(tier)
		rows = append(rows, TrainingRow{
			Date:     date,
			Target:   day.TotalRevenue,
			Features: fs.Vector(),
			Named:    NamedFeatures(fs),
		})
	}

	quality.UsableDays = len(rows)
	quality.OutlierCount = fe.flagOutliers(rows)
	return rows, quality
}

// flagOutliers marks rows whose target lies outside the IQR fences.
func (fe *FeatureEngineer) flagOutliers(rows []TrainingRow) int {
	targets := make([]float64, len(rows))
	for i, r := range rows {
		targets[i] = r.Target
	}
	results := fe.detector.Detect(targets)
	for _, res := range results {
		rows[res.Index].IsOutlier = true
	}
	return len(results)
}

// windowValues collects the values present in the window ending the day
// before date. ok is false when fewer than minPresent days are available.
func windowValues(date time.Time, lookup revenueLookup, window, minPresent int) ([]float64, bool) {
	values := make([]float64, 0, window)
	for back := 1; back <= window; back++ {
		if v, ok := lookup(date.AddDate(0, 0, -back)); ok {
			values = append(values, v)
		}
	}
	return values, len(values) >= minPresent
}

// mondayIndex returns the day of week with Monday=0 ... Sunday=6.
func mondayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}
