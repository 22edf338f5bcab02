// Package analytics provides the daily series types shared by the forecasting
// engine, the outlier detector and the data stores.
package analytics

import (
	"math"
	"sort"
	"time"
)

// DateLayout is the canonical day key format used across series and stores.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey returns the YYYY-MM-DD key for t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key into a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// RevenueDay is the total cash revenue realized on one calendar day.
type RevenueDay struct {
	Date         time.Time `json:"date"`
	TotalRevenue float64   `json:"total_revenue"`
}

// WeatherDay is one day of observed or forecast weather.
type WeatherDay struct {
	Date              time.Time `json:"date"`
	Temp              float64   `json:"temp"`
	Humidity          float64   `json:"humidity"`
	Precipitation     float64   `json:"precipitation"`
	CloudCover        float64   `json:"cloud_cover"`
	PrecipProbability float64   `json:"precip_probability"`
	Conditions        string    `json:"conditions,omitempty"`
	Icon              string    `json:"icon,omitempty"`
}

// RevenueSeries is a collection of daily revenue totals.
type RevenueSeries []RevenueDay

// Sorted returns a copy ordered by date ascending.
func (s RevenueSeries) Sorted() RevenueSeries {
	out := make(RevenueSeries, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ByDate indexes the series by day key. Later duplicates win.
func (s RevenueSeries) ByDate() map[string]float64 {
	m := make(map[string]float64, len(s))
	for _, r := range s {
		m[DateKey(r.Date)] = r.TotalRevenue
	}
	return m
}

// Values extracts the revenue totals in series order.
func (s RevenueSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, r := range s {
		values[i] = r.TotalRevenue
	}
	return values
}

// Mean calculates the mean daily revenue.
func (s RevenueSeries) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range s {
		sum += r.TotalRevenue
	}
	return sum / float64(len(s))
}

// WeatherSeries is a collection of daily weather rows.
type WeatherSeries []WeatherDay

// ByDate indexes the series by day key. Later duplicates win.
func (s WeatherSeries) ByDate() map[string]WeatherDay {
	m := make(map[string]WeatherDay, len(s))
	for _, w := range s {
		m[DateKey(w.Date)] = w
	}
	return m
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
