// Package memory provides in-process implementations of the store
// interfaces for tests and local development.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/store"
)

// Store holds revenue, weather and tracked predictions keyed by day.
type Store struct {
	mu          sync.RWMutex
	revenue     map[string]analytics.RevenueDay
	weather     map[string]analytics.WeatherDay
	predictions map[string]store.PredictionRecord
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		revenue:     make(map[string]analytics.RevenueDay),
		weather:     make(map[string]analytics.WeatherDay),
		predictions: make(map[string]store.PredictionRecord),
	}
}

// AddRevenue inserts or replaces daily revenue rows.
func (s *Store) AddRevenue(days ...analytics.RevenueDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range days {
		d.Date = analytics.Day(d.Date)
		s.revenue[analytics.DateKey(d.Date)] = d
	}
}

// AddWeather inserts or replaces daily weather rows.
func (s *Store) AddWeather(days ...analytics.WeatherDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range days {
		d.Date = analytics.Day(d.Date)
		s.weather[analytics.DateKey(d.Date)] = d
	}
}

func (s *Store) DailyRevenue(ctx context.Context, from, to time.Time) (analytics.RevenueSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out analytics.RevenueSeries
	for _, d := range s.revenue {
		if inRange(d.Date, from, to) {
			out = append(out, d)
		}
	}
	return out.Sorted(), nil
}

func (s *Store) DailyWeather(ctx context.Context, from, to time.Time) (analytics.WeatherSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out analytics.WeatherSeries
	for _, d := range s.weather {
		if inRange(d.Date, from, to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertPrediction(ctx context.Context, rec store.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Date = analytics.Day(rec.Date)
	s.predictions[analytics.DateKey(rec.Date)] = rec
	return nil
}

// Predictions returns the tracked predictions ordered by date.
func (s *Store) Predictions() []store.PredictionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.PredictionRecord, 0, len(s.predictions))
	for _, p := range s.predictions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) Accuracy(ctx context.Context, from, to time.Time) (*store.Accuracy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		acc                      store.Accuracy
		sumAbs, sumErr, sumPct   float64
		pctDays, withinIntervals int
	)
	for key, p := range s.predictions {
		if p.IsClosedDay || !inRange(p.Date, from, to) {
			continue
		}
		actual, ok := s.revenue[key]
		if !ok {
			continue
		}
		e := p.PredictedRevenue - actual.TotalRevenue
		sumErr += e
		sumAbs += math.Abs(e)
		if actual.TotalRevenue != 0 {
			sumPct += math.Abs(e / actual.TotalRevenue)
			pctDays++
		}
		if actual.TotalRevenue >= p.IntervalLow && actual.TotalRevenue <= p.IntervalHigh {
			withinIntervals++
		}
		acc.Days++
	}

	if acc.Days == 0 {
		return &acc, nil
	}
	n := float64(acc.Days)
	acc.MAE = sumAbs / n
	acc.Bias = sumErr / n
	acc.WithinInterval = float64(withinIntervals) / n * 100
	if pctDays > 0 {
		acc.MAPE = sumPct / float64(pctDays) * 100
	}
	return &acc, nil
}

func inRange(d, from, to time.Time) bool {
	d = analytics.Day(d)
	return !d.Before(analytics.Day(from)) && !d.After(analytics.Day(to))
}
