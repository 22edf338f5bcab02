// Package csvfile reads daily revenue and weather exports for offline runs.
//
// Revenue files need the columns date and total_revenue. Weather files need
// date and accept temp, humidity, precipitation, cloud_cover,
// precip_probability, conditions and icon. Column order is free; unknown
// columns are ignored.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
)

// Store serves series loaded from CSV files.
type Store struct {
	revenue analytics.RevenueSeries
	weather analytics.WeatherSeries
}

// Open loads a revenue file and an optional weather file.
func Open(revenuePath, weatherPath string) (*Store, error) {
	s := &Store{}

	f, err := os.Open(revenuePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open revenue file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if s.revenue, err = ReadRevenue(f); err != nil {
		return nil, fmt.Errorf("%s: %w", revenuePath, err)
	}

	if weatherPath != "" {
		wf, err := os.Open(weatherPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open weather file: %w", err)
		}
		defer func() { _ = wf.Close() }()
		if s.weather, err = ReadWeather(wf); err != nil {
			return nil, fmt.Errorf("%s: %w", weatherPath, err)
		}
	}
	return s, nil
}

// Revenue returns every loaded revenue row.
func (s *Store) Revenue() analytics.RevenueSeries { return s.revenue }

// Weather returns every loaded weather row.
func (s *Store) Weather() analytics.WeatherSeries { return s.weather }

func (s *Store) DailyRevenue(ctx context.Context, from, to time.Time) (analytics.RevenueSeries, error) {
	var out analytics.RevenueSeries
	for _, r := range s.revenue {
		if within(r.Date, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) DailyWeather(ctx context.Context, from, to time.Time) (analytics.WeatherSeries, error) {
	var out analytics.WeatherSeries
	for _, w := range s.weather {
		if within(w.Date, from, to) {
			out = append(out, w)
		}
	}
	return out, nil
}

// ReadRevenue parses a revenue CSV. Rows for the same date are summed, so a
// per-transaction export can be read directly.
func ReadRevenue(r io.Reader) (analytics.RevenueSeries, error) {
	records, cols, err := readAll(r, "date", "total_revenue")
	if err != nil {
		return nil, err
	}

	totals := map[string]*analytics.RevenueDay{}
	for i, rec := range records {
		date, err := analytics.ParseDate(strings.TrimSpace(rec[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", i+2, err)
		}
		v, err := parseNumber(rec[cols["total_revenue"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid total_revenue: %w", i+2, err)
		}
		key := analytics.DateKey(date)
		if day, ok := totals[key]; ok {
			day.TotalRevenue += v
			continue
		}
		totals[key] = &analytics.RevenueDay{Date: date, TotalRevenue: v}
	}

	out := make(analytics.RevenueSeries, 0, len(totals))
	for _, d := range totals {
		out = append(out, *d)
	}
	return out.Sorted(), nil
}

// ReadWeather parses a weather CSV.
func ReadWeather(r io.Reader) (analytics.WeatherSeries, error) {
	records, cols, err := readAll(r, "date")
	if err != nil {
		return nil, err
	}

	out := make(analytics.WeatherSeries, 0, len(records))
	for i, rec := range records {
		date, err := analytics.ParseDate(strings.TrimSpace(rec[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", i+2, err)
		}
		w := analytics.WeatherDay{Date: date}
		numeric := map[string]*float64{
			"temp":               &w.Temp,
			"humidity":           &w.Humidity,
			"precipitation":      &w.Precipitation,
			"cloud_cover":        &w.CloudCover,
			"precip_probability": &w.PrecipProbability,
		}
		for name, dst := range numeric {
			idx, ok := cols[name]
			if !ok || strings.TrimSpace(rec[idx]) == "" {
				continue
			}
			if *dst, err = parseNumber(rec[idx]); err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", i+2, name, err)
			}
		}
		if idx, ok := cols["conditions"]; ok {
			w.Conditions = rec[idx]
		}
		if idx, ok := cols["icon"]; ok {
			w.Icon = rec[idx]
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func readAll(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return records, cols, nil
}

// parseNumber accepts "1234.5" and the Brazilian "1.234,50".
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

func within(d, from, to time.Time) bool {
	return !d.Before(analytics.Day(from)) && !d.After(analytics.Day(to))
}
