// Package postgres implements the store interfaces on PostgreSQL with pgx.
//
// Schema:
//
//	CREATE TABLE daily_revenue (
//	  date DATE PRIMARY KEY,
//	  total_revenue NUMERIC(12,2) NOT NULL
//	);
//	CREATE TABLE weather_daily (
//	  date DATE PRIMARY KEY,
//	  temp DOUBLE PRECISION, humidity DOUBLE PRECISION,
//	  precipitation DOUBLE PRECISION, cloud_cover DOUBLE PRECISION,
//	  precip_probability DOUBLE PRECISION,
//	  conditions TEXT, icon TEXT
//	);
//	CREATE TABLE revenue_predictions (
//	  date DATE PRIMARY KEY,
//	  predicted_revenue NUMERIC(12,2) NOT NULL,
//	  interval_low NUMERIC(12,2) NOT NULL,
//	  interval_high NUMERIC(12,2) NOT NULL,
//	  weather_impact_pct DOUBLE PRECISION NOT NULL,
//	  category TEXT NOT NULL,
//	  is_closed_day BOOLEAN NOT NULL,
//	  model_tier TEXT NOT NULL,
//	  lambda DOUBLE PRECISION NOT NULL,
//	  in_sample_r2 DOUBLE PRECISION NOT NULL DEFAULT 0,
//	  features JSONB,
//	  generated_at TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/analytics/forecast"
	"github.com/lavapop/cashcast/internal/store"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads revenue and weather and tracks predictions.
type Store struct {
	db DB
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// New creates a Store on db.
func New(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_revenue (
			date DATE PRIMARY KEY,
			total_revenue NUMERIC(12,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weather_daily (
			date DATE PRIMARY KEY,
			temp DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			precipitation DOUBLE PRECISION,
			cloud_cover DOUBLE PRECISION,
			precip_probability DOUBLE PRECISION,
			conditions TEXT,
			icon TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS revenue_predictions (
			date DATE PRIMARY KEY,
			predicted_revenue NUMERIC(12,2) NOT NULL,
			interval_low NUMERIC(12,2) NOT NULL,
			interval_high NUMERIC(12,2) NOT NULL,
			weather_impact_pct DOUBLE PRECISION NOT NULL,
			category TEXT NOT NULL,
			is_closed_day BOOLEAN NOT NULL,
			model_tier TEXT NOT NULL,
			lambda DOUBLE PRECISION NOT NULL,
			in_sample_r2 DOUBLE PRECISION NOT NULL DEFAULT 0,
			features JSONB,
			generated_at TIMESTAMPTZ NOT NULL
		)`,
		`ALTER TABLE revenue_predictions ADD COLUMN IF NOT EXISTS in_sample_r2 DOUBLE PRECISION NOT NULL DEFAULT 0`,
		`ALTER TABLE revenue_predictions ADD COLUMN IF NOT EXISTS features JSONB`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) DailyRevenue(ctx context.Context, from, to time.Time) (analytics.RevenueSeries, error) {
	rows, err := s.db.Query(ctx, `
		SELECT date, total_revenue::float8
		FROM daily_revenue
		WHERE date BETWEEN $1 AND $2
		ORDER BY date
	`, analytics.Day(from), analytics.Day(to))
	if err != nil {
		return nil, fmt.Errorf("revenue query failed: %w", err)
	}
	defer rows.Close()

	var out analytics.RevenueSeries
	for rows.Next() {
		var r analytics.RevenueDay
		if err := rows.Scan(&r.Date, &r.TotalRevenue); err != nil {
			return nil, fmt.Errorf("revenue scan failed: %w", err)
		}
		r.Date = analytics.Day(r.Date)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("revenue rows failed: %w", err)
	}
	return out, nil
}

func (s *Store) DailyWeather(ctx context.Context, from, to time.Time) (analytics.WeatherSeries, error) {
	rows, err := s.db.Query(ctx, `
		SELECT date,
		       COALESCE(temp, 0), COALESCE(humidity, 0), COALESCE(precipitation, 0),
		       COALESCE(cloud_cover, 0), COALESCE(precip_probability, 0),
		       COALESCE(conditions, ''), COALESCE(icon, '')
		FROM weather_daily
		WHERE date BETWEEN $1 AND $2
		ORDER BY date
	`, analytics.Day(from), analytics.Day(to))
	if err != nil {
		return nil, fmt.Errorf("weather query failed: %w", err)
	}
	defer rows.Close()

	var out analytics.WeatherSeries
	for rows.Next() {
		var w analytics.WeatherDay
		if err := rows.Scan(&w.Date, &w.Temp, &w.Humidity, &w.Precipitation,
			&w.CloudCover, &w.PrecipProbability, &w.Conditions, &w.Icon); err != nil {
			return nil, fmt.Errorf("weather scan failed: %w", err)
		}
		w.Date = analytics.Day(w.Date)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("weather rows failed: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertPrediction(ctx context.Context, rec store.PredictionRecord) error {
	var features []byte
	if len(rec.Features) > 0 {
		var err error
		if features, err = json.Marshal(rec.Features); err != nil {
			return fmt.Errorf("failed to encode features: %w", err)
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO revenue_predictions (
			date, predicted_revenue, interval_low, interval_high, weather_impact_pct,
			category, is_closed_day, model_tier, lambda, in_sample_r2, features, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (date) DO UPDATE SET
			predicted_revenue = EXCLUDED.predicted_revenue,
			interval_low = EXCLUDED.interval_low,
			interval_high = EXCLUDED.interval_high,
			weather_impact_pct = EXCLUDED.weather_impact_pct,
			category = EXCLUDED.category,
			is_closed_day = EXCLUDED.is_closed_day,
			model_tier = EXCLUDED.model_tier,
			lambda = EXCLUDED.lambda,
			in_sample_r2 = EXCLUDED.in_sample_r2,
			features = EXCLUDED.features,
			generated_at = EXCLUDED.generated_at
	`, analytics.Day(rec.Date), rec.PredictedRevenue, rec.IntervalLow, rec.IntervalHigh,
		rec.WeatherImpactPct, rec.Category, rec.IsClosedDay, string(rec.ModelTier), rec.Lambda,
		rec.InSampleR2, features, rec.GeneratedAt)
	if err != nil {
		return fmt.Errorf("prediction upsert failed: %w", err)
	}
	return nil
}

// Prediction reads back the tracked prediction for date.
func (s *Store) Prediction(ctx context.Context, date time.Time) (*store.PredictionRecord, error) {
	var (
		rec      store.PredictionRecord
		tier     string
		features []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT date, predicted_revenue::float8, interval_low::float8, interval_high::float8,
		       weather_impact_pct, category, is_closed_day, model_tier, lambda,
		       in_sample_r2, features, generated_at
		FROM revenue_predictions
		WHERE date = $1
	`, analytics.Day(date)).Scan(&rec.Date, &rec.PredictedRevenue, &rec.IntervalLow, &rec.IntervalHigh,
		&rec.WeatherImpactPct, &rec.Category, &rec.IsClosedDay, &tier, &rec.Lambda,
		&rec.InSampleR2, &features, &rec.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("prediction query failed: %w", err)
	}
	rec.Date = analytics.Day(rec.Date)
	rec.ModelTier = forecast.Tier(tier)
	if len(features) > 0 {
		if err := json.Unmarshal(features, &rec.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}
	}
	return &rec, nil
}

func (s *Store) Accuracy(ctx context.Context, from, to time.Time) (*store.Accuracy, error) {
	var acc store.Accuracy
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(ABS(p.predicted_revenue - r.total_revenue)), 0)::float8,
		       COALESCE(AVG(ABS(p.predicted_revenue - r.total_revenue) / NULLIF(r.total_revenue, 0)) * 100, 0)::float8,
		       COALESCE(AVG(p.predicted_revenue - r.total_revenue), 0)::float8,
		       COALESCE(AVG(CASE WHEN r.total_revenue BETWEEN p.interval_low AND p.interval_high THEN 1 ELSE 0 END) * 100, 0)::float8
		FROM revenue_predictions p
		JOIN daily_revenue r ON r.date = p.date
		WHERE p.date BETWEEN $1 AND $2 AND NOT p.is_closed_day
	`, analytics.Day(from), analytics.Day(to)).Scan(&acc.Days, &acc.MAE, &acc.MAPE, &acc.Bias, &acc.WithinInterval)
	if err != nil {
		return nil, fmt.Errorf("accuracy query failed: %w", err)
	}
	return &acc, nil
}
