// Package metrics exposes forecaster metrics on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

// Metrics holds all Prometheus collectors of the forecaster
type Metrics struct {
	registry *prometheus.Registry

	ForecastsTotal   *prometheus.CounterVec // by result: ok, insufficient_data, upstream_error
	ForecastDuration prometheus.Histogram
	CacheLookups     *prometheus.CounterVec // by result: hit, miss, error
	TrainingsTotal   *prometheus.CounterVec // by tier
	TrainingDuration prometheus.Histogram
	FallbackTotal    prometheus.Counter
	PublishErrors    prometheus.Counter
	TrackerErrors    prometheus.Counter
	ModelSyncs       *prometheus.CounterVec // by result: reloaded, own, error

	ModelAgeSeconds  prometheus.Gauge
	ModelSamples     prometheus.Gauge
	ModelLambda      prometheus.Gauge
	ModelRSquared    prometheus.Gauge
	ModelOOSMAPE     prometheus.Gauge
	NextWeekRevenue  prometheus.Gauge
	ModelTierCurrent *prometheus.GaugeVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ForecastsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashcast_forecasts_total",
			Help: "Forecast requests by result",
		}, []string{"result"}),
		ForecastDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashcast_forecast_duration_seconds",
			Help:    "End-to-end forecast generation time",
			Buckets: prometheus.DefBuckets,
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashcast_model_cache_lookups_total",
			Help: "Model snapshot lookups by result",
		}, []string{"result"}),
		TrainingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashcast_trainings_total",
			Help: "Models trained by tier",
		}, []string{"tier"}),
		TrainingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashcast_training_duration_seconds",
			Help:    "Model training time",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		FallbackTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "cashcast_fallback_models_total",
			Help: "Trainings that degraded to the mean-only model",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "cashcast_event_publish_errors_total",
			Help: "Forecast events that failed to publish",
		}),
		TrackerErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "cashcast_prediction_tracker_errors_total",
			Help: "Predictions that failed to persist",
		}),
		ModelSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashcast_model_sync_events_total",
			Help: "Model retrain events consumed by result",
		}, []string{"result"}),
		ModelAgeSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashcast_model_age_seconds",
			Help: "Age of the model used by the last forecast",
		}),
		ModelSamples: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashcast_model_samples",
			Help: "Training rows of the current model",
		}),
		ModelLambda: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashcast_model_lambda",
			Help: "Ridge penalty of the current model",
		}),
		ModelRSquared: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashcast_model_r_squared",
			Help: "In-sample R squared of the current model",
		}),
		ModelOOSMAPE: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashcast_model_oos_mape_percent",
			Help: "Walk-forward MAPE of the current model, -1 when unavailable",
		}),
		NextWeekRevenue: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashcast_forecast_week_revenue",
			Help: "Sum of predicted revenue over the last forecast horizon",
		}),
		ModelTierCurrent: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashcast_model_tier",
			Help: "1 for the tier of the current model",
		}, []string{"tier"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveModel records the diagnostics of the model used at now.
func (m *Metrics) ObserveModel(model *forecast.Model, now time.Time) {
	m.ModelAgeSeconds.Set(model.Age(now).Seconds())
	m.ModelSamples.Set(float64(model.N))
	m.ModelLambda.Set(model.Lambda)
	m.ModelRSquared.Set(model.InSample.RSquared)
	if model.OOS != nil {
		m.ModelOOSMAPE.Set(model.OOS.MAPE)
	} else {
		m.ModelOOSMAPE.Set(-1)
	}
	for _, t := range []forecast.Tier{forecast.TierFull, forecast.TierReduced, forecast.TierMinimal, forecast.TierFallback} {
		v := 0.0
		if t == model.Tier {
			v = 1
		}
		m.ModelTierCurrent.WithLabelValues(string(t)).Set(v)
	}
}

// ObserveTraining records one completed training.
func (m *Metrics) ObserveTraining(model *forecast.Model, took time.Duration) {
	m.TrainingsTotal.WithLabelValues(string(model.Tier)).Inc()
	m.TrainingDuration.Observe(took.Seconds())
	if model.FallbackReason != "" {
		m.FallbackTotal.Inc()
	}
}
