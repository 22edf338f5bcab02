package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

func TestObserveModel(t *testing.T) {
	m := New()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	model := &forecast.Model{
		Tier:      forecast.TierReduced,
		N:         40,
		Lambda:    0.5,
		InSample:  forecast.FitMetrics{RSquared: 0.7},
		TrainedAt: now.Add(-2 * time.Hour),
	}

	m.ObserveModel(model, now)

	assert.Equal(t, 7200.0, testutil.ToFloat64(m.ModelAgeSeconds))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.ModelSamples))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.ModelOOSMAPE))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelTierCurrent.WithLabelValues("reduced")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ModelTierCurrent.WithLabelValues("full")))

	model.OOS = &forecast.OOSMetrics{MAPE: 14}
	m.ObserveModel(model, now)
	assert.Equal(t, 14.0, testutil.ToFloat64(m.ModelOOSMAPE))
}

func TestObserveTraining(t *testing.T) {
	m := New()
	m.ObserveTraining(&forecast.Model{Tier: forecast.TierFull}, 20*time.Millisecond)
	m.ObserveTraining(&forecast.Model{Tier: forecast.TierFallback, FallbackReason: "singular"}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingsTotal.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackTotal))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ForecastsTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `cashcast_forecasts_total{result="ok"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
