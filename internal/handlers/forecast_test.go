package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
	"github.com/lavapop/cashcast/internal/logging"
	"github.com/lavapop/cashcast/internal/middleware"
	"github.com/lavapop/cashcast/internal/models"
	"github.com/lavapop/cashcast/internal/services"
)

type stubService struct {
	resp    *services.ForecastResponse
	info    *services.ModelInfo
	err     error
	retrain int
}

func (s *stubService) GenerateForecast(ctx context.Context) (*services.ForecastResponse, error) {
	return s.resp, s.err
}

func (s *stubService) Retrain(ctx context.Context) (*services.ModelInfo, error) {
	s.retrain++
	return s.info, s.err
}

func (s *stubService) CurrentModel(ctx context.Context) (*services.ModelInfo, error) {
	return s.info, s.err
}

func newTestApp(svc ForecastService) *fiber.App {
	h := New(logging.Nop(), svc, nil)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Nop())})
	app.Get("/v1/forecast", h.Forecast)
	app.Get("/v1/model", h.Model)
	app.Post("/v1/forecast/retrain", h.Retrain)
	return app
}

func TestForecast_OK(t *testing.T) {
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	svc := &stubService{resp: &services.ForecastResponse{
		StartDate:   "2026-03-11",
		Predictions: []forecast.Prediction{{Date: day, PredictedRevenue: 512.5, Category: forecast.CategoryNormal}},
		TotalWeek:   512.5,
		ModelInfo:   services.ModelInfo{Tier: forecast.TierFull},
	}}

	resp, err := newTestApp(svc).Test(httptest.NewRequest("GET", "/v1/forecast", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "2026-03-11", body["start_date"])
	assert.Equal(t, 512.5, body["total_predicted_revenue"])
	assert.Len(t, body["predictions"], 1)
	assert.Equal(t, "full", body["model_info"].(map[string]interface{})["tier"])
}

func TestForecast_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "insufficient data",
			err:    services.NewServiceErrorWithDetails(services.CodeInsufficientData, "not enough", map[string]interface{}{"shortfall": 3}),
			status: fiber.StatusUnprocessableEntity,
		},
		{
			name:   "upstream",
			err:    services.NewServiceError(services.CodeUpstreamFetchFailed, "db down"),
			status: fiber.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newTestApp(&stubService{err: tt.err}).Test(httptest.NewRequest("GET", "/v1/forecast", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var errResp models.ErrorResponse
			raw, _ := io.ReadAll(resp.Body)
			require.NoError(t, json.Unmarshal(raw, &errResp))
			assert.Equal(t, tt.err.(*services.ServiceError).Code, errResp.Error.Code)
		})
	}
}

func TestModel_NotFound(t *testing.T) {
	svc := &stubService{err: services.NewServiceError(services.CodeModelNotFound, "no model")}

	resp, err := newTestApp(svc).Test(httptest.NewRequest("GET", "/v1/model", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRetrain(t *testing.T) {
	svc := &stubService{info: &services.ModelInfo{Tier: forecast.TierReduced, N: 40}}

	resp, err := newTestApp(svc).Test(httptest.NewRequest("POST", "/v1/forecast/retrain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.retrain)

	var body map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, true, body["retrained"])
	assert.Equal(t, "reduced", body["model"].(map[string]interface{})["tier"])
}
