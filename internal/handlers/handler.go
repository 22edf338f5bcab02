// Package handlers implements the HTTP endpoints of the forecaster.
package handlers

import (
	"context"

	"github.com/lavapop/cashcast/internal/logging"
	"github.com/lavapop/cashcast/internal/services"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

// ForecastService is the business logic behind the forecast endpoints.
type ForecastService interface {
	GenerateForecast(ctx context.Context) (*services.ForecastResponse, error)
	Retrain(ctx context.Context) (*services.ModelInfo, error)
	CurrentModel(ctx context.Context) (*services.ModelInfo, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	forecast ForecastService
	checks   map[string]HealthCheck
}

// New creates a new handler instance. checks are run by the health
// endpoint, keyed by dependency name.
func New(logger *logging.Logger, forecast ForecastService, checks map[string]HealthCheck) *Handler {
	return &Handler{
		logger:   logger,
		forecast: forecast,
		checks:   checks,
	}
}
