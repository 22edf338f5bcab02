package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lavapop/cashcast/internal/models"
)

// Forecast returns the revenue forecast for the coming week.
// GET /v1/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	resp, err := h.forecast.GenerateForecast(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Retrain trains and stores a new model regardless of the cached one.
// POST /v1/forecast/retrain
func (h *Handler) Retrain(c *fiber.Ctx) error {
	info, err := h.forecast.Retrain(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(models.RetrainResponse{Retrained: true, Model: info})
}

// Model describes the stored model when it is fresh.
// GET /v1/model
func (h *Handler) Model(c *fiber.Ctx) error {
	info, err := h.forecast.CurrentModel(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(info)
}
