package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavapop/cashcast/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.DebugLevel).With("component", "trainer")

	logger.Info("Model trained", "tier", "full", "n", 76, "error", errors.New("boom"), "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Model trained", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "trainer", lines[0]["component"])
	assert.Equal(t, "full", lines[0]["tier"])
	assert.Equal(t, float64(76), lines[0]["n"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.NotContains(t, lines[0], "dangling")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.InfoLevel)

	ctx := WithRunID(WithRequestID(context.Background(), "req-1"), "run-9")
	ctx = WithLogger(ctx, logger)
	FromContext(ctx).WithContext(ctx).Info("Forecast completed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "run-9", lines[0]["run_id"])

	assert.Same(t, Global(), FromContext(context.Background()))
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestNewFromConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cashcast.log")
	logger, err := NewFromConfig(config.LoggingConfig{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	logger.Debug("written")
	assert.FileExists(t, path)
}

func TestFiberMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.InfoLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger, DefaultMiddlewareConfig()))
	app.Get("/v1/forecast", func(c *fiber.Ctx) error {
		assert.NotEmpty(t, RequestID(c.UserContext()))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/v1/forecast", nil)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err := app.Test(req, int(time.Second.Milliseconds()))
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1, "health is not logged")
	assert.Equal(t, "/v1/forecast", lines[0]["path"])
	assert.Equal(t, "abc", lines[0]["request_id"])
	assert.Equal(t, float64(200), lines[0]["status"])
}
