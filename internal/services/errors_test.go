package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    "TEST_ERROR",
		Message: "Test error message",
	}

	if err.Error() != "Test error message" {
		t.Errorf("Expected 'Test error message', got '%s'", err.Error())
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{"source": "revenue"}
	err := NewServiceErrorWithDetails(CodeUpstreamFetchFailed, "Failed", details)

	if err.Code != CodeUpstreamFetchFailed {
		t.Errorf("Expected code %s, got '%s'", CodeUpstreamFetchFailed, err.Code)
	}
	if err.Details["source"] != "revenue" {
		t.Errorf("Expected source 'revenue', got '%v'", err.Details["source"])
	}
	if NewServiceError("X", "y").Details != nil {
		t.Error("Expected nil details")
	}
}

func TestServiceError_JSON(t *testing.T) {
	err := upstreamError("weather", errors.New("connection refused"))

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatal(jerr)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["code"] != CodeUpstreamFetchFailed {
		t.Errorf("unexpected code %v", decoded["code"])
	}
	if _, ok := decoded["cause"]; ok {
		t.Error("cause must not be serialized")
	}
	details := decoded["details"].(map[string]interface{})
	if details["error"] != "connection refused" {
		t.Errorf("unexpected details %v", details)
	}
}

func TestTrainingError_InsufficientData(t *testing.T) {
	cause := fmt.Errorf("train: %w", &forecast.TrainingError{Kind: forecast.KindInsufficientSamples, Have: 9, Need: 14})
	err := trainingError(cause)

	if err.Code != CodeInsufficientData {
		t.Fatalf("Expected %s, got %s", CodeInsufficientData, err.Code)
	}
	if err.Details["minimum_required"] != 14 || err.Details["available"] != 9 || err.Details["shortfall"] != 5 {
		t.Errorf("unexpected details %v", err.Details)
	}
	if !errors.Is(err, forecast.ErrInsufficientSamples) {
		t.Error("expected the training error to unwrap")
	}
}

func TestTrainingError_Other(t *testing.T) {
	err := trainingError(errors.New("boom"))
	if err.Code != CodeTrainingFailed {
		t.Errorf("Expected %s, got %s", CodeTrainingFailed, err.Code)
	}
}
