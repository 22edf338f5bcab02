// Package services holds the forecast business logic between the HTTP
// handlers and the engine, stores and model cache.
package services

import (
	"errors"

	"github.com/lavapop/cashcast/internal/analytics/forecast"
)

// Service error codes.
const (
	CodeUpstreamFetchFailed = "UPSTREAM_FETCH_FAILED"
	CodeInsufficientData    = "INSUFFICIENT_DATA"
	CodeModelNotFound       = "MODEL_NOT_FOUND"
	CodeTrainingFailed      = "TRAINING_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	e := NewServiceError(code, message)
	e.Details = details
	return e
}

// withCause records err as the error returned by Unwrap.
func (e *ServiceError) withCause(err error) *ServiceError {
	e.cause = err
	return e
}

func upstreamError(source string, err error) *ServiceError {
	return NewServiceErrorWithDetails(CodeUpstreamFetchFailed, "Failed to fetch "+source,
		map[string]interface{}{"source": source, "error": err.Error()}).withCause(err)
}

// trainingError maps a training failure. Insufficient samples is the only
// expected one; anything else is a training failure.
func trainingError(err error) *ServiceError {
	var te *forecast.TrainingError
	if errors.As(err, &te) && te.Kind == forecast.KindInsufficientSamples {
		return NewServiceErrorWithDetails(CodeInsufficientData, "Not enough usable history to forecast",
			map[string]interface{}{
				"minimum_required": te.Need,
				"available":        te.Have,
				"shortfall":        te.Shortfall(),
			}).withCause(err)
	}
	return NewServiceErrorWithDetails(CodeTrainingFailed, "Model training failed",
		map[string]interface{}{"error": err.Error()}).withCause(err)
}
