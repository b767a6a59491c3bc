package dto

import (
	"errors"
	"net/http"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/application/service"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound          = "not_found"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeInternalError     = "internal_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeVehicleUnresolved = "vehicle_unresolved"
	ErrCodeConflict          = "conflict"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// ErrorFor maps an engine error to an HTTP status and response body.
// Unknown errors become a generic 500 so internals never leak.
func ErrorFor(err error) (int, APIError) {
	switch {
	case errors.Is(err, reconcile.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, NewAPIError(ErrCodeNotFound, err.Error())
	case errors.Is(err, reconcile.ErrInvalidRange):
		return http.StatusBadRequest, ValidationError(err.Error())
	case errors.Is(err, reconcile.ErrVehicleUnresolved):
		return http.StatusUnprocessableEntity, NewAPIError(ErrCodeVehicleUnresolved, err.Error())
	case errors.Is(err, service.ErrScanRunning),
		errors.Is(err, service.ErrJobFinished):
		return http.StatusConflict, NewAPIError(ErrCodeConflict, err.Error())
	default:
		return http.StatusInternalServerError, InternalError()
	}
}
