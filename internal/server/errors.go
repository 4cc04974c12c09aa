// Package server provides the HTTP REST API for career role predictions.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/career-predictor/internal/classifier"
	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/db"
	"github.com/jonathan/career-predictor/internal/jobs"
	"github.com/jonathan/career-predictor/internal/replacement"
	"github.com/jonathan/career-predictor/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotConfigured indicates an optional backend is disabled.
type ErrNotConfigured struct {
	Feature string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation    *ErrValidation
		schemaInvalid *schemas.ValidationError
		rejected      *replacement.InputRejected
		partial       *replacement.PartialFailure
		fitErr        *classifier.FitError
		notConfigured *ErrNotConfigured
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &schemaInvalid), errors.As(err, &rejected):
		return http.StatusBadRequest
	case errors.As(err, &partial):
		return http.StatusInternalServerError
	case errors.As(err, &fitErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, db.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, dataset.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.As(err, &notConfigured), errors.Is(err, jobs.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
