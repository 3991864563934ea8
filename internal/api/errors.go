package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/http/response"
	"github.com/agencynet/agencynet-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		// Domain errors carry their own status.
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}

			// Store errors that escaped a service still map to their HTTP code.
			var storeErr *store.Error
			if errors.As(err, &storeErr) {
				return &APIError{
					status:  storeErr.HTTPCode(),
					Code:    response.CodeForStatus(storeErr.HTTPCode()),
					Message: storeErr.Message,
				}
			}
		}

		// Huma's own request validation reports one error per field.
		if status == http.StatusUnprocessableEntity && len(errs) > 0 {
			return &APIError{
				status:  http.StatusBadRequest,
				Code:    string(domainerrors.CodeValidation),
				Message: message,
				Details: validationDetails(errs),
			}
		}

		if status >= http.StatusInternalServerError {
			// Never leak internals.
			message = "internal server error"
		}

		return &APIError{
			status:  status,
			Code:    response.CodeForStatus(status),
			Message: message,
		}
	}
}

// validationDetails turns huma's per-field errors into a field -> message map.
func validationDetails(errs []error) map[string]string {
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			details[detail.Location] = detail.Message
			continue
		}
		details[err.Error()] = "invalid"
	}
	return details
}

// apiError converts a service error into a huma.StatusError so the response
// status matches the domain code. Unexpected errors are logged and reported as 500.
func (s *Server) apiError(ctx context.Context, err error) error {
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}

	mapped := huma.NewError(http.StatusInternalServerError, "internal server error", err)
	if mapped.GetStatus() >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed",
			"request_id", getRequestID(ctx),
			"error", err,
		)
	}
	return mapped
}
