package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/http/response"
)

// EnvelopeVersion is the response envelope format version clients check.
const EnvelopeVersion = response.Version

// Envelope is the JSON shape of every API response, shared with non-huma handlers.
type Envelope = response.Envelope

// EnvelopeTransformer wraps handler output in an Envelope.
// Registered as a huma transformer so handlers return plain bodies.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return Envelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	if len(status) > 0 && status[0] >= '4' {
		// Errors huma produced before our handler ran (e.g. content negotiation).
		if model, ok := v.(*huma.ErrorModel); ok {
			return Envelope{
				Version: EnvelopeVersion,
				Success: false,
				Error:   model.Detail,
				Code:    response.CodeForStatus(model.Status),
				Message: model.Detail,
			}, nil
		}
	}

	return Envelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
