// Package dto provides request and response types for the AgencyNet API.
// These types are used by huma to generate OpenAPI documentation and perform validation.
package dto

// ListResponse is a list response with its item count.
type ListResponse[T any] struct {
	Items []T `json:"items" doc:"List of items"`
	Total int `json:"total" doc:"Number of items returned"`
}

// NewListResponse builds a list response, never returning a null items array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// ListOutput wraps a list response for huma.
type ListOutput[T any] struct {
	Body ListResponse[T]
}

// AgencyParam is the path parameter for the acting agency.
type AgencyParam struct {
	AgencyID string `path:"agencyID" doc:"Agency identifier"`
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for huma.
type MessageOutput struct {
	Body MessageResponse
}
