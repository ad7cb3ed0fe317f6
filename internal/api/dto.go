package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/query"
)

// maxQueryLength bounds natural-language requests.
const maxQueryLength = 500

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Query   string           `json:"query" example:"make card background blue" validate:"required"`
	Context *query.NLContext `json:"context,omitempty"`
}

// Validate validates the query request.
func (r QueryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required, validation.RuneLength(1, maxQueryLength)),
	)
}

// Property is a flattened schema property (aliased from the domain layer).
type Property = models.PropertyMetadata

// Visual is visual metadata (aliased from the domain layer).
type Visual = models.VisualMetadata

// SearchResponse wraps one page of property search results.
type SearchResponse = query.SearchResult

// QueryResponse answers a natural-language query.
type QueryResponse = query.NLResult

// ExamplesResponse wraps example values for a property.
type ExamplesResponse struct {
	Examples []any `json:"examples" validate:"required"`
}

// HealthResponse is returned by the health checks.
type HealthResponse struct {
	Status   string `json:"status" example:"ok" validate:"required"`
	Checksum string `json:"checksum,omitempty" example:"3f2a..."`
}
