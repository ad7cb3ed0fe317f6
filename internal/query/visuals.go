package query

import (
	"github.com/starford/themeschema/internal/models"
)

// VisualQuery filters visuals. Zero values do not filter.
type VisualQuery struct {
	Complexity    models.Complexity `json:"complexity,omitempty"`
	HasStates     *bool             `json:"hasStates,omitempty"`
	MinProperties *int              `json:"minProperties,omitempty"`
	MaxProperties *int              `json:"maxProperties,omitempty"`
}

// VisualStructure is a visual with its properties grouped by category.
type VisualStructure struct {
	Visual     models.VisualMetadata                        `json:"visual"`
	Properties map[models.Category][]models.PropertyMetadata `json:"properties"`
}

// ParseComplexity matches a complexity tier name.
func ParseComplexity(s string) (models.Complexity, bool) {
	switch c := models.Complexity(s); c {
	case models.ComplexityLow, models.ComplexityMedium, models.ComplexityHigh:
		return c, true
	}
	return "", false
}

// Visual returns metadata for a visual type.
func (a *API) Visual(visualType string) (models.VisualMetadata, bool) {
	return a.schema().Visual(visualType)
}

// SearchVisuals returns visuals matching q, sorted by type.
func (a *API) SearchVisuals(q VisualQuery) []models.VisualMetadata {
	out := []models.VisualMetadata{}
	for _, v := range a.schema().Visuals() {
		if q.Complexity != "" && v.Complexity != q.Complexity {
			continue
		}
		if q.HasStates != nil && v.HasStates != *q.HasStates {
			continue
		}
		if q.MinProperties != nil && v.PropertyCount < *q.MinProperties {
			continue
		}
		if q.MaxProperties != nil && v.PropertyCount > *q.MaxProperties {
			continue
		}
		out = append(out, v)
	}
	return out
}

// VisualStructure returns the visual's metadata and its properties grouped
// by category, each group in ingestion order.
func (a *API) VisualStructure(visualType string) (*VisualStructure, bool) {
	s := a.schema()
	v, ok := s.Visual(visualType)
	if !ok {
		return nil, false
	}
	out := &VisualStructure{
		Visual:     v,
		Properties: make(map[models.Category][]models.PropertyMetadata, len(v.Categories)),
	}
	for cat, ids := range v.Categories {
		out.Properties[cat] = a.resolve(s, ids)
	}
	return out, true
}
