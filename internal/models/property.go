// Package models defines the domain types for the theme schema index.
package models

import (
	"strings"
	"time"
)

// Category is the semantic bucket a property falls into.
type Category string

const (
	CategoryColor       Category = "Color"
	CategoryTypography  Category = "Typography"
	CategorySpacing     Category = "Spacing"
	CategoryBorder      Category = "Border"
	CategoryLayout      Category = "Layout"
	CategoryData        Category = "Data"
	CategoryInteraction Category = "Interaction"
	CategoryVisual      Category = "Visual"
	CategoryEffect      Category = "Effect"
	CategoryOther       Category = "Other"
)

// Categories lists every category in classification priority order.
var Categories = []Category{
	CategoryColor,
	CategoryTypography,
	CategorySpacing,
	CategoryBorder,
	CategoryLayout,
	CategoryData,
	CategoryInteraction,
	CategoryVisual,
	CategoryEffect,
	CategoryOther,
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Constraints holds the optional numeric bounds or enumeration of a property.
type Constraints struct {
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Enum    []any    `json:"enum,omitempty"`
}

// Empty reports whether no constraint is set.
func (c *Constraints) Empty() bool {
	return c == nil || (c.Minimum == nil && c.Maximum == nil && len(c.Enum) == 0)
}

// PropertyMetadata is one flattened schema property. Values are immutable
// once ingestion publishes them.
type PropertyMetadata struct {
	ID             string       `json:"id"`
	Path           string       `json:"path"`
	Name           string       `json:"name"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Type           []string     `json:"type"`
	Category       Category     `json:"category"`
	Visuals        []string     `json:"visuals"`
	Depth          int          `json:"depth"`
	IsStateEnabled bool         `json:"isStateEnabled"`
	Constraints    *Constraints `json:"constraints,omitempty"`
}

// HasType reports whether t is one of the property's JSON types.
func (p *PropertyMetadata) HasType(t string) bool {
	for _, pt := range p.Type {
		if pt == t {
			return true
		}
	}
	return false
}

// InVisual reports whether the property appears under visual.
func (p *PropertyMetadata) InVisual(visual string) bool {
	for _, v := range p.Visuals {
		if v == visual {
			return true
		}
	}
	return false
}

// FileMetadata describes one schema source file on disk.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
