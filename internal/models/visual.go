package models

// Complexity is the size tier of a visual.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// VisualMetadata describes one visual type discovered in the schema.
type VisualMetadata struct {
	Type          string                `json:"type"`
	PropertyCount int                   `json:"propertyCount"`
	Complexity    Complexity            `json:"complexity"`
	HasStates     bool                  `json:"hasStates"`
	Categories    map[Category][]string `json:"categories"`
}

// NamedCount pairs a property name with its occurrence count.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats is the aggregate snapshot summary.
type Stats struct {
	Checksum        string           `json:"checksum"`
	TotalProperties int              `json:"totalProperties"`
	TotalVisuals    int              `json:"totalVisuals"`
	MaxDepth        int              `json:"maxDepth"`
	StateProperties int              `json:"stateProperties"`
	CategoryCounts  map[Category]int `json:"categoryCounts"`
	TypeCounts      map[string]int   `json:"typeCounts"`
	TopProperties   []NamedCount     `json:"topProperties"`
}
