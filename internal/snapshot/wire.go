// Package snapshot defines the persisted wire format of a processed schema
// and a SQLite store for it. The format is plain arrays of records; the
// in-memory indexes are always rebuilt from them.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/starford/themeschema/internal/models"
)

// Version is the current wire format version.
const Version = 1

// ErrUnsupportedVersion is returned when decoding a document written by an
// incompatible version.
var ErrUnsupportedVersion = errors.New("snapshot: unsupported version")

// Document is a serialised processed schema.
type Document struct {
	Version     int              `json:"version"`
	Checksum    string           `json:"checksum"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Properties  []PropertyRecord `json:"properties"`
}

// PropertyRecord is the flat persisted form of a models.PropertyMetadata.
type PropertyRecord struct {
	ID             string   `json:"id"`
	Path           string   `json:"path"`
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Type           []string `json:"type"`
	Category       string   `json:"category"`
	Visuals        []string `json:"visuals"`
	Depth          int      `json:"depth"`
	IsStateEnabled bool     `json:"isStateEnabled,omitempty"`
	Minimum        *float64 `json:"minimum,omitempty"`
	Maximum        *float64 `json:"maximum,omitempty"`
	Enum           []any    `json:"enum,omitempty"`
}

// FromProperties builds a document preserving the order of props.
func FromProperties(checksum string, props []models.PropertyMetadata, at time.Time) *Document {
	doc := &Document{
		Version:     Version,
		Checksum:    checksum,
		GeneratedAt: at.UTC(),
		Properties:  make([]PropertyRecord, 0, len(props)),
	}
	for _, p := range props {
		rec := PropertyRecord{
			ID:             p.ID,
			Path:           p.Path,
			Name:           p.Name,
			Title:          p.Title,
			Description:    p.Description,
			Type:           p.Type,
			Category:       string(p.Category),
			Visuals:        p.Visuals,
			Depth:          p.Depth,
			IsStateEnabled: p.IsStateEnabled,
		}
		if c := p.Constraints; !c.Empty() {
			rec.Minimum, rec.Maximum, rec.Enum = c.Minimum, c.Maximum, c.Enum
		}
		doc.Properties = append(doc.Properties, rec)
	}
	return doc
}

// ToProperties converts the records back into property metadata.
func (d *Document) ToProperties() []models.PropertyMetadata {
	out := make([]models.PropertyMetadata, 0, len(d.Properties))
	for _, r := range d.Properties {
		p := models.PropertyMetadata{
			ID:             r.ID,
			Path:           r.Path,
			Name:           r.Name,
			Title:          r.Title,
			Description:    r.Description,
			Type:           nonNil(r.Type),
			Category:       models.Category(r.Category),
			Visuals:        nonNil(r.Visuals),
			Depth:          r.Depth,
			IsStateEnabled: r.IsStateEnabled,
		}
		c := &models.Constraints{Minimum: r.Minimum, Maximum: r.Maximum, Enum: r.Enum}
		if !c.Empty() {
			p.Constraints = c
		}
		out = append(out, p)
	}
	return out
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Decode reads a document and rejects unknown versions.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
