// Package index builds the immutable, queryable view of a flattened theme
// schema: properties by id and path, visuals, reverse indexes, a fuzzy text
// index, relationships and aggregate stats.
package index

import (
	"sort"
	"strings"

	"github.com/starford/themeschema/internal/models"
)

// Default build options.
const (
	DefaultFuzzyThreshold   = 0.7
	DefaultTopProperties    = 10
	DefaultMediumComplexity = 25
	DefaultHighComplexity   = 75
)

// Options tunes Build.
type Options struct {
	// Checksum identifies the source the properties were flattened from.
	Checksum       string
	FuzzyThreshold float64
	TopProperties  int
	// MediumComplexity and HighComplexity are the property-count lower
	// bounds of the medium and high visual tiers.
	MediumComplexity int
	HighComplexity   int
}

func (o *Options) defaults() {
	if o.FuzzyThreshold <= 0 || o.FuzzyThreshold > 1 {
		o.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if o.TopProperties <= 0 {
		o.TopProperties = DefaultTopProperties
	}
	if o.MediumComplexity <= 0 {
		o.MediumComplexity = DefaultMediumComplexity
	}
	if o.HighComplexity <= o.MediumComplexity {
		o.HighComplexity = max(DefaultHighComplexity, o.MediumComplexity+1)
	}
}

// IDSet is a read-only set of property ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Schema is one processed snapshot. It is never mutated after Build returns
// and is safe for concurrent readers.
type Schema struct {
	checksum string

	props  []models.PropertyMetadata // ingestion order
	byID   map[string]int
	byPath map[string]int

	visuals     map[string]*models.VisualMetadata
	visualTypes []string

	byTitleToken map[string]IDSet
	byType       map[string]IDSet
	byCategory   map[models.Category]IDSet
	byVisual     map[string]IDSet

	fuzzy *FuzzyIndex
	rel   Relationships
	stats models.Stats
}

// Build indexes props. Properties with a duplicate id are dropped, keeping
// the first occurrence.
func Build(props []models.PropertyMetadata, opts Options) *Schema {
	opts.defaults()

	s := &Schema{
		checksum:     opts.Checksum,
		props:        make([]models.PropertyMetadata, 0, len(props)),
		byID:         make(map[string]int, len(props)),
		byPath:       make(map[string]int, len(props)),
		visuals:      make(map[string]*models.VisualMetadata),
		byTitleToken: make(map[string]IDSet),
		byType:       make(map[string]IDSet),
		byCategory:   make(map[models.Category]IDSet),
		byVisual:     make(map[string]IDSet),
		fuzzy:        NewFuzzyIndex(opts.FuzzyThreshold),
	}

	for _, p := range props {
		if _, dup := s.byID[p.ID]; dup {
			continue
		}
		i := len(s.props)
		s.props = append(s.props, p)
		s.byID[p.ID] = i
		s.byPath[p.Path] = i

		for _, tok := range Tokenize(p.Title) {
			addID(s.byTitleToken, tok, p.ID)
		}
		for _, t := range p.Type {
			addID(s.byType, t, p.ID)
		}
		addID(s.byCategory, p.Category, p.ID)
		for _, v := range p.Visuals {
			addID(s.byVisual, v, p.ID)
			s.addToVisual(v, &p)
		}
		s.fuzzy.Add(p.ID, p.Title, p.Description, p.Path)
	}

	for t, v := range s.visuals {
		v.Complexity = complexityOf(v.PropertyCount, opts)
		s.visualTypes = append(s.visualTypes, t)
	}
	sort.Strings(s.visualTypes)

	s.rel = buildRelationships(s)
	s.stats = buildStats(s, opts.TopProperties)
	return s
}

func (s *Schema) addToVisual(visual string, p *models.PropertyMetadata) {
	v, ok := s.visuals[visual]
	if !ok {
		v = &models.VisualMetadata{
			Type:       visual,
			Categories: make(map[models.Category][]string),
		}
		s.visuals[visual] = v
	}
	v.PropertyCount++
	v.HasStates = v.HasStates || p.IsStateEnabled
	v.Categories[p.Category] = append(v.Categories[p.Category], p.ID)
}

func complexityOf(count int, opts Options) models.Complexity {
	switch {
	case count >= opts.HighComplexity:
		return models.ComplexityHigh
	case count >= opts.MediumComplexity:
		return models.ComplexityMedium
	default:
		return models.ComplexityLow
	}
}

func addID[K comparable](m map[K]IDSet, key K, id string) {
	set, ok := m[key]
	if !ok {
		set = make(IDSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

// Checksum identifies the schema source this snapshot was built from.
func (s *Schema) Checksum() string { return s.checksum }

// Len returns the number of properties.
func (s *Schema) Len() int { return len(s.props) }

// Property returns the property with the given id.
func (s *Schema) Property(id string) (models.PropertyMetadata, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.PropertyMetadata{}, false
	}
	return s.props[i], true
}

// PropertyByPath looks up a property by its canonical path. The concrete
// per-visual form "visualStyles.<visual>.<rest>" is also accepted and
// matches only when the property belongs to that visual.
func (s *Schema) PropertyByPath(path string) (models.PropertyMetadata, bool) {
	if i, ok := s.byPath[path]; ok {
		return s.props[i], true
	}
	const prefix = "visualStyles."
	if !strings.HasPrefix(path, prefix) {
		return models.PropertyMetadata{}, false
	}
	visual, rest, ok := strings.Cut(path[len(prefix):], ".")
	if !ok || visual == "*" {
		return models.PropertyMetadata{}, false
	}
	i, ok := s.byPath[prefix+"*."+rest]
	if !ok || !s.props[i].InVisual(visual) {
		return models.PropertyMetadata{}, false
	}
	return s.props[i], true
}

// Properties returns every property in ingestion order. The slice must not
// be modified.
func (s *Schema) Properties() []models.PropertyMetadata { return s.props }

// Visual returns metadata for a visual type.
func (s *Schema) Visual(visualType string) (models.VisualMetadata, bool) {
	v, ok := s.visuals[visualType]
	if !ok {
		return models.VisualMetadata{}, false
	}
	return *v, true
}

// VisualTypes returns every known visual type, sorted.
func (s *Schema) VisualTypes() []string { return s.visualTypes }

// Visuals returns metadata for every visual, sorted by type.
func (s *Schema) Visuals() []models.VisualMetadata {
	out := make([]models.VisualMetadata, 0, len(s.visualTypes))
	for _, t := range s.visualTypes {
		out = append(out, *s.visuals[t])
	}
	return out
}

// ByTitleToken returns ids whose title contains the lower-cased token.
func (s *Schema) ByTitleToken(token string) IDSet { return s.byTitleToken[strings.ToLower(token)] }

// ByType returns ids whose type set contains t.
func (s *Schema) ByType(t string) IDSet { return s.byType[t] }

// ByCategory returns ids in category c.
func (s *Schema) ByCategory(c models.Category) IDSet { return s.byCategory[c] }

// ByVisual returns ids that appear under visual.
func (s *Schema) ByVisual(visual string) IDSet { return s.byVisual[visual] }

// Fuzzy returns the text index.
func (s *Schema) Fuzzy() *FuzzyIndex { return s.fuzzy }

// Relationships returns the derived relationship tables. They must not be
// modified.
func (s *Schema) Relationships() Relationships { return s.rel }

// Stats returns the aggregate statistics.
func (s *Schema) Stats() models.Stats { return s.stats }
