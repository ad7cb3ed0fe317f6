package index

import (
	"sort"

	"github.com/starford/themeschema/internal/models"
)

func buildStats(s *Schema, topN int) models.Stats {
	st := models.Stats{
		Checksum:        s.checksum,
		TotalProperties: len(s.props),
		TotalVisuals:    len(s.visuals),
		CategoryCounts:  make(map[models.Category]int),
		TypeCounts:      make(map[string]int),
		TopProperties:   []models.NamedCount{},
	}

	names := make(map[string]int)
	for _, p := range s.props {
		st.MaxDepth = max(st.MaxDepth, p.Depth)
		if p.IsStateEnabled {
			st.StateProperties++
		}
		st.CategoryCounts[p.Category]++
		for _, t := range p.Type {
			st.TypeCounts[t]++
		}
		names[p.Name] += max(1, len(p.Visuals))
	}

	for name, n := range names {
		st.TopProperties = append(st.TopProperties, models.NamedCount{Name: name, Count: n})
	}
	sort.Slice(st.TopProperties, func(i, j int) bool {
		a, b := st.TopProperties[i], st.TopProperties[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(st.TopProperties) > topN {
		st.TopProperties = st.TopProperties[:topN]
	}
	return st
}
