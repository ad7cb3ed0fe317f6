package index

import (
	"sort"
	"strings"
)

// Relationships holds structural links between properties.
type Relationships struct {
	// Common maps a visual to the ids it shares with at least one other visual.
	Common map[string][]string `json:"common"`
	// Parents maps a property id to the id of its nearest ancestor property.
	Parents map[string]string `json:"parents"`
	// Groups maps a parent id to its direct child ids.
	Groups map[string][]string `json:"groups"`
	// StateProperties lists state-enabled ids, sorted by path.
	StateProperties []string `json:"stateProperties"`
}

func buildRelationships(s *Schema) Relationships {
	rel := Relationships{
		Common:          make(map[string][]string),
		Parents:         make(map[string]string),
		Groups:          make(map[string][]string),
		StateProperties: []string{},
	}

	var state []int
	for i, p := range s.props {
		if len(p.Visuals) > 1 {
			for _, v := range p.Visuals {
				rel.Common[v] = append(rel.Common[v], p.ID)
			}
		}
		if parent, ok := s.parentOf(p.Path); ok {
			parentID := s.props[parent].ID
			rel.Parents[p.ID] = parentID
			rel.Groups[parentID] = append(rel.Groups[parentID], p.ID)
		}
		if p.IsStateEnabled {
			state = append(state, i)
		}
	}

	sort.Slice(state, func(a, b int) bool { return s.props[state[a]].Path < s.props[state[b]].Path })
	for _, i := range state {
		rel.StateProperties = append(rel.StateProperties, s.props[i].ID)
	}
	return rel
}

// parentOf returns the index of the closest property whose path is a
// proper prefix of path.
func (s *Schema) parentOf(path string) (int, bool) {
	for {
		cut := strings.LastIndexByte(path, '.')
		if cut < 0 {
			return 0, false
		}
		path = path[:cut]
		if i, ok := s.byPath[path]; ok {
			return i, true
		}
	}
}
