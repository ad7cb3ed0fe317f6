package query

import (
	"sort"
	"strings"

	"github.com/starford/themeschema/internal/models"
)

// RelatedProperties ranks every other property by weighted similarity to
// id and returns the best limit of them. Ties go to the lower id. An
// unknown id yields an empty result.
func (a *API) RelatedProperties(id string, limit int) []models.PropertyMetadata {
	s := a.schema()
	target, ok := s.Property(id)
	if !ok {
		return []models.PropertyMetadata{}
	}
	if limit <= 0 {
		limit = a.opts.RelatedLimit
	}
	limit = min(limit, a.opts.MaxLimit)

	type scored struct {
		p     models.PropertyMetadata
		score float64
	}
	ranked := make([]scored, 0, s.Len())
	for _, p := range s.Properties() {
		if p.ID == target.ID {
			continue
		}
		ranked = append(ranked, scored{p: p, score: a.relatedness(target, p)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].p.ID < ranked[j].p.ID
	})

	out := make([]models.PropertyMetadata, 0, min(limit, len(ranked)))
	for _, r := range ranked[:min(limit, len(ranked))] {
		out = append(out, r.p)
	}
	return out
}

// relatedness scores how close y is to x.
func (a *API) relatedness(x, y models.PropertyMetadata) float64 {
	w := a.opts.Weights
	var score float64

	if x.Category == y.Category {
		score += w.SameCategory
	}

	xs, ys := strings.Split(x.Path, "."), strings.Split(y.Path, ".")
	for i := 0; i < len(xs) && i < len(ys) && xs[i] == ys[i]; i++ {
		score += w.PathSegment
	}

	xt, yt := strings.ToLower(x.Title), strings.ToLower(y.Title)
	if xt != "" && yt != "" && (strings.Contains(xt, yt) || strings.Contains(yt, xt)) {
		score += w.TitleContains
	}

	for _, t := range x.Type {
		if y.HasType(t) {
			score += w.SameType
			break
		}
	}

	for _, v := range x.Visuals {
		if y.InVisual(v) {
			score += w.SharedVisual
		}
	}
	return score
}

// CommonProperties returns the properties present under every visual in
// visuals, sorted by title then path. An empty list or any unknown visual
// yields an empty result.
func (a *API) CommonProperties(visuals []string) []models.PropertyMetadata {
	visuals = sortedUnique(visuals)
	out := []models.PropertyMetadata{}
	if len(visuals) == 0 {
		return out
	}
	s := a.schema()
	for _, v := range visuals {
		if _, ok := s.Visual(v); !ok {
			return out
		}
	}

	for id := range s.ByVisual(visuals[0]) {
		p, _ := s.Property(id)
		inAll := true
		for _, v := range visuals[1:] {
			if !p.InVisual(v) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Path < out[j].Path
	})
	return out
}
