package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/querycache"
)

// PropertyQuery filters properties. Non-empty dimensions combine with AND;
// values inside one dimension combine with OR.
type PropertyQuery struct {
	Text       string            `json:"text,omitempty"`
	Types      []string          `json:"types,omitempty"`
	Categories []models.Category `json:"categories,omitempty"`
	Visuals    []string          `json:"visuals,omitempty"`
	HasStates  *bool             `json:"hasStates,omitempty"`
	MaxDepth   *int              `json:"maxDepth,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

// SearchResult is one page of matching properties.
type SearchResult struct {
	Results []models.PropertyMetadata `json:"results"`
	Total   int                       `json:"total"`
	Query   PropertyQuery             `json:"query"`
}

type cachedPage struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

// Normalize returns q with trimmed text, sorted and deduplicated filter
// lists and a clamped page window. Equal queries normalise identically.
func (a *API) Normalize(q PropertyQuery) PropertyQuery {
	q.Text = strings.TrimSpace(q.Text)
	q.Types = sortedUnique(q.Types)
	q.Categories = sortedUnique(q.Categories)
	q.Visuals = sortedUnique(q.Visuals)
	switch {
	case q.Limit <= 0:
		q.Limit = a.opts.DefaultLimit
	case q.Limit > a.opts.MaxLimit:
		q.Limit = a.opts.MaxLimit
	}
	q.Offset = max(q.Offset, 0)
	return q
}

// SearchProperties returns the page of properties matching q. With text,
// results are ordered by fuzzy score then path; otherwise by path. Total
// counts all matches before paging.
func (a *API) SearchProperties(ctx context.Context, q PropertyQuery) SearchResult {
	q = a.Normalize(q)
	s := a.schema()

	key := searchKey(s.Checksum(), q)
	if data, err := a.cache.Get(ctx, key); err == nil {
		var page cachedPage
		if json.Unmarshal(data, &page) == nil {
			a.observe(true)
			return SearchResult{Results: a.resolve(s, page.IDs), Total: page.Total, Query: q}
		}
	} else if !querycache.IsCacheMiss(err) {
		a.logger.Warn("query: cache get failed", slog.String("error", err.Error()))
	}
	a.observe(false)

	matches := a.match(s, q, true)
	total := len(matches)
	page := paginate(matches, q.Offset, q.Limit)

	ids := make([]string, len(page))
	for i, p := range page {
		ids[i] = p.ID
	}
	if data, err := json.Marshal(cachedPage{IDs: ids, Total: total}); err == nil {
		if err := a.cache.Set(ctx, key, data, a.opts.CacheTTL); err != nil {
			a.logger.Warn("query: cache set failed", slog.String("error", err.Error()))
		}
	}
	return SearchResult{Results: page, Total: total, Query: q}
}

func (a *API) observe(hit bool) {
	if a.rec != nil {
		a.rec.ObserveSearch(hit)
	}
}

// match returns every property satisfying q in result order. When
// textFilters is false the text only ranks and never excludes.
func (a *API) match(s *index.Schema, q PropertyQuery, textFilters bool) []models.PropertyMetadata {
	candidates := candidateSet(s, q)

	var scores map[string]float64
	hasText := len(index.QueryTokens(q.Text)) > 0
	if hasText {
		scores = s.Fuzzy().Search(q.Text)
	}

	var out []models.PropertyMetadata
	for _, p := range s.Properties() {
		if candidates != nil && !candidates.Has(p.ID) {
			continue
		}
		if q.HasStates != nil && p.IsStateEnabled != *q.HasStates {
			continue
		}
		if q.MaxDepth != nil && p.Depth > *q.MaxDepth {
			continue
		}
		if hasText && textFilters {
			if _, ok := scores[p.ID]; !ok {
				continue
			}
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if hasText {
			si, sj := scores[out[i].ID], scores[out[j].ID]
			if si != sj {
				return si > sj
			}
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// candidateSet intersects the reverse-index lookups of each non-empty
// dimension. A nil result means no dimension restricts the search.
func candidateSet(s *index.Schema, q PropertyQuery) index.IDSet {
	var dims []index.IDSet
	if len(q.Types) > 0 {
		dims = append(dims, union(q.Types, s.ByType))
	}
	if len(q.Categories) > 0 {
		dims = append(dims, union(q.Categories, s.ByCategory))
	}
	if len(q.Visuals) > 0 {
		dims = append(dims, union(q.Visuals, s.ByVisual))
	}
	if len(dims) == 0 {
		return nil
	}

	sort.Slice(dims, func(i, j int) bool { return len(dims[i]) < len(dims[j]) })
	out := make(index.IDSet, len(dims[0]))
	for id := range dims[0] {
		keep := true
		for _, d := range dims[1:] {
			if !d.Has(id) {
				keep = false
				break
			}
		}
		if keep {
			out[id] = struct{}{}
		}
	}
	return out
}

func union[K comparable](keys []K, lookup func(K) index.IDSet) index.IDSet {
	out := make(index.IDSet)
	for _, k := range keys {
		for id := range lookup(k) {
			out[id] = struct{}{}
		}
	}
	return out
}

func paginate(props []models.PropertyMetadata, offset, limit int) []models.PropertyMetadata {
	if offset >= len(props) {
		return []models.PropertyMetadata{}
	}
	end := min(offset+limit, len(props))
	return props[offset:end]
}

// searchKey content-addresses a normalised query within one snapshot.
func searchKey(snapshot string, q PropertyQuery) string {
	data, _ := json.Marshal(q)
	return "search:" + snapshot + ":" + checksum.Sum(data)
}

func sortedUnique[T ~string](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, 0, len(in))
	for _, v := range in {
		v = T(strings.TrimSpace(string(v)))
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
