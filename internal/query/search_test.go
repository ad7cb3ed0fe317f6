package query

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/querycache"
	"github.com/starford/themeschema/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestSearch_NoFiltersSortedByPath(t *testing.T) {
	api := cardAPI(t)

	res := api.SearchProperties(context.Background(), PropertyQuery{})
	assert.Equal(t, 14, res.Total)
	require.Len(t, res.Results, 14)
	got := paths(res.Results)
	assert.True(t, sort.StringsAreSorted(got))
	assert.Equal(t, 100, res.Query.Limit)
}

func TestSearch_Filters(t *testing.T) {
	api := cardAPI(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query PropertyQuery
		want  int
	}{
		{"type", PropertyQuery{Types: []string{"boolean"}}, 4},
		{"types are or-ed", PropertyQuery{Types: []string{"boolean", "array"}}, 6},
		{"category", PropertyQuery{Categories: []models.Category{models.CategoryColor}}, 4},
		{"visual", PropertyQuery{Visuals: []string{"slicer"}}, 3},
		{"visual and category", PropertyQuery{Visuals: []string{"slicer"}, Categories: []models.Category{models.CategoryColor}}, 2},
		{"states", PropertyQuery{HasStates: ptr(true)}, 1},
		{"no states", PropertyQuery{HasStates: ptr(false)}, 13},
		{"max depth", PropertyQuery{MaxDepth: ptr(2)}, 4},
		{"root only", PropertyQuery{MaxDepth: ptr(0)}, 1},
		{"unknown visual", PropertyQuery{Visuals: []string{"gauge"}}, 0},
		{"unknown type", PropertyQuery{Types: []string{"null"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := api.SearchProperties(ctx, tt.query)
			assert.Equal(t, tt.want, res.Total)
			assert.Len(t, res.Results, tt.want)
		})
	}
}

func TestSearch_TextIsTypoTolerant(t *testing.T) {
	api := fixtureAPI(t)

	res := api.SearchProperties(context.Background(), PropertyQuery{Text: "colr"})
	require.NotZero(t, res.Total)
	assert.Contains(t, paths(res.Results), "visualStyles.*.background.color.solid.color")
	assert.Contains(t, res.Results[0].Title, "olor")

	none := api.SearchProperties(context.Background(), PropertyQuery{Text: "qqqqqqqq"})
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Results)
}

func TestSearch_Monotonicity(t *testing.T) {
	api := fixtureAPI(t)
	ctx := context.Background()

	bases := []PropertyQuery{
		{},
		{Text: "font"},
		{Types: []string{"string"}},
		{Visuals: []string{"card"}},
	}
	extras := []func(*PropertyQuery){
		func(q *PropertyQuery) { q.Categories = []models.Category{models.CategoryColor} },
		func(q *PropertyQuery) { q.Visuals = []string{"slicer"} },
		func(q *PropertyQuery) { q.Types = []string{"number"} },
		func(q *PropertyQuery) { q.HasStates = ptr(false) },
		func(q *PropertyQuery) { q.MaxDepth = ptr(3) },
		func(q *PropertyQuery) { q.Text = "size" },
	}
	for _, base := range bases {
		before := api.SearchProperties(ctx, base).Total
		for i, extra := range extras {
			q := base
			// only add dimensions the base leaves open
			if (i == 1 && len(q.Visuals) > 0) || (i == 2 && len(q.Types) > 0) || (i == 5 && q.Text != "") {
				continue
			}
			extra(&q)
			after := api.SearchProperties(ctx, q).Total
			assert.LessOrEqual(t, after, before, "base %+v extra %d", base, i)
		}
	}
}

func TestSearch_Pagination(t *testing.T) {
	api := fixtureAPI(t)
	ctx := context.Background()

	for _, q := range []PropertyQuery{{}, {Text: "show color"}} {
		full := api.SearchProperties(ctx, q)
		require.Greater(t, full.Total, 5)

		var pages []models.PropertyMetadata
		for offset := 0; offset < full.Total; offset += 4 {
			q.Limit, q.Offset = 4, offset
			page := api.SearchProperties(ctx, q)
			assert.LessOrEqual(t, len(page.Results), 4)
			assert.Equal(t, full.Total, page.Total)
			pages = append(pages, page.Results...)
		}
		assert.Equal(t, paths(full.Results), paths(pages))

		q.Offset = full.Total + 10
		assert.Empty(t, api.SearchProperties(ctx, q).Results)
	}
}

func TestNormalize(t *testing.T) {
	api := cardAPI(t)

	q := api.Normalize(PropertyQuery{
		Text:    "  color ",
		Types:   []string{"string", "boolean", "string", " "},
		Visuals: []string{"slicer", "card"},
		Limit:   5000,
		Offset:  -3,
	})
	assert.Equal(t, "color", q.Text)
	assert.Equal(t, []string{"boolean", "string"}, q.Types)
	assert.Equal(t, []string{"card", "slicer"}, q.Visuals)
	assert.Equal(t, 1000, q.Limit)
	assert.Equal(t, 0, q.Offset)

	assert.Equal(t, 100, api.Normalize(PropertyQuery{}).Limit)
}

func TestSearch_CacheHitsAndKeys(t *testing.T) {
	rec := &countingRecorder{}
	cache := querycache.NewLRU(100, time.Minute)
	holder := index.NewHolder(index.Build(testutil.CardProperties(), index.Options{Checksum: "v1"}))
	api := New(holder, cache, WithRecorder(rec), WithLogger(quietLogger()))
	ctx := context.Background()

	first := api.SearchProperties(ctx, PropertyQuery{Types: []string{"string", "boolean"}})
	second := api.SearchProperties(ctx, PropertyQuery{Types: []string{"boolean", "string", "boolean"}})
	assert.Equal(t, int32(1), rec.misses.Load())
	assert.Equal(t, int32(1), rec.hits.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Len())

	// a new snapshot never reuses entries keyed by the old checksum
	holder.Swap(index.Build(testutil.CardProperties()[:3], index.Options{Checksum: "v2"}))
	third := api.SearchProperties(ctx, PropertyQuery{Types: []string{"string", "boolean"}})
	assert.Equal(t, int32(2), rec.misses.Load())
	assert.Equal(t, 1, third.Total)
}

func TestSearch_CacheDoesNotChangeResults(t *testing.T) {
	h := fixtureHolder(t)
	cached := New(h, querycache.NewLRU(100, time.Minute), WithLogger(quietLogger()))
	plain := New(h, querycache.Noop{}, WithLogger(quietLogger()))
	ctx := context.Background()

	for _, q := range []PropertyQuery{
		{},
		{Text: "font size"},
		{Categories: []models.Category{models.CategoryColor}, Limit: 3, Offset: 2},
		{Visuals: []string{"slicer"}, HasStates: ptr(false)},
	} {
		for i := 0; i < 2; i++ {
			assert.Equal(t, paths(plain.SearchProperties(ctx, q).Results), paths(cached.SearchProperties(ctx, q).Results))
		}
	}
}
