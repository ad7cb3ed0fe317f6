package query

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// cardAPI serves the hand-built card/slicer property set.
func cardAPI(t *testing.T, opts ...Option) *API {
	t.Helper()
	h := index.NewHolder(index.Build(testutil.CardProperties(), index.Options{Checksum: "card"}))
	return New(h, nil, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// fixtureHolder ingests the fixture schema from disk.
func fixtureHolder(t *testing.T) *index.Holder {
	t.Helper()
	_, store := testutil.TestSchemaDir(t)
	l := index.NewLoader(store, nil, index.LoaderConfig{
		File:        testutil.RootFile,
		Definitions: testutil.DefinitionsDir,
	}, quietLogger())
	s, err := l.Load(context.Background())
	require.NoError(t, err)
	return index.NewHolder(s)
}

func fixtureAPI(t *testing.T, opts ...Option) *API {
	t.Helper()
	return New(fixtureHolder(t), nil, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func paths(props []models.PropertyMetadata) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Path
	}
	return out
}

type countingRecorder struct {
	hits, misses atomic.Int32
}

func (r *countingRecorder) ObserveSearch(hit bool) {
	if hit {
		r.hits.Add(1)
	} else {
		r.misses.Add(1)
	}
}

func TestPropertyLookups(t *testing.T) {
	api := cardAPI(t)

	p, ok := api.PropertyByID(checksum.ID("visualStyles.*.fill"))
	require.True(t, ok)
	assert.Equal(t, "visualStyles.*.fill", p.Path)

	_, ok = api.PropertyByID("0000000000000000")
	assert.False(t, ok)

	p, ok = api.PropertyByPath("visualStyles.card.labels.italic")
	require.True(t, ok)
	assert.Equal(t, models.CategoryTypography, p.Category)

	_, ok = api.PropertyByPath("visualStyles.gauge.labels.italic")
	assert.False(t, ok)
}

func TestEmptySource(t *testing.T) {
	api := New(&index.Holder{}, nil)

	assert.False(t, api.Ready())
	assert.Equal(t, "", api.Checksum())
	assert.Zero(t, api.SearchProperties(context.Background(), PropertyQuery{}).Total)
	assert.Empty(t, api.SearchVisuals(VisualQuery{}))
	assert.Zero(t, api.Stats().TotalProperties)
	res := api.NaturalLanguage(context.Background(), NLQuery{Query: "card color"})
	assert.Zero(t, res.Confidence)
}

func TestStats(t *testing.T) {
	api := cardAPI(t)
	assert.True(t, api.Ready())

	st := api.Stats()
	assert.Equal(t, "card", st.Checksum)
	assert.Equal(t, 14, st.TotalProperties)
	assert.Equal(t, 2, st.TotalVisuals)
	assert.Equal(t, []string{checksum.ID("visualStyles.*.fill")}, api.Relationships().StateProperties)
}
