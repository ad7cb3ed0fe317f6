package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/observability"
	"github.com/starford/themeschema/internal/query"
	"github.com/starford/themeschema/internal/testutil"
)

// testEnv serves the card fixture and returns the holder so tests can
// publish new snapshots.
func testEnv(t *testing.T) (*index.Holder, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := index.NewHolder(index.Build(testutil.CardProperties(), index.Options{Checksum: "card"}))
	api := query.New(h, nil, query.WithLogger(logger))
	return h, NewRouter(Deps{API: api, Logger: logger})
}

func do(t *testing.T, router http.Handler, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, router, http.MethodGet, target, nil, nil)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	_, router := testEnv(t)

	for _, path := range []string{"/health", "/health/live"} {
		assert.Equal(t, http.StatusOK, get(t, router, path).Code, path)
	}

	w := get(t, router, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	var hr HealthResponse
	decodeBody(t, w, &hr)
	assert.Equal(t, "card", hr.Checksum)
}

func TestReadyBeforeFirstSnapshot(t *testing.T) {
	router := NewRouter(Deps{API: query.New(&index.Holder{}, nil)})

	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/health/live").Code)
}

func TestSearchProperties(t *testing.T) {
	_, router := testEnv(t)

	tests := []struct {
		target    string
		wantTotal int
		wantPage  int
	}{
		{"/api/properties", 14, 14},
		{"/api/properties?category=Color", 4, 4},
		{"/api/properties?category=color,border", 6, 6},
		{"/api/properties?category=Color&category=Border", 6, 6},
		{"/api/properties?visual=slicer&limit=2", 3, 2},
		{"/api/properties?type=boolean", 4, 4},
		{"/api/properties?hasStates=true", 1, 1},
		{"/api/properties?maxDepth=1", 1, 1},
		{"/api/properties?offset=12", 14, 2},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := get(t, router, tt.target)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var res SearchResponse
			decodeBody(t, w, &res)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Len(t, res.Results, tt.wantPage)
		})
	}
}

func TestSearchPropertiesValidation(t *testing.T) {
	_, router := testEnv(t)

	for _, target := range []string{
		"/api/properties?limit=-1",
		"/api/properties?limit=abc",
		"/api/properties?limit=5000",
		"/api/properties?offset=-3",
		"/api/properties?maxDepth=-1",
		"/api/properties?hasStates=maybe",
		"/api/properties?category=Sparkle",
	} {
		t.Run(target, func(t *testing.T) {
			w := get(t, router, target)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var e errResponse
			decodeBody(t, w, &e)
			assert.NotEmpty(t, e.Error)
			assert.Equal(t, http.StatusBadRequest, e.Status)
		})
	}
}

func TestGetProperty(t *testing.T) {
	_, router := testEnv(t)

	w := get(t, router, "/api/properties/"+checksum.ID("visualStyles.*.fill"))
	require.Equal(t, http.StatusOK, w.Code)
	var p Property
	decodeBody(t, w, &p)
	assert.Equal(t, "visualStyles.*.fill", p.Path)
	assert.True(t, p.IsStateEnabled)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/properties/0000000000000000").Code)
}

func TestPropertyByPath(t *testing.T) {
	_, router := testEnv(t)

	w := get(t, router, "/api/properties/by-path?path=visualStyles.card.labels.fontSize")
	require.Equal(t, http.StatusOK, w.Code)
	var p Property
	decodeBody(t, w, &p)
	assert.Equal(t, "visualStyles.*.labels.fontSize", p.Path)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/properties/by-path").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/properties/by-path?path=visualStyles.card.nope").Code)
}

func TestRelatedProperties(t *testing.T) {
	_, router := testEnv(t)
	id := checksum.ID("visualStyles.*.fill.color")

	w := get(t, router, "/api/properties/"+id+"/related?limit=3")
	require.Equal(t, http.StatusOK, w.Code)
	var related []Property
	decodeBody(t, w, &related)
	require.Len(t, related, 3)
	assert.Equal(t, "visualStyles.*.background.color", related[0].Path)

	decodeBody(t, get(t, router, "/api/properties/"+id+"/related"), &related)
	assert.Len(t, related, 5, "default limit")

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/properties/"+id+"/related?limit=-1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/properties/missing/related").Code)
}

func TestPropertyExamples(t *testing.T) {
	_, router := testEnv(t)

	w := get(t, router, "/api/properties/"+checksum.ID("visualStyles.*.items.transparency")+"/examples")
	require.Equal(t, http.StatusOK, w.Code)
	var ex ExamplesResponse
	decodeBody(t, w, &ex)
	assert.Equal(t, []any{float64(0), float64(50), float64(100)}, ex.Examples)

	decodeBody(t, get(t, router, "/api/properties/"+checksum.ID("visualStyles.*.labels.italic")+"/examples"), &ex)
	assert.Equal(t, []any{true, false}, ex.Examples)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/properties/missing/examples").Code)
}

func TestCommonProperties(t *testing.T) {
	_, router := testEnv(t)

	tests := map[string]int{
		"/api/properties/common?visuals=card&visuals=slicer": 2,
		"/api/properties/common?visuals=card,slicer":         2,
		"/api/properties/common?visuals=card":                12,
		"/api/properties/common?visuals=card,gauge":          0,
		"/api/properties/common":                             0,
	}
	for target, want := range tests {
		t.Run(target, func(t *testing.T) {
			w := get(t, router, target)
			require.Equal(t, http.StatusOK, w.Code)
			var props []Property
			decodeBody(t, w, &props)
			assert.NotNil(t, props)
			assert.Len(t, props, want)
		})
	}
}

func TestVisuals(t *testing.T) {
	_, router := testEnv(t)

	var visuals []Visual
	decodeBody(t, get(t, router, "/api/visuals"), &visuals)
	require.Len(t, visuals, 2)

	decodeBody(t, get(t, router, "/api/visuals?hasStates=true"), &visuals)
	require.Len(t, visuals, 1)
	assert.Equal(t, "card", visuals[0].Type)

	decodeBody(t, get(t, router, "/api/visuals?complexity=low&maxProperties=5"), &visuals)
	require.Len(t, visuals, 1)
	assert.Equal(t, "slicer", visuals[0].Type)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/visuals?complexity=extreme").Code)

	w := get(t, router, "/api/visuals/card")
	require.Equal(t, http.StatusOK, w.Code)
	var v Visual
	decodeBody(t, w, &v)
	assert.Equal(t, 12, v.PropertyCount)
	assert.True(t, v.HasStates)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/visuals/gauge").Code)
}

func TestVisualStructure(t *testing.T) {
	_, router := testEnv(t)

	w := get(t, router, "/api/visuals/card/structure")
	require.Equal(t, http.StatusOK, w.Code)
	var vs query.VisualStructure
	decodeBody(t, w, &vs)
	assert.Equal(t, "card", vs.Visual.Type)
	assert.Len(t, vs.Properties["Color"], 4)
	assert.Len(t, vs.Properties["Typography"], 3)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/visuals/gauge/structure").Code)
}

func TestQuery(t *testing.T) {
	_, router := testEnv(t)

	body, err := json.Marshal(QueryRequest{Query: "card background color"})
	require.NoError(t, err)
	w := do(t, router, http.MethodPost, "/api/query", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("ETag"), "POST responses carry no ETag")

	var res QueryResponse
	decodeBody(t, w, &res)
	assert.NotEmpty(t, res.Properties)
	assert.Positive(t, res.Confidence)
	assert.Equal(t, []string{"card"}, res.Interpretation.Visuals)

	body, err = json.Marshal(map[string]any{"query": "font", "context": map[string]string{"currentVisual": "card"}})
	require.NoError(t, err)
	decodeBody(t, do(t, router, http.MethodPost, "/api/query", body, nil), &res)
	assert.True(t, res.Interpretation.VisualFromContext)

	for _, bad := range []string{`{"query":"   "}`, `{}`, `not json`} {
		w := do(t, router, http.MethodPost, "/api/query", []byte(bad), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestStatsAndRelationships(t *testing.T) {
	_, router := testEnv(t)

	var stats struct {
		Checksum        string `json:"checksum"`
		TotalProperties int    `json:"totalProperties"`
		TotalVisuals    int    `json:"totalVisuals"`
	}
	decodeBody(t, get(t, router, "/api/stats"), &stats)
	assert.Equal(t, "card", stats.Checksum)
	assert.Equal(t, 14, stats.TotalProperties)
	assert.Equal(t, 2, stats.TotalVisuals)

	var rel index.Relationships
	decodeBody(t, get(t, router, "/api/relationships"), &rel)
	assert.Equal(t, []string{checksum.ID("visualStyles.*.fill")}, rel.StateProperties)
}

func TestSnapshotETag(t *testing.T) {
	holder, router := testEnv(t)

	w := get(t, router, "/api/stats")
	etag := w.Header().Get("ETag")
	require.Equal(t, `W/"card"`, etag)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	w = do(t, router, http.MethodGet, "/api/stats", nil, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Zero(t, w.Body.Len(), "304 carries no body")
	assert.Equal(t, etag, w.Header().Get("ETag"))

	w = do(t, router, http.MethodGet, "/api/stats", nil, http.Header{"If-None-Match": {`"other", W/"card"`}})
	assert.Equal(t, http.StatusNotModified, w.Code, "match within a list")

	// A new snapshot invalidates every validator.
	holder.Swap(index.Build(testutil.CardProperties(), index.Options{Checksum: "card-v2"}))
	w = do(t, router, http.MethodGet, "/api/stats", nil, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `W/"card-v2"`, w.Header().Get("ETag"))

	// Errors are not cacheable.
	w = get(t, router, "/api/visuals/gauge")
	assert.Empty(t, w.Header().Get("ETag"))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestSnapshotETag_ErrorsIgnoreIfNoneMatch(t *testing.T) {
	_, router := testEnv(t)

	tests := []struct {
		target string
		header string
		want   int
	}{
		{target: "/api/properties/missing", header: `W/"card"`, want: http.StatusNotFound},
		{target: "/api/properties/missing", header: "*", want: http.StatusNotFound},
		{target: "/api/properties?limit=-5", header: `W/"card"`, want: http.StatusBadRequest},
		{target: "/api/visuals?complexity=extreme", header: "*", want: http.StatusBadRequest},
		{target: "/api/stats", header: "*", want: http.StatusNotModified},
	}
	for _, tt := range tests {
		t.Run(tt.target+" "+tt.header, func(t *testing.T) {
			w := do(t, router, http.MethodGet, tt.target, nil, http.Header{"If-None-Match": {tt.header}})
			assert.Equal(t, tt.want, w.Code)
			if tt.want != http.StatusNotModified {
				var e errResponse
				decodeBody(t, w, &e)
				assert.Equal(t, tt.want, e.Status)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/api/stats", nil, http.Header{"Origin": {"https://report.example.com"}})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := index.NewHolder(index.Build(testutil.CardProperties(), index.Options{Checksum: "card"}))
	reg := prometheus.NewRegistry()
	m := observability.InitMetrics(reg)
	api := query.New(h, nil, query.WithRecorder(m))
	router := NewRouter(Deps{API: api, Metrics: m, Gatherer: reg})

	get(t, router, "/api/properties/"+checksum.ID("visualStyles.*.fill"))
	get(t, router, "/api/properties?category=Color")

	w := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, want := range []string{
		`path_pattern="/api/properties/{id}"`,
		`path_pattern="/api/properties"`,
		"themeschema_searches_total 1",
	} {
		assert.Contains(t, body, want)
	}
}

func TestRouterUsesInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := index.NewHolder(index.Build(testutil.CardProperties(), index.Options{Checksum: "card"}))
	router := NewRouter(Deps{API: query.New(h, nil), Logger: logger})

	w := do(t, router, http.MethodPost, "/api/query", []byte(`{"query":"card font size"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"msg":"api: natural-language query"`)
	assert.Contains(t, buf.String(), `"query":"card font size"`)
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(nil, slog.New(slog.NewJSONHandler(&buf, nil)))

	w := httptest.NewRecorder()
	h.writeJSON(w, http.StatusOK, map[string]any{"bad": func() {}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), "api: json encode failed")
}
