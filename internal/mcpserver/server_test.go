package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/query"
	"github.com/starford/themeschema/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	h := index.NewHolder(index.Build(testutil.CardProperties(), index.Options{Checksum: "card"}))
	api := query.New(h, nil, query.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	return New(api, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// Handlers are called directly; mcp-go has no in-process call helper.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_properties":    srv.searchProperties,
		"get_property":         srv.getProperty,
		"get_visual_structure": srv.getVisualStructure,
		"query_schema":         srv.querySchema,
		"related_properties":   srv.relatedProperties,
		"common_properties":    srv.commonProperties,
		"property_examples":    srv.propertyExamples,
		"schema_stats":         srv.schemaStats,
	}
	h, ok := handlers[name]
	require.True(t, ok, "unknown tool: %s", name)
	result, err := h(context.Background(), req)
	require.NoError(t, err, name)
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode(t *testing.T, r *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, r.IsError, "tool returned error: %s", resultText(r))
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), v), resultText(r))
}

func TestSearchProperties(t *testing.T) {
	srv := testServer(t)

	var res query.SearchResult
	decode(t, callTool(t, srv, "search_properties", map[string]any{
		"categories": []any{"color"},
	}), &res)
	assert.Equal(t, 4, res.Total)

	decode(t, callTool(t, srv, "search_properties", map[string]any{
		"visuals": []any{"slicer"},
		"limit":   float64(2),
	}), &res)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Results, 2)

	decode(t, callTool(t, srv, "search_properties", map[string]any{
		"hasStates": true,
	}), &res)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "visualStyles.*.fill", res.Results[0].Path)
}

func TestSearchPropertiesRejectsBadInput(t *testing.T) {
	srv := testServer(t)

	for name, args := range map[string]map[string]any{
		"unknown category": {"categories": []any{"Sparkle"}},
		"negative offset":  {"offset": float64(-1)},
		"negative depth":   {"maxDepth": float64(-1)},
	} {
		assert.True(t, callTool(t, srv, "search_properties", args).IsError, name)
	}
}

func TestGetProperty(t *testing.T) {
	srv := testServer(t)

	var byPath struct {
		ID   string `json:"id"`
		Path string `json:"path"`
	}
	decode(t, callTool(t, srv, "get_property", map[string]any{
		"path": "visualStyles.card.labels.fontSize",
	}), &byPath)
	assert.Equal(t, "visualStyles.*.labels.fontSize", byPath.Path)

	var byID struct {
		Path string `json:"path"`
	}
	decode(t, callTool(t, srv, "get_property", map[string]any{"id": byPath.ID}), &byID)
	assert.Equal(t, byPath.Path, byID.Path)

	assert.True(t, callTool(t, srv, "get_property", map[string]any{"id": "missing"}).IsError)
	assert.True(t, callTool(t, srv, "get_property", map[string]any{}).IsError, "id or path required")
}

func TestGetVisualStructure(t *testing.T) {
	srv := testServer(t)

	var vs query.VisualStructure
	decode(t, callTool(t, srv, "get_visual_structure", map[string]any{"visual": "card"}), &vs)
	assert.Equal(t, 12, vs.Visual.PropertyCount)
	assert.Len(t, vs.Properties["Color"], 4)

	assert.True(t, callTool(t, srv, "get_visual_structure", map[string]any{"visual": "donut"}).IsError)
}

func TestQuerySchema(t *testing.T) {
	srv := testServer(t)

	var res query.NLResult
	decode(t, callTool(t, srv, "query_schema", map[string]any{"query": "card background color"}), &res)
	assert.Equal(t, []string{"card"}, res.Interpretation.Visuals)
	assert.NotEmpty(t, res.Properties)

	assert.True(t, callTool(t, srv, "query_schema", map[string]any{"query": "   "}).IsError, "blank query")
}

func TestRelatedAndExamples(t *testing.T) {
	srv := testServer(t)
	id := checksum.ID("visualStyles.*.fill.color")

	var related []struct {
		ID string `json:"id"`
	}
	decode(t, callTool(t, srv, "related_properties", map[string]any{"id": id, "limit": float64(2)}), &related)
	require.Len(t, related, 2)
	for _, p := range related {
		assert.NotEqual(t, id, p.ID, "property related to itself")
	}

	var ex struct {
		Examples []any `json:"examples"`
	}
	decode(t, callTool(t, srv, "property_examples", map[string]any{
		"id": checksum.ID("visualStyles.*.items.transparency"),
	}), &ex)
	assert.Equal(t, []any{float64(0), float64(50), float64(100)}, ex.Examples)

	assert.True(t, callTool(t, srv, "related_properties", map[string]any{"id": "missing"}).IsError)
}

func TestCommonPropertiesAndStats(t *testing.T) {
	srv := testServer(t)

	var common []struct {
		Path string `json:"path"`
	}
	decode(t, callTool(t, srv, "common_properties", map[string]any{
		"visuals": []any{"card", "slicer"},
	}), &common)
	assert.Len(t, common, 2)

	var stats struct {
		TotalProperties int `json:"totalProperties"`
	}
	decode(t, callTool(t, srv, "schema_stats", nil), &stats)
	assert.Equal(t, 14, stats.TotalProperties)
}

func TestCategoryGuide(t *testing.T) {
	guide := CategoryGuide()
	for _, want := range []string{"| 1 | Color |", "background", "Other", "query_schema"} {
		assert.Contains(t, guide, want)
	}
}
