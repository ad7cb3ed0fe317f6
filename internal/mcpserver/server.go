// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the theme schema query tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/query"
)

// CategoriesURI addresses the category guide resource.
const CategoriesURI = "themeschema://categories"

// Server wraps the MCP server with schema query tools.
type Server struct {
	mcp *server.MCPServer
	api *query.API
}

// New creates a new MCP server with all query tools registered.
func New(api *query.API, version string) *Server {
	s := &Server{api: api}

	s.mcp = server.NewMCPServer(
		"themeschema",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_properties",
		mcp.WithDescription("Search theme properties by text and filters. Filters combine with AND; "+
			"values inside one filter combine with OR. Read the "+CategoriesURI+" resource for category names."),
		mcp.WithString("text", mcp.Description("Free text matched fuzzily against names and titles")),
		mcp.WithArray("types", mcp.WithStringItems(), mcp.Description("JSON types (string, number, boolean, ...)")),
		mcp.WithArray("categories", mcp.WithStringItems(), mcp.Description("Categories such as Color or Typography")),
		mcp.WithArray("visuals", mcp.WithStringItems(), mcp.Description("Visual types such as card or slicer")),
		mcp.WithBoolean("hasStates", mcp.Description("Only properties with (true) or without (false) state variants")),
		mcp.WithNumber("maxDepth", mcp.Description("Maximum nesting depth")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 100)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.searchProperties)

	s.mcp.AddTool(mcp.NewTool("get_property",
		mcp.WithDescription("Get one property by id or by dotted path (e.g. visualStyles.card.background.color)."),
		mcp.WithString("id", mcp.Description("Property id")),
		mcp.WithString("path", mcp.Description("Dotted property path")),
	), s.getProperty)

	s.mcp.AddTool(mcp.NewTool("get_visual_structure",
		mcp.WithDescription("Get a visual's metadata and its properties grouped by category."),
		mcp.WithString("visual", mcp.Required(), mcp.Description("Visual type (e.g. card)")),
	), s.getVisualStructure)

	s.mcp.AddTool(mcp.NewTool("query_schema",
		mcp.WithDescription("Answer a natural-language request such as \"make card background blue\" "+
			"with matching properties, suggestions and a confidence score."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language request")),
		mcp.WithString("currentVisual", mcp.Description("Visual the user is currently editing")),
	), s.querySchema)

	s.mcp.AddTool(mcp.NewTool("related_properties",
		mcp.WithDescription("List properties most related to the given one."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Property id")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 5)")),
	), s.relatedProperties)

	s.mcp.AddTool(mcp.NewTool("common_properties",
		mcp.WithDescription("List properties shared by every given visual."),
		mcp.WithArray("visuals", mcp.Required(), mcp.WithStringItems(), mcp.Description("Visual types")),
	), s.commonProperties)

	s.mcp.AddTool(mcp.NewTool("property_examples",
		mcp.WithDescription("Suggest example values for a property."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Property id")),
	), s.propertyExamples)

	s.mcp.AddTool(mcp.NewTool("schema_stats",
		mcp.WithDescription("Summary statistics for the loaded schema."),
	), s.schemaStats)

	s.mcp.AddResource(
		mcp.NewResource(CategoriesURI, "Property Categories",
			mcp.WithResourceDescription("How properties are categorised and how to query them."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCategoriesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := query.PropertyQuery{
		Text:    req.GetString("text", ""),
		Types:   req.GetStringSlice("types", nil),
		Visuals: req.GetStringSlice("visuals", nil),
		Limit:   req.GetInt("limit", 0),
		Offset:  req.GetInt("offset", 0),
	}
	for _, c := range req.GetStringSlice("categories", nil) {
		cat, ok := models.ParseCategory(c)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category: %s", c)), nil
		}
		q.Categories = append(q.Categories, cat)
	}
	args := req.GetArguments()
	if _, ok := args["hasStates"]; ok {
		v := req.GetBool("hasStates", false)
		q.HasStates = &v
	}
	if _, ok := args["maxDepth"]; ok {
		v := req.GetInt("maxDepth", 0)
		if v < 0 {
			return mcp.NewToolResultError("maxDepth must not be negative"), nil
		}
		q.MaxDepth = &v
	}
	if q.Limit < 0 || q.Offset < 0 {
		return mcp.NewToolResultError("limit and offset must not be negative"), nil
	}
	return jsonResult(s.api.SearchProperties(ctx, q))
}

func (s *Server) getProperty(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	path := req.GetString("path", "")
	var (
		p  models.PropertyMetadata
		ok bool
	)
	switch {
	case id != "":
		p, ok = s.api.PropertyByID(id)
	case path != "":
		p, ok = s.api.PropertyByPath(path)
	default:
		return mcp.NewToolResultError("id or path is required"), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("property not found: %s%s", id, path)), nil
	}
	return jsonResult(p)
}

func (s *Server) getVisualStructure(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	visual, err := req.RequireString("visual")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	vs, ok := s.api.VisualStructure(visual)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("visual not found: %s", visual)), nil
	}
	return jsonResult(vs)
}

func (s *Server) querySchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	q := query.NLQuery{Query: text}
	if cv := req.GetString("currentVisual", ""); cv != "" {
		q.Context = &query.NLContext{CurrentVisual: cv}
	}
	return jsonResult(s.api.NaturalLanguage(ctx, q))
}

func (s *Server) relatedProperties(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.api.PropertyByID(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("property not found: %s", id)), nil
	}
	return jsonResult(s.api.RelatedProperties(id, req.GetInt("limit", 0)))
}

func (s *Server) commonProperties(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	visuals, err := req.RequireStringSlice("visuals")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.api.CommonProperties(visuals))
}

func (s *Server) propertyExamples(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	examples, ok := s.api.PropertyExamples(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("property not found: %s", id)), nil
	}
	return jsonResult(map[string]any{"examples": examples})
}

func (s *Server) schemaStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.api.Stats())
}

func (s *Server) readCategoriesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CategoriesURI,
			MIMEType: "text/markdown",
			Text:     CategoryGuide(),
		},
	}, nil
}
