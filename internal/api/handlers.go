package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/themeschema/internal/query"
)

// Handler holds API route handlers.
type Handler struct {
	api    *query.API
	logger *slog.Logger
}

// NewHandler creates a new Handler. A nil logger falls back to slog.Default.
func NewHandler(api *query.API, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{api: api, logger: logger}
}

// Live handles GET /health and GET /health/live.
//
//	@Summary		Liveness check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health/live [get]
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /health/ready. It fails until a snapshot is published.
//
//	@Summary		Readiness check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health/ready [get]
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.api.Ready() {
		h.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "loading"})
		return
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checksum: h.api.Checksum()})
}

// SearchProperties handles GET /api/properties.
//
//	@Summary		Search properties with filters and pagination
//	@Tags			properties
//	@Produce		json
//	@Param			text		query		string	false	"Fuzzy text"
//	@Param			type		query		string	false	"JSON type (repeatable)"
//	@Param			category	query		string	false	"Category (repeatable)"
//	@Param			visual		query		string	false	"Visual type (repeatable)"
//	@Param			hasStates	query		bool	false	"State-enabled filter"
//	@Param			maxDepth	query		int		false	"Maximum depth"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Router			/properties [get]
func (h *Handler) SearchProperties(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r.URL.Query())
	if err == nil {
		err = p.validate(h.api.Options().MaxLimit)
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.api.SearchProperties(r.Context(), p.query()))
}

// GetProperty handles GET /api/properties/{id}.
//
//	@Summary		Get a property by id
//	@Tags			properties
//	@Produce		json
//	@Param			id	path		string	true	"Property id"
//	@Success		200	{object}	Property
//	@Failure		404	{object}	errResponse
//	@Router			/properties/{id} [get]
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	p, ok := h.api.PropertyByID(chi.URLParam(r, "id"))
	if !ok {
		h.notFound(w, "property")
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// PropertyByPath handles GET /api/properties/by-path.
//
//	@Summary		Get a property by dotted path
//	@Tags			properties
//	@Produce		json
//	@Param			path	query		string	true	"Dotted path, canonical or per visual"
//	@Success		200		{object}	Property
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/properties/by-path [get]
func (h *Handler) PropertyByPath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'path' is required")
		return
	}
	p, ok := h.api.PropertyByPath(path)
	if !ok {
		h.notFound(w, "property")
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// RelatedProperties handles GET /api/properties/{id}/related.
//
//	@Summary		List properties related to a property
//	@Tags			properties
//	@Produce		json
//	@Param			id		path		string	true	"Property id"
//	@Param			limit	query		int		false	"Maximum results"
//	@Success		200		{array}		Property
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/properties/{id}/related [get]
func (h *Handler) RelatedProperties(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, err := intValue(r.URL.Query(), "limit")
	if err == nil {
		err = validation.Validate(limit, validation.Min(0), validation.Max(h.api.Options().MaxLimit))
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	if _, ok := h.api.PropertyByID(id); !ok {
		h.notFound(w, "property")
		return
	}
	h.writeJSON(w, http.StatusOK, h.api.RelatedProperties(id, limit))
}

// PropertyExamples handles GET /api/properties/{id}/examples.
//
//	@Summary		Suggest example values for a property
//	@Tags			properties
//	@Produce		json
//	@Param			id	path		string	true	"Property id"
//	@Success		200	{object}	ExamplesResponse
//	@Failure		404	{object}	errResponse
//	@Router			/properties/{id}/examples [get]
func (h *Handler) PropertyExamples(w http.ResponseWriter, r *http.Request) {
	examples, ok := h.api.PropertyExamples(chi.URLParam(r, "id"))
	if !ok {
		h.notFound(w, "property")
		return
	}
	h.writeJSON(w, http.StatusOK, ExamplesResponse{Examples: examples})
}

// CommonProperties handles GET /api/properties/common.
//
//	@Summary		List properties shared by every given visual
//	@Tags			properties
//	@Produce		json
//	@Param			visuals	query	string	true	"Visual type (repeatable)"
//	@Success		200		{array}	Property
//	@Router			/properties/common [get]
func (h *Handler) CommonProperties(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.api.CommonProperties(listParam(r.URL.Query(), "visuals")))
}

// SearchVisuals handles GET /api/visuals.
//
//	@Summary		List visuals with optional filters
//	@Tags			visuals
//	@Produce		json
//	@Param			complexity		query		string	false	"Complexity tier"	Enums(low, medium, high)
//	@Param			hasStates		query		bool	false	"State-enabled filter"
//	@Param			minProperties	query		int		false	"Minimum property count"
//	@Param			maxProperties	query		int		false	"Maximum property count"
//	@Success		200				{array}		Visual
//	@Failure		400				{object}	errResponse
//	@Router			/visuals [get]
func (h *Handler) SearchVisuals(w http.ResponseWriter, r *http.Request) {
	p, err := parseVisualParams(r.URL.Query())
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.api.SearchVisuals(p.query()))
}

// GetVisual handles GET /api/visuals/{type}.
//
//	@Summary		Get visual metadata
//	@Tags			visuals
//	@Produce		json
//	@Param			type	path		string	true	"Visual type"
//	@Success		200		{object}	Visual
//	@Failure		404		{object}	errResponse
//	@Router			/visuals/{type} [get]
func (h *Handler) GetVisual(w http.ResponseWriter, r *http.Request) {
	v, ok := h.api.Visual(chi.URLParam(r, "type"))
	if !ok {
		h.notFound(w, "visual")
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// VisualStructure handles GET /api/visuals/{type}/structure.
//
//	@Summary		Get a visual's properties grouped by category
//	@Tags			visuals
//	@Produce		json
//	@Param			type	path		string	true	"Visual type"
//	@Success		200		{object}	query.VisualStructure
//	@Failure		404		{object}	errResponse
//	@Router			/visuals/{type}/structure [get]
func (h *Handler) VisualStructure(w http.ResponseWriter, r *http.Request) {
	vs, ok := h.api.VisualStructure(chi.URLParam(r, "type"))
	if !ok {
		h.notFound(w, "visual")
		return
	}
	h.writeJSON(w, http.StatusOK, vs)
}

// Query handles POST /api/query.
//
//	@Summary		Answer a natural-language query
//	@Tags			query
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QueryRequest	true	"Query"
//	@Success		200		{object}	QueryResponse
//	@Failure		400		{object}	errResponse
//	@Router			/query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.api.NaturalLanguage(r.Context(), query.NLQuery{Query: req.Query, Context: req.Context})
	h.logger.Debug("api: natural-language query",
		slog.String("query", req.Query),
		slog.Int("total", res.Total),
		slog.Float64("confidence", res.Confidence))
	h.writeJSON(w, http.StatusOK, res)
}

// Stats handles GET /api/stats.
//
//	@Summary		Schema statistics
//	@Tags			schema
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.api.Stats())
}

// Relationships handles GET /api/relationships.
//
//	@Summary		Property relationship tables
//	@Tags			schema
//	@Produce		json
//	@Success		200	{object}	index.Relationships
//	@Router			/relationships [get]
func (h *Handler) Relationships(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.api.Relationships())
}
