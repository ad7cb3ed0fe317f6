package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/query"
)

// searchParams are the query-string filters of GET /api/properties.
type searchParams struct {
	Text       string   `json:"text"`
	Types      []string `json:"type"`
	Categories []string `json:"category"`
	Visuals    []string `json:"visual"`
	HasStates  *bool    `json:"hasStates"`
	MaxDepth   *int     `json:"maxDepth"`
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
}

func parseSearchParams(q url.Values) (searchParams, error) {
	p := searchParams{
		Text:       strings.TrimSpace(q.Get("text")),
		Types:      listParam(q, "type"),
		Categories: listParam(q, "category"),
		Visuals:    listParam(q, "visual"),
	}
	var err error
	if p.HasStates, err = boolParam(q, "hasStates"); err != nil {
		return p, err
	}
	if p.MaxDepth, err = intParam(q, "maxDepth"); err != nil {
		return p, err
	}
	if p.Limit, err = intValue(q, "limit"); err != nil {
		return p, err
	}
	if p.Offset, err = intValue(q, "offset"); err != nil {
		return p, err
	}
	return p, nil
}

func (p *searchParams) validate(maxLimit int) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Categories, validation.Each(validation.By(knownCategory))),
		validation.Field(&p.MaxDepth, validation.Min(0)),
		validation.Field(&p.Limit, validation.Min(0), validation.Max(maxLimit)),
		validation.Field(&p.Offset, validation.Min(0)),
	)
}

func (p searchParams) query() query.PropertyQuery {
	q := query.PropertyQuery{
		Text:      p.Text,
		Types:     p.Types,
		Visuals:   p.Visuals,
		HasStates: p.HasStates,
		MaxDepth:  p.MaxDepth,
		Limit:     p.Limit,
		Offset:    p.Offset,
	}
	for _, c := range p.Categories {
		if cat, ok := models.ParseCategory(c); ok {
			q.Categories = append(q.Categories, cat)
		}
	}
	return q
}

func knownCategory(value any) error {
	s, _ := value.(string)
	if _, ok := models.ParseCategory(s); !ok {
		return errors.New("unknown category")
	}
	return nil
}

// visualParams are the query-string filters of GET /api/visuals.
type visualParams struct {
	Complexity    string `json:"complexity"`
	HasStates     *bool  `json:"hasStates"`
	MinProperties *int   `json:"minProperties"`
	MaxProperties *int   `json:"maxProperties"`
}

func parseVisualParams(q url.Values) (visualParams, error) {
	p := visualParams{Complexity: strings.ToLower(strings.TrimSpace(q.Get("complexity")))}
	var err error
	if p.HasStates, err = boolParam(q, "hasStates"); err != nil {
		return p, err
	}
	if p.MinProperties, err = intParam(q, "minProperties"); err != nil {
		return p, err
	}
	if p.MaxProperties, err = intParam(q, "maxProperties"); err != nil {
		return p, err
	}
	return p, nil
}

func (p *visualParams) validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Complexity, validation.In(
			string(models.ComplexityLow), string(models.ComplexityMedium), string(models.ComplexityHigh))),
		validation.Field(&p.MinProperties, validation.Min(0)),
		validation.Field(&p.MaxProperties, validation.Min(0)),
	)
}

func (p visualParams) query() query.VisualQuery {
	c, _ := query.ParseComplexity(p.Complexity)
	return query.VisualQuery{
		Complexity:    c,
		HasStates:     p.HasStates,
		MinProperties: p.MinProperties,
		MaxProperties: p.MaxProperties,
	}
}

// listParam collects repeated and comma-separated values of key.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func boolParam(q url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: must be true or false", key)
	}
	return &v, nil
}

func intParam(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: must be an integer", key)
	}
	return &v, nil
}

func intValue(q url.Values, key string) (int, error) {
	v, err := intParam(q, key)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}
