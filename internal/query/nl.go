package query

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/models"
)

// NLContext carries what the caller is looking at.
type NLContext struct {
	CurrentVisual string `json:"currentVisual,omitempty"`
}

// NLQuery is a free-form request such as "make card background blue".
type NLQuery struct {
	Query   string     `json:"query"`
	Context *NLContext `json:"context,omitempty"`
}

// Interpretation records the filters inferred from a natural-language query.
type Interpretation struct {
	Categories []models.Category `json:"categories"`
	Visuals    []string          `json:"visuals"`
	// VisualFromContext is set when the visual came from the request context.
	VisualFromContext bool `json:"visualFromContext,omitempty"`
}

// NLResult answers a natural-language query.
type NLResult struct {
	Properties     []models.PropertyMetadata `json:"properties"`
	Suggestions    []string                  `json:"suggestions"`
	Confidence     float64                   `json:"confidence"`
	Total          int                       `json:"total"`
	Interpretation Interpretation            `json:"interpretation"`
}

type categoryKeywords struct {
	category models.Category
	re       *regexp.Regexp
}

var nlCategories = []categoryKeywords{
	{models.CategoryColor, regexp.MustCompile(`(?i)\b(colou?rs?|background|fill|foreground|accent|red|green|blue|yellow|orange|purple|pink|black|white|gr[ae]y|palette)\b`)},
	{models.CategoryTypography, regexp.MustCompile(`(?i)\b(fonts?|text|typography|typeface|bold|italic|underline|weight)\b`)},
	{models.CategorySpacing, regexp.MustCompile(`(?i)\b(spacing|padding|margins?|gaps?)\b`)},
	{models.CategoryBorder, regexp.MustCompile(`(?i)\b(borders?|strokes?|outlines?|radius)\b`)},
}

// visualPattern matches a visual type as a word, tolerating separators
// between its camelCase parts ("columnChart", "column chart").
func visualPattern(visualType string) *regexp.Regexp {
	parts := index.Tokenize(visualType)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(parts, `[\s_-]*`) + `\b`)
}

// Interpret infers category and visual filters from free text.
func (a *API) Interpret(q NLQuery) Interpretation {
	text := strings.TrimSpace(q.Query)
	in := Interpretation{Categories: []models.Category{}, Visuals: []string{}}

	for _, kw := range nlCategories {
		if kw.re.MatchString(text) {
			in.Categories = append(in.Categories, kw.category)
		}
	}
	for _, v := range a.schema().VisualTypes() {
		if len(index.Tokenize(v)) == 0 {
			continue
		}
		if visualPattern(v).MatchString(text) {
			in.Visuals = append(in.Visuals, v)
		}
	}
	if len(in.Visuals) == 0 && q.Context != nil && q.Context.CurrentVisual != "" {
		in.Visuals = append(in.Visuals, q.Context.CurrentVisual)
		in.VisualFromContext = true
	}
	return in
}

// NaturalLanguage answers a loose query by inferring filters and delegating
// to the property search. When filters were inferred the text only ranks
// results; otherwise it selects them. Empty text yields an empty,
// zero-confidence result.
func (a *API) NaturalLanguage(_ context.Context, q NLQuery) NLResult {
	s := a.schema()
	in := a.Interpret(q)
	text := strings.TrimSpace(q.Query)

	pq := a.Normalize(PropertyQuery{
		Text:       text,
		Categories: in.Categories,
		Visuals:    in.Visuals,
	})

	var matches []models.PropertyMetadata
	filtered := len(in.Categories) > 0 || len(in.Visuals) > 0
	if text != "" && (filtered || len(index.QueryTokens(text)) > 0) {
		matches = a.match(s, pq, !filtered)
	}

	n := len(matches)
	return NLResult{
		Properties:     paginate(matches, 0, pq.Limit),
		Suggestions:    a.suggest(s, in, n),
		Confidence:     math.Min(1, float64(n)/a.opts.ConfidenceDivisor),
		Total:          n,
		Interpretation: in,
	}
}

func (a *API) suggest(s *index.Schema, in Interpretation, n int) []string {
	out := []string{}
	named := len(in.Visuals) > 0 && !in.VisualFromContext

	switch {
	case n == 0:
		out = append(out, "Try specifying a visual type"+exampleVisuals(s))
		out = append(out, "Try broader terms such as color, font, spacing or border")
	case n > a.opts.ManyResults:
		if len(in.Categories) == 0 {
			out = append(out, "Narrow the query with a property kind such as color, font, spacing or border")
		}
		if !named {
			out = append(out, "Name a visual type to scope the results"+exampleVisuals(s))
		} else {
			out = append(out, "Add more specific words, for example the property name")
		}
	case !named:
		out = append(out, "Mention a visual type to scope the results"+exampleVisuals(s))
	}
	return out
}

func exampleVisuals(s *index.Schema) string {
	types := s.VisualTypes()
	if len(types) == 0 {
		return ""
	}
	return fmt.Sprintf(" (e.g. %s)", strings.Join(types[:min(3, len(types))], ", "))
}
