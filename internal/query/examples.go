package query

import (
	"math"
	"strings"

	"github.com/starford/themeschema/internal/models"
)

const maxExamples = 5

var (
	colorSwatches = []any{"#118DFF", "#12239E", "#E66C37", "#FFFFFF", "#000000"}
	fontFamilies  = []any{"Segoe UI", "Arial", "Helvetica", "Verdana", "Georgia"}
)

// PropertyExamples returns up to five illustrative values for the property.
// The bool is false for an unknown id.
func (a *API) PropertyExamples(id string) ([]any, bool) {
	p, ok := a.schema().Property(id)
	if !ok {
		return nil, false
	}
	return Examples(p), true
}

// Examples derives sample values from a property's constraints and type.
func Examples(p models.PropertyMetadata) []any {
	if c := p.Constraints; c != nil && len(c.Enum) > 0 {
		return append([]any(nil), c.Enum[:min(maxExamples, len(c.Enum))]...)
	}

	switch {
	case p.HasType("boolean"):
		return []any{true, false}
	case p.HasType("number") || p.HasType("integer"):
		return numericExamples(p)
	case p.HasType("string"):
		if isFontPath(p.Path) {
			return append([]any(nil), fontFamilies...)
		}
		if p.Category == models.CategoryColor {
			return append([]any(nil), colorSwatches...)
		}
	}
	return []any{}
}

func numericExamples(p models.PropertyMetadata) []any {
	var lo, hi *float64
	if p.Constraints != nil {
		lo, hi = p.Constraints.Minimum, p.Constraints.Maximum
	}
	integer := p.HasType("integer") && !p.HasType("number")

	switch {
	case lo != nil && hi != nil:
		mid := (*lo + *hi) / 2
		if integer {
			mid = math.Floor(mid)
		}
		return []any{*lo, mid, *hi}
	case lo != nil:
		return []any{*lo, *lo + 1, *lo + 10}
	case hi != nil:
		return []any{*hi, *hi - 1, *hi - 10}
	default:
		return []any{0.0, 1.0, 10.0}
	}
}

func isFontPath(path string) bool {
	last := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		last = path[i+1:]
	}
	last = strings.ToLower(last)
	return last == "fontfamily" || last == "fontface"
}
