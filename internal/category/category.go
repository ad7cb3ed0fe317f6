// Package category assigns semantic categories to schema properties.
package category

import (
	"regexp"

	"github.com/starford/themeschema/internal/models"
)

// Rule maps a case-insensitive pattern to a category.
type Rule struct {
	Category models.Category
	Pattern  string
	re       *regexp.Regexp
}

// rules are evaluated in order; the first match wins.
var rules = compile([]Rule{
	{Category: models.CategoryColor, Pattern: `color|fill|background|foreground|accent`},
	{Category: models.CategoryTypography, Pattern: `font|text|type|weight|italic|underline`},
	{Category: models.CategorySpacing, Pattern: `padding|margin|spacing|gap`},
	{Category: models.CategoryBorder, Pattern: `border|stroke|outline`},
	{Category: models.CategoryLayout, Pattern: `layout|position|alignment|width|height|size`},
	{Category: models.CategoryData, Pattern: `data|value|category|measure|axis`},
	{Category: models.CategoryInteraction, Pattern: `hover|click|select|tooltip|zoom|drill`},
	{Category: models.CategoryVisual, Pattern: `visual|header|title|legend|label`},
	{Category: models.CategoryEffect, Pattern: `shadow|glow|transparency|opacity|blur`},
})

func compile(in []Rule) []Rule {
	for i := range in {
		in[i].re = regexp.MustCompile(`(?i)` + in[i].Pattern)
	}
	return in
}

// Categorize returns the category of a property given its name and dot-path.
// For each rule the path is tested before the bare name. Properties matching
// no rule are Other.
func Categorize(name, path string) models.Category {
	for _, r := range rules {
		if r.re.MatchString(path) || r.re.MatchString(name) {
			return r.Category
		}
	}
	return models.CategoryOther
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
