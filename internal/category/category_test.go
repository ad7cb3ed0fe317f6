package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/themeschema/internal/models"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		propName string
		path     string
		expected models.Category
	}{
		{"solid color", "color", "visualStyles.card.background.solid.color", models.CategoryColor},
		{"font before title", "fontSize", "visualStyles.card.title.fontSize", models.CategoryTypography},
		{"border color is color", "borderColor", "border.borderColor", models.CategoryColor},
		{"padding", "padding", "padding", models.CategorySpacing},
		{"stroke width is border", "strokeWidth", "lines.strokeWidth", models.CategoryBorder},
		{"alignment", "alignment", "layout.alignment", models.CategoryLayout},
		{"axis", "show", "categoryAxis.show", models.CategoryData},
		{"hover", "enabled", "hover.enabled", models.CategoryInteraction},
		{"legend", "show", "legend.show", models.CategoryVisual},
		{"shadow", "show", "dropShadow.show", models.CategoryEffect},
		{"nothing matches", "show", "general.show", models.CategoryOther},
		{"case insensitive", "FONTFAMILY", "LABELS.FONTFAMILY", models.CategoryTypography},
		{"name only", "fontColor", "x", models.CategoryColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.propName, tt.path))
		})
	}
}

func TestCategorize_Deterministic(t *testing.T) {
	first := Categorize("fontSize", "visualStyles.card.title.fontSize")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Categorize("fontSize", "visualStyles.card.title.fontSize"))
	}
}

func TestRules_PriorityOrder(t *testing.T) {
	rs := Rules()
	want := models.Categories[:len(models.Categories)-1]
	if assert.Len(t, rs, len(want)) {
		for i, r := range rs {
			assert.Equal(t, want[i], r.Category)
		}
	}
	rs[0].Category = models.CategoryOther
	assert.Equal(t, models.CategoryColor, Rules()[0].Category, "Rules must return a copy")
}
