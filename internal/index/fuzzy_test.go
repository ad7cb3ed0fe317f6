package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"visual", "styles", "card", "font", "size"},
		Tokenize("visualStyles.card.fontSize"))
	assert.Equal(t, []string{"id"}, Tokenize("$id"))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestQueryTokens(t *testing.T) {
	assert.Equal(t, []string{"card", "background", "blue"},
		QueryTokens("Make the card background blue, the BACKGROUND"))
	assert.Empty(t, QueryTokens("a of x"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("color", "fontcolor"))
	assert.InDelta(t, 0.8, Similarity("colr", "color"), 1e-9)
	assert.Less(t, Similarity("padding", "color"), DefaultFuzzyThreshold)
	assert.Zero(t, Similarity("", "color"))
}

func TestFuzzyIndex_TypoTolerant(t *testing.T) {
	f := NewFuzzyIndex(DefaultFuzzyThreshold)
	f.Add("a", "Font color", "Text color of labels", "labels.fontColor")
	f.Add("b", "Padding", "Inner spacing", "items.padding")
	f.Add("c", "Show", "Toggle visibility of the color bar", "bar.show")

	scores := f.Search("colr")
	assert.Contains(t, scores, "a")
	assert.Contains(t, scores, "c")
	assert.NotContains(t, scores, "b")
	assert.Greater(t, scores["a"], scores["c"], "title matches weigh more")

	assert.Empty(t, f.Search("zzzzzz"))
	assert.Empty(t, f.Search("the"))
}

func TestFuzzyIndex_ScoresSumAcrossTokens(t *testing.T) {
	f := NewFuzzyIndex(DefaultFuzzyThreshold)
	f.Add("a", "Background color", "", "background.color")
	f.Add("b", "Background", "", "background")

	scores := f.Search("background color")
	assert.Greater(t, scores["a"], scores["b"])
	assert.InDelta(t, 4.0, scores["a"], 1e-9)
}
