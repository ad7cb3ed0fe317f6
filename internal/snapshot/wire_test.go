package snapshot

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/testutil"
)

func TestDocument_PreservesProperties(t *testing.T) {
	props := testutil.CardProperties()
	doc := FromProperties("abc", props, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Equal(t, Version, doc.Version)
	assert.Equal(t, "abc", doc.Checksum)
	require.Len(t, doc.Properties, len(props))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	got := decoded.ToProperties()
	require.Len(t, got, len(props))
	for i := range props {
		assert.Equal(t, props[i].ID, got[i].ID)
		assert.Equal(t, props[i].Path, got[i].Path)
		assert.Equal(t, props[i].Category, got[i].Category)
		assert.Equal(t, props[i].Visuals, got[i].Visuals)
		assert.Equal(t, props[i].IsStateEnabled, got[i].IsStateEnabled)
	}
	require.NotNil(t, got[12].Constraints)
	assert.Equal(t, 100.0, *got[12].Constraints.Maximum)
	assert.Nil(t, got[0].Constraints)
}

func TestDocument_EmptySlicesStayNonNil(t *testing.T) {
	doc := &Document{Version: Version, Properties: []PropertyRecord{{ID: "x", Path: "x"}}}

	got := doc.ToProperties()
	assert.NotNil(t, got[0].Type)
	assert.NotNil(t, got[0].Visuals)
}

func TestDecode_RejectsUnknownVersion(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"version": 99, "properties": []}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestFromProperties_EnumConstraint(t *testing.T) {
	p := testutil.Prop("a.align", "align", models.CategoryLayout, []string{"string"})
	p.Constraints = &models.Constraints{Enum: []any{"left", "right"}}

	doc := FromProperties("c", []models.PropertyMetadata{p}, time.Now())
	assert.Equal(t, []any{"left", "right"}, doc.Properties[0].Enum)
	assert.Nil(t, doc.Properties[0].Minimum)
}
