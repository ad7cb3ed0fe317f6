// Package testutil provides shared test helpers for writing fixture schemas
// and building property sets.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/storage"
)

// RootFile and DefinitionsDir name the fixture layout inside the schema dir.
const (
	RootFile       = "theme.schema.json"
	DefinitionsDir = "definitions"
)

// RootSchema is a trimmed Power BI theme schema covering visual styles,
// shared definitions, state arrays, broken refs and a ref cycle.
const RootSchema = `{
  "title": "Power BI theme",
  "definitions": {
    "visibility": {"type": "boolean", "title": "Show", "description": "Toggle visibility"},
    "fill": {
      "type": "object",
      "properties": {
        "solid": {
          "type": "object",
          "properties": {
            "color": {"type": "string", "title": "Color", "description": "Solid fill color"}
          }
        }
      }
    }
  },
  "properties": {
    "name": {"type": "string", "title": "Theme name"},
    "dataColors": {"type": "array", "items": {"type": "string"}, "description": "Palette of data colors"},
    "textClasses": {
      "type": "object",
      "properties": {
        "label": {
          "type": "object",
          "properties": {
            "fontFace": {"type": "string"},
            "fontSize": {"type": "number", "minimum": 6, "maximum": 72}
          }
        }
      }
    },
    "visualStyles": {
      "type": "object",
      "properties": {
        "card": {
          "type": "object",
          "properties": {
            "*": {
              "type": "object",
              "properties": {
                "background": {"$ref": "#/definitions/background"},
                "title": {
                  "type": "object",
                  "properties": {
                    "show": {"$ref": "#/definitions/visibility"},
                    "text": {"type": "string"},
                    "fontSize": {"type": "number", "minimum": 8, "maximum": 40},
                    "fontFamily": {"type": "string"},
                    "fontColor": {"$ref": "#/definitions/fill", "title": "Font color"},
                    "alignment": {"type": "string", "enum": ["left", "center", "right"]}
                  }
                },
                "border": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "show": {"$ref": "#/definitions/visibility"},
                      "radius": {"type": "integer", "minimum": 0, "maximum": 20}
                    }
                  }
                },
                "accentBar": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "$id": {"type": "string", "enum": ["default", "hover", "selected", "disabled"]},
                      "width": {"type": "number", "minimum": 1}
                    }
                  }
                }
              }
            }
          }
        },
        "slicer": {
          "type": "object",
          "properties": {
            "*": {
              "type": "object",
              "properties": {
                "background": {"$ref": "#/definitions/background"},
                "title": {
                  "type": "object",
                  "properties": {
                    "show": {"$ref": "#/definitions/visibility"},
                    "text": {"type": "string"},
                    "fontSize": {"type": "number", "minimum": 8, "maximum": 40}
                  }
                },
                "items": {
                  "type": "object",
                  "properties": {
                    "padding": {"type": "integer", "minimum": 0, "maximum": 20}
                  }
                },
                "label": {"$ref": "#/properties/textClasses/label"}
              }
            }
          }
        },
        "columnChart": {
          "type": "object",
          "properties": {
            "*": {
              "type": "object",
              "properties": {
                "background": {"$ref": "#/definitions/background"},
                "legend": {
                  "type": "object",
                  "properties": {
                    "show": {"$ref": "#/definitions/visibility"},
                    "position": {"type": "string", "enum": ["Top", "Bottom", "Left", "Right"]}
                  }
                },
                "categoryAxis": {
                  "type": "object",
                  "properties": {
                    "showAxisTitle": {"type": "boolean"}
                  }
                },
                "recursive": {"$ref": "#/definitions/cycle"},
                "missing": {"$ref": "#/definitions/doesNotExist"},
                "remote": {"$ref": "https://example.com/schema.json#/definitions/x"}
              }
            }
          }
        }
      }
    }
  }
}`

// Definition fragment files written under DefinitionsDir.
var Definitions = map[string]string{
	"background.json": `{
  "type": "array",
  "title": "Background",
  "items": {
    "type": "object",
    "properties": {
      "show": {"$ref": "#/definitions/visibility"},
      "color": {"$ref": "#/definitions/fill"},
      "transparency": {"type": "number", "minimum": 0, "maximum": 100}
    }
  }
}`,
	"shared.json": `{
  "definitions": {
    "cycle": {
      "type": "object",
      "properties": {
        "self": {"$ref": "#/definitions/cycle"},
        "depth": {"type": "integer"}
      }
    }
  }
}`,
	"broken.json": `{"type": "object", "properties": `,
}

// TestSchemaDir writes the fixture schema into a temporary directory and
// returns the directory with a storage.Provider rooted at it.
func TestSchemaDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, RootFile, RootSchema)
	for name, body := range Definitions {
		WriteFile(t, dir, filepath.Join(DefinitionsDir, name), body)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes content to dir/rel, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestDBPath returns a path for a temporary SQLite file removed on cleanup.
func TestDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "themeschema-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

// Prop builds a PropertyMetadata with its id derived from path.
func Prop(path, name string, cat models.Category, types []string, visuals ...string) models.PropertyMetadata {
	if visuals == nil {
		visuals = []string{}
	}
	depth := 0
	for _, r := range path {
		if r == '.' {
			depth++
		}
	}
	return models.PropertyMetadata{
		ID:       checksum.ID(path),
		Path:     path,
		Name:     name,
		Title:    name,
		Type:     types,
		Category: cat,
		Visuals:  visuals,
		Depth:    depth,
	}
}

// CardProperties returns twelve card properties (four Color, three
// Typography, two Border and three Other), one slicer-only property and one
// root property. Two card properties are shared with slicer and one is
// state-enabled.
func CardProperties() []models.PropertyMetadata {
	str := []string{"string"}
	num := []string{"number"}
	boolean := []string{"boolean"}
	obj := []string{"object"}
	min, max := 0.0, 100.0

	props := []models.PropertyMetadata{
		Prop("visualStyles.*.background", "background", models.CategoryColor, []string{"array"}, "card", "slicer"),
		Prop("visualStyles.*.background.color", "color", models.CategoryColor, str, "card", "slicer"),
		Prop("visualStyles.*.fill", "fill", models.CategoryColor, []string{"array"}, "card"),
		Prop("visualStyles.*.fill.color", "color", models.CategoryColor, str, "card"),
		Prop("visualStyles.*.labels.fontSize", "fontSize", models.CategoryTypography, num, "card"),
		Prop("visualStyles.*.labels.fontFamily", "fontFamily", models.CategoryTypography, str, "card"),
		Prop("visualStyles.*.labels.italic", "italic", models.CategoryTypography, boolean, "card"),
		Prop("visualStyles.*.border.radius", "radius", models.CategoryBorder, num, "card"),
		Prop("visualStyles.*.outline.show", "show", models.CategoryBorder, boolean, "card"),
		Prop("visualStyles.*.general", "general", models.CategoryOther, obj, "card"),
		Prop("visualStyles.*.general.show", "show", models.CategoryOther, boolean, "card"),
		Prop("visualStyles.*.general.responsive", "responsive", models.CategoryOther, boolean, "card"),
		Prop("visualStyles.*.items.transparency", "transparency", models.CategoryEffect, num, "slicer"),
		Prop("name", "name", models.CategoryOther, str),
	}
	props[2].IsStateEnabled = true
	props[12].Constraints = &models.Constraints{Minimum: &min, Maximum: &max}
	return props
}
