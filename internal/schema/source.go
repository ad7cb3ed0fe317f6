package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/themeschema/internal/apperr"
	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/storage"
)

// Source is a parsed root schema plus its named definition fragments.
type Source struct {
	Root        *Node
	Definitions map[string]*Node
	// Checksum fingerprints the root document and every fragment file.
	Checksum string
	Files    []models.FileMetadata
}

// LoadSource reads the root schema file and every definition fragment under
// defsDir. An unreadable or unparsable root is fatal and wraps
// apperr.ErrSchemaUnreadable. Broken fragment files are logged and skipped.
func LoadSource(store storage.Provider, file, defsDir string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rootData, err := store.Read(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrSchemaUnreadable, err)
	}
	var root Node
	if err := json.Unmarshal(rootData, &root); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", apperr.ErrSchemaUnreadable, file, err)
	}

	defs := make(map[string]*Node, len(root.Definitions))
	for name, n := range root.Definitions {
		defs[name] = n
	}

	var files []models.FileMetadata
	if defsDir != "" {
		files, err = store.List(defsDir)
		if err != nil {
			logger.Warn("ingest: list definitions failed",
				slog.String("dir", defsDir), slog.String("error", err.Error()))
			files = nil
		}
	}

	var sum strings.Builder
	sum.WriteString(checksum.Sum(rootData))
	for _, f := range files {
		sum.WriteString("\n" + f.Path + ":" + f.Checksum)

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("ingest: read definition failed",
				slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		frags, err := parseFragments(f.Path, data)
		if err != nil {
			logger.Warn("ingest: malformed definition skipped",
				slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		for name, n := range frags {
			defs[name] = n
		}
		logger.Debug("ingest: definitions loaded",
			slog.String("path", f.Path), slog.Int("count", len(frags)))
	}

	return &Source{
		Root:        &root,
		Definitions: defs,
		Checksum:    checksum.Sum([]byte(sum.String())),
		Files:       files,
	}, nil
}

// parseFragments decodes a definition file. A file holding a top-level
// "definitions" object contributes every entry; any other object is a single
// fragment named after the file stem.
func parseFragments(file string, data []byte) (map[string]*Node, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	if raw, ok := top["definitions"]; ok {
		var defs map[string]*Node
		if err := json.Unmarshal(raw, &defs); err != nil {
			return nil, fmt.Errorf("definitions: %w", err)
		}
		return defs, nil
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(path.Base(file), path.Ext(file))
	return map[string]*Node{name: &n}, nil
}
