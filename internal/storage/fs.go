package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/models"
)

const schemaExt = ".json"

// FS implements Provider on top of a local directory.
type FS struct {
	root string
}

// NewFS returns a provider rooted at dir, which must exist.
func NewFS(dir string) (*FS, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: %s is not a directory", root)
	}
	return &FS{root: root}, nil
}

// Root returns the absolute schema directory.
func (f *FS) Root() string { return f.root }

// resolve maps a slash-separated relative path onto the root. Absolute paths
// and paths that climb out of the root are rejected.
func (f *FS) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: absolute path %q not allowed", rel)
	}
	full := filepath.Join(f.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(f.root, full)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path %q escapes schema root", rel)
	}
	return full, nil
}

// List walks dir and checksums every schema fragment found under it.
func (f *FS) List(dir string) ([]models.FileMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FileMetadata
	walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == base && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != schemaExt {
			return nil
		}
		meta, err := f.describe(p, d)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, walkErr)
	}
	slices.SortFunc(out, func(a, b models.FileMetadata) int { return strings.Compare(a.Path, b.Path) })
	if out == nil {
		out = []models.FileMetadata{}
	}
	return out, nil
}

func (f *FS) describe(p string, d fs.DirEntry) (models.FileMetadata, error) {
	info, err := d.Info()
	if err != nil {
		return models.FileMetadata{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return models.FileMetadata{}, err
	}
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return models.FileMetadata{}, err
	}
	return models.FileMetadata{
		Path:      filepath.ToSlash(rel),
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the contents of a schema file.
func (f *FS) Read(path string) ([]byte, error) {
	full, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}
