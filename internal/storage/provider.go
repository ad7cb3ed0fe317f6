// Package storage abstracts read access to the schema source directory.
package storage

import "github.com/starford/themeschema/internal/models"

// Provider reads schema source files. Paths are relative to the provider root
// and use forward slashes.
type Provider interface {
	// List returns metadata for every .json file under dir, sorted by path.
	// A missing dir yields an empty list.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
}
