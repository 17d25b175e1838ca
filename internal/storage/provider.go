// Package storage defines the file-system abstraction used for source trees and site output.
package storage

import "github.com/starford/docdustry/internal/models"

// Provider is the interface for file operations under one root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns metadata for every source file under dir (relative to root),
	// honoring ignore files and skipping hidden entries.
	List(dir string) ([]models.SourceMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
