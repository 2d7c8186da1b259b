// Package versioncache records which protect-web build is installed.
//
// The record is a single JSON document, metadata.json, inside the install
// location. Reads never fail: a missing or unreadable record means nothing
// usable is cached. Writes are atomic (write-then-rename) and happen once per
// successful acquisition.
package versioncache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/idanshimon/protect-web/internal/config"
)

// ErrMetadataWrite is returned when the version record cannot be persisted.
var ErrMetadataWrite = errors.New("failed to write version metadata")

// Metadata is the persisted version record. Version is empty when absent.
type Metadata struct {
	Version string `json:"version,omitempty"`
}

// Present reports whether a version is recorded.
func (m Metadata) Present() bool {
	return m.Version != ""
}

// Cache reads and writes metadata.json in an install directory.
type Cache struct {
	dir string
}

// New creates a Cache for installDir.
func New(installDir string) *Cache {
	return &Cache{dir: installDir}
}

// Path returns the metadata file path.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, config.MetadataFile)
}

// Read returns the cached record, or an empty Metadata if the file is
// missing or cannot be parsed.
func (c *Cache) Read() Metadata {
	data, err := os.ReadFile(c.Path())
	if err != nil {
		return Metadata{}
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}
	}
	return m
}

// Write persists version atomically. Any failure is wrapped in ErrMetadataWrite.
func (c *Cache) Write(version string) error {
	if version == "" {
		return fmt.Errorf("%w: version is empty", ErrMetadataWrite)
	}

	data, err := json.Marshal(Metadata{Version: version})
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrMetadataWrite, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create install dir: %v", ErrMetadataWrite, err)
	}

	finalPath := c.Path()
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write temporary file: %v. Please contact %s for help resolving this issue", ErrMetadataWrite, err, config.SupportEmail)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename: %v. Please contact %s for help resolving this issue", ErrMetadataWrite, err, config.SupportEmail)
	}

	return nil
}

// NeedsAcquisition reports whether cached differs from required.
// An absent record always needs acquisition.
func NeedsAcquisition(cached Metadata, required string) bool {
	return cached.Version != required
}
