// Package manifest loads TOML archive manifests for the zipstream CLI.
//
// A manifest names the archive members and where their content comes from,
// mixing local files and remote URLs:
//
//	comment = "nightly asset bundle"
//
//	[[entry]]
//	path = "media/intro.mp4"
//	file = "/srv/assets/intro.mp4"
//
//	[[entry]]
//	path = "media/cover.jpg"
//	url = "https://cdn.example.com/cover.jpg"
//	binary = true
package manifest

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Sentinel errors for manifest validation.
var (
	// ErrNoEntries is returned when a manifest declares no entries.
	ErrNoEntries = errors.New("manifest: no entries")

	// ErrMissingPath is returned when an entry has no archive path.
	ErrMissingPath = errors.New("manifest: entry path is required")

	// ErrNoLocation is returned when an entry names neither or both of a
	// local file and a URL.
	ErrNoLocation = errors.New("manifest: entry needs exactly one of file or url")
)

// Entry describes one archive member.
type Entry struct {
	// Path is the archive-relative path for the member.
	Path string `toml:"path"`

	// File is a local filesystem path to read content from.
	File string `toml:"file"`

	// URL is a remote location to stream content from.
	URL string `toml:"url"`

	// Size overrides the discovered content size when set.
	Size *uint64 `toml:"size"`

	// Modified overrides the modification time. When zero, local files use
	// their mtime and remote entries use the build time.
	Modified time.Time `toml:"modified"`

	// Binary marks the content as binary rather than text.
	Binary bool `toml:"binary"`

	// Comment is an optional per-member comment.
	Comment string `toml:"comment"`
}

// Manifest is the TOML description of an archive.
type Manifest struct {
	// Comment is the archive-level comment.
	Comment string `toml:"comment"`

	// Entries lists the archive members in archive order.
	Entries []Entry `toml:"entry"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Entries) == 0 {
		return ErrNoEntries
	}
	for i, e := range m.Entries {
		if e.Path == "" {
			return fmt.Errorf("entry %d: %w", i, ErrMissingPath)
		}
		if (e.File == "") == (e.URL == "") {
			return fmt.Errorf("entry %d (%q): %w", i, e.Path, ErrNoLocation)
		}
	}
	return nil
}
