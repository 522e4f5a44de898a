// Package file provides a ByteSource backed by a local file.
package file

import "os"

// Source streams the content of a file on the local filesystem. The file is
// opened lazily by Open, so a Source can be constructed for many files
// without holding descriptors for all of them.
type Source struct {
	path string
	f    *os.File
}

// NewSource creates a Source for the file at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Size returns the file's current size in bytes. Callers declare this size
// to the encoder; if the file changes length before it is streamed, the
// build fails with a size mismatch.
func (s *Source) Size() (uint64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// Open opens the underlying file.
func (s *Source) Open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	s.f = f
	return nil
}

// Read reads from the open file.
func (s *Source) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Close closes the file. Safe to call more than once, and safe to call when
// Open never ran.
func (s *Source) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
