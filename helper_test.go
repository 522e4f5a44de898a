package zipstream_test

import (
	"bytes"
	"errors"
	"io"
)

// memSource is an in-memory ByteSource that tracks its lifecycle so tests
// can assert sources are opened lazily and closed on every path out.
type memSource struct {
	data []byte

	r       *bytes.Reader
	opens   int
	closes  int
	openErr error
	readErr error
}

func newMemSource(data []byte) *memSource {
	return &memSource{data: data}
}

func (s *memSource) Open() error {
	s.opens++
	if s.openErr != nil {
		return s.openErr
	}
	s.r = bytes.NewReader(s.data)
	return nil
}

func (s *memSource) Read(p []byte) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.r == nil {
		return 0, errors.New("read before open")
	}
	return s.r.Read(p)
}

func (s *memSource) Close() error {
	s.closes++
	s.r = nil
	return nil
}

var _ io.Reader = (*memSource)(nil)
