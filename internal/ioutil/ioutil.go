// Package ioutil provides small writer helpers shared by the encoder.
package ioutil

import (
	"errors"
	"io"
)

// ErrWriteLimit is returned by LimitWriter when a write would push the
// running total past the configured maximum. Nothing from the offending
// write is forwarded.
var ErrWriteLimit = errors.New("zipstream: write limit exceeded")

// CountingWriter counts bytes forwarded to W.
type CountingWriter struct {
	W io.Writer
	N uint64
}

// Write forwards p to W and adds the forwarded byte count to N.
func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += uint64(n)
	return n, err
}

// LimitWriter forwards writes to W while tracking the running total in N,
// and rejects any write that would exceed Max before forwarding a single
// byte of it.
type LimitWriter struct {
	W   io.Writer
	Max uint64
	N   uint64
}

// Write forwards p to W, or returns ErrWriteLimit if the write would
// overflow the limit.
func (l *LimitWriter) Write(p []byte) (int, error) {
	if uint64(len(p)) > l.Max-l.N {
		return 0, ErrWriteLimit
	}
	n, err := l.W.Write(p)
	l.N += uint64(n)
	return n, err
}
