package zipstream

import (
	"fmt"
	"io"

	"github.com/meigma/zipstream/internal/ioutil"
	"github.com/meigma/zipstream/internal/record"
)

// Encoder builds a ZIP archive in a single forward pass. Construction
// resolves every segment's offset from metadata alone, so Size is exact
// before any content byte has been read; WriteTo then streams the archive
// once, reading each entry's content source as it goes.
type Encoder struct {
	entries []Entry
	comment string

	segments []segment
	offsets  map[segRef]uint64
	index    map[segRef]segment
	size     uint64
	streamed bool
}

// NewEncoder prepares an encoder for the given entries. The entry list must
// be non-empty; entries are referenced, not copied deeply, and their
// storage strategies are consumed by the first WriteTo.
//
// Segment offsets resolve here, so errors a record would produce (an
// oversized file name, an oversized per-entry comment) surface from
// NewEncoder rather than mid-stream.
func NewEncoder(entries []Entry, opts ...Option) (*Encoder, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	e := &Encoder{
		entries: entries,
		offsets: make(map[segRef]uint64),
		index:   make(map[segRef]segment),
	}
	for _, opt := range opts {
		opt(e)
	}

	if len(e.comment) > record.Max16 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCommentTooLong, len(e.comment))
	}
	for i := range entries {
		if err := validatePath(entries[i].Path); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if entries[i].Data == nil {
			return nil, fmt.Errorf("entry %d %q: %w", i, entries[i].Path, ErrNilStorage)
		}
	}

	e.buildSegments()
	if err := e.resolveOffsets(); err != nil {
		return nil, err
	}
	return e, nil
}

// buildSegments lays out the fixed segment order: per file a header, the
// data, and a descriptor; then one directory entry per file; then the ZIP64
// tail and the end-of-directory record. This order is what guarantees that
// every cross-segment lookup points strictly backwards.
func (e *Encoder) buildSegments() {
	segs := make([]segment, 0, 4*len(e.entries)+3)
	for i := range e.entries {
		entry := &e.entries[i]
		segs = append(segs,
			&fileHeaderSegment{enc: e, file: i, entry: entry},
			&fileDataSegment{enc: e, file: i, entry: entry},
			&dataDescriptorSegment{enc: e, file: i, entry: entry},
		)
	}
	for i := range e.entries {
		segs = append(segs, &directoryEntrySegment{enc: e, file: i, entry: &e.entries[i]})
	}
	segs = append(segs,
		&zip64DirectorySegment{enc: e},
		&zip64LocatorSegment{enc: e},
		&directoryEndSegment{enc: e},
	)
	e.segments = segs
}

// resolveOffsets walks the segment list once, recording each segment's
// offset before asking its length. A segment's length may therefore consult
// its own offset and everything before it, but nothing after. No content is
// read here; lengths derive from declared metadata alone.
func (e *Encoder) resolveOffsets() error {
	var off uint64
	for _, s := range e.segments {
		r := s.ref()
		e.offsets[r] = off
		e.index[r] = s
		n, err := s.length()
		if err != nil {
			return err
		}
		off += n
	}
	e.size = off
	return nil
}

// Size returns the total archive length in bytes. It is exact and available
// before any content has been read, e.g. for an HTTP Content-Length header.
func (e *Encoder) Size() uint64 { return e.size }

// offsetOf returns the resolved archive offset of the referenced segment.
func (e *Encoder) offsetOf(r segRef) uint64 { return e.offsets[r] }

// segmentFor returns the segment instance behind a reference.
func (e *Encoder) segmentFor(r segRef) segment { return e.index[r] }

// WriteTo streams the archive to w, segment by segment, reading each
// entry's content source exactly once. On any error the stream is invalid
// and must be discarded; there is no partial-success mode. A second call
// fails with ErrAlreadyStreamed because the sources are spent.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	if e.streamed {
		return 0, ErrAlreadyStreamed
	}
	e.streamed = true

	cw := &ioutil.CountingWriter{W: w}
	for _, s := range e.segments {
		if err := s.writeTo(cw); err != nil {
			return int64(cw.N), err
		}
	}
	return int64(cw.N), nil
}
