package zipstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/zipstream/internal/ioutil"
	"github.com/meigma/zipstream/internal/record"
)

// versionZip64 is written as both version-made-by and version-needed.
var versionZip64 = record.VersionZip64

// segKind enumerates the structural elements of the archive byte stream.
type segKind uint8

const (
	segFileHeader segKind = iota
	segFileData
	segFileDescriptor
	segDirectoryEntry
	segZip64Directory
	segZip64Locator
	segDirectoryEnd
)

// segRef identifies a segment so later segments can look up its resolved
// offset or a value it produced. file is meaningful only for per-file kinds.
type segRef struct {
	kind segKind
	file int
}

// segment is one structural element of the archive byte stream. length must
// be answerable before writeTo runs, and may depend only on entry metadata,
// on resolved offsets of segments at or before this one in emission order,
// and on values earlier segments already produced. Field widths must never
// depend on values learned while streaming (checksums); only declared sizes
// and offsets may change a record's length.
type segment interface {
	ref() segRef
	length() (uint64, error)
	writeTo(w io.Writer) error
}

// fileHeaderSegment emits the local file header for one entry.
type fileHeaderSegment struct {
	enc   *Encoder
	file  int
	entry *Entry
}

func (s *fileHeaderSegment) ref() segRef { return segRef{kind: segFileHeader, file: s.file} }

// header builds the record. Content streams after the header, so CRC32 and
// sizes are zero and the streamed flag announces the trailing data
// descriptor; the true values follow in the descriptor and the central
// directory.
func (s *fileHeaderSegment) header() ([]byte, error) {
	h := record.LocalFileHeader{
		VersionNeeded: versionZip64,
		Flags:         record.GPUTF8 | record.GPStreamed,
		Method:        s.entry.Data.Method(),
		Modified:      s.entry.Modified,
		Name:          s.entry.Path,
	}
	return h.Encode()
}

func (s *fileHeaderSegment) length() (uint64, error) {
	b, err := s.header()
	if err != nil {
		return 0, err
	}
	return uint64(len(b)), nil
}

func (s *fileHeaderSegment) writeTo(w io.Writer) error {
	b, err := s.header()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// fileDataSegment emits one entry's encoded content. It wraps the storage
// strategy's production with the declared-size check: a source that yields
// too many bytes fails before the excess reaches w, and a source that runs
// short fails once production ends.
type fileDataSegment struct {
	enc   *Encoder
	file  int
	entry *Entry
}

func (s *fileDataSegment) ref() segRef { return segRef{kind: segFileData, file: s.file} }

// checksum reports the content CRC32, valid once writeTo completed.
func (s *fileDataSegment) checksum() uint32 { return s.entry.Data.Checksum() }

func (s *fileDataSegment) length() (uint64, error) {
	return s.entry.Data.CompressedSize(), nil
}

func (s *fileDataSegment) writeTo(w io.Writer) error {
	want := s.entry.Data.CompressedSize()
	lw := &ioutil.LimitWriter{W: w, Max: want}
	if err := s.entry.Data.WriteContent(lw); err != nil {
		if errors.Is(err, ioutil.ErrWriteLimit) {
			return fmt.Errorf("%w: %q produced more than the declared %d bytes", ErrSizeMismatch, s.entry.Path, want)
		}
		return err
	}
	if lw.N != want {
		return fmt.Errorf("%w: %q produced %d bytes, declared %d", ErrSizeMismatch, s.entry.Path, lw.N, want)
	}
	return nil
}

// dataDescriptorSegment trails an entry's content with the checksum and
// sizes the header left zero. It reads the CRC32 back from the file data
// segment, which by emission order has already produced it.
type dataDescriptorSegment struct {
	enc   *Encoder
	file  int
	entry *Entry
}

func (s *dataDescriptorSegment) ref() segRef { return segRef{kind: segFileDescriptor, file: s.file} }

func (s *dataDescriptorSegment) length() (uint64, error) {
	return record.DataDescriptorSize, nil
}

func (s *dataDescriptorSegment) writeTo(w io.Writer) error {
	data := s.enc.segmentFor(segRef{kind: segFileData, file: s.file}).(*fileDataSegment)
	d := record.DataDescriptor{
		CRC32:            data.checksum(),
		CompressedSize:   s.entry.Data.CompressedSize(),
		UncompressedSize: s.entry.Data.UncompressedSize(),
	}
	_, err := w.Write(d.Encode())
	return err
}

// directoryEntrySegment registers one entry in the central directory.
type directoryEntrySegment struct {
	enc   *Encoder
	file  int
	entry *Entry
}

func (s *directoryEntrySegment) ref() segRef { return segRef{kind: segDirectoryEntry, file: s.file} }

// entryRecord builds the directory record. The header offset resolved
// earlier in the forward pass, and by the time this segment streams, the
// file data segment has produced the real CRC32. During offset resolution
// the checksum still reads zero, which is fine: the record's length does
// not depend on it.
func (s *directoryEntrySegment) entryRecord() ([]byte, error) {
	data := s.enc.segmentFor(segRef{kind: segFileData, file: s.file}).(*fileDataSegment)
	headerOffset := s.enc.offsetOf(segRef{kind: segFileHeader, file: s.file})

	csize := s.entry.Data.CompressedSize()
	usize := s.entry.Data.UncompressedSize()

	// ZIP64 only when a 32-bit field saturates; a saturated field reads as
	// an escape to the extra field, so presence must match exactly.
	var extra []byte
	if csize >= record.Max32 || usize >= record.Max32 || headerOffset >= record.Max32 {
		x := record.Zip64Extra{
			OriginalSize:   usize,
			CompressedSize: csize,
			HeaderOffset:   headerOffset,
		}
		extra = x.Encode()
	}

	var internal uint16
	if s.entry.Binary {
		internal = 1
	}

	e := record.CentralDirectoryEntry{
		MadeBy:           versionZip64,
		VersionNeeded:    versionZip64,
		Flags:            record.GPUTF8 | record.GPStreamed,
		Method:           s.entry.Data.Method(),
		Modified:         s.entry.Modified,
		CRC32:            data.checksum(),
		CompressedSize:   csize,
		UncompressedSize: usize,
		Name:             s.entry.Path,
		Extra:            extra,
		Comment:          s.entry.Comment,
		InternalAttrs:    internal,
		HeaderOffset:     headerOffset,
	}
	return e.Encode()
}

func (s *directoryEntrySegment) length() (uint64, error) {
	b, err := s.entryRecord()
	if err != nil {
		return 0, err
	}
	return uint64(len(b)), nil
}

func (s *directoryEntrySegment) writeTo(w io.Writer) error {
	b, err := s.entryRecord()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// zip64DirectorySegment emits the ZIP64 end-of-directory record, or nothing
// when no 32-bit directory field saturates.
type zip64DirectorySegment struct {
	enc *Encoder
}

func (s *zip64DirectorySegment) ref() segRef { return segRef{kind: segZip64Directory} }

// required reports whether 32-bit directory metadata would saturate. The
// locator mirrors this decision rather than recomputing it, so the two
// segments are always both present or both absent.
func (s *zip64DirectorySegment) required() bool {
	dirOffset := s.enc.offsetOf(segRef{kind: segDirectoryEntry})
	endOffset := s.enc.offsetOf(segRef{kind: segZip64Directory})
	return uint64(len(s.enc.entries)) >= record.Max16 ||
		dirOffset >= record.Max32 ||
		endOffset >= record.Max32
}

func (s *zip64DirectorySegment) length() (uint64, error) {
	if !s.required() {
		return 0, nil
	}
	return record.Zip64EndOfDirectorySize, nil
}

func (s *zip64DirectorySegment) writeTo(w io.Writer) error {
	if !s.required() {
		return nil
	}
	dirOffset := s.enc.offsetOf(segRef{kind: segDirectoryEntry})
	endOffset := s.enc.offsetOf(segRef{kind: segZip64Directory})
	entries := uint64(len(s.enc.entries))

	r := record.Zip64EndOfDirectory{
		MadeBy:          versionZip64,
		VersionNeeded:   versionZip64,
		DiskEntries:     entries,
		TotalEntries:    entries,
		DirectorySize:   endOffset - dirOffset,
		DirectoryOffset: dirOffset,
	}
	b, err := r.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// zip64LocatorSegment points at the ZIP64 end-of-directory record whenever
// that record is present.
type zip64LocatorSegment struct {
	enc *Encoder
}

func (s *zip64LocatorSegment) ref() segRef { return segRef{kind: segZip64Locator} }

func (s *zip64LocatorSegment) required() bool {
	return s.enc.segmentFor(segRef{kind: segZip64Directory}).(*zip64DirectorySegment).required()
}

func (s *zip64LocatorSegment) length() (uint64, error) {
	if !s.required() {
		return 0, nil
	}
	return record.Zip64LocatorSize, nil
}

func (s *zip64LocatorSegment) writeTo(w io.Writer) error {
	if !s.required() {
		return nil
	}
	l := record.Zip64Locator{
		DirectoryOffset: s.enc.offsetOf(segRef{kind: segZip64Directory}),
		TotalDisks:      1,
	}
	_, err := w.Write(l.Encode())
	return err
}

// directoryEndSegment terminates the archive.
type directoryEndSegment struct {
	enc *Encoder
}

func (s *directoryEndSegment) ref() segRef { return segRef{kind: segDirectoryEnd} }

func (s *directoryEndSegment) endRecord() ([]byte, error) {
	dirOffset := s.enc.offsetOf(segRef{kind: segDirectoryEntry})
	endOffset := s.enc.offsetOf(segRef{kind: segZip64Directory})
	entries := uint64(len(s.enc.entries))

	r := record.EndOfDirectory{
		DiskEntries:     entries,
		TotalEntries:    entries,
		DirectorySize:   endOffset - dirOffset,
		DirectoryOffset: dirOffset,
		Comment:         s.enc.comment,
	}
	return r.Encode()
}

func (s *directoryEndSegment) length() (uint64, error) {
	b, err := s.endRecord()
	if err != nil {
		return 0, err
	}
	return uint64(len(b)), nil
}

func (s *directoryEndSegment) writeTo(w io.Writer) error {
	b, err := s.endRecord()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
