// Package record encodes the fixed binary structures of the ZIP file
// format: local file headers, data descriptors, central directory entries,
// the ZIP64 extensions, and the end-of-directory records. All layouts are
// little-endian and self-contained; every Encode method produces the exact
// wire bytes, including the record signature.
package record

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Record signatures.
const (
	SigLocalFileHeader       uint32 = 0x04034B50
	SigDataDescriptor        uint32 = 0x08074B50
	SigCentralDirectoryEntry uint32 = 0x02014B50
	SigZip64EndOfDirectory   uint32 = 0x06064B50
	SigZip64Locator          uint32 = 0x07064B50
	SigEndOfDirectory        uint32 = 0x06054B50
)

// General purpose bit flags.
const (
	// GPStreamed announces that CRC32 and sizes are zero in the local file
	// header and that a data descriptor trails the file content.
	GPStreamed uint16 = 1 << 3

	// GPUTF8 marks file names and comments as UTF-8 encoded.
	GPUTF8 uint16 = 1 << 11
)

// Compression method identifiers.
const (
	MethodStored  uint16 = 0
	MethodDeflate uint16 = 8
)

// Fixed record sizes in bytes.
const (
	DataDescriptorSize      = 16
	Zip64EndOfDirectorySize = 56
	Zip64LocatorSize        = 20
)

var le = binary.LittleEndian

// LocalFileHeader is the per-file record preceding that file's content.
type LocalFileHeader struct {
	VersionNeeded    Version
	Flags            uint16
	Method           uint16
	Modified         time.Time
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	Name             string
	Extra            []byte
}

// Encode returns the header's wire bytes: the fixed 30-byte prefix followed
// by the UTF-8 name and the concatenated extra fields.
func (h *LocalFileHeader) Encode() ([]byte, error) {
	version, err := h.VersionNeeded.Encode()
	if err != nil {
		return nil, err
	}
	name := []byte(h.Name)
	nameLen, err := Fit16(uint64(len(name)), Forbid)
	if err != nil {
		return nil, fmt.Errorf("file name %q: %w", h.Name, err)
	}
	extraLen, err := Fit16(uint64(len(h.Extra)), Forbid)
	if err != nil {
		return nil, fmt.Errorf("extra fields for %q: %w", h.Name, err)
	}
	dosTime, dosDate := DOSTime(h.Modified)

	buf := make([]byte, 0, 30+len(name)+len(h.Extra))
	buf = le.AppendUint32(buf, SigLocalFileHeader)
	buf = le.AppendUint16(buf, version)
	buf = le.AppendUint16(buf, h.Flags)
	buf = le.AppendUint16(buf, h.Method)
	buf = le.AppendUint16(buf, dosTime)
	buf = le.AppendUint16(buf, dosDate)
	buf = le.AppendUint32(buf, h.CRC32)
	buf = le.AppendUint32(buf, sat32(h.CompressedSize))
	buf = le.AppendUint32(buf, sat32(h.UncompressedSize))
	buf = le.AppendUint16(buf, nameLen)
	buf = le.AppendUint16(buf, extraLen)
	buf = append(buf, name...)
	buf = append(buf, h.Extra...)
	return buf, nil
}

// DataDescriptor trails a streamed file's content, carrying the values the
// local file header left zero. All fields are 32-bit and saturate; the
// authoritative 64-bit values live in the central directory.
type DataDescriptor struct {
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
}

// Encode returns the descriptor's wire bytes.
func (d *DataDescriptor) Encode() []byte {
	buf := make([]byte, 0, DataDescriptorSize)
	buf = le.AppendUint32(buf, SigDataDescriptor)
	buf = le.AppendUint32(buf, d.CRC32)
	buf = le.AppendUint32(buf, sat32(d.CompressedSize))
	buf = le.AppendUint32(buf, sat32(d.UncompressedSize))
	return buf
}

// CentralDirectoryEntry registers one file in the central directory.
type CentralDirectoryEntry struct {
	MadeBy           Version
	VersionNeeded    Version
	Flags            uint16
	Method           uint16
	Modified         time.Time
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	Name             string
	Extra            []byte
	Comment          string
	DiskStart        uint16
	InternalAttrs    uint16
	ExternalAttrs    uint32
	HeaderOffset     uint64
}

// Encode returns the entry's wire bytes: the fixed 46-byte prefix followed
// by name, extra fields, and comment.
func (e *CentralDirectoryEntry) Encode() ([]byte, error) {
	madeBy, err := e.MadeBy.Encode()
	if err != nil {
		return nil, err
	}
	needed, err := e.VersionNeeded.Encode()
	if err != nil {
		return nil, err
	}
	name := []byte(e.Name)
	nameLen, err := Fit16(uint64(len(name)), Forbid)
	if err != nil {
		return nil, fmt.Errorf("file name %q: %w", e.Name, err)
	}
	extraLen, err := Fit16(uint64(len(e.Extra)), Forbid)
	if err != nil {
		return nil, fmt.Errorf("extra fields for %q: %w", e.Name, err)
	}
	comment := []byte(e.Comment)
	commentLen, err := Fit16(uint64(len(comment)), Forbid)
	if err != nil {
		return nil, fmt.Errorf("comment for %q: %w", e.Name, err)
	}
	dosTime, dosDate := DOSTime(e.Modified)

	buf := make([]byte, 0, 46+len(name)+len(e.Extra)+len(comment))
	buf = le.AppendUint32(buf, SigCentralDirectoryEntry)
	buf = le.AppendUint16(buf, madeBy)
	buf = le.AppendUint16(buf, needed)
	buf = le.AppendUint16(buf, e.Flags)
	buf = le.AppendUint16(buf, e.Method)
	buf = le.AppendUint16(buf, dosTime)
	buf = le.AppendUint16(buf, dosDate)
	buf = le.AppendUint32(buf, e.CRC32)
	buf = le.AppendUint32(buf, sat32(e.CompressedSize))
	buf = le.AppendUint32(buf, sat32(e.UncompressedSize))
	buf = le.AppendUint16(buf, nameLen)
	buf = le.AppendUint16(buf, extraLen)
	buf = le.AppendUint16(buf, commentLen)
	buf = le.AppendUint16(buf, e.DiskStart)
	buf = le.AppendUint16(buf, e.InternalAttrs)
	buf = le.AppendUint32(buf, e.ExternalAttrs)
	buf = le.AppendUint32(buf, sat32(e.HeaderOffset))
	buf = append(buf, name...)
	buf = append(buf, e.Extra...)
	buf = append(buf, comment...)
	return buf, nil
}

// zip64ExtraID is the header ID of the ZIP64 extended information field.
const zip64ExtraID uint16 = 0x0001

// Zip64Extra is the extensible-data field carrying 64-bit file metadata.
// Each value is emitted only when its narrower counterpart in the
// surrounding record saturates, and the declared length covers exactly the
// emitted values.
type Zip64Extra struct {
	OriginalSize   uint64
	CompressedSize uint64
	HeaderOffset   uint64
	DiskStart      uint32
}

// Encode returns the extra field's wire bytes.
func (x *Zip64Extra) Encode() []byte {
	payload := make([]byte, 0, 28)
	if x.OriginalSize >= Max32 {
		payload = le.AppendUint64(payload, x.OriginalSize)
	}
	if x.CompressedSize >= Max32 {
		payload = le.AppendUint64(payload, x.CompressedSize)
	}
	if x.HeaderOffset >= Max32 {
		payload = le.AppendUint64(payload, x.HeaderOffset)
	}
	if uint64(x.DiskStart) >= Max16 {
		payload = le.AppendUint32(payload, x.DiskStart)
	}

	buf := make([]byte, 0, 4+len(payload))
	buf = le.AppendUint16(buf, zip64ExtraID)
	buf = le.AppendUint16(buf, uint16(len(payload)))
	return append(buf, payload...)
}

// Zip64EndOfDirectory is the 64-bit directory metadata record. It appears
// only when a 32-bit directory field would saturate.
type Zip64EndOfDirectory struct {
	MadeBy          Version
	VersionNeeded   Version
	DiskNumber      uint32
	StartDisk       uint32
	DiskEntries     uint64
	TotalEntries    uint64
	DirectorySize   uint64
	DirectoryOffset uint64
}

// Encode returns the record's wire bytes. The leading size field counts the
// bytes following itself, 44 for this fixed layout.
func (r *Zip64EndOfDirectory) Encode() ([]byte, error) {
	madeBy, err := r.MadeBy.Encode()
	if err != nil {
		return nil, err
	}
	needed, err := r.VersionNeeded.Encode()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, Zip64EndOfDirectorySize)
	buf = le.AppendUint32(buf, SigZip64EndOfDirectory)
	buf = le.AppendUint64(buf, Zip64EndOfDirectorySize-12)
	buf = le.AppendUint16(buf, madeBy)
	buf = le.AppendUint16(buf, needed)
	buf = le.AppendUint32(buf, r.DiskNumber)
	buf = le.AppendUint32(buf, r.StartDisk)
	buf = le.AppendUint64(buf, r.DiskEntries)
	buf = le.AppendUint64(buf, r.TotalEntries)
	buf = le.AppendUint64(buf, r.DirectorySize)
	buf = le.AppendUint64(buf, r.DirectoryOffset)
	return buf, nil
}

// Zip64Locator points a reader at the ZIP64 end-of-directory record. It is
// present exactly when that record is.
type Zip64Locator struct {
	StartDisk       uint32
	DirectoryOffset uint64
	TotalDisks      uint32
}

// Encode returns the locator's wire bytes.
func (l *Zip64Locator) Encode() []byte {
	buf := make([]byte, 0, Zip64LocatorSize)
	buf = le.AppendUint32(buf, SigZip64Locator)
	buf = le.AppendUint32(buf, l.StartDisk)
	buf = le.AppendUint64(buf, l.DirectoryOffset)
	buf = le.AppendUint32(buf, l.TotalDisks)
	return buf
}

// EndOfDirectory terminates the archive. Counts saturate to 16 bits and
// sizes to 32; the true values live in the ZIP64 record when present.
type EndOfDirectory struct {
	DiskNumber      uint16
	StartDisk       uint16
	DiskEntries     uint64
	TotalEntries    uint64
	DirectorySize   uint64
	DirectoryOffset uint64
	Comment         string
}

// Encode returns the record's wire bytes: the fixed 22-byte prefix followed
// by the UTF-8 archive comment.
func (r *EndOfDirectory) Encode() ([]byte, error) {
	comment := []byte(r.Comment)
	commentLen, err := Fit16(uint64(len(comment)), Forbid)
	if err != nil {
		return nil, fmt.Errorf("archive comment: %w", err)
	}

	buf := make([]byte, 0, 22+len(comment))
	buf = le.AppendUint32(buf, SigEndOfDirectory)
	buf = le.AppendUint16(buf, r.DiskNumber)
	buf = le.AppendUint16(buf, r.StartDisk)
	buf = le.AppendUint16(buf, sat16(r.DiskEntries))
	buf = le.AppendUint16(buf, sat16(r.TotalEntries))
	buf = le.AppendUint32(buf, sat32(r.DirectorySize))
	buf = le.AppendUint32(buf, sat32(r.DirectoryOffset))
	buf = le.AppendUint16(buf, commentLen)
	buf = append(buf, comment...)
	return buf, nil
}
