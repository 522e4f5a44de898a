package zipstream

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"

	"github.com/meigma/zipstream/internal/record"
)

// Compression method identifiers re-exported from internal/record.
const (
	// MethodStored identifies raw, uncompressed storage.
	MethodStored = record.MethodStored

	// MethodDeflate identifies DEFLATE storage.
	MethodDeflate = record.MethodDeflate
)

// Storage encodes one file's content stream into archive bytes. Both sizes
// and the method are known before any content byte is read, which is what
// lets the encoder announce the archive length up front.
//
// A Storage is consumed exactly once. Checksum is valid only after
// WriteContent returned.
type Storage interface {
	// Method returns the ZIP compression method tag written to the records.
	Method() uint16

	// CompressedSize returns the exact number of bytes WriteContent will
	// produce, derived from the declared size alone.
	CompressedSize() uint64

	// UncompressedSize returns the declared size of the original content.
	UncompressedSize() uint64

	// Checksum returns the CRC32 of the original content, accumulated while
	// WriteContent streams.
	Checksum() uint32

	// WriteContent opens the byte source, streams the encoded content to w,
	// and closes the source on every path out.
	WriteContent(w io.Writer) error
}

// storeChunkSize is the read granularity of Store.
const storeChunkSize = 1 << 20

// Store passes content through unchanged, compression method "stored".
type Store struct {
	src  ByteSource
	size uint64
	crc  uint32
}

// NewStore creates a Store for a source whose content is size bytes long.
func NewStore(src ByteSource, size uint64) *Store {
	return &Store{src: src, size: size}
}

// Method returns MethodStored.
func (s *Store) Method() uint16 { return MethodStored }

// CompressedSize equals the declared size; nothing is added or removed.
func (s *Store) CompressedSize() uint64 { return s.size }

// UncompressedSize returns the declared content size.
func (s *Store) UncompressedSize() uint64 { return s.size }

// Checksum returns the content CRC32, valid once WriteContent returned.
func (s *Store) Checksum() uint32 { return s.crc }

// WriteContent streams the source to w in fixed-size chunks, accumulating
// the CRC32 as it goes.
func (s *Store) WriteContent(w io.Writer) error {
	if err := s.src.Open(); err != nil {
		return err
	}
	defer s.src.Close()

	buf := make([]byte, storeChunkSize)
	for off := uint64(0); off < s.size; off += storeChunkSize {
		n, err := readFull(s.src, buf)
		if err != nil {
			return err
		}
		s.crc = crc32.Update(s.crc, crc32.IEEETable, buf[:n])
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		if n < len(buf) {
			break // source exhausted
		}
	}
	return nil
}

// DEFLATE stored-block framing constants.
const (
	// deflateBlockSize is the maximum payload of one stored block.
	deflateBlockSize = 0xFFFF

	// deflateBlockHeaderSize is the per-block framing overhead: one flag
	// byte, the block length, and its one's complement.
	deflateBlockHeaderSize = 5
)

// DeflateStore frames content as DEFLATE stored (uncompressed) blocks,
// compression method "deflate". The framing costs five bytes per block but
// lets readers know each block's size without scanning ahead, and some
// extractors handle method-deflate entries better than raw stored data.
type DeflateStore struct {
	src  ByteSource
	size uint64
	crc  uint32
}

// NewDeflateStore creates a DeflateStore for a source whose content is size
// bytes long.
func NewDeflateStore(src ByteSource, size uint64) *DeflateStore {
	return &DeflateStore{src: src, size: size}
}

// Method returns MethodDeflate.
func (s *DeflateStore) Method() uint16 { return MethodDeflate }

// Blocks returns the number of stored blocks WriteContent will emit. An
// empty file emits zero blocks.
func (s *DeflateStore) Blocks() uint64 {
	return (s.size + deflateBlockSize - 1) / deflateBlockSize
}

// CompressedSize is the declared size plus the per-block framing overhead.
func (s *DeflateStore) CompressedSize() uint64 {
	return s.size + s.Blocks()*deflateBlockHeaderSize
}

// UncompressedSize returns the declared content size.
func (s *DeflateStore) UncompressedSize() uint64 { return s.size }

// Checksum returns the CRC32 of the raw (unframed) content, valid once
// WriteContent returned.
func (s *DeflateStore) Checksum() uint32 { return s.crc }

// WriteContent streams the source to w, one framed block per write so a
// short or oversized block never reaches w partially.
func (s *DeflateStore) WriteContent(w io.Writer) error {
	if err := s.src.Open(); err != nil {
		return err
	}
	defer s.src.Close()

	blocks := s.Blocks()
	buf := make([]byte, deflateBlockHeaderSize+deflateBlockSize)
	for i := uint64(0); i < blocks; i++ {
		n, err := readFull(s.src, buf[deflateBlockHeaderSize:])
		if err != nil {
			return err
		}

		buf[0] = 0
		if i == blocks-1 {
			buf[0] = 1 // final-block bit
		}
		binary.LittleEndian.PutUint16(buf[1:3], uint16(n))
		binary.LittleEndian.PutUint16(buf[3:5], ^uint16(n))

		s.crc = crc32.Update(s.crc, crc32.IEEETable, buf[deflateBlockHeaderSize:deflateBlockHeaderSize+n])
		if _, err := w.Write(buf[:deflateBlockHeaderSize+n]); err != nil {
			return err
		}
		if n < deflateBlockSize {
			break // source exhausted
		}
	}
	return nil
}

// readFull reads from src until p is full or the stream ends. A nil error
// with n < len(p) means the source is exhausted.
func readFull(src ByteSource, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := src.Read(p[n:])
		n += m
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, nil
		}
	}
	return n, nil
}
