package zipstream_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zipstream"
)

var testModified = time.Date(2024, time.May, 6, 7, 8, 10, 0, time.UTC)

func storeEntry(path string, content []byte) (zipstream.Entry, *memSource) {
	src := newMemSource(content)
	return zipstream.Entry{
		Path:     path,
		Data:     zipstream.NewStore(src, uint64(len(content))),
		Modified: testModified,
	}, src
}

func deflateEntry(path string, content []byte) (zipstream.Entry, *memSource) {
	src := newMemSource(content)
	return zipstream.Entry{
		Path:     path,
		Data:     zipstream.NewDeflateStore(src, uint64(len(content))),
		Modified: testModified,
	}, src
}

func TestNewEncoder_NoEntries(t *testing.T) {
	t.Parallel()

	_, err := zipstream.NewEncoder(nil)
	require.ErrorIs(t, err, zipstream.ErrNoEntries)
}

func TestNewEncoder_NilStorage(t *testing.T) {
	t.Parallel()

	_, err := zipstream.NewEncoder([]zipstream.Entry{{Path: "a.txt"}})
	require.ErrorIs(t, err, zipstream.ErrNilStorage)
}

func TestNewEncoder_CommentTooLong(t *testing.T) {
	t.Parallel()

	entry, _ := storeEntry("a.txt", nil)
	_, err := zipstream.NewEncoder(
		[]zipstream.Entry{entry},
		zipstream.WithComment(strings.Repeat("c", 0x10000)),
	)
	require.ErrorIs(t, err, zipstream.ErrCommentTooLong)
}

func TestNewEncoder_InvalidPaths(t *testing.T) {
	t.Parallel()

	paths := []string{
		"",
		"/rooted",
		"dir\\file.txt",
		"C:/file.txt",
		"a//b",
		"a/./b",
		"a/../b",
		"..",
	}
	for _, path := range paths {
		entry, _ := storeEntry(path, nil)
		_, err := zipstream.NewEncoder([]zipstream.Entry{entry})
		require.ErrorIs(t, err, zipstream.ErrInvalidPath, "path %q", path)
	}
}

func TestNewEncoder_NameTooLong(t *testing.T) {
	t.Parallel()

	entry, _ := storeEntry(strings.Repeat("n", 0x10000), nil)
	_, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.ErrorIs(t, err, zipstream.ErrFieldOverflow)
}

func TestEncoder_SizeMatchesStream(t *testing.T) {
	t.Parallel()

	e1, _ := storeEntry("a/one.bin", testContent(1234))
	e2, _ := deflateEntry("a/two.bin", testContent(0xFFFF*2+17))
	e3, _ := storeEntry("empty.txt", nil)
	e2.Comment = "framed"

	enc, err := zipstream.NewEncoder(
		[]zipstream.Entry{e1, e2, e3},
		zipstream.WithComment("size check"),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := enc.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, enc.Size(), uint64(buf.Len()), "declared size must match the streamed bytes exactly")
}

func TestEncoder_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() []byte {
		e1, _ := storeEntry("one.bin", testContent(999))
		e2, _ := deflateEntry("two.bin", testContent(70_000))
		enc, err := zipstream.NewEncoder([]zipstream.Entry{e1, e2})
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = enc.WriteTo(&buf)
		require.NoError(t, err)
		return buf.Bytes()
	}

	assert.Equal(t, build(), build(), "same inputs must produce identical archives")
}

func TestEncoder_RoundTrip(t *testing.T) {
	t.Parallel()

	text := []byte("hello from the stream\n")
	blob := testContent(200_000)

	e1, _ := storeEntry("docs/readme.txt", text)
	e1.Comment = "plain text"
	e2, _ := deflateEntry("data/blob.bin", blob)
	e2.Binary = true
	e3, _ := storeEntry("empty.txt", nil)

	enc, err := zipstream.NewEncoder(
		[]zipstream.Entry{e1, e2, e3},
		zipstream.WithComment("nightly build"),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = enc.WriteTo(&buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	assert.Equal(t, "nightly build", zr.Comment)
	require.Len(t, zr.File, 3)

	want := []struct {
		name    string
		method  uint16
		content []byte
		comment string
	}{
		{name: "docs/readme.txt", method: zip.Store, content: text, comment: "plain text"},
		{name: "data/blob.bin", method: zip.Deflate, content: blob},
		{name: "empty.txt", method: zip.Store, content: []byte{}},
	}
	for i, w := range want {
		f := zr.File[i]
		assert.Equal(t, w.name, f.Name)
		assert.Equal(t, w.method, f.Method)
		assert.Equal(t, w.comment, f.Comment)
		assert.True(t, testModified.Equal(f.Modified), "modified time survives the DOS encoding")

		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err, "reading %s verifies the recorded checksum", w.name)
		require.NoError(t, rc.Close())
		assert.Equal(t, w.content, got)
	}
}

func TestEncoder_Zip64AbsentForSmallArchive(t *testing.T) {
	t.Parallel()

	content := testContent(3)
	entry, _ := storeEntry("a.txt", content)
	enc, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.NoError(t, err)

	// Header, content, descriptor, directory entry without extra field, and
	// the plain end record. No ZIP64 tail.
	want := uint64(30+5) + 3 + 16 + uint64(46+5) + 22
	assert.Equal(t, want, enc.Size())
}

func TestEncoder_Zip64PresentForHugeEntry(t *testing.T) {
	t.Parallel()

	// Presence is decided from declared sizes at construction, so nothing is
	// streamed here.
	const huge = uint64(5) << 30
	entry := zipstream.Entry{
		Path:     "big.bin",
		Data:     zipstream.NewStore(newMemSource(nil), huge),
		Modified: testModified,
	}
	enc, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.NoError(t, err)

	// The directory entry grows a ZIP64 extra for both sizes, and the ZIP64
	// end record plus locator appear.
	extra := uint64(4 + 16)
	want := uint64(30+7) + huge + 16 + uint64(46+7) + extra + 56 + 20 + 22
	assert.Equal(t, want, enc.Size())
}

func TestEncoder_Zip64PresentForManyEntries(t *testing.T) {
	t.Parallel()

	sizeFor := func(n int) uint64 {
		entries := make([]zipstream.Entry, n)
		for i := range entries {
			entries[i] = zipstream.Entry{
				Path:     fmt.Sprintf("f%05d", i),
				Data:     zipstream.NewStore(newMemSource(nil), 0),
				Modified: testModified,
			}
		}
		enc, err := zipstream.NewEncoder(entries)
		require.NoError(t, err)
		return enc.Size()
	}

	// Per entry: header (36), empty content, descriptor (16), directory
	// entry (52).
	const perEntry = 36 + 16 + 52

	assert.Equal(t, uint64(0xFFFE*perEntry+22), sizeFor(0xFFFE), "one under the threshold stays classic")
	assert.Equal(t, uint64(0xFFFF*perEntry+56+20+22), sizeFor(0xFFFF), "at the threshold the ZIP64 tail appears")
}

func TestEncoder_SizeMismatch_LongSource(t *testing.T) {
	t.Parallel()

	src := newMemSource(testContent(40))
	entry := zipstream.Entry{
		Path:     "short.bin",
		Data:     zipstream.NewStore(src, 10),
		Modified: testModified,
	}
	enc, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.NoError(t, err)

	_, err = enc.WriteTo(io.Discard)
	require.ErrorIs(t, err, zipstream.ErrSizeMismatch)
	assert.GreaterOrEqual(t, src.closes, 1, "source must be closed when the stream aborts")
}

func TestEncoder_SizeMismatch_ShortSource(t *testing.T) {
	t.Parallel()

	src := newMemSource(testContent(10))
	entry := zipstream.Entry{
		Path:     "long.bin",
		Data:     zipstream.NewStore(src, 40),
		Modified: testModified,
	}
	enc, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.NoError(t, err)

	_, err = enc.WriteTo(io.Discard)
	require.ErrorIs(t, err, zipstream.ErrSizeMismatch)
}

func TestEncoder_SizeMismatch_DeflateLongSource(t *testing.T) {
	t.Parallel()

	src := newMemSource(testContent(100))
	entry := zipstream.Entry{
		Path:     "short.bin",
		Data:     zipstream.NewDeflateStore(src, 10),
		Modified: testModified,
	}
	enc, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = enc.WriteTo(&buf)
	require.ErrorIs(t, err, zipstream.ErrSizeMismatch)
}

func TestEncoder_WriteTwice(t *testing.T) {
	t.Parallel()

	entry, _ := storeEntry("a.txt", testContent(10))
	enc, err := zipstream.NewEncoder([]zipstream.Entry{entry})
	require.NoError(t, err)

	_, err = enc.WriteTo(io.Discard)
	require.NoError(t, err)

	_, err = enc.WriteTo(io.Discard)
	require.ErrorIs(t, err, zipstream.ErrAlreadyStreamed)
}

func TestEncoder_SourceOpenFailureAbortsStream(t *testing.T) {
	t.Parallel()

	good, goodSrc := storeEntry("good.bin", testContent(10))
	badSrc := newMemSource(testContent(10))
	badSrc.openErr = errors.New("backend unavailable")
	bad := zipstream.Entry{
		Path:     "bad.bin",
		Data:     zipstream.NewStore(badSrc, 10),
		Modified: testModified,
	}

	enc, err := zipstream.NewEncoder([]zipstream.Entry{good, bad})
	require.NoError(t, err)

	_, err = enc.WriteTo(io.Discard)
	require.ErrorContains(t, err, "backend unavailable")
	assert.GreaterOrEqual(t, goodSrc.closes, 1, "earlier sources are already closed")
}
