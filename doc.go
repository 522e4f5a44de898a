// Package zipstream builds valid ZIP archives in a single forward pass,
// without buffering file contents and without a pre-pass over the data.
//
// The total archive size is known as soon as the encoder is constructed,
// before any content byte has been read, so a server can announce
// Content-Length and then stream the body. This works because entries are
// never compressed: content is either stored raw or framed as DEFLATE
// stored (uncompressed) blocks, and both encodings have a byte length
// derivable from the declared content size alone. Checksums and other
// stream-time values travel in records that trail the data, so the encoder
// never seeks backwards to patch anything.
//
// # Quick Start
//
// Build an archive from a local file and stream it:
//
//	src := file.NewSource("video.mp4")
//	size, err := src.Size()
//	if err != nil {
//	    return err
//	}
//	enc, err := zipstream.NewEncoder([]zipstream.Entry{{
//	    Path:     "video.mp4",
//	    Data:     zipstream.NewDeflateStore(src, size),
//	    Modified: time.Now(),
//	    Binary:   true,
//	}})
//	if err != nil {
//	    return err
//	}
//	w.Header().Set("Content-Length", strconv.FormatUint(enc.Size(), 10))
//	_, err = enc.WriteTo(w)
//
// Content can come from anywhere that satisfies [ByteSource]; the file and
// http subpackages under source/ cover local files and HTTP responses.
//
// Entry sizes must be declared up front and must be right: a source that
// produces a different number of bytes aborts the build with
// [ErrSizeMismatch], and whatever was already written must be discarded.
package zipstream
