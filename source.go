package zipstream

// ByteSource supplies one file's content bytes to a storage strategy.
// Implementations stream from wherever the content lives: a local file, an
// HTTP response, a generator.
//
// A source is consumed at most once. Open runs immediately before the first
// Read, once production of the owning file's data begins; Close always runs
// once production for that file ends, whether it succeeded or failed.
type ByteSource interface {
	// Open acquires the underlying resource. It is called exactly once,
	// before the first Read.
	Open() error

	// Read fills p following the io.Reader contract: it may return fewer
	// bytes than requested, and signals exhaustion with io.EOF or a zero-byte
	// read.
	Read(p []byte) (int, error)

	// Close releases the underlying resource. It must be safe to call more
	// than once, and safe to call when Open never ran.
	Close() error
}
