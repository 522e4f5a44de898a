package zipstream

// Option configures an Encoder.
type Option func(*Encoder)

// WithComment sets the archive-level comment, stored in the
// end-of-directory record. It must fit the record's 16-bit length field.
func WithComment(comment string) Option {
	return func(e *Encoder) {
		e.comment = comment
	}
}
