package zipstream

import (
	"errors"

	"github.com/meigma/zipstream/internal/record"
)

// Errors re-exported from internal/record.
var (
	// ErrFieldOverflow is returned when a numeric value cannot be represented
	// in its record field under the forbid policy.
	ErrFieldOverflow = record.ErrFieldOverflow

	// ErrInvalidVersion is returned when a feature version cannot be encoded.
	ErrInvalidVersion = record.ErrInvalidVersion
)

// Encoder errors.
var (
	// ErrNoEntries is returned when an encoder is constructed with an empty
	// entry list.
	ErrNoEntries = errors.New("zipstream: entry list is empty")

	// ErrNilStorage is returned when an entry carries no storage strategy.
	ErrNilStorage = errors.New("zipstream: entry storage is nil")

	// ErrInvalidPath is returned when an entry path is not a clean,
	// forward-slash relative path.
	ErrInvalidPath = errors.New("zipstream: invalid entry path")

	// ErrCommentTooLong is returned when the archive comment exceeds the
	// 16-bit length field.
	ErrCommentTooLong = errors.New("zipstream: archive comment exceeds 65535 bytes")

	// ErrSizeMismatch is returned when a content source produces a different
	// number of bytes than the entry declared. The archive bytes written so
	// far are invalid and must be discarded by the caller.
	ErrSizeMismatch = errors.New("zipstream: content size does not match declared size")

	// ErrAlreadyStreamed is returned by WriteTo after a previous call, since
	// every content source is consumed by the first pass.
	ErrAlreadyStreamed = errors.New("zipstream: archive already streamed")
)
