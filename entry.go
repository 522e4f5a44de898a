package zipstream

import (
	"fmt"
	"strings"
	"time"
)

// Entry describes one file to place in the archive. Entries are supplied
// once at encoder construction and are not mutated by the encoder.
type Entry struct {
	// Path is the file's archive-relative path: forward-slash separated,
	// with no leading slash, no drive letter, and no "." or ".." elements.
	Path string

	// Data encodes the file's content; see NewStore and NewDeflateStore.
	Data Storage

	// Modified is the file's modification time. DOS timestamps carry no
	// zone, so the time is converted to UTC and clamped into the 1980-2099
	// representable range.
	Modified time.Time

	// Binary marks the content as binary rather than text.
	Binary bool

	// Comment is an optional per-file comment stored in the central
	// directory.
	Comment string
}

// validatePath rejects paths that would place an entry outside the archive
// root or that ZIP tooling cannot address portably.
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q has a leading slash", ErrInvalidPath, p)
	}
	if strings.Contains(p, `\`) {
		return fmt.Errorf("%w: %q contains a backslash separator", ErrInvalidPath, p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return fmt.Errorf("%w: %q starts with a drive letter", ErrInvalidPath, p)
	}
	for _, elem := range strings.Split(p, "/") {
		switch elem {
		case "":
			return fmt.Errorf("%w: %q contains an empty element", ErrInvalidPath, p)
		case ".", "..":
			return fmt.Errorf("%w: %q contains a relative element", ErrInvalidPath, p)
		}
	}
	return nil
}
