package record

import (
	"fmt"
	"math"
)

// Field saturation values. A narrow field carrying its maximum value reads
// as a ZIP64 escape, so any value at or above the maximum must also appear
// in a 64-bit companion field.
const (
	Max16 = math.MaxUint16
	Max32 = math.MaxUint32
)

// Policy selects how the width helpers treat a value that does not fit.
type Policy uint8

const (
	// Saturate clamps an overflowing value to the field maximum. Use it only
	// when a 64-bit companion field elsewhere carries the true value.
	Saturate Policy = iota

	// Forbid rejects an overflowing value with ErrFieldOverflow. Use it when
	// no fallback field exists.
	Forbid
)

// Fit16 fits v into an unsigned 16-bit field under the given policy.
func Fit16(v uint64, p Policy) (uint16, error) {
	if v > Max16 {
		if p == Forbid {
			return 0, fmt.Errorf("%w: %d exceeds 16 bits", ErrFieldOverflow, v)
		}
		return Max16, nil
	}
	return uint16(v), nil
}

// Fit32 fits v into an unsigned 32-bit field under the given policy.
func Fit32(v uint64, p Policy) (uint32, error) {
	if v > Max32 {
		if p == Forbid {
			return 0, fmt.Errorf("%w: %d exceeds 32 bits", ErrFieldOverflow, v)
		}
		return Max32, nil
	}
	return uint32(v), nil
}

// Fit64 fits v into an unsigned 64-bit field. It exists for symmetry with
// the narrower helpers; a uint64 always fits.
func Fit64(v uint64, _ Policy) (uint64, error) {
	return v, nil
}

// sat16 clamps v to 16 bits. The true value must live in a ZIP64 field.
func sat16(v uint64) uint16 {
	w, _ := Fit16(v, Saturate)
	return w
}

// sat32 clamps v to 32 bits. The true value must live in a ZIP64 field.
func sat32(v uint64) uint32 {
	w, _ := Fit32(v, Saturate)
	return w
}

// Version is a ZIP feature version pair, encoded on the wire as a single
// integer (major*10 + minor).
type Version struct {
	Major int
	Minor int
}

// VersionZip64 is the version needed to extract the archives this package
// produces. ZIP64 extensions require 4.5.
var VersionZip64 = Version{Major: 4, Minor: 5}

// Encode packs the version pair into its wire form.
func (v Version) Encode() (uint16, error) {
	if v.Major < 0 || v.Minor < 0 {
		return 0, fmt.Errorf("%w: negative version %d.%d", ErrInvalidVersion, v.Major, v.Minor)
	}
	if v.Minor >= 10 {
		return 0, fmt.Errorf("%w: minor %d does not fit a decimal digit", ErrInvalidVersion, v.Minor)
	}
	encoded := v.Major*10 + v.Minor
	if encoded > Max16 {
		return 0, fmt.Errorf("%w: version %d.%d exceeds 16 bits", ErrInvalidVersion, v.Major, v.Minor)
	}
	return uint16(encoded), nil
}
