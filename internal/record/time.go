package record

import "time"

// Representable bounds of the DOS timestamp format.
var (
	dosEpoch   = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	dosCeiling = time.Date(2099, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// DOSTime converts t to UTC, clamps it into the representable DOS range,
// and packs it into the legacy two-field form. Timestamps outside the range
// clamp to the nearest bound rather than fail.
func DOSTime(t time.Time) (dosTime, dosDate uint16) {
	t = t.UTC()
	if t.Before(dosEpoch) {
		t = dosEpoch
	}
	if t.After(dosCeiling) {
		t = dosCeiling
	}

	dosDate = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	dosTime = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return dosTime, dosDate
}
