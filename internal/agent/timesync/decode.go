package timesync

import (
	"errors"
	"fmt"
	"time"
)

// Format selects how the clock frame fields are encoded.
type Format string

const (
	// FormatBCD reads each byte's hex digits as decimal tens and units (0x34 is 34).
	FormatBCD Format = "bcd"
	// FormatRaw takes each byte's numeric value (0x22 is 34).
	FormatRaw Format = "raw"
)

// ParseFormat accepts the format names and their legacy aliases.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "bcd", "old_logic":
		return FormatBCD, nil
	case "raw", "new_logic":
		return FormatRaw, nil
	}
	return "", fmt.Errorf("unknown time format %q", s)
}

// ErrMalformed is returned for frames whose fields do not form a valid time.
var ErrMalformed = errors.New("malformed clock frame")

// Byte offsets of the clock frame fields.
const (
	offHour    = 1
	offMinute  = 2
	offSecond  = 3
	offDay     = 4
	offMonth   = 5
	offCentury = 6
	offYear    = 7

	frameLen = 8
)

// Decode builds the broadcast wall time in loc.
func Decode(data []byte, format Format, loc *time.Location) (time.Time, error) {
	if len(data) < frameLen {
		return time.Time{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}

	field := func(off int) (int, error) {
		b := data[off]
		if format == FormatRaw {
			return int(b), nil
		}
		hi, lo := int(b>>4), int(b&0x0F)
		if hi > 9 || lo > 9 {
			return 0, fmt.Errorf("%w: byte %d (0x%02X) is not BCD", ErrMalformed, off, b)
		}
		return hi*10 + lo, nil
	}

	var v [frameLen]int
	for off := offHour; off <= offYear; off++ {
		n, err := field(off)
		if err != nil {
			return time.Time{}, err
		}
		v[off] = n
	}

	year := v[offCentury]*100 + v[offYear]
	month := v[offMonth]
	switch {
	case month < 1 || month > 12:
		return time.Time{}, fmt.Errorf("%w: month %d", ErrMalformed, month)
	case v[offDay] < 1 || v[offDay] > daysIn(year, time.Month(month)):
		return time.Time{}, fmt.Errorf("%w: day %d of %04d-%02d", ErrMalformed, v[offDay], year, month)
	case v[offHour] > 23 || v[offMinute] > 59 || v[offSecond] > 59:
		return time.Time{}, fmt.Errorf("%w: time %02d:%02d:%02d", ErrMalformed, v[offHour], v[offMinute], v[offSecond])
	}

	return time.Date(year, time.Month(month), v[offDay], v[offHour], v[offMinute], v[offSecond], 0, loc), nil
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
