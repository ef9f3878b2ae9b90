package press

import (
	"fmt"
	"strconv"
	"strings"
)

// Code identifies one control inside a frame's payload: two bytes read big endian.
type Code uint16

// CodeAt reads the two payload bytes starting at off.
func CodeAt(data []byte, off int) (Code, bool) {
	if off < 0 || off+2 > len(data) {
		return 0, false
	}
	return Code(uint16(data[off])<<8 | uint16(data[off+1])), true
}

// ParseCode reads a configured command code such as "4000" or "0x3A00".
func ParseCode(s string) (Code, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if v == "" || len(v) > 4 {
		return 0, fmt.Errorf("invalid command code %q", s)
	}
	n, err := strconv.ParseUint(v, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid command code %q: %w", s, err)
	}
	return Code(n), nil
}

func (c Code) String() string {
	return fmt.Sprintf("%04X", uint16(c))
}

// Tier is the classification outcome of a hold.
type Tier string

const (
	TierScroll   Tier = "scroll"
	TierShort    Tier = "short"
	TierLong     Tier = "long"
	TierExtended Tier = "extended"
)

// Tiers lists every tier in display order.
var Tiers = []Tier{TierScroll, TierShort, TierLong, TierExtended}
