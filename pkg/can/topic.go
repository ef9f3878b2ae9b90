package can

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicPrefix is prepended to the zero-padded identifier.
const TopicPrefix = "CAN_"

// Topic returns the routing key for an identifier, e.g. 0x461 -> "CAN_461".
func Topic(id uint32) string {
	return fmt.Sprintf("%s%03X", TopicPrefix, id)
}

// ParseTopic extracts the identifier from a routing key. Any leading
// namespace (e.g. "canbridge/v1/frames/") before the last segment is ignored.
func ParseTopic(topic string) (uint32, error) {
	if i := strings.LastIndexAny(topic, "/:"); i >= 0 {
		topic = topic[i+1:]
	}
	if !strings.HasPrefix(topic, TopicPrefix) {
		return 0, fmt.Errorf("topic %q has no %s prefix", topic, TopicPrefix)
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(topic, TopicPrefix), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("topic %q: %w", topic, err)
	}
	return uint32(id), nil
}

// ParseID parses a configured identifier. "0x461", "461" and "0X461" are all
// read as hexadecimal, the way identifiers are written on the bus.
func ParseID(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, fmt.Errorf("%w: empty identifier", ErrInvalidFrame)
	}
	id, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: identifier %q: %v", ErrInvalidFrame, s, err)
	}
	if uint32(id) > MaxStandardID {
		return 0, fmt.Errorf("%w: identifier 0x%X exceeds 11 bits", ErrInvalidFrame, id)
	}
	return uint32(id), nil
}
