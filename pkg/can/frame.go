package can

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxStandardID is the largest 11-bit identifier.
	MaxStandardID uint32 = 0x7FF

	// MaxDataLen is the classic CAN payload limit.
	MaxDataLen = 8
)

// ErrInvalidFrame is returned when an identifier or payload is outside the classic CAN range.
var ErrInvalidFrame = errors.New("invalid can frame")

// Frame is a single classic CAN frame with a standard identifier.
// A Frame is treated as immutable once received.
type Frame struct {
	ID        uint32
	Data      []byte
	Timestamp time.Time
}

// NewFrame copies data into a new validated Frame stamped with ts.
func NewFrame(id uint32, data []byte, ts time.Time) (Frame, error) {
	f := Frame{ID: id, Data: append([]byte(nil), data...), Timestamp: ts}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// DLC returns the payload length.
func (f Frame) DLC() int {
	return len(f.Data)
}

// Validate checks the identifier and payload length.
func (f Frame) Validate() error {
	if f.ID > MaxStandardID {
		return fmt.Errorf("%w: id 0x%X exceeds 11 bits", ErrInvalidFrame, f.ID)
	}
	if len(f.Data) > MaxDataLen {
		return fmt.Errorf("%w: %d data bytes", ErrInvalidFrame, len(f.Data))
	}
	return nil
}

// Byte returns the payload byte at i and whether it exists.
func (f Frame) Byte(i int) (byte, bool) {
	if i < 0 || i >= len(f.Data) {
		return 0, false
	}
	return f.Data[i], true
}

func (f Frame) String() string {
	return fmt.Sprintf("%03X#%X", f.ID, f.Data)
}
