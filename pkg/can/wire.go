package can

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Message is the self-describing record published for every received frame.
type Message struct {
	Timestamp     float64 `json:"timestamp"`
	ArbitrationID uint32  `json:"arbitration_id"`
	DLC           int     `json:"dlc"`
	DataHex       string  `json:"data_hex"`
}

// SendRequest asks the gateway to transmit one frame.
type SendRequest struct {
	ArbitrationID uint32 `json:"arbitration_id"`
	DataHex       string `json:"data_hex"`
}

// Encode serializes a frame into its published wire form.
func Encode(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Timestamp:     float64(f.Timestamp.UnixNano()) / float64(time.Second),
		ArbitrationID: f.ID,
		DLC:           len(f.Data),
		DataHex:       hex.EncodeToString(f.Data),
	})
}

// Decode parses a published record back into a Frame.
func Decode(payload []byte) (Frame, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Frame{}, fmt.Errorf("%w: decode message: %v", ErrInvalidFrame, err)
	}
	data, err := hex.DecodeString(m.DataHex)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: data_hex: %v", ErrInvalidFrame, err)
	}
	if m.DLC != len(data) {
		return Frame{}, fmt.Errorf("%w: dlc %d does not match %d data bytes", ErrInvalidFrame, m.DLC, len(data))
	}
	return NewFrame(m.ArbitrationID, data, fromUnix(m.Timestamp))
}

// EncodeSendRequest serializes an outgoing send request.
func EncodeSendRequest(id uint32, data []byte) ([]byte, error) {
	f := Frame{ID: id, Data: data}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(SendRequest{ArbitrationID: id, DataHex: hex.EncodeToString(data)})
}

// DecodeSendRequest parses an outgoing send request into a frame ready for transmission.
func DecodeSendRequest(payload []byte) (Frame, error) {
	var r SendRequest
	if err := json.Unmarshal(payload, &r); err != nil {
		return Frame{}, fmt.Errorf("%w: decode send request: %v", ErrInvalidFrame, err)
	}
	data, err := hex.DecodeString(r.DataHex)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: data_hex: %v", ErrInvalidFrame, err)
	}
	return NewFrame(r.ArbitrationID, data, time.Time{})
}

func fromUnix(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
