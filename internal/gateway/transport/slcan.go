package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

var _ Transport = (*SLCAN)(nil)

// slcanBitrates maps bus bitrates to the Lawicel "Sn" setup codes.
var slcanBitrates = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// SLCAN drives a serial adapter speaking the Lawicel ASCII protocol.
type SLCAN struct {
	path    string
	baud    int
	bitrate byte

	// open is replaced in tests.
	open func(path string, baud int) (io.ReadWriteCloser, error)

	mu     sync.Mutex
	port   io.ReadWriteCloser
	rx     chan can.Frame
	faults chan error
	done   chan struct{}
}

// NewSLCAN returns an unconnected SLCAN transport. bitrate must be one of
// the rates the protocol can program.
func NewSLCAN(path string, baud, bitrate int) (*SLCAN, error) {
	code, ok := slcanBitrates[bitrate]
	if !ok {
		return nil, fmt.Errorf("slcan: unsupported bitrate %d", bitrate)
	}
	return &SLCAN{path: path, baud: baud, bitrate: code, open: openSerial}, nil
}

func openSerial(path string, baud int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}

func (s *SLCAN) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return nil
	}

	port, err := s.open(s.path, s.baud)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrBusFault, s.path, err)
	}

	// Close any channel left open by a previous run, then program the bitrate.
	for _, cmd := range []string{"C\r", "S" + string(s.bitrate) + "\r", "O\r"} {
		if _, err := io.WriteString(port, cmd); err != nil {
			_ = port.Close()
			return fmt.Errorf("%w: setup %s: %v", ErrBusFault, s.path, err)
		}
	}

	s.port = port
	s.rx = make(chan can.Frame, rxBuffer)
	s.faults = make(chan error, 1)
	s.done = make(chan struct{})
	go s.read(port, s.rx, s.faults, s.done)

	log.Info("SLCAN adapter opened", "port", s.path, "bitrate", "S"+string(s.bitrate))
	return nil
}

// slcanMaxLine fits the longest extended data line plus a timestamp.
const slcanMaxLine = 32

// lineSplitter assembles adapter lines. A line longer than slcanMaxLine is
// dropped through its terminator.
type lineSplitter struct {
	buf      []byte
	overflow bool
}

// feed adds b and returns a complete line when b ends one. The line is
// only valid until the next call.
func (l *lineSplitter) feed(b byte) ([]byte, bool) {
	switch b {
	case '\r':
		line, overflow := l.buf, l.overflow
		l.buf, l.overflow = l.buf[:0], false
		if overflow {
			log.Debug("Dropped an overlong SLCAN line")
			return nil, false
		}
		return line, true
	case '\a':
		l.buf, l.overflow = l.buf[:0], false
		log.Debug("SLCAN adapter rejected a command")
		return nil, false
	}

	if l.overflow {
		return nil, false
	}
	if len(l.buf) == slcanMaxLine {
		l.buf, l.overflow = l.buf[:0], true
		return nil, false
	}
	l.buf = append(l.buf, b)
	return nil, false
}

// read splits the adapter stream into lines. A serial read timeout returns
// zero bytes and no error, so an idle bus never ends the loop.
func (s *SLCAN) read(port io.Reader, rx chan<- can.Frame, faults chan<- error, done <-chan struct{}) {
	buf := make([]byte, 256)
	var lines lineSplitter
	for {
		n, err := port.Read(buf)
		if err != nil {
			select {
			case <-done:
			default:
				faults <- err
			}
			return
		}
		if n == 0 {
			select {
			case <-done:
				return
			default:
				continue
			}
		}

		for _, b := range buf[:n] {
			if line, ok := lines.feed(b); ok {
				s.deliver(line, rx)
			}
		}
	}
}

func (s *SLCAN) deliver(line []byte, rx chan<- can.Frame) {
	f, ok, err := decodeSLCAN(line)
	if err != nil {
		log.Debug("Ignoring malformed SLCAN line", "error", err)
		return
	}
	if !ok {
		return
	}
	select {
	case rx <- f:
	default:
		log.Warn("SLCAN receive buffer full, dropping frame", "id", fmt.Sprintf("0x%03X", f.ID))
	}
}

func (s *SLCAN) Receive(ctx context.Context, timeout time.Duration) (*can.Frame, error) {
	s.mu.Lock()
	rx, faults := s.rx, s.faults
	open := s.port != nil
	s.mu.Unlock()

	if !open {
		return nil, ErrClosed
	}
	return waitFrame(ctx, rx, faults, timeout)
}

func (s *SLCAN) Send(_ context.Context, f can.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrClosed
	}
	line, err := encodeSLCAN(f)
	if err != nil {
		return err
	}
	if _, err := s.port.Write(line); err != nil {
		return fmt.Errorf("%w: write: %v", ErrBusFault, err)
	}
	return nil
}

func (s *SLCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	close(s.done)
	_, _ = io.WriteString(s.port, "C\r")
	err := s.port.Close()
	s.port = nil
	return err
}

// encodeSLCAN renders a standard data frame as tIIIL<data>\r.
func encodeSLCAN(f can.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	line := fmt.Sprintf("t%03X%d%X\r", f.ID, len(f.Data), f.Data)
	return []byte(line), nil
}

// decodeSLCAN parses one line without its terminator. Lines that are not
// standard data frames, such as command acknowledgements and extended or
// remote frames, return ok == false.
func decodeSLCAN(line []byte) (can.Frame, bool, error) {
	if len(line) == 0 || line[0] != 't' {
		return can.Frame{}, false, nil
	}
	if len(line) < 5 {
		return can.Frame{}, false, errors.New("short frame line")
	}

	id, err := strconv.ParseUint(string(line[1:4]), 16, 32)
	if err != nil {
		return can.Frame{}, false, fmt.Errorf("identifier: %w", err)
	}
	dlc := int(line[4] - '0')
	if dlc < 0 || dlc > can.MaxDataLen {
		return can.Frame{}, false, fmt.Errorf("dlc %q", line[4])
	}

	// Some adapters append a 4 digit timestamp after the data.
	payload := line[5:]
	if len(payload) < 2*dlc {
		return can.Frame{}, false, fmt.Errorf("expected %d data bytes, got %q", dlc, payload)
	}
	data, err := hex.DecodeString(string(payload[:2*dlc]))
	if err != nil {
		return can.Frame{}, false, fmt.Errorf("data: %w", err)
	}

	f, err := can.NewFrame(uint32(id), data, time.Now())
	if err != nil {
		return can.Frame{}, false, err
	}
	return f, true, nil
}
