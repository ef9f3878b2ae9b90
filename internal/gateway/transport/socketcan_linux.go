//go:build linux

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/brutella/can"

	canframe "github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

var _ Transport = (*SocketCAN)(nil)

// SocketCAN wraps a brutella/can bus bound to one Linux network interface.
type SocketCAN struct {
	iface string

	mu     sync.Mutex
	bus    *can.Bus
	rx     chan canframe.Frame
	faults chan error
}

func NewSocketCAN(iface string) *SocketCAN {
	return &SocketCAN{iface: iface}
}

func (s *SocketCAN) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus != nil {
		return nil
	}

	bus, err := can.NewBusForInterfaceWithName(s.iface)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrBusFault, s.iface, err)
	}

	rx := make(chan canframe.Frame, rxBuffer)
	faults := make(chan error, 1)
	bus.SubscribeFunc(func(frm can.Frame) {
		// Extended and error frames carry flag bits above the 11-bit range.
		n := int(frm.Length)
		if n > canframe.MaxDataLen {
			n = canframe.MaxDataLen
		}
		f, err := canframe.NewFrame(frm.ID, frm.Data[:n], time.Now())
		if err != nil {
			log.Debug("Ignoring non-standard frame", "id", fmt.Sprintf("0x%X", frm.ID))
			return
		}
		select {
		case rx <- f:
		default:
			log.Warn("SocketCAN receive buffer full, dropping frame", "id", fmt.Sprintf("0x%03X", f.ID))
		}
	})

	go func() {
		// ConnectAndPublish blocks until the socket fails or Disconnect is called.
		if err := bus.ConnectAndPublish(); err != nil {
			select {
			case faults <- err:
			default:
			}
		}
	}()

	s.bus, s.rx, s.faults = bus, rx, faults
	log.Info("SocketCAN interface opened", "interface", s.iface)
	return nil
}

func (s *SocketCAN) Receive(ctx context.Context, timeout time.Duration) (*canframe.Frame, error) {
	s.mu.Lock()
	rx, faults := s.rx, s.faults
	open := s.bus != nil
	s.mu.Unlock()

	if !open {
		return nil, ErrClosed
	}
	return waitFrame(ctx, rx, faults, timeout)
}

func (s *SocketCAN) Send(_ context.Context, f canframe.Frame) error {
	s.mu.Lock()
	bus := s.bus
	s.mu.Unlock()

	if bus == nil {
		return ErrClosed
	}
	if err := f.Validate(); err != nil {
		return err
	}

	frm := can.Frame{ID: f.ID, Length: uint8(len(f.Data))}
	copy(frm.Data[:], f.Data)
	if err := bus.Publish(frm); err != nil {
		if isLinkDown(err) {
			return fmt.Errorf("%w: write: %v", ErrBusFault, err)
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *SocketCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		return nil
	}
	err := s.bus.Disconnect()
	s.bus = nil
	return err
}

// isLinkDown separates a vanished interface from a full transmit queue.
func isLinkDown(err error) bool {
	return errors.Is(err, syscall.ENETDOWN) ||
		errors.Is(err, syscall.ENODEV) ||
		errors.Is(err, syscall.ENXIO) ||
		errors.Is(err, syscall.EBADF)
}
