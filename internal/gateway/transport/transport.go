// Package transport provides the bus drivers owned by the gateway.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

var (
	// ErrBusFault marks a failure that requires closing and reconnecting the transport.
	ErrBusFault = errors.New("can bus fault")

	// ErrClosed is returned when the transport is used while not connected.
	ErrClosed = errors.New("can transport closed")
)

// Transport is a connection to one physical bus.
type Transport interface {
	// Connect opens the bus. A failure wraps ErrBusFault.
	Connect(ctx context.Context) error

	// Receive waits at most timeout for one frame. A timeout returns nil, nil.
	Receive(ctx context.Context, timeout time.Duration) (*can.Frame, error)

	// Send transmits one frame. Only errors wrapping ErrBusFault require a reconnect.
	Send(ctx context.Context, f can.Frame) error

	// Close releases the bus. It is safe to call on a closed transport.
	Close() error
}

// New builds an unconnected transport for the configured driver.
func New(opts *options.CANOptions) (Transport, error) {
	switch opts.Driver {
	case options.CANDriverSocketCAN:
		return NewSocketCAN(opts.Interface), nil
	case options.CANDriverSLCAN:
		return NewSLCAN(opts.SerialPort, opts.SerialBaud, opts.Bitrate)
	case options.CANDriverLoopback:
		l := NewLoopback(rxBuffer)
		l.Echo = true
		return l, nil
	default:
		return nil, fmt.Errorf("unknown can driver %q", opts.Driver)
	}
}

// rxBuffer bounds frames held between a driver's reader and Receive.
const rxBuffer = 256

// IsFault reports whether err requires a reconnect.
func IsFault(err error) bool {
	return errors.Is(err, ErrBusFault) || errors.Is(err, ErrClosed)
}

func waitFrame(ctx context.Context, rx <-chan can.Frame, faults <-chan error, timeout time.Duration) (*can.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-rx:
		return &f, nil
	case err := <-faults:
		return nil, fmt.Errorf("%w: %v", ErrBusFault, err)
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
