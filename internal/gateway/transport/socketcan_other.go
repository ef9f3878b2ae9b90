//go:build !linux

package transport

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
)

var _ Transport = (*SocketCAN)(nil)

// SocketCAN is only available on Linux.
type SocketCAN struct {
	iface string
}

func NewSocketCAN(iface string) *SocketCAN {
	return &SocketCAN{iface: iface}
}

func (s *SocketCAN) Connect(context.Context) error {
	return fmt.Errorf("%w: socketcan is not supported on %s", ErrBusFault, runtime.GOOS)
}

func (s *SocketCAN) Receive(context.Context, time.Duration) (*can.Frame, error) {
	return nil, ErrClosed
}

func (s *SocketCAN) Send(context.Context, can.Frame) error {
	return ErrClosed
}

func (s *SocketCAN) Close() error { return nil }
