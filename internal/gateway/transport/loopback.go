package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
)

var _ Transport = (*Loopback)(nil)

// Loopback is an in-memory bus. Frames are injected with Inject and, when
// Echo is set, every sent frame is also received back.
type Loopback struct {
	Echo bool

	mu         sync.Mutex
	connected  bool
	connectErr error
	sendErr    error
	connects   int
	sent       []can.Frame

	rx     chan can.Frame
	faults chan error
}

func NewLoopback(buffer int) *Loopback {
	return &Loopback{
		rx:     make(chan can.Frame, buffer),
		faults: make(chan error, 1),
	}
}

func (l *Loopback) Connect(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.connects++
	if l.connectErr != nil {
		return fmt.Errorf("%w: %v", ErrBusFault, l.connectErr)
	}
	l.connected = true
	return nil
}

func (l *Loopback) Receive(ctx context.Context, timeout time.Duration) (*can.Frame, error) {
	if !l.Connected() {
		return nil, ErrClosed
	}
	f, err := waitFrame(ctx, l.rx, l.faults, timeout)
	if IsFault(err) {
		l.mu.Lock()
		l.connected = false
		l.mu.Unlock()
	}
	return f, err
}

func (l *Loopback) Send(_ context.Context, f can.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return ErrClosed
	}
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, f)
	if l.Echo {
		f.Timestamp = time.Now()
		select {
		case l.rx <- f:
		default:
		}
	}
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()
	return nil
}

// Inject makes f available to Receive.
func (l *Loopback) Inject(f can.Frame) {
	l.rx <- f
}

// Fault makes the next Receive fail with ErrBusFault and drop the link.
func (l *Loopback) Fault(err error) {
	select {
	case l.faults <- err:
	default:
	}
}

// FailConnect makes Connect fail with err until called again with nil.
func (l *Loopback) FailConnect(err error) {
	l.mu.Lock()
	l.connectErr = err
	l.mu.Unlock()
}

// FailSend makes Send return err until called again with nil.
func (l *Loopback) FailSend(err error) {
	l.mu.Lock()
	l.sendErr = err
	l.mu.Unlock()
}

func (l *Loopback) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Connects returns the number of Connect calls so far.
func (l *Loopback) Connects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connects
}

// Sent returns a copy of every frame sent so far.
func (l *Loopback) Sent() []can.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]can.Frame(nil), l.sent...)
}
