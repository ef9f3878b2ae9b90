// Package pubsub carries frames from the gateway to feature consumers and
// send requests from consumers back to the gateway.
package pubsub

import (
	"context"
	"errors"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
)

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("pubsub: broker closed")

// Message is one delivery: a logical topic (CAN_XXX) and the encoded frame.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher publishes encoded frames under a logical topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber receives messages for a fixed set of logical topics.
type Subscriber interface {
	// Subscribe adds logical topics to the subscription set.
	Subscribe(ctx context.Context, topics ...string) error

	// Receive waits at most timeout for the next message. It returns nil, nil
	// when the wait times out, and the context error when ctx is done.
	// Messages arrive in the order the broker delivered them.
	Receive(ctx context.Context, timeout time.Duration) (*Message, error)
}

// Queue is the outgoing send request queue. Any number of producers may
// Enqueue; only the gateway consumes.
type Queue interface {
	// Enqueue submits a frame for transmission; fire and forget.
	Enqueue(ctx context.Context, id uint32, data []byte) error

	// ConsumeQueue prepares the broker to serve Dequeue. Only the gateway calls it.
	ConsumeQueue(ctx context.Context) error

	// Dequeue returns the next send request without blocking, or nil when
	// the queue is empty. A malformed request is consumed and reported as
	// an error wrapping can.ErrInvalidFrame.
	Dequeue(ctx context.Context) (*can.Frame, error)
}

// Broker bundles everything one process needs from the channel.
type Broker interface {
	Publisher
	Subscriber
	Queue

	// Start connects. Connection loss afterwards is handled by the driver.
	Start(ctx context.Context) error

	// Ready reports nil while the broker is connected.
	Ready() error

	// Close releases subscriptions and connections.
	Close() error
}

func wait(ctx context.Context, ch <-chan Message, timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return &m, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
