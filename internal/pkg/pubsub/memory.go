package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

// MemoryHub is an in-process channel connecting any number of MemoryBrokers.
// It backs tests and single-binary setups.
type MemoryHub struct {
	mu      sync.RWMutex
	brokers []*MemoryBroker
	tx      chan []byte
	buffer  int
}

func NewMemoryHub(buffer int) *MemoryHub {
	return &MemoryHub{tx: make(chan []byte, buffer), buffer: buffer}
}

// Broker attaches a new broker to the hub.
func (h *MemoryHub) Broker() *MemoryBroker {
	b := &MemoryBroker{
		hub:    h,
		topics: make(map[string]struct{}),
		frames: make(chan Message, h.buffer),
	}
	h.mu.Lock()
	h.brokers = append(h.brokers, b)
	h.mu.Unlock()
	return b
}

func (h *MemoryHub) detach(b *MemoryBroker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.brokers {
		if x == b {
			h.brokers = append(h.brokers[:i], h.brokers[i+1:]...)
			return
		}
	}
}

var _ Broker = (*MemoryBroker)(nil)

type MemoryBroker struct {
	hub *MemoryHub

	mu     sync.Mutex
	topics map[string]struct{}
	frames chan Message
	closed bool
}

func (b *MemoryBroker) Start(context.Context) error { return nil }

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	b.hub.mu.RLock()
	defer b.hub.mu.RUnlock()
	for _, sub := range b.hub.brokers {
		sub.deliver(Message{Topic: topic, Payload: payload})
	}
	return nil
}

func (b *MemoryBroker) deliver(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, ok := b.topics[m.Topic]; !ok {
		return
	}
	select {
	case b.frames <- m:
	default:
		log.Warn("Receive buffer full, dropping message", "topic", m.Topic)
	}
}

func (b *MemoryBroker) Subscribe(_ context.Context, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, t := range topics {
		b.topics[t] = struct{}{}
	}
	return nil
}

// Topics returns the current subscription set.
func (b *MemoryBroker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.topics))
	for t := range b.topics {
		out = append(out, t)
	}
	return out
}

func (b *MemoryBroker) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	return wait(ctx, b.frames, timeout)
}

func (b *MemoryBroker) Enqueue(_ context.Context, id uint32, data []byte) error {
	payload, err := can.EncodeSendRequest(id, data)
	if err != nil {
		return err
	}
	return b.EnqueueRaw(payload)
}

// EnqueueRaw pushes an already encoded send request.
func (b *MemoryBroker) EnqueueRaw(payload []byte) error {
	select {
	case b.hub.tx <- payload:
		return nil
	default:
		log.Warn("Send queue full, dropping request")
		return nil
	}
}

func (b *MemoryBroker) ConsumeQueue(context.Context) error { return nil }

func (b *MemoryBroker) Dequeue(context.Context) (*can.Frame, error) {
	select {
	case payload := <-b.hub.tx:
		f, err := can.DecodeSendRequest(payload)
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, nil
	}
}

func (b *MemoryBroker) Ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.hub.detach(b)
	return nil
}
