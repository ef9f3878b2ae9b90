package pubsub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/mqtt"
	"github.com/autopeer-io/canbridge/pkg/mqtt/topic"
)

var _ Broker = (*MQTTBroker)(nil)

// MQTTBroker maps logical topics onto {root}/frames/CAN_XXX and the send
// queue onto {root}/tx.
type MQTTBroker struct {
	mc       mqtt.Client
	topics   *topic.Builder
	qos      int
	clientID string
	await    time.Duration

	frames chan Message
	tx     chan []byte

	mu         sync.Mutex
	subscribed []string
	closed     bool
}

// NewMQTTBroker wraps an unstarted client.
func NewMQTTBroker(mc mqtt.Client, topics *topic.Builder, qos int, clientID string, buffer int) *MQTTBroker {
	return &MQTTBroker{
		mc:       mc,
		topics:   topics,
		qos:      qos,
		clientID: clientID,
		await:    5 * time.Second,
		frames:   make(chan Message, buffer),
		tx:       make(chan []byte, buffer),
	}
}

func (b *MQTTBroker) Start(ctx context.Context) error {
	if err := b.mc.Start(ctx); err != nil {
		return fmt.Errorf("start mqtt client: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.await)
	defer cancel()
	if err := b.mc.AwaitConnection(waitCtx); err != nil {
		// autopaho keeps retrying in the background.
		log.Warn("MQTT broker not reachable yet, continuing", "error", err)
		return nil
	}

	if b.clientID != "" {
		if err := b.mc.Publish(ctx, b.topics.Status(b.clientID), 1, true, []byte("online")); err != nil {
			log.Warn("Failed to publish online status", "error", err)
		}
	}
	return nil
}

func (b *MQTTBroker) Publish(ctx context.Context, logical string, payload []byte) error {
	return b.mc.Publish(ctx, b.physical(logical), b.qos, false, payload)
}

func (b *MQTTBroker) Subscribe(ctx context.Context, logicals ...string) error {
	for _, l := range logicals {
		if err := b.mc.Subscribe(ctx, b.physical(l), b.qos, b.onFrame); err != nil {
			return fmt.Errorf("subscribe %s: %w", l, err)
		}
		b.mu.Lock()
		b.subscribed = append(b.subscribed, b.physical(l))
		b.mu.Unlock()
	}
	return nil
}

func (b *MQTTBroker) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	return wait(ctx, b.frames, timeout)
}

func (b *MQTTBroker) Enqueue(ctx context.Context, id uint32, data []byte) error {
	payload, err := can.EncodeSendRequest(id, data)
	if err != nil {
		return err
	}
	return b.mc.Publish(ctx, b.topics.Tx(), b.qos, false, payload)
}

func (b *MQTTBroker) ConsumeQueue(ctx context.Context) error {
	if err := b.mc.Subscribe(ctx, b.topics.Tx(), b.qos, b.onSendRequest); err != nil {
		return fmt.Errorf("subscribe send queue: %w", err)
	}
	b.mu.Lock()
	b.subscribed = append(b.subscribed, b.topics.Tx())
	b.mu.Unlock()
	return nil
}

func (b *MQTTBroker) Dequeue(_ context.Context) (*can.Frame, error) {
	select {
	case payload := <-b.tx:
		f, err := can.DecodeSendRequest(payload)
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, nil
	}
}

func (b *MQTTBroker) Ready() error {
	if !b.mc.IsConnected() {
		return fmt.Errorf("mqtt broker disconnected")
	}
	return nil
}

func (b *MQTTBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subscribed
	b.subscribed = nil
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, s := range subs {
		if err := b.mc.Unsubscribe(ctx, s); err != nil {
			log.Debug("Unsubscribe failed", "topic", s, "error", err)
		}
	}
	if b.clientID != "" && b.mc.IsConnected() {
		_ = b.mc.Publish(ctx, b.topics.Status(b.clientID), 1, true, []byte("offline"))
	}
	b.mc.Disconnect(ctx)
	return nil
}

// onFrame runs on the MQTT reader goroutine; it must not block.
func (b *MQTTBroker) onFrame(_ context.Context, physical string, payload []byte) {
	m := Message{Topic: b.logical(physical), Payload: payload}
	select {
	case b.frames <- m:
	default:
		log.Warn("Receive buffer full, dropping message", "topic", m.Topic)
	}
}

func (b *MQTTBroker) onSendRequest(_ context.Context, _ string, payload []byte) {
	select {
	case b.tx <- payload:
	default:
		log.Warn("Send queue full, dropping request")
	}
}

func (b *MQTTBroker) physical(logical string) string {
	return b.topics.Build(topic.SuffixFrames, logical)
}

func (b *MQTTBroker) logical(physical string) string {
	if i := strings.LastIndex(physical, "/"); i >= 0 {
		return physical[i+1:]
	}
	return physical
}
