package mqtt

import (
	"context"
)

// MessageHandler receives one message. It runs on the client's receive path.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the MQTT transport under the frame channel and the send queue.
type Client interface {
	// Start connects in the background and returns at once.
	Start(ctx context.Context) error

	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for a topic filter. Handlers run inline in
	// registration order. Subscriptions are restored after a reconnect.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
}
