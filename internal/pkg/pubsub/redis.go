package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

var _ Broker = (*RedisBroker)(nil)

// RedisBroker uses PUBLISH/SUBSCRIBE for frames and a list (LPUSH/RPOP) for
// the send queue.
type RedisBroker struct {
	rdb    *redis.Client
	prefix string
	txKey  string

	mu     sync.Mutex
	ps     *redis.PubSub
	frames chan Message
	buffer int
	closed bool
}

func NewRedisBroker(rdb *redis.Client, prefix, txKey string, buffer int) *RedisBroker {
	return &RedisBroker{
		rdb:    rdb,
		prefix: prefix,
		txKey:  txKey,
		buffer: buffer,
		frames: make(chan Message, buffer),
	}
}

func (b *RedisBroker) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := b.rdb.Ping(pingCtx).Result(); err != nil {
		// go-redis reconnects per command.
		log.Warn("Redis not reachable yet, continuing", "addr", b.rdb.Options().Addr, "error", err)
	}
	return nil
}

func (b *RedisBroker) Publish(ctx context.Context, logical string, payload []byte) error {
	return b.rdb.Publish(ctx, b.prefix+logical, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, logicals ...string) error {
	channels := make([]string, 0, len(logicals))
	for _, l := range logicals {
		channels = append(channels, b.prefix+l)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.ps != nil {
		return b.ps.Subscribe(ctx, channels...)
	}

	b.ps = b.rdb.Subscribe(ctx, channels...)
	go b.pump(b.ps.Channel())
	return nil
}

// pump forwards go-redis deliveries into the bounded receive buffer.
func (b *RedisBroker) pump(ch <-chan *redis.Message) {
	for msg := range ch {
		m := Message{Topic: strings.TrimPrefix(msg.Channel, b.prefix), Payload: []byte(msg.Payload)}
		select {
		case b.frames <- m:
		default:
			log.Warn("Receive buffer full, dropping message", "topic", m.Topic)
		}
	}
}

func (b *RedisBroker) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	return wait(ctx, b.frames, timeout)
}

func (b *RedisBroker) Enqueue(ctx context.Context, id uint32, data []byte) error {
	payload, err := can.EncodeSendRequest(id, data)
	if err != nil {
		return err
	}
	return b.rdb.LPush(ctx, b.txKey, payload).Err()
}

func (b *RedisBroker) ConsumeQueue(_ context.Context) error {
	return nil
}

func (b *RedisBroker) Dequeue(ctx context.Context) (*can.Frame, error) {
	payload, err := b.rdb.RPop(ctx, b.txKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	f, err := can.DecodeSendRequest(payload)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (b *RedisBroker) Ready() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.ps != nil {
		errs = append(errs, b.ps.Close())
	}
	errs = append(errs, b.rdb.Close())
	return errors.Join(errs...)
}
