package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/autopeer-io/canbridge/internal/gateway/transport"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

type harness struct {
	g      *Gateway
	hub    *pubsub.MemoryHub
	buses  []*transport.Loopback
	sleeps []time.Duration
}

func testConfig() *Config {
	cfg := &Config{CAN: options.NewCANOptions(), PubSub: options.NewPubSubOptions()}
	cfg.CAN.Driver = options.CANDriverLoopback
	cfg.CAN.ConnectRetries = 3
	cfg.CAN.RetryDelay = 5 * time.Second
	cfg.CAN.RetrySlowDelay = 10 * time.Second
	cfg.CAN.ReceiveTimeout = 5 * time.Millisecond
	return cfg
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{hub: pubsub.NewMemoryHub(16)}
	h.g = &Gateway{
		newTransport: func(*options.CANOptions) (transport.Transport, error) {
			bus := transport.NewLoopback(16)
			h.buses = append(h.buses, bus)
			return bus, nil
		},
		newBroker: func(*Config) (pubsub.Broker, error) { return h.hub.Broker(), nil },
		sleep: func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
	}
	if err := h.g.apply(testConfig()); err != nil {
		t.Fatal(err)
	}
	h.g.init()
	if err := h.g.startBroker(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.g.statsStart = h.g.now()
	return h
}

func (h *harness) bus() *transport.Loopback {
	return h.buses[len(h.buses)-1]
}

func (h *harness) consumer(t *testing.T, topics ...string) pubsub.Broker {
	t.Helper()
	c := h.hub.Broker()
	if err := c.Subscribe(context.Background(), topics...); err != nil {
		t.Fatal(err)
	}
	return c
}

func receiveFrame(t *testing.T, b pubsub.Broker) can.Frame {
	t.Helper()
	m, err := b.Receive(context.Background(), 50*time.Millisecond)
	if err != nil || m == nil {
		t.Fatalf("Receive = %v, %v", m, err)
	}
	f, err := can.Decode(m.Payload)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestGatewayPublishesAndSends(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mmi := h.consumer(t, "CAN_461")

	h.g.step(ctx)
	if err := h.g.Ready(); err != nil {
		t.Fatalf("not ready after first step: %v", err)
	}

	h.bus().Inject(can.Frame{ID: 0x461, Data: []byte{0, 0, 1, 0, 0x10}, Timestamp: time.Now()})
	h.g.step(ctx)
	if f := receiveFrame(t, mmi); f.String() != "461#0000010010" {
		t.Errorf("published %s", f)
	}

	if err := mmi.Enqueue(ctx, 0x602, []byte{0x09, 0x12, 0x30, 0, 0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	h.g.step(ctx)
	sent := h.bus().Sent()
	if len(sent) != 1 || sent[0].String() != "602#0912300000000000" {
		t.Errorf("sent = %v", sent)
	}
	if h.g.published != 1 {
		t.Errorf("published counter = %d", h.g.published)
	}
}

func TestGatewayDropsMalformedSendRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	agent := h.hub.Broker()
	h.g.step(ctx)

	_ = agent.EnqueueRaw([]byte(`{"arbitration_id":1538,"data_hex":"0912zz"}`))
	_ = agent.EnqueueRaw([]byte(`{"arbitration_id":4096,"data_hex":"00"}`))
	_ = agent.Enqueue(ctx, 0x602, []byte{1})
	for i := 0; i < 3; i++ {
		h.g.step(ctx)
	}

	if !h.g.link.Connected() {
		t.Fatal("malformed requests must not drop the link")
	}
	if sent := h.bus().Sent(); len(sent) != 1 || sent[0].ID != 0x602 {
		t.Errorf("sent = %v", sent)
	}
}

func TestGatewaySendErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	agent := h.hub.Broker()
	h.g.step(ctx)

	h.bus().FailSend(errors.New("no buffer space available"))
	_ = agent.Enqueue(ctx, 0x602, []byte{1})
	h.g.step(ctx)
	if !h.g.link.Connected() {
		t.Fatal("a transient send error must not drop the link")
	}

	h.bus().FailSend(fmt.Errorf("%w: interface down", transport.ErrBusFault))
	_ = agent.Enqueue(ctx, 0x602, []byte{1})
	h.g.step(ctx)
	if h.g.link.Connected() {
		t.Fatal("a bus fault must drop the link")
	}
	if h.bus().Connected() {
		t.Error("the faulted transport should be closed")
	}
}

func TestGatewayRecoversFromDisconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	light := h.consumer(t, "CAN_635")
	h.g.step(ctx)

	h.bus().Fault(errors.New("bus off"))
	h.bus().FailConnect(errors.New("no such device"))
	h.g.step(ctx)
	if h.g.Ready() == nil {
		t.Fatal("link should be down after a receive fault")
	}

	for i := 0; i < 4; i++ {
		h.g.step(ctx)
	}
	want := []time.Duration{5 * time.Second, 5 * time.Second, 10 * time.Second, 10 * time.Second}
	if fmt.Sprint(h.sleeps) != fmt.Sprint(want) {
		t.Errorf("retry delays = %v, want %v", h.sleeps, want)
	}
	for _, d := range h.sleeps {
		if d < h.g.cfg.CAN.RetryDelay {
			t.Errorf("retry delay %v is shorter than the configured %v", d, h.g.cfg.CAN.RetryDelay)
		}
	}

	h.bus().FailConnect(nil)
	h.g.step(ctx)
	if err := h.g.Ready(); err != nil {
		t.Fatalf("not reconnected: %v", err)
	}
	if h.g.failures != 0 {
		t.Errorf("failures not reset: %d", h.g.failures)
	}

	h.bus().Inject(can.Frame{ID: 0x635, Data: []byte{0, 1}})
	h.g.step(ctx)
	if f := receiveFrame(t, light); f.ID != 0x635 {
		t.Errorf("published %s", f)
	}
	if len(h.buses) != 1 {
		t.Errorf("recovery should reuse the transport, built %d", len(h.buses))
	}
}

type reloadOnce struct {
	cfg    *Config
	done   bool
	notify chan struct{}
}

func (r *reloadOnce) Notify() <-chan struct{} {
	return r.notify
}

func (r *reloadOnce) Next() (*Config, bool) {
	if r.done {
		return nil, false
	}
	r.done = true
	return r.cfg, true
}

func TestGatewayReload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.g.step(ctx)
	first := h.bus()

	next := testConfig()
	next.CAN.ReceiveTimeout = 7 * time.Millisecond
	h.g.WithReloadSource(&reloadOnce{cfg: next})
	h.g.step(ctx)

	if first.Connected() {
		t.Error("previous transport left open")
	}
	if len(h.buses) != 2 || h.g.cfg != next {
		t.Fatalf("reload did not rebuild: %d transports", len(h.buses))
	}
	if h.g.link.Connected() {
		t.Error("link should restart disconnected after reload")
	}

	h.g.step(ctx)
	if err := h.g.Ready(); err != nil {
		t.Errorf("new transport not connected: %v", err)
	}
}

func TestReloadEndsReconnectWait(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.g.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		<-ctx.Done()
		return ctx.Err()
	}
	h.bus().FailConnect(errors.New("no such device"))

	next := testConfig()
	src := &reloadOnce{cfg: next, notify: make(chan struct{}, 1)}
	h.g.WithReloadSource(src)
	src.notify <- struct{}{}

	done := make(chan struct{})
	go func() {
		h.g.step(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconnect wait ignored the reload request")
	}

	if len(h.sleeps) != 1 || h.sleeps[0] != 5*time.Second {
		t.Errorf("sleeps = %v", h.sleeps)
	}
	if h.g.cfg != next {
		t.Error("reload was not applied after the wait ended")
	}
}

func TestGatewayRejectedReloadKeepsConfig(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.g.step(ctx)
	current := h.g.cfg

	h.g.newTransport = func(*options.CANOptions) (transport.Transport, error) {
		return nil, errors.New("unsupported bitrate")
	}
	h.g.WithReloadSource(&reloadOnce{cfg: testConfig()})
	h.g.step(ctx)

	if h.g.cfg != current || !h.g.link.Connected() {
		t.Error("a rejected reload must keep the running configuration")
	}
}

func TestGatewayReportsStats(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h.g.now = func() time.Time { return now }
	h.g.statsStart = now
	h.g.published = 42

	now = now.Add(30 * time.Second)
	h.g.reportStats()
	if h.g.published != 42 {
		t.Fatal("counter reset before the interval elapsed")
	}

	now = now.Add(30 * time.Second)
	h.g.reportStats()
	if h.g.published != 0 || !h.g.statsStart.Equal(now) {
		t.Errorf("counter not reset: %d", h.g.published)
	}
}

func TestGatewayRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.g.sleep = sleep

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.g.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop within one second")
	}
	if h.bus().Connected() {
		t.Error("transport left open after Run")
	}
}
