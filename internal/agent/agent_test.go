package agent

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/agent/daynight"
	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/internal/agent/press"
	"github.com/autopeer-io/canbridge/internal/agent/shutdown"
	"github.com/autopeer-io/canbridge/internal/agent/source"
	"github.com/autopeer-io/canbridge/internal/agent/timesync"
	"github.com/autopeer-io/canbridge/internal/agent/tvsim"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

func testConfig() *Config {
	cfg := &Config{
		Loop:     NewOptions(),
		Press:    press.NewThresholdOptions(),
		MMI:      press.NewMMIOptions(),
		MFSW:     press.NewMFSWOptions(),
		Source:   source.NewOptions(),
		TimeSync: timesync.NewOptions(),
		Shutdown: shutdown.NewOptions(),
		DayNight: daynight.NewOptions(),
		TVSim:    tvsim.NewOptions(),
		Actions:  hal.NewOptions(),
		PubSub:   options.NewPubSubOptions(),
	}
	cfg.Loop.ReceiveTimeout = 5 * time.Millisecond
	return cfg
}

type harness struct {
	t       *testing.T
	a       *Agent
	hub     *pubsub.MemoryHub
	gateway *pubsub.MemoryBroker
	brokers []*pubsub.MemoryBroker
	rec     *hal.Recorder
	now     time.Time
}

func newHarness(t *testing.T, cfg *Config) *harness {
	t.Helper()
	h := &harness{t: t, hub: pubsub.NewMemoryHub(64), rec: &hal.Recorder{}, now: time.Unix(1700000000, 0)}
	h.gateway = h.hub.Broker()
	h.a = &Agent{
		newBroker: func(*Config) (pubsub.Broker, error) {
			b := h.hub.Broker()
			h.brokers = append(h.brokers, b)
			return b, nil
		},
		newSink: func(*hal.Options) core.ActionSink { return h.rec },
		now:     func() time.Time { return h.now },
		sleep:   func(context.Context, time.Duration) error { return nil },
	}
	rt, err := h.a.build(cfg)
	if err != nil {
		t.Fatal(err)
	}
	h.a.rt = rt
	h.a.init()
	if err := h.a.start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.a.lastStatus = h.now
	return h
}

func (h *harness) broker() *pubsub.MemoryBroker {
	return h.brokers[len(h.brokers)-1]
}

func (h *harness) topics() []string {
	topics := h.broker().Topics()
	sort.Strings(topics)
	return topics
}

// publish sends a frame as the gateway would and runs one loop step.
func (h *harness) publish(id uint32, data ...byte) {
	h.t.Helper()
	payload, err := can.Encode(can.Frame{ID: id, Data: data, Timestamp: h.now})
	if err != nil {
		h.t.Fatal(err)
	}
	if err := h.gateway.Publish(context.Background(), can.Topic(id), payload); err != nil {
		h.t.Fatal(err)
	}
	h.a.step(context.Background())
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

type reloadOnce struct {
	cfg *Config
}

func (r *reloadOnce) Next() (*Config, bool) {
	cfg := r.cfg
	r.cfg = nil
	return cfg, cfg != nil
}

func TestAgentSubscribesToEnabledModulesOnly(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)
	if got, want := h.topics(), []string{"CAN_461", "CAN_661"}; !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
	if err := h.a.Ready(); err != nil {
		t.Errorf("Ready = %v", err)
	}

	cfg = testConfig()
	cfg.MMI.Enabled = false
	cfg.Shutdown.Enabled = true
	cfg.TimeSync.Enabled = true
	cfg.DayNight.Enabled = true
	h = newHarness(t, cfg)
	if got, want := h.topics(), []string{"CAN_2C3", "CAN_623", "CAN_635", "CAN_661"}; !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
}

func TestAgentDispatchesFrames(t *testing.T) {
	h := newHarness(t, testConfig())

	h.publish(0x461, 0x37, 0x30, 0x01, 0x00, 0x10)
	h.advance(50 * time.Millisecond)
	h.publish(0x461, 0x37, 0x30, 0x04, 0x00, 0x10)
	h.advance(time.Second)
	h.publish(0x661, 0x81, 0x01, 0x12, 0x37, 0, 0, 0, 0)

	want := []core.Action{core.Enter, core.PlayPause}
	if !reflect.DeepEqual(h.rec.Keys, want) {
		t.Errorf("keys = %v, want %v", h.rec.Keys, want)
	}
}

func TestAgentSurvivesMalformedMessage(t *testing.T) {
	h := newHarness(t, testConfig())
	if err := h.gateway.Publish(context.Background(), "CAN_461", []byte(`{"dlc":`)); err != nil {
		t.Fatal(err)
	}
	h.a.step(context.Background())
	h.publish(0x461, 0x37, 0x30, 0x01, 0x00, 0x10)
	h.publish(0x461, 0x37, 0x30, 0x04, 0x00, 0x10)
	if len(h.rec.Keys) != 1 {
		t.Errorf("keys = %v", h.rec.Keys)
	}
}

func TestAgentRunsTicks(t *testing.T) {
	cfg := testConfig()
	cfg.TVSim.Enabled = true
	h := newHarness(t, cfg)
	ctx := context.Background()

	h.a.step(ctx)
	h.a.step(ctx)
	h.advance(500 * time.Millisecond)
	h.a.step(ctx)

	for i := 0; i < 2; i++ {
		f, err := h.gateway.Dequeue(ctx)
		if err != nil || f == nil || f.ID != 0x602 {
			t.Fatalf("Dequeue %d = %v, %v", i, f, err)
		}
	}
	if f, _ := h.gateway.Dequeue(ctx); f != nil {
		t.Errorf("tick ran before it was due: %s", f)
	}
}

func TestAgentWaitTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Loop.ReceiveTimeout = time.Second
	cfg.TVSim.Enabled = true
	h := newHarness(t, cfg)

	if d := h.a.waitTimeout(); d != 0 {
		t.Errorf("due tick: waitTimeout = %s", d)
	}
	h.a.tick(context.Background())
	if d := h.a.waitTimeout(); d != 500*time.Millisecond {
		t.Errorf("after tick: waitTimeout = %s", d)
	}
}

func TestAgentReload(t *testing.T) {
	h := newHarness(t, testConfig())

	// A hold in progress is forgotten by the reload.
	h.publish(0x461, 0x37, 0x30, 0x01, 0x00, 0x10)

	next := testConfig()
	next.MMI.Enabled = false
	next.MFSW.Enabled = true
	next.Loop.DebugMode = true
	h.a.WithReloadSource(&reloadOnce{cfg: next})
	h.a.step(context.Background())

	if len(h.brokers) != 2 {
		t.Fatalf("brokers built = %d, want 2", len(h.brokers))
	}
	if err := h.brokers[0].Ready(); err == nil {
		t.Error("previous broker still open")
	}
	if got, want := h.topics(), []string{"CAN_5C3", "CAN_661"}; !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}

	h.advance(time.Second)
	h.publish(0x5C3, 0x39, 0x04)
	if !reflect.DeepEqual(h.rec.Keys, []core.Action{core.Up}) {
		t.Errorf("keys = %v", h.rec.Keys)
	}
	if err := h.a.Ready(); err != nil {
		t.Errorf("Ready after reload = %v", err)
	}
}

func TestAgentRejectedReloadKeepsConfig(t *testing.T) {
	h := newHarness(t, testConfig())

	bad := testConfig()
	bad.MMI.ID = "0x900"
	h.a.WithReloadSource(&reloadOnce{cfg: bad})
	h.a.step(context.Background())

	if len(h.brokers) != 2 {
		t.Fatalf("brokers built = %d, want 2", len(h.brokers))
	}
	if err := h.brokers[0].Ready(); err != nil {
		t.Errorf("running broker closed by a rejected reload: %v", err)
	}
	if err := h.brokers[1].Ready(); err == nil {
		t.Error("rejected broker left open")
	}
	if h.a.rt.broker != h.brokers[0] {
		t.Error("runtime replaced by a rejected reload")
	}
}

func TestAgentReportsStatus(t *testing.T) {
	cfg := testConfig()
	cfg.Loop.StatusInterval = time.Minute
	h := newHarness(t, cfg)
	start := h.a.lastStatus

	h.advance(30 * time.Second)
	h.a.reportStatus()
	if !h.a.lastStatus.Equal(start) {
		t.Error("status logged before the interval")
	}
	h.advance(30 * time.Second)
	h.a.reportStatus()
	if !h.a.lastStatus.Equal(h.now) {
		t.Error("status not logged after the interval")
	}
}

func TestAgentRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, testConfig())
	h.a.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	if err := h.a.Ready(); err == nil {
		t.Error("Ready after shutdown")
	}
}

func TestModulesOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MFSW.Enabled = true
	cfg.Shutdown.Enabled = true
	cfg.TimeSync.Enabled = true
	cfg.DayNight.Enabled = true
	cfg.TVSim.Enabled = true
	modules, err := cfg.Modules(&hal.Recorder{}, pubsub.NewMemoryHub(1).Broker())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range modules {
		names = append(names, m.Name())
	}
	want := []string{"mmi", "mfsw", "source", "timesync", "shutdown", "daynight", "tvsim"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("modules = %v, want %v", names, want)
	}
}
