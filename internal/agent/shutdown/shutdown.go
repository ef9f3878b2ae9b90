package shutdown

import (
	"context"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

const (
	keyBit      = 0x01
	ignitionBit = 0x02

	tickInterval = time.Second
)

var (
	_ core.Module   = (*Module)(nil)
	_ core.Ticker   = (*Module)(nil)
	_ core.Reporter = (*Module)(nil)
)

// Module watches the ignition status frame and drives the Timer.
type Module struct {
	id      uint32
	trigger Trigger
	timer   *Timer

	ignition bool
	key      bool
}

func New(o *Options, sink core.ActionSink) (*Module, error) {
	id, err := can.ParseID(o.ID)
	if err != nil {
		return nil, err
	}
	return &Module{
		id:       id,
		trigger:  Trigger(o.Trigger),
		timer:    NewTimer(o.Delay, sink),
		ignition: true,
		key:      true,
	}, nil
}

func (m *Module) Name() string { return "shutdown" }

func (m *Module) Routes() map[uint32]core.HandlerFunc {
	return map[uint32]core.HandlerFunc{m.id: m.handle}
}

func (m *Module) TickInterval() time.Duration { return tickInterval }

func (m *Module) Tick(ctx context.Context, now time.Time) {
	m.timer.Check(ctx, now)
}

func (m *Module) handle(ctx context.Context, f can.Frame, now time.Time) {
	b, ok := f.Byte(0)
	if !ok {
		log.Debug("Empty ignition status frame")
		return
	}

	was := m.watched()
	m.key = b&keyBit != 0
	m.ignition = b&ignitionBit != 0
	is := m.watched()

	switch {
	case was && !is:
		log.Info("Shutdown trigger observed", "trigger", m.trigger)
		m.timer.Trigger(ctx, now)
	case !was && is:
		m.timer.Cancel(ctx)
	}
	m.timer.Check(ctx, now)
}

func (m *Module) watched() bool {
	if m.trigger == TriggerKeyPulled {
		return m.key
	}
	return m.ignition
}

func (m *Module) Status(now time.Time) []any {
	kv := []any{"ignition", onOff(m.ignition, "on", "off"), "key", onOff(m.key, "in", "pulled")}
	if left, ok := m.timer.Remaining(now); ok {
		return append(kv, "shutdown", m.timer.Current(), "shutdown_in", left.Round(time.Second))
	}
	return append(kv, "shutdown", m.timer.Current())
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}
