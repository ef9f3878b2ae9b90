package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/pkg/can"
)

const (
	ignitionOn  = keyBit | ignitionBit
	ignitionOff = keyBit
	keyPulled   = 0x00
)

type harness struct {
	t   *testing.T
	m   *Module
	rec *hal.Recorder
	now time.Time
}

func newHarness(t *testing.T, trigger Trigger) *harness {
	t.Helper()
	rec := &hal.Recorder{}
	o := NewOptions()
	o.Enabled = true
	o.Trigger = string(trigger)
	o.Delay = 300 * time.Second
	m, err := New(o, rec)
	if err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, m: m, rec: rec, now: time.Unix(1000, 0)}
}

func (h *harness) frame(b byte, after time.Duration) {
	h.now = h.now.Add(after)
	h.m.Routes()[0x2C3](context.Background(), can.Frame{ID: 0x2C3, Data: []byte{b}}, h.now)
}

func (h *harness) tick(after time.Duration) {
	h.now = h.now.Add(after)
	h.m.Tick(context.Background(), h.now)
}

func (h *harness) expect(state string, shutdowns int) {
	h.t.Helper()
	if got := h.m.timer.Current(); got != state {
		h.t.Errorf("state = %s, want %s", got, state)
	}
	if h.rec.Shutdown != shutdowns {
		h.t.Errorf("shutdowns = %d, want %d", h.rec.Shutdown, shutdowns)
	}
}

func TestIgnitionOffCancelled(t *testing.T) {
	h := newHarness(t, TriggerIgnitionOff)

	h.frame(ignitionOn, time.Second)
	h.expect(StateArmed, 0)

	h.frame(ignitionOff, time.Second)
	h.expect(StatePending, 0)

	h.tick(200 * time.Second)
	h.frame(ignitionOn, time.Second)
	h.expect(StateArmed, 0)

	// The countdown restarts from zero on the next edge.
	h.frame(ignitionOff, time.Second)
	h.tick(299 * time.Second)
	h.expect(StatePending, 0)
	h.tick(time.Second)
	h.expect(StateFired, 1)
}

func TestShutdownFiresOnce(t *testing.T) {
	h := newHarness(t, TriggerIgnitionOff)

	h.frame(ignitionOff, time.Second)
	for i := 0; i < 400; i++ {
		h.tick(time.Second)
	}
	h.expect(StateFired, 1)

	// Fired is terminal: further edges do not restart the timer.
	h.frame(ignitionOn, time.Second)
	h.frame(ignitionOff, time.Second)
	h.tick(time.Hour)
	h.expect(StateFired, 1)
}

func TestRepeatedOffFramesDoNotRestart(t *testing.T) {
	h := newHarness(t, TriggerIgnitionOff)

	h.frame(ignitionOff, time.Second)
	for i := 0; i < 30; i++ {
		h.frame(ignitionOff, 10*time.Second)
	}
	// 300s elapsed since the edge; the frame path checks the delay too.
	h.expect(StateFired, 1)
}

func TestKeyPulledTrigger(t *testing.T) {
	h := newHarness(t, TriggerKeyPulled)

	h.frame(ignitionOff, time.Second)
	h.expect(StateArmed, 0)

	h.frame(keyPulled, time.Second)
	h.expect(StatePending, 0)
	if left, ok := h.m.timer.Remaining(h.now.Add(100 * time.Second)); !ok || left != 200*time.Second {
		t.Errorf("Remaining = %s, %v", left, ok)
	}

	h.frame(ignitionOff, time.Second)
	h.expect(StateArmed, 0)
}

func TestFailedShutdownRearms(t *testing.T) {
	h := newHarness(t, TriggerIgnitionOff)
	h.rec.Err = errors.New("permission denied")

	h.frame(ignitionOff, time.Second)
	h.tick(301 * time.Second)
	h.expect(StateArmed, 1)

	h.rec.Err = nil
	h.frame(ignitionOn, time.Second)
	h.frame(ignitionOff, time.Second)
	h.tick(301 * time.Second)
	h.expect(StateFired, 2)
}

func TestStatus(t *testing.T) {
	h := newHarness(t, TriggerIgnitionOff)
	h.frame(ignitionOff, time.Second)
	st := h.m.Status(h.now.Add(60 * time.Second))
	if len(st) != 8 || st[1] != "off" || st[3] != "in" || st[5] != StatePending || st[7] != 240*time.Second {
		t.Errorf("Status = %v", st)
	}
}

func TestEmptyFrameIgnored(t *testing.T) {
	h := newHarness(t, TriggerIgnitionOff)
	h.m.handle(context.Background(), can.Frame{ID: 0x2C3}, h.now)
	h.expect(StateArmed, 0)
}
