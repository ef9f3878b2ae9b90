package shutdown

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	fsmutil "github.com/autopeer-io/canbridge/internal/pkg/util/fsm"
	"github.com/autopeer-io/canbridge/pkg/log"
)

const (
	StateArmed   = "armed"
	StatePending = "pending"
	StateFired   = "fired"

	EventTrigger = "trigger"
	EventCancel  = "cancel"
	EventFire    = "fire"
	// EventRearm returns a failed shutdown to armed.
	EventRearm = "rearm"
)

// Timer is the shutdown countdown. It is armed until the watched signal
// drops, pending while the delay runs and fired once the sink was asked
// to power off.
type Timer struct {
	*fsm.FSM

	delay time.Duration
	sink  core.ActionSink
	since time.Time
}

func NewTimer(delay time.Duration, sink core.ActionSink) *Timer {
	t := &Timer{delay: delay, sink: sink}

	events := fsm.Events{
		{Name: EventTrigger, Src: []string{StateArmed}, Dst: StatePending},
		{Name: EventCancel, Src: []string{StatePending}, Dst: StateArmed},
		{Name: EventFire, Src: []string{StatePending}, Dst: StateFired},
		{Name: EventRearm, Src: []string{StateFired}, Dst: StateArmed},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StatePending: fsmutil.WrapEvent(t.ActionEnterPending),
		"enter_" + StateArmed:   fsmutil.WrapEvent(t.ActionEnterArmed),
		"enter_" + StateFired:   fsmutil.WrapEvent(t.ActionEnterFired),
	}

	t.FSM = fsm.NewFSM(StateArmed, events, callbacks)
	return t
}

// ActionEnterPending records the trigger time passed as the first argument.
func (t *Timer) ActionEnterPending(_ context.Context, e *fsm.Event) error {
	now, ok := e.Args[0].(time.Time)
	if !ok {
		return fmt.Errorf("trigger needs a time.Time argument, got %T", e.Args[0])
	}
	t.since = now
	log.Info("Shutdown timer started", "delay", t.delay)
	return nil
}

func (t *Timer) ActionEnterArmed(_ context.Context, e *fsm.Event) error {
	t.since = time.Time{}
	if e.Event == EventCancel {
		log.Info("Pending shutdown cancelled")
	}
	return nil
}

func (t *Timer) ActionEnterFired(_ context.Context, _ *fsm.Event) error {
	log.Warn("Shutdown delay elapsed, shutting down")
	return t.sink.ShutdownNow()
}

// Trigger starts the countdown unless one is already pending.
func (t *Timer) Trigger(ctx context.Context, now time.Time) {
	t.fire(ctx, EventTrigger, now)
}

// Cancel stops a pending countdown. The next trigger starts from zero.
func (t *Timer) Cancel(ctx context.Context) {
	t.fire(ctx, EventCancel)
}

// Check fires the shutdown once the pending delay has elapsed at now.
func (t *Timer) Check(ctx context.Context, now time.Time) {
	if !t.Is(StatePending) || now.Sub(t.since) < t.delay {
		return
	}
	if err := t.fire(ctx, EventFire); err != nil {
		log.Error(err, "Shutdown failed, re-arming timer")
		t.fire(ctx, EventRearm)
	}
}

// Remaining returns the time left on a pending countdown.
func (t *Timer) Remaining(now time.Time) (time.Duration, bool) {
	if !t.Is(StatePending) {
		return 0, false
	}
	left := t.delay - now.Sub(t.since)
	if left < 0 {
		left = 0
	}
	return left, true
}

// fire runs event when the current state allows it and returns callback errors.
func (t *Timer) fire(ctx context.Context, event string, args ...any) error {
	if !t.Can(event) {
		return nil
	}
	err := t.Event(ctx, event, args...)
	if fsmutil.IsRealError(err) {
		return err
	}
	return nil
}
