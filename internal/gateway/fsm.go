package gateway

import (
	"context"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/canbridge/internal/pkg/util/fsm"
	"github.com/autopeer-io/canbridge/internal/pkg/metrics"
	"github.com/autopeer-io/canbridge/pkg/log"
)

const (
	LinkDisconnected = "disconnected"
	LinkConnected    = "connected"

	// EventConnect marks a successful transport Connect.
	EventConnect = "connect"
	// EventFault marks a bus fault or a deliberate teardown.
	EventFault = "fault"
)

// LinkStateMachine tracks whether the gateway holds an open bus.
type LinkStateMachine struct {
	*fsm.FSM
}

func NewLinkStateMachine() *LinkStateMachine {
	l := &LinkStateMachine{}

	events := fsm.Events{
		{Name: EventConnect, Src: []string{LinkDisconnected}, Dst: LinkConnected},
		{Name: EventFault, Src: []string{LinkConnected}, Dst: LinkDisconnected},
	}

	callbacks := fsm.Callbacks{
		"enter_" + LinkConnected:    fsmutil.WrapEvent(l.ActionEnterConnected),
		"enter_" + LinkDisconnected: fsmutil.WrapEvent(l.ActionEnterDisconnected),
	}

	l.FSM = fsm.NewFSM(LinkDisconnected, events, callbacks)
	metrics.BusConnected.Set(0)
	return l
}

func (l *LinkStateMachine) ActionEnterConnected(_ context.Context, _ *fsm.Event) error {
	metrics.BusConnected.Set(1)
	log.Info("CAN bus connected")
	return nil
}

// ActionEnterDisconnected logs the fault passed as the first event argument.
func (l *LinkStateMachine) ActionEnterDisconnected(_ context.Context, e *fsm.Event) error {
	metrics.BusConnected.Set(0)
	if len(e.Args) > 0 {
		if err, ok := e.Args[0].(error); ok && err != nil {
			log.Error(err, "CAN bus disconnected")
			return nil
		}
	}
	log.Info("CAN bus disconnected")
	return nil
}

// Fire runs event if the current state allows it.
func (l *LinkStateMachine) Fire(ctx context.Context, event string, args ...any) {
	if !l.Can(event) {
		return
	}
	if err := l.Event(ctx, event, args...); fsmutil.IsRealError(err) {
		log.Error(err, "Link state transition failed", "event", event, "state", l.Current())
	}
}

func (l *LinkStateMachine) Connected() bool {
	return l.Is(LinkConnected)
}
