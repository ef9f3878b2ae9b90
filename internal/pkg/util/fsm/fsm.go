package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts fn to a looplab callback. A returned error is stored in
// event.Err and comes back from FSM.Event. On enter_ callbacks the state
// has already changed.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsRealError reports whether err from fsm.Event is a failure, ignoring the
// "already in that state" and "canceled by guard" outcomes.
func IsRealError(err error) bool {
	if err == nil {
		return false
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return false
	}
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) {
		return false
	}
	return true
}
