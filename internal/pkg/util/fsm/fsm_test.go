package fsm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/looplab/fsm"
)

func TestIsRealError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no transition", fsm.NoTransitionError{}, false},
		{"wrapped canceled", fmt.Errorf("event: %w", fsm.CanceledError{}), false},
		{"invalid event", fsm.InvalidEventError{Event: "fault", State: "disconnected"}, true},
		{"other", errors.New("boom"), true},
	}
	for _, tt := range tests {
		if got := IsRealError(tt.err); got != tt.want {
			t.Errorf("%s: IsRealError = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWrapEventReportsEnterError(t *testing.T) {
	boom := errors.New("boom")
	f := fsm.NewFSM("a",
		fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
		fsm.Callbacks{
			"enter_b": WrapEvent(func(_ context.Context, _ *fsm.Event) error { return boom }),
		},
	)

	err := f.Event(context.Background(), "go")
	if !errors.Is(err, boom) {
		t.Fatalf("Event err = %v, want %v", err, boom)
	}
	if !IsRealError(err) {
		t.Error("a callback failure must count as a real error")
	}
	// The transition has already happened when enter callbacks run.
	if f.Current() != "b" {
		t.Errorf("state = %s, want b", f.Current())
	}
}

func TestWrapEventNilKeepsEventClean(t *testing.T) {
	f := fsm.NewFSM("a",
		fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
		fsm.Callbacks{
			"enter_b": WrapEvent(func(context.Context, *fsm.Event) error { return nil }),
		},
	)
	if err := f.Event(context.Background(), "go"); err != nil {
		t.Fatalf("Event err = %v", err)
	}
	if f.Current() != "b" {
		t.Errorf("state = %s, want b", f.Current())
	}
}
