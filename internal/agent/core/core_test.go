package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		want    Action
		wantErr bool
	}{
		{"up", Up, false},
		{" Play_Pause ", PlayPause, false},
		{"v", Action("v"), false},
		{"2", Action("2"), false},
		{"restart_frontend", RestartFrontend, false},
		{"none", None, false},
		{"KEY_UP", "", true},
		{"", "", true},
		{"format_disk", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeysym(t *testing.T) {
	for a, want := range map[Action]string{Enter: "Return", Escape: "Escape", "m": "m", "1": "1", Reboot: ""} {
		if got := a.Keysym(); got != want {
			t.Errorf("%s.Keysym() = %q, want %q", a, got, want)
		}
	}
}

type fakeSink struct {
	keys    []Action
	systems []Action
	err     error
}

func (s *fakeSink) PressKey(a Action) error          { s.keys = append(s.keys, a); return s.err }
func (s *fakeSink) RunSystemCommand(a Action) error  { s.systems = append(s.systems, a); return s.err }
func (s *fakeSink) SetSystemClock(time.Time) error   { return nil }
func (s *fakeSink) SetDisplayMode(DisplayMode) error { return nil }
func (s *fakeSink) ShutdownNow() error               { return nil }

func TestPerform(t *testing.T) {
	s := &fakeSink{}
	for _, a := range []Action{Up, RestartFrontend, None, "h"} {
		if err := Perform(s, a); err != nil {
			t.Fatalf("Perform(%s) = %v", a, err)
		}
	}
	if len(s.keys) != 2 || s.keys[0] != Up || s.keys[1] != "h" {
		t.Errorf("keys = %v", s.keys)
	}
	if len(s.systems) != 1 || s.systems[0] != RestartFrontend {
		t.Errorf("systems = %v", s.systems)
	}

	s.err = errors.New("xdotool missing")
	if err := Perform(s, Down); err == nil {
		t.Error("sink errors must be returned")
	}
	if err := Perform(s, Action("bogus")); err == nil {
		t.Error("unknown actions must fail")
	}
}
