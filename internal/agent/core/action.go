package core

import (
	"fmt"
	"strings"
)

// Action is a logical action a decoder can request. The set is closed:
// configuration names are resolved with ParseAction at load time.
type Action string

const (
	// None disables a mapping entry.
	None Action = "none"

	Up            Action = "up"
	Down          Action = "down"
	Left          Action = "left"
	Right         Action = "right"
	Enter         Action = "enter"
	Escape        Action = "escape"
	Home          Action = "home"
	Back          Action = "back"
	Tab           Action = "tab"
	PlayPause     Action = "play_pause"
	NextTrack     Action = "next_track"
	PreviousTrack Action = "previous_track"
	VolumeUp      Action = "volume_up"
	VolumeDown    Action = "volume_down"
	Mute          Action = "mute"

	Reboot          Action = "reboot"
	Poweroff        Action = "poweroff"
	RestartFrontend Action = "restart_frontend"
)

// keysyms maps key actions to X keysym names.
var keysyms = map[Action]string{
	Up:            "Up",
	Down:          "Down",
	Left:          "Left",
	Right:         "Right",
	Enter:         "Return",
	Escape:        "Escape",
	Home:          "Home",
	Back:          "BackSpace",
	Tab:           "Tab",
	PlayPause:     "XF86AudioPlay",
	NextTrack:     "XF86AudioNext",
	PreviousTrack: "XF86AudioPrev",
	VolumeUp:      "XF86AudioRaiseVolume",
	VolumeDown:    "XF86AudioLowerVolume",
	Mute:          "XF86AudioMute",
}

var systemActions = map[Action]struct{}{
	Reboot:          {},
	Poweroff:        {},
	RestartFrontend: {},
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		keysyms[Action(c)] = string(c)
	}
	for c := '0'; c <= '9'; c++ {
		keysyms[Action(c)] = string(c)
	}
}

// ParseAction resolves a configured action name. Unknown names are an error.
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(name)))
	if a == None || a.IsKey() || a.IsSystem() {
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", name)
}

// IsKey reports whether a is delivered as a key press.
func (a Action) IsKey() bool {
	_, ok := keysyms[a]
	return ok
}

// IsSystem reports whether a runs a configured system command.
func (a Action) IsSystem() bool {
	_, ok := systemActions[a]
	return ok
}

// Keysym returns the X keysym of a key action, or "" for other actions.
func (a Action) Keysym() string {
	return keysyms[a]
}

func (a Action) String() string {
	return string(a)
}
