package hal

import (
	"sync"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
)

var _ core.ActionSink = (*Recorder)(nil)

// Recorder remembers every call. Tests use it to assert which actions fired.
type Recorder struct {
	mu sync.Mutex

	Keys     []core.Action
	Commands []core.Action
	Clocks   []time.Time
	Modes    []core.DisplayMode
	Shutdown int

	// Err, when set, is returned from every call after it is recorded.
	Err error
}

func (r *Recorder) PressKey(key core.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys = append(r.Keys, key)
	return r.Err
}

func (r *Recorder) RunSystemCommand(cmd core.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = append(r.Commands, cmd)
	return r.Err
}

func (r *Recorder) SetSystemClock(utc time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clocks = append(r.Clocks, utc)
	return r.Err
}

func (r *Recorder) SetDisplayMode(mode core.DisplayMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Modes = append(r.Modes, mode)
	return r.Err
}

func (r *Recorder) ShutdownNow() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Shutdown++
	return r.Err
}

// Actions returns key and system actions in one list, keys first.
func (r *Recorder) Actions() []core.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]core.Action(nil), r.Keys...)
	return append(out, r.Commands...)
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys, r.Commands, r.Clocks, r.Modes, r.Shutdown = nil, nil, nil, nil, 0
}
