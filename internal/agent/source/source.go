package source

import (
	"bytes"
	"context"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

// Matcher decides from one payload whether the watched source is active.
type Matcher interface {
	Active(data []byte) bool
}

// SignatureMatcher matches whole payloads.
type SignatureMatcher [][]byte

func (m SignatureMatcher) Active(data []byte) bool {
	for _, sig := range m {
		if bytes.Equal(sig, data) {
			return true
		}
	}
	return false
}

// ByteMatcher matches one designated payload byte.
type ByteMatcher struct {
	Index int
	Value byte
}

func (m ByteMatcher) Active(data []byte) bool {
	return m.Index < len(data) && data[m.Index] == m.Value
}

// Detector remembers the last source state and reports changes.
type Detector struct {
	matcher Matcher
	known   bool
	active  bool
}

func NewDetector(m Matcher) *Detector {
	return &Detector{matcher: m}
}

// Observe returns the new state and true when data changes it. The first
// observation always counts as a change.
func (d *Detector) Observe(data []byte) (active, changed bool) {
	active = d.matcher.Active(data)
	if d.known && active == d.active {
		return active, false
	}
	d.known, d.active = true, active
	return active, true
}

// State returns the last observed state and whether one was observed.
func (d *Detector) State() (active, known bool) {
	return d.active, d.known
}

var (
	_ core.Module   = (*Module)(nil)
	_ core.Reporter = (*Module)(nil)
)

// Module plays when the head unit switches to the watched source and
// pauses when it switches away.
type Module struct {
	id    uint32
	det   *Detector
	play  core.Action
	pause core.Action
	sink  core.ActionSink
}

func New(o *Options, sink core.ActionSink) (*Module, error) {
	r, errs := o.resolve()
	if len(errs) > 0 {
		return nil, utilerrors.NewAggregate(errs)
	}
	return &Module{
		id:    r.id,
		det:   NewDetector(r.matcher),
		play:  r.play,
		pause: r.pause,
		sink:  sink,
	}, nil
}

func (m *Module) Name() string { return "source" }

func (m *Module) Routes() map[uint32]core.HandlerFunc {
	return map[uint32]core.HandlerFunc{m.id: m.handle}
}

func (m *Module) handle(_ context.Context, f can.Frame, _ time.Time) {
	active, changed := m.det.Observe(f.Data)
	if !changed {
		return
	}
	if active {
		log.Info("Source became active", "data", f)
		core.Fire(m.sink, m.Name(), "play", m.play)
		return
	}
	log.Info("Source became inactive", "data", f)
	core.Fire(m.sink, m.Name(), "pause", m.pause)
}

func (m *Module) Status(time.Time) []any {
	active, known := m.det.State()
	if !known {
		return []any{"source", "unknown"}
	}
	return []any{"source_active", active}
}
