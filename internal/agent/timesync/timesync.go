package timesync

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

// activeWindow is how long after the last decoded frame the sync counts as active.
const activeWindow = 5 * time.Minute

// Engine decides whether a clock broadcast should reset the host clock.
type Engine struct {
	format    Format
	loc       *time.Location
	threshold time.Duration

	lastDecoded time.Time
	lastSynced  time.Time
}

func NewEngine(format Format, loc *time.Location, threshold time.Duration) *Engine {
	return &Engine{format: format, loc: loc, threshold: threshold}
}

// Check decodes data and returns the UTC time to set, if the host clock at
// now is off by more than the threshold.
func (e *Engine) Check(data []byte, now time.Time) (time.Time, bool, error) {
	t, err := Decode(data, e.format, e.loc)
	if err != nil {
		return time.Time{}, false, err
	}
	e.lastDecoded = now

	utc := t.UTC()
	diff := now.Sub(utc)
	if diff < 0 {
		diff = -diff
	}
	if diff <= e.threshold {
		log.Debug("Host clock within threshold", "vehicle", utc, "diff", diff)
		return time.Time{}, false, nil
	}
	return utc, true, nil
}

// Active reports whether a clock frame was decoded within the active window.
func (e *Engine) Active(now time.Time) bool {
	return !e.lastDecoded.IsZero() && now.Sub(e.lastDecoded) < activeWindow
}

var (
	_ core.Module   = (*Module)(nil)
	_ core.Reporter = (*Module)(nil)
)

type Module struct {
	id     uint32
	engine *Engine
	sink   core.ActionSink
}

func New(o *Options, sink core.ActionSink) (*Module, error) {
	id, err := can.ParseID(o.ID)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(o.Format)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(o.TimeZone)
	if err != nil {
		return nil, err
	}
	return &Module{id: id, engine: NewEngine(format, loc, o.Threshold), sink: sink}, nil
}

func (m *Module) Name() string { return "timesync" }

func (m *Module) Routes() map[uint32]core.HandlerFunc {
	return map[uint32]core.HandlerFunc{m.id: m.handle}
}

func (m *Module) handle(_ context.Context, f can.Frame, now time.Time) {
	utc, sync, err := m.engine.Check(f.Data, now)
	if err != nil {
		log.Warn("Dropping clock frame", "frame", f, "err", err)
		return
	}
	if !sync {
		return
	}

	log.Info("Setting host clock from vehicle", "utc", utc.Format(time.RFC3339), "host", now.UTC().Format(time.RFC3339))
	if err := m.sink.SetSystemClock(utc); err != nil {
		log.Error(err, "Failed to set host clock")
		return
	}
	m.engine.lastSynced = now
}

func (m *Module) Status(now time.Time) []any {
	kv := []any{"time_sync_active", m.engine.Active(now)}
	if !m.engine.lastSynced.IsZero() {
		kv = append(kv, "time_synced_at", m.engine.lastSynced.UTC().Format(time.RFC3339))
	}
	return kv
}
