package press

import (
	"context"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

const (
	mmiIndicator = 2
	mmiCode      = 3

	mmiPressed  = 0x01
	mmiReleased = 0x04
)

var _ core.Module = (*MMI)(nil)

// MMI classifies the infotainment control panel. Byte 2 carries the
// press/release indicator and bytes 3..4 the command code.
type MMI struct {
	id   uint32
	cls  *Classifier
	sink core.ActionSink
}

func NewMMI(o *MMIOptions, th Thresholds, sink core.ActionSink) (*MMI, error) {
	id, err := can.ParseID(o.ID)
	if err != nil {
		return nil, err
	}
	m, err := o.Mapping()
	if err != nil {
		return nil, err
	}
	return &MMI{id: id, cls: NewClassifier("mmi", m, th), sink: sink}, nil
}

func (m *MMI) Name() string { return "mmi" }

func (m *MMI) Routes() map[uint32]core.HandlerFunc {
	return map[uint32]core.HandlerFunc{m.id: m.handle}
}

func (m *MMI) handle(_ context.Context, f can.Frame, now time.Time) {
	if f.DLC() < 5 {
		log.Debug("Short MMI frame", "frame", f)
		return
	}
	code, _ := CodeAt(f.Data, mmiCode)

	var (
		ev Event
		ok bool
	)
	switch f.Data[mmiIndicator] {
	case mmiPressed:
		ev, ok = m.cls.Press(code, now)
	case mmiReleased:
		ev, ok = m.cls.Release(code, now)
	}
	if ok {
		core.Fire(m.sink, m.Name(), string(ev.Tier), ev.Action)
	}
}
