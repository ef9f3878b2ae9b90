package press

import (
	"context"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
)

var _ core.Module = (*MFSW)(nil)

// MFSW classifies the steering wheel controls. The command code is in
// bytes 0..1. The wheel sends no per-code release; an idle code ends
// every hold instead. A scroll frame discards holds in progress.
type MFSW struct {
	id       uint32
	cls      *Classifier
	releases map[Code]struct{}
	sink     core.ActionSink
}

func NewMFSW(o *MFSWOptions, th Thresholds, sink core.ActionSink) (*MFSW, error) {
	id, err := can.ParseID(o.ID)
	if err != nil {
		return nil, err
	}
	m, err := o.Mapping()
	if err != nil {
		return nil, err
	}
	releases, err := o.releaseCodes()
	if err != nil {
		return nil, err
	}
	return &MFSW{id: id, cls: NewClassifier("mfsw", m, th), releases: releases, sink: sink}, nil
}

func (m *MFSW) Name() string { return "mfsw" }

func (m *MFSW) Routes() map[uint32]core.HandlerFunc {
	return map[uint32]core.HandlerFunc{m.id: m.handle}
}

func (m *MFSW) handle(_ context.Context, f can.Frame, now time.Time) {
	code, ok := CodeAt(f.Data, 0)
	if !ok {
		return
	}

	if _, release := m.releases[code]; release {
		for _, ev := range m.cls.ReleaseAll(now) {
			core.Fire(m.sink, m.Name(), string(ev.Tier), ev.Action)
		}
		return
	}
	if m.cls.IsScroll(code) {
		m.cls.Reset()
	}
	if ev, ok := m.cls.Press(code, now); ok {
		core.Fire(m.sink, m.Name(), string(ev.Tier), ev.Action)
	}
}
