package source

import (
	"context"
	"testing"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/pkg/can"
)

var (
	tv    = []byte{0x81, 0x01, 0x12, 0x37, 0, 0, 0, 0}
	tv2   = []byte{0x83, 0x01, 0x12, 0x37, 0, 0, 0, 0}
	radio = []byte{0x01, 0x01, 0x12, 0x30, 0, 0, 0, 0}
)

func TestDetector(t *testing.T) {
	d := NewDetector(SignatureMatcher{tv, tv2})

	steps := []struct {
		data        []byte
		wantActive  bool
		wantChanged bool
	}{
		{tv, true, true},
		{tv, true, false},
		{tv2, true, false},
		{radio, false, true},
		{radio, false, false},
		{nil, false, false},
		{tv2, true, true},
	}
	for i, s := range steps {
		active, changed := d.Observe(s.data)
		if active != s.wantActive || changed != s.wantChanged {
			t.Errorf("step %d: Observe = (%v, %v), want (%v, %v)", i, active, changed, s.wantActive, s.wantChanged)
		}
	}
}

func TestDetectorFirstObservationInactive(t *testing.T) {
	d := NewDetector(ByteMatcher{Index: 0, Value: 0x81})
	if _, known := d.State(); known {
		t.Fatal("fresh detector has a state")
	}
	if active, changed := d.Observe(radio); active || !changed {
		t.Errorf("first Observe = (%v, %v)", active, changed)
	}
	if active, changed := d.Observe(tv); !active || !changed {
		t.Errorf("second Observe = (%v, %v)", active, changed)
	}
	if active, _ := d.Observe([]byte{}); active {
		t.Error("empty payload matched designated byte")
	}
}

func TestModuleFiresOnEdges(t *testing.T) {
	rec := &hal.Recorder{}
	o := NewOptions()
	o.PauseAction = "mute"
	m, err := New(o, rec)
	if err != nil {
		t.Fatal(err)
	}
	h := m.Routes()[0x661]

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		h(ctx, can.Frame{ID: 0x661, Data: tv}, time.Now())
	}
	for i := 0; i < 3; i++ {
		h(ctx, can.Frame{ID: 0x661, Data: radio}, time.Now())
	}

	want := []core.Action{core.PlayPause, core.Mute}
	if len(rec.Keys) != len(want) || rec.Keys[0] != want[0] || rec.Keys[1] != want[1] {
		t.Errorf("keys = %v, want %v", rec.Keys, want)
	}
	if st := m.Status(time.Now()); len(st) != 2 || st[1] != false {
		t.Errorf("Status = %v", st)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"byte mode", func(o *Options) { o.Match = MatchByte; o.ByteIndex = 3; o.ByteValue = "37" }, false},
		{"bad signature", func(o *Options) { o.Signatures = []string{"zz"} }, true},
		{"long signature", func(o *Options) { o.Signatures = []string{"000000000000000000"} }, true},
		{"no signatures", func(o *Options) { o.Signatures = nil }, true},
		{"bad byte index", func(o *Options) { o.Match = MatchByte; o.ByteIndex = 8 }, true},
		{"bad byte value", func(o *Options) { o.Match = MatchByte; o.ByteValue = "0x100" }, true},
		{"unknown match", func(o *Options) { o.Match = "regex" }, true},
		{"unknown action", func(o *Options) { o.PlayAction = "dance" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			if errs := o.Validate(); (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}
