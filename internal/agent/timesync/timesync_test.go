package timesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/pkg/can"
)

// 13:21:36 on 2034-12-10 in both encodings.
var (
	rawFrame = []byte{0x00, 0x0D, 0x15, 0x24, 0x0A, 0x0C, 0x14, 0x22}
	bcdFrame = []byte{0x00, 0x13, 0x21, 0x36, 0x10, 0x12, 0x20, 0x34}
)

func TestDecode(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		format  Format
		loc     *time.Location
		want    time.Time
		wantErr bool
	}{
		{"raw", rawFrame, FormatRaw, time.UTC, time.Date(2034, 12, 10, 13, 21, 36, 0, time.UTC), false},
		{"bcd", bcdFrame, FormatBCD, time.UTC, time.Date(2034, 12, 10, 13, 21, 36, 0, time.UTC), false},
		{"zone", rawFrame, FormatRaw, berlin, time.Date(2034, 12, 10, 12, 21, 36, 0, time.UTC), false},
		{"bcd sample", []byte{0x00, 0x11, 0x22, 0x33, 0x04, 0x05, 0x20, 0x26}, FormatBCD, time.UTC, time.Date(2026, 5, 4, 11, 22, 33, 0, time.UTC), false},
		{"short", rawFrame[:7], FormatRaw, time.UTC, time.Time{}, true},
		{"month 13", []byte{0, 1, 1, 1, 1, 13, 20, 30}, FormatRaw, time.UTC, time.Time{}, true},
		{"february 30", []byte{0, 1, 1, 1, 30, 2, 20, 30}, FormatRaw, time.UTC, time.Time{}, true},
		{"hour 24", []byte{0, 24, 0, 0, 1, 1, 20, 30}, FormatRaw, time.UTC, time.Time{}, true},
		{"not bcd", []byte{0, 0x1A, 0, 0, 1, 1, 0x20, 0x30}, FormatBCD, time.UTC, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, tt.format, tt.loc)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("err = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Decode = %s, want %s", got.UTC(), tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"bcd": FormatBCD, "old_logic": FormatBCD, "raw": FormatRaw, "new_logic": FormatRaw} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("unix"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestModuleSync(t *testing.T) {
	vehicle := time.Date(2034, 12, 10, 13, 21, 36, 0, time.UTC)

	tests := []struct {
		name string
		host time.Time
		want int
	}{
		{"far off", vehicle.Add(-2 * time.Hour), 1},
		{"just over", vehicle.Add(61 * time.Second), 1},
		{"within", vehicle.Add(-59 * time.Second), 0},
		{"exact", vehicle, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &hal.Recorder{}
			o := NewOptions()
			o.Enabled = true
			m, err := New(o, rec)
			if err != nil {
				t.Fatal(err)
			}
			m.Routes()[0x623](context.Background(), can.Frame{ID: 0x623, Data: rawFrame}, tt.host)

			if len(rec.Clocks) != tt.want {
				t.Fatalf("clock sets = %v, want %d", rec.Clocks, tt.want)
			}
			if tt.want == 1 && !rec.Clocks[0].Equal(vehicle) {
				t.Errorf("clock set to %s, want %s", rec.Clocks[0], vehicle)
			}
			if !m.engine.Active(tt.host) {
				t.Error("engine not active after a decoded frame")
			}
		})
	}
}

func TestModuleDropsMalformed(t *testing.T) {
	rec := &hal.Recorder{}
	o := NewOptions()
	o.Enabled = true
	m, err := New(o, rec)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	m.handle(context.Background(), can.Frame{ID: 0x623, Data: []byte{0, 1, 2}}, now)
	if len(rec.Clocks) != 0 {
		t.Error("malformed frame set the clock")
	}
	if m.engine.Active(now) {
		t.Error("malformed frame marked the sync active")
	}
}

func TestEngineActiveWindow(t *testing.T) {
	e := NewEngine(FormatRaw, time.UTC, time.Minute)
	now := time.Date(2034, 12, 10, 13, 21, 36, 0, time.UTC)
	if e.Active(now) {
		t.Fatal("fresh engine active")
	}
	if _, _, err := e.Check(rawFrame, now); err != nil {
		t.Fatal(err)
	}
	if !e.Active(now.Add(4 * time.Minute)) {
		t.Error("inactive within window")
	}
	if e.Active(now.Add(6 * time.Minute)) {
		t.Error("active after window")
	}
}

func TestOptionsValidate(t *testing.T) {
	o := NewOptions()
	o.Enabled = true
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatal(errs)
	}
	o.TimeZone = "Mars/Olympus"
	o.Format = "julian"
	o.Threshold = 0
	if errs := o.Validate(); len(errs) != 3 {
		t.Errorf("errs = %v", errs)
	}
}
