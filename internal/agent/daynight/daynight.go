package daynight

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/options"
)

const lightByte = 1

var _ options.IOptions = (*Options)(nil)

type Options struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	ID       string        `json:"id" mapstructure:"id"`
	Cooldown time.Duration `json:"cooldown" mapstructure:"cooldown"`
}

func NewOptions() *Options {
	return &Options{
		Enabled:  false,
		ID:       "0x635",
		Cooldown: 10 * time.Second,
	}
}

func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}
	if _, err := can.ParseID(o.ID); err != nil {
		errs = append(errs, fmt.Errorf("daynight.id: %w", err))
	}
	if o.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("daynight.cooldown must not be negative"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "daynight.enabled", o.Enabled, "Switch the head unit theme with the vehicle lights.")
	fs.StringVar(&o.ID, "daynight.id", o.ID, "Frame identifier of the light status.")
	fs.DurationVar(&o.Cooldown, "daynight.cooldown", o.Cooldown, "Minimum gap between two theme switches.")
}

var (
	_ core.Module   = (*Module)(nil)
	_ core.Reporter = (*Module)(nil)
)

// Module follows the light status: lights on selects the night theme.
// The head unit starts in day mode.
type Module struct {
	id       uint32
	cooldown time.Duration
	sink     core.ActionSink

	lights     bool
	mode       core.DisplayMode
	lastSwitch time.Time
}

func New(o *Options, sink core.ActionSink) (*Module, error) {
	id, err := can.ParseID(o.ID)
	if err != nil {
		return nil, err
	}
	return &Module{id: id, cooldown: o.Cooldown, sink: sink, mode: core.DisplayDay}, nil
}

func (m *Module) Name() string { return "daynight" }

func (m *Module) Routes() map[uint32]core.HandlerFunc {
	return map[uint32]core.HandlerFunc{m.id: m.handle}
}

func (m *Module) handle(_ context.Context, f can.Frame, now time.Time) {
	b, ok := f.Byte(lightByte)
	if !ok {
		log.Debug("Short light status frame", "frame", f)
		return
	}
	m.lights = b > 0

	want := core.DisplayDay
	if m.lights {
		want = core.DisplayNight
	}
	if want == m.mode {
		return
	}
	// A suppressed switch is retried by the next frame.
	if !m.lastSwitch.IsZero() && now.Sub(m.lastSwitch) < m.cooldown {
		log.Debug("Theme switch suppressed by cooldown", "mode", want)
		return
	}

	log.Info("Switching head unit theme", "mode", want)
	m.mode, m.lastSwitch = want, now
	if err := m.sink.SetDisplayMode(want); err != nil {
		log.Error(err, "Failed to switch head unit theme", "mode", want)
	}
}

func (m *Module) Status(time.Time) []any {
	lights := "off"
	if m.lights {
		lights = "on"
	}
	return []any{"lights", lights, "theme", m.mode}
}
