package shutdown

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

// Trigger selects the watched signal.
type Trigger string

const (
	TriggerIgnitionOff Trigger = "ignition_off"
	TriggerKeyPulled   Trigger = "key_pulled"
)

var _ options.IOptions = (*Options)(nil)

type Options struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	ID      string        `json:"id" mapstructure:"id"`
	Trigger string        `json:"trigger" mapstructure:"trigger"`
	Delay   time.Duration `json:"delay" mapstructure:"delay"`
}

func NewOptions() *Options {
	return &Options{
		Enabled: false,
		ID:      "0x2C3",
		Trigger: string(TriggerIgnitionOff),
		Delay:   5 * time.Minute,
	}
}

func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}
	if _, err := can.ParseID(o.ID); err != nil {
		errs = append(errs, fmt.Errorf("shutdown.id: %w", err))
	}
	switch Trigger(o.Trigger) {
	case TriggerIgnitionOff, TriggerKeyPulled:
	default:
		errs = append(errs, fmt.Errorf("shutdown.trigger %q is not one of ignition_off, key_pulled", o.Trigger))
	}
	if o.Delay <= 0 {
		errs = append(errs, fmt.Errorf("shutdown.delay must be positive"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "shutdown.enabled", o.Enabled, "Power the host off after the ignition or key is removed.")
	fs.StringVar(&o.ID, "shutdown.id", o.ID, "Frame identifier of the ignition status.")
	fs.StringVar(&o.Trigger, "shutdown.trigger", o.Trigger, "Watched signal: 'ignition_off' or 'key_pulled'.")
	fs.DurationVar(&o.Delay, "shutdown.delay", o.Delay, "Delay between the trigger and the shutdown.")
}
