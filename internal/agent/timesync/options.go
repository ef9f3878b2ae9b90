package timesync

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

type Options struct {
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	ID        string        `json:"id" mapstructure:"id"`
	Format    string        `json:"format" mapstructure:"format"`
	TimeZone  string        `json:"time-zone" mapstructure:"time-zone"`
	Threshold time.Duration `json:"threshold" mapstructure:"threshold"`
}

func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		ID:        "0x623",
		Format:    string(FormatRaw),
		TimeZone:  "UTC",
		Threshold: time.Minute,
	}
}

func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}
	if _, err := can.ParseID(o.ID); err != nil {
		errs = append(errs, fmt.Errorf("timesync.id: %w", err))
	}
	if _, err := ParseFormat(o.Format); err != nil {
		errs = append(errs, fmt.Errorf("timesync.format: %w", err))
	}
	if _, err := time.LoadLocation(o.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("timesync.time-zone: %w", err))
	}
	if o.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("timesync.threshold must be positive"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "timesync.enabled", o.Enabled, "Set the host clock from the vehicle clock broadcast.")
	fs.StringVar(&o.ID, "timesync.id", o.ID, "Frame identifier of the clock broadcast.")
	fs.StringVar(&o.Format, "timesync.format", o.Format, "Field encoding: 'bcd' (old_logic) or 'raw' (new_logic).")
	fs.StringVar(&o.TimeZone, "timesync.time-zone", o.TimeZone, "IANA time zone of the vehicle clock.")
	fs.DurationVar(&o.Threshold, "timesync.threshold", o.Threshold, "Clock difference above which the host clock is set.")
}
