package agent

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configure the agent loop itself.
type Options struct {
	// DebugMode switches the log level to debug, also on reload.
	DebugMode      bool          `json:"debug-mode" mapstructure:"debug-mode"`
	StatusInterval time.Duration `json:"status-interval" mapstructure:"status-interval"`
	ReceiveTimeout time.Duration `json:"receive-timeout" mapstructure:"receive-timeout"`
}

func NewOptions() *Options {
	return &Options{
		StatusInterval: time.Minute,
		ReceiveTimeout: time.Second,
	}
}

func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if o.StatusInterval <= 0 {
		errs = append(errs, fmt.Errorf("agent.status-interval must be positive"))
	}
	if o.ReceiveTimeout <= 0 || o.ReceiveTimeout > 5*time.Second {
		errs = append(errs, fmt.Errorf("agent.receive-timeout must be in (0s, 5s]"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.DebugMode, "agent.debug-mode", o.DebugMode, "Log at debug level.")
	fs.DurationVar(&o.StatusInterval, "agent.status-interval", o.StatusInterval, "Interval of the status log.")
	fs.DurationVar(&o.ReceiveTimeout, "agent.receive-timeout", o.ReceiveTimeout, "Upper bound of one message channel receive wait.")
}
