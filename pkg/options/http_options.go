package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configure the health and metrics listener.
type HttpOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Network string `json:"network" mapstructure:"network"`
	Addr    string `json:"addr" mapstructure:"addr"`

	// Timeout bounds reads and writes of one request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Enabled: true,
		Network: "tcp",
		Addr:    "0.0.0.0:9090",
		Timeout: 30 * time.Second,
	}
}

// Validate checks the listener only when it is enabled.
func (o *HttpOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errors := []error{}
	switch o.Network {
	case "tcp", "tcp4", "tcp6":
		if err := ValidateAddress(o.Addr); err != nil {
			errors = append(errors, fmt.Errorf("http.addr: %w", err))
		}
	default:
		errors = append(errors, fmt.Errorf("http.network must be tcp, tcp4 or tcp6, got %q", o.Network))
	}
	if o.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("http.timeout must be positive"))
	}
	return errors
}

func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "http.enabled", o.Enabled, "Serve /healthz, /readyz and /metrics.")
	fs.StringVar(&o.Network, "http.network", o.Network, "Listener network: tcp, tcp4 or tcp6.")
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Listener address (host:port).")
	fs.DurationVar(&o.Timeout, "http.timeout", o.Timeout, "Read and write timeout of one request.")
}
