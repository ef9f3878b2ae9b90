package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*PubSubOptions)(nil)

const (
	PubSubDriverMQTT  = "mqtt"
	PubSubDriverRedis = "redis"
)

// PubSubOptions selects the channel that carries frames and send requests.
type PubSubOptions struct {
	Driver string `json:"driver" mapstructure:"driver"`

	// BufferSize bounds the messages held between the network and the loop.
	BufferSize int `json:"buffer-size" mapstructure:"buffer-size"`
}

// NewPubSubOptions creates a PubSubOptions object with default parameters.
func NewPubSubOptions() *PubSubOptions {
	return &PubSubOptions{
		Driver:     PubSubDriverMQTT,
		BufferSize: 1024,
	}
}

// Validate checks the driver name and buffer size.
func (o *PubSubOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	switch o.Driver {
	case PubSubDriverMQTT, PubSubDriverRedis:
	default:
		errors = append(errors, fmt.Errorf("pubsub.driver must be %q or %q, got %q", PubSubDriverMQTT, PubSubDriverRedis, o.Driver))
	}
	if o.BufferSize < 1 {
		errors = append(errors, fmt.Errorf("pubsub.buffer-size must be positive"))
	}

	return errors
}

// AddFlags adds flags for PubSubOptions to the specified FlagSet.
func (o *PubSubOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, "pubsub.driver", o.Driver, "Message channel driver: 'mqtt' or 'redis'.")
	fs.IntVar(&o.BufferSize, "pubsub.buffer-size", o.BufferSize, "Number of messages buffered between the network and the main loop.")
}
