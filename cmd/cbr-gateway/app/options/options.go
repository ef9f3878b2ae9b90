package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/canbridge/internal/gateway"
	"github.com/autopeer-io/canbridge/pkg/app"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/options"
)

type GatewayOptions struct {
	CANOptions    *options.CANOptions    `json:"can" mapstructure:"can"`
	PubSubOptions *options.PubSubOptions `json:"pubsub" mapstructure:"pubsub"`
	MqttOptions   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	RedisOptions  *options.RedisOptions  `json:"redis" mapstructure:"redis"`
	HttpOptions   *options.HttpOptions   `json:"http" mapstructure:"http"`
	Log           *log.Options           `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*GatewayOptions)(nil)

func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		CANOptions:    options.NewCANOptions(),
		PubSubOptions: options.NewPubSubOptions(),
		MqttOptions:   options.NewMqttOptions(),
		RedisOptions:  options.NewRedisOptions(),
		HttpOptions:   options.NewHttpOptions(),
		Log:           log.NewOptions(),
	}
}

func (o *GatewayOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.CANOptions.AddFlags(fss.FlagSet("can"))
	o.PubSubOptions.AddFlags(fss.FlagSet("pubsub"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *GatewayOptions) Complete() error {
	if o.Log.Name == "" {
		o.Log.Name = gateway.ClientName
	}
	return nil
}

// Validate checks every option group; broker settings only for the selected driver.
func (o *GatewayOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.CANOptions.Validate()...)
	errs = append(errs, o.PubSubOptions.Validate()...)
	switch o.PubSubOptions.Driver {
	case options.PubSubDriverMQTT:
		errs = append(errs, o.MqttOptions.Validate()...)
	case options.PubSubDriverRedis:
		errs = append(errs, o.RedisOptions.Validate()...)
	}
	if o.HttpOptions.Enabled {
		errs = append(errs, o.HttpOptions.Validate()...)
	}
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *GatewayOptions) Config() *gateway.Config {
	return &gateway.Config{
		CAN:    o.CANOptions,
		PubSub: o.PubSubOptions,
		Mqtt:   o.MqttOptions,
		Redis:  o.RedisOptions,
	}
}
