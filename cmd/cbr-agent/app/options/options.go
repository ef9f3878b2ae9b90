package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/canbridge/internal/agent"
	"github.com/autopeer-io/canbridge/internal/agent/daynight"
	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/internal/agent/press"
	"github.com/autopeer-io/canbridge/internal/agent/shutdown"
	"github.com/autopeer-io/canbridge/internal/agent/source"
	"github.com/autopeer-io/canbridge/internal/agent/timesync"
	"github.com/autopeer-io/canbridge/internal/agent/tvsim"
	"github.com/autopeer-io/canbridge/pkg/app"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/options"
)

type AgentOptions struct {
	AgentOptions    *agent.Options          `json:"agent" mapstructure:"agent"`
	PressOptions    *press.ThresholdOptions `json:"press" mapstructure:"press"`
	MMIOptions      *press.MMIOptions       `json:"mmi" mapstructure:"mmi"`
	MFSWOptions     *press.MFSWOptions      `json:"mfsw" mapstructure:"mfsw"`
	SourceOptions   *source.Options         `json:"source" mapstructure:"source"`
	TimeSyncOptions *timesync.Options       `json:"timesync" mapstructure:"timesync"`
	ShutdownOptions *shutdown.Options       `json:"shutdown" mapstructure:"shutdown"`
	DayNightOptions *daynight.Options       `json:"daynight" mapstructure:"daynight"`
	TVSimOptions    *tvsim.Options          `json:"tvsim" mapstructure:"tvsim"`
	ActionOptions   *hal.Options            `json:"actions" mapstructure:"actions"`
	PubSubOptions   *options.PubSubOptions  `json:"pubsub" mapstructure:"pubsub"`
	MqttOptions     *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	RedisOptions    *options.RedisOptions   `json:"redis" mapstructure:"redis"`
	HttpOptions     *options.HttpOptions    `json:"http" mapstructure:"http"`
	Log             *log.Options            `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*AgentOptions)(nil)

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		AgentOptions:    agent.NewOptions(),
		PressOptions:    press.NewThresholdOptions(),
		MMIOptions:      press.NewMMIOptions(),
		MFSWOptions:     press.NewMFSWOptions(),
		SourceOptions:   source.NewOptions(),
		TimeSyncOptions: timesync.NewOptions(),
		ShutdownOptions: shutdown.NewOptions(),
		DayNightOptions: daynight.NewOptions(),
		TVSimOptions:    tvsim.NewOptions(),
		ActionOptions:   hal.NewOptions(),
		PubSubOptions:   options.NewPubSubOptions(),
		MqttOptions:     options.NewMqttOptions(),
		RedisOptions:    options.NewRedisOptions(),
		HttpOptions:     options.NewHttpOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.AgentOptions.AddFlags(fss.FlagSet("agent"))
	o.PressOptions.AddFlags(fss.FlagSet("press"))
	o.MMIOptions.AddFlags(fss.FlagSet("mmi"))
	o.MFSWOptions.AddFlags(fss.FlagSet("mfsw"))
	o.SourceOptions.AddFlags(fss.FlagSet("source"))
	o.TimeSyncOptions.AddFlags(fss.FlagSet("timesync"))
	o.ShutdownOptions.AddFlags(fss.FlagSet("shutdown"))
	o.DayNightOptions.AddFlags(fss.FlagSet("daynight"))
	o.TVSimOptions.AddFlags(fss.FlagSet("tvsim"))
	o.ActionOptions.AddFlags(fss.FlagSet("actions"))
	o.PubSubOptions.AddFlags(fss.FlagSet("pubsub"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *AgentOptions) Complete() error {
	if o.Log.Name == "" {
		o.Log.Name = agent.ClientName
	}
	return nil
}

// Validate checks every option group. Disabled modules are not checked;
// broker settings only for the selected driver.
func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.AgentOptions.Validate()...)
	errs = append(errs, o.PressOptions.Validate()...)
	errs = append(errs, o.MMIOptions.Validate()...)
	errs = append(errs, o.MFSWOptions.Validate()...)
	errs = append(errs, o.SourceOptions.Validate()...)
	errs = append(errs, o.TimeSyncOptions.Validate()...)
	errs = append(errs, o.ShutdownOptions.Validate()...)
	errs = append(errs, o.DayNightOptions.Validate()...)
	errs = append(errs, o.TVSimOptions.Validate()...)
	errs = append(errs, o.ActionOptions.Validate()...)
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

func (o *AgentOptions) Config() *agent.Config {
	return &agent.Config{
		Loop:     o.AgentOptions,
		LogLevel: o.Log.Level,
		Press:    o.PressOptions,
		MMI:      o.MMIOptions,
		MFSW:     o.MFSWOptions,
		Source:   o.SourceOptions,
		TimeSync: o.TimeSyncOptions,
		Shutdown: o.ShutdownOptions,
		DayNight: o.DayNightOptions,
		TVSim:    o.TVSimOptions,
		Actions:  o.ActionOptions,
		PubSub:   o.PubSubOptions,
		Mqtt:     o.MqttOptions,
		Redis:    o.RedisOptions,
	}
}
