package agent

import (
	"fmt"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/agent/daynight"
	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/internal/agent/press"
	"github.com/autopeer-io/canbridge/internal/agent/shutdown"
	"github.com/autopeer-io/canbridge/internal/agent/source"
	"github.com/autopeer-io/canbridge/internal/agent/timesync"
	"github.com/autopeer-io/canbridge/internal/agent/tvsim"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/options"
)

// ClientName prefixes the agent's MQTT client id.
const ClientName = "cbr-agent"

// Config is everything the agent loop needs.
type Config struct {
	Loop *Options

	// LogLevel is restored when debug mode is switched off by a reload.
	LogLevel string

	Press    *press.ThresholdOptions
	MMI      *press.MMIOptions
	MFSW     *press.MFSWOptions
	Source   *source.Options
	TimeSync *timesync.Options
	Shutdown *shutdown.Options
	DayNight *daynight.Options
	TVSim    *tvsim.Options
	Actions  *hal.Options

	PubSub *options.PubSubOptions
	Mqtt   *options.MqttOptions
	Redis  *options.RedisOptions
}

// ReloadSource hands the agent a replacement configuration. Next is polled
// once per loop iteration and returns false when nothing valid is pending.
type ReloadSource interface {
	Next() (*Config, bool)
}

// NewAgent resolves the enabled modules and the broker. Errors here are
// configuration errors and should stop the process.
func (cfg *Config) NewAgent() (*Agent, error) {
	a := &Agent{
		newBroker: newBroker,
		newSink:   hal.NewSink,
	}
	rt, err := a.build(cfg)
	if err != nil {
		return nil, err
	}
	a.rt = rt
	return a.init(), nil
}

// Modules resolves the enabled features into modules, in a fixed order.
func (cfg *Config) Modules(sink core.ActionSink, queue pubsub.Queue) ([]core.Module, error) {
	var modules []core.Module
	add := func(name string, m core.Module, err error) error {
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		modules = append(modules, m)
		return nil
	}

	th := cfg.Press.Thresholds()
	if cfg.MMI.Enabled {
		m, err := press.NewMMI(cfg.MMI, th, sink)
		if err := add("mmi", m, err); err != nil {
			return nil, err
		}
	}
	if cfg.MFSW.Enabled {
		m, err := press.NewMFSW(cfg.MFSW, th, sink)
		if err := add("mfsw", m, err); err != nil {
			return nil, err
		}
	}
	if cfg.Source.Enabled {
		m, err := source.New(cfg.Source, sink)
		if err := add("source", m, err); err != nil {
			return nil, err
		}
	}
	if cfg.TimeSync.Enabled {
		m, err := timesync.New(cfg.TimeSync, sink)
		if err := add("timesync", m, err); err != nil {
			return nil, err
		}
	}
	if cfg.Shutdown.Enabled {
		m, err := shutdown.New(cfg.Shutdown, sink)
		if err := add("shutdown", m, err); err != nil {
			return nil, err
		}
	}
	if cfg.DayNight.Enabled {
		m, err := daynight.New(cfg.DayNight, sink)
		if err := add("daynight", m, err); err != nil {
			return nil, err
		}
	}
	if cfg.TVSim.Enabled {
		m, err := tvsim.New(cfg.TVSim, queue)
		if err := add("tvsim", m, err); err != nil {
			return nil, err
		}
	}
	return modules, nil
}

func newBroker(cfg *Config) (pubsub.Broker, error) {
	return pubsub.New(&pubsub.Config{
		PubSub:     cfg.PubSub,
		Mqtt:       cfg.Mqtt,
		Redis:      cfg.Redis,
		ClientName: ClientName,
	})
}
