package gateway

import (
	"github.com/autopeer-io/canbridge/internal/gateway/transport"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/options"
)

// ClientName prefixes the gateway's MQTT client id.
const ClientName = "cbr-gateway"

// Config is everything the gateway loop needs.
type Config struct {
	CAN    *options.CANOptions
	PubSub *options.PubSubOptions
	Mqtt   *options.MqttOptions
	Redis  *options.RedisOptions
}

// ReloadSource hands the gateway a replacement configuration. Next is
// polled once per loop iteration and returns false when nothing valid is
// pending. Notify fires when a reload is requested, ending a reconnect wait
// early.
type ReloadSource interface {
	Next() (*Config, bool)
	Notify() <-chan struct{}
}

// NewGateway resolves the configured transport and broker. Errors here are
// configuration errors and should stop the process.
func (cfg *Config) NewGateway() (*Gateway, error) {
	g := &Gateway{
		newTransport: transport.New,
		newBroker:    newBroker,
	}
	if err := g.apply(cfg); err != nil {
		return nil, err
	}
	return g.init(), nil
}

func newBroker(cfg *Config) (pubsub.Broker, error) {
	return pubsub.New(&pubsub.Config{
		PubSub:     cfg.PubSub,
		Mqtt:       cfg.Mqtt,
		Redis:      cfg.Redis,
		ClientName: ClientName,
	})
}
