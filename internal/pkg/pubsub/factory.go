package pubsub

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/mqtt"
	"github.com/autopeer-io/canbridge/pkg/mqtt/topic"
	"github.com/autopeer-io/canbridge/pkg/options"
)

// Config selects and configures one broker driver.
type Config struct {
	PubSub *options.PubSubOptions
	Mqtt   *options.MqttOptions
	Redis  *options.RedisOptions

	// ClientName prefixes generated MQTT client ids, e.g. "cbr-gateway".
	ClientName string
}

// New builds an unstarted broker for the configured driver.
func New(cfg *Config) (Broker, error) {
	switch cfg.PubSub.Driver {
	case options.PubSubDriverMQTT:
		builder := topic.NewBuilder(cfg.Mqtt.TopicRoot)

		mqttConfig := cfg.Mqtt.ToClientConfig()
		if mqttConfig.ClientID == "" && cfg.ClientName != "" {
			mqttConfig.ClientID = fmt.Sprintf("%s-%s", cfg.ClientName, shortID())
		}
		if mqttConfig.ClientID != "" {
			mqttConfig.WillTopic = builder.Status(mqttConfig.ClientID)
			mqttConfig.WillPayload = []byte("offline")
			mqttConfig.WillQoS = 1
			mqttConfig.WillRetain = true
		}

		mc, err := mqtt.NewClient(mqttConfig)
		if err != nil {
			return nil, err
		}
		return NewMQTTBroker(mc, builder, cfg.Mqtt.QoS, mqttConfig.ClientID, cfg.PubSub.BufferSize), nil

	case options.PubSubDriverRedis:
		redis.SetLogger(log.ContextPrintf{PrintfLogger: log.NewPrintfLogger("redis", false)})
		rdb := redis.NewClient(cfg.Redis.ToClientOptions())
		return NewRedisBroker(rdb, cfg.Redis.ChannelPrefix, cfg.Redis.TxKey, cfg.PubSub.BufferSize), nil

	default:
		return nil, fmt.Errorf("unknown pubsub driver %q", cfg.PubSub.Driver)
	}
}
