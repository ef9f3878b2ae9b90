package options

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
)

var _ IOptions = (*RedisOptions)(nil)

// RedisOptions configures the Redis pub/sub channel and send queue.
type RedisOptions struct {
	Addr        string        `json:"addr" mapstructure:"addr"`
	Password    string        `json:"password" mapstructure:"password"`
	DB          int           `json:"db" mapstructure:"db"`
	DialTimeout time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`

	// ChannelPrefix is prepended to CAN_XXX to form the channel name.
	ChannelPrefix string `json:"channel-prefix" mapstructure:"channel-prefix"`

	// TxKey is the list holding outgoing send requests.
	TxKey string `json:"tx-key" mapstructure:"tx-key"`
}

// NewRedisOptions creates a RedisOptions object with default parameters.
func NewRedisOptions() *RedisOptions {
	return &RedisOptions{
		Addr:          "127.0.0.1:6379",
		DialTimeout:   5 * time.Second,
		ChannelPrefix: "canbridge:",
		TxKey:         "canbridge:tx",
	}
}

// Validate checks the Redis address and key names.
func (o *RedisOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, fmt.Errorf("redis.addr: %w", err))
	}
	if o.DB < 0 {
		errors = append(errors, fmt.Errorf("redis.db must not be negative"))
	}
	if o.TxKey == "" {
		errors = append(errors, fmt.Errorf("redis.tx-key must not be empty"))
	}

	return errors
}

// AddFlags adds flags for RedisOptions to the specified FlagSet.
func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "redis.addr", o.Addr, "Redis server address (host:port).")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Redis password.")
	fs.IntVar(&o.DB, "redis.db", o.DB, "Redis database number.")
	fs.DurationVar(&o.DialTimeout, "redis.dial-timeout", o.DialTimeout, "Timeout for establishing a Redis connection.")
	fs.StringVar(&o.ChannelPrefix, "redis.channel-prefix", o.ChannelPrefix, "Prefix of the per-identifier frame channels.")
	fs.StringVar(&o.TxKey, "redis.tx-key", o.TxKey, "List key of the outgoing send queue.")
}

// ToClientOptions converts the options into go-redis client options.
func (o *RedisOptions) ToClientOptions() *redis.Options {
	return &redis.Options{
		Addr:        o.Addr,
		Password:    o.Password,
		DB:          o.DB,
		DialTimeout: o.DialTimeout,
	}
}
