package mqtt

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// SessionExpiry in seconds. Zero ends the session with the connection.
	SessionExpiry uint32

	// ConnectTimeout for the initial connection. Default is 5s.
	ConnectTimeout time.Duration

	// ReconnectBackoff is the fixed delay between reconnect attempts. Default is 3s.
	ReconnectBackoff time.Duration

	// CleanStart indicates whether to start a clean session.
	// Bus traffic is not replayed, so the gateway and agents normally keep this true.
	CleanStart bool

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// Last will, published by the broker if the client disappears.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// setDefaultConfig applies safe default values to the configuration.
func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = 3 * time.Second
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "canbridge-" + uuid.NewString()[:8]
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("broker url must look like scheme://host:port")
	}
	if c.WillQoS > 2 {
		return errors.New("will qos must be 0, 1 or 2")
	}
	return nil
}
