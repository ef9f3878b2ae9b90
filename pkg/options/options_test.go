package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:9090", false},
		{"localhost:6379", false},
		{":8080", false},
		{"127.0.0.1", true},
		{"127.0.0.1:0", true},
		{"127.0.0.1:70000", true},
		{"127.0.0.1:http", true},
	}
	for _, tt := range tests {
		if err := ValidateAddress(tt.addr); (err != nil) != tt.wantErr {
			t.Errorf("ValidateAddress(%q) = %v, wantErr %v", tt.addr, err, tt.wantErr)
		}
	}
}

func TestDefaultsValidate(t *testing.T) {
	for name, o := range map[string]IOptions{
		"mqtt":   NewMqttOptions(),
		"redis":  NewRedisOptions(),
		"http":   NewHttpOptions(),
		"pubsub": NewPubSubOptions(),
		"can":    NewCANOptions(),
	} {
		if errs := o.Validate(); len(errs) != 0 {
			t.Errorf("%s defaults invalid: %v", name, errs)
		}
	}
}

func TestCANOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CANOptions)
		errs   int
	}{
		{"loopback", func(o *CANOptions) { o.Driver = CANDriverLoopback }, 0},
		{"slcan without port", func(o *CANOptions) { o.Driver = CANDriverSLCAN; o.SerialPort = "" }, 1},
		{"unknown driver", func(o *CANOptions) { o.Driver = "pcan" }, 1},
		{"no retries", func(o *CANOptions) { o.ConnectRetries = 0 }, 1},
		{"long receive wait", func(o *CANOptions) { o.ReceiveTimeout = time.Minute }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewCANOptions()
			tt.mutate(o)
			if errs := o.Validate(); len(errs) != tt.errs {
				t.Errorf("got %d errors (%v), want %d", len(errs), errs, tt.errs)
			}
		})
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	mo := NewMqttOptions()
	co := NewCANOptions()
	po := NewPubSubOptions()
	mo.AddFlags(fs)
	co.AddFlags(fs)
	po.AddFlags(fs)

	err := fs.Parse([]string{"--mqtt.broker=tcp://10.0.0.2:1883", "--can.driver=slcan", "--pubsub.driver=redis", "--can.retry-delay=2s"})
	if err != nil {
		t.Fatal(err)
	}
	if mo.Broker != "tcp://10.0.0.2:1883" || co.Driver != CANDriverSLCAN || po.Driver != PubSubDriverRedis || co.RetryDelay != 2*time.Second {
		t.Errorf("flags not applied: %+v %+v %+v", mo, co, po)
	}

	cfg := mo.ToClientConfig()
	if cfg.KeepAlive != 30 || cfg.BrokerURL != mo.Broker {
		t.Errorf("ToClientConfig = %+v", cfg)
	}
}

func TestPubSubOptionsValidate(t *testing.T) {
	o := NewPubSubOptions()
	o.Driver = "zmq"
	o.BufferSize = 0
	if errs := o.Validate(); len(errs) != 2 {
		t.Errorf("got %v", errs)
	}
}
