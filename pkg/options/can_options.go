package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CANOptions)(nil)

const (
	CANDriverSocketCAN = "socketcan"
	CANDriverSLCAN     = "slcan"
	CANDriverLoopback  = "loopback"
)

// CANOptions configures the bus transport and the gateway loop timing.
type CANOptions struct {
	Driver    string `json:"driver" mapstructure:"driver"`
	Interface string `json:"interface" mapstructure:"interface"`

	// Serial adapter settings, used by the slcan driver.
	SerialPort string `json:"serial-port" mapstructure:"serial-port"`
	SerialBaud int    `json:"serial-baud" mapstructure:"serial-baud"`
	Bitrate    int    `json:"bitrate" mapstructure:"bitrate"`

	ConnectRetries int           `json:"connect-retries" mapstructure:"connect-retries"`
	RetryDelay     time.Duration `json:"retry-delay" mapstructure:"retry-delay"`
	RetrySlowDelay time.Duration `json:"retry-slow-delay" mapstructure:"retry-slow-delay"`
	ReceiveTimeout time.Duration `json:"receive-timeout" mapstructure:"receive-timeout"`
	StatsInterval  time.Duration `json:"stats-interval" mapstructure:"stats-interval"`
}

// NewCANOptions creates a CANOptions object with default parameters.
func NewCANOptions() *CANOptions {
	return &CANOptions{
		Driver:         CANDriverSocketCAN,
		Interface:      "can0",
		SerialPort:     "/dev/ttyACM0",
		SerialBaud:     115200,
		Bitrate:        100000,
		ConnectRetries: 5,
		RetryDelay:     5 * time.Second,
		RetrySlowDelay: 10 * time.Second,
		ReceiveTimeout: time.Second,
		StatsInterval:  time.Minute,
	}
}

// Validate checks the driver selection and loop timing.
func (o *CANOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	switch o.Driver {
	case CANDriverSocketCAN:
		if o.Interface == "" {
			errors = append(errors, fmt.Errorf("can.interface is required for the socketcan driver"))
		}
	case CANDriverSLCAN:
		if o.SerialPort == "" {
			errors = append(errors, fmt.Errorf("can.serial-port is required for the slcan driver"))
		}
		if o.SerialBaud <= 0 {
			errors = append(errors, fmt.Errorf("can.serial-baud must be positive"))
		}
	case CANDriverLoopback:
	default:
		errors = append(errors, fmt.Errorf("can.driver %q is not one of socketcan, slcan, loopback", o.Driver))
	}

	if o.ConnectRetries < 1 {
		errors = append(errors, fmt.Errorf("can.connect-retries must be at least 1"))
	}
	if o.RetryDelay <= 0 || o.RetrySlowDelay <= 0 {
		errors = append(errors, fmt.Errorf("can.retry-delay and can.retry-slow-delay must be positive"))
	}
	if o.ReceiveTimeout <= 0 || o.ReceiveTimeout > 5*time.Second {
		errors = append(errors, fmt.Errorf("can.receive-timeout must be in (0s, 5s]"))
	}
	if o.StatsInterval <= 0 {
		errors = append(errors, fmt.Errorf("can.stats-interval must be positive"))
	}

	return errors
}

// AddFlags adds flags for CANOptions to the specified FlagSet.
func (o *CANOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, "can.driver", o.Driver, "Bus transport: 'socketcan', 'slcan' or 'loopback'.")
	fs.StringVar(&o.Interface, "can.interface", o.Interface, "SocketCAN network interface name.")
	fs.StringVar(&o.SerialPort, "can.serial-port", o.SerialPort, "Serial device of an SLCAN adapter.")
	fs.IntVar(&o.SerialBaud, "can.serial-baud", o.SerialBaud, "Serial baud rate of an SLCAN adapter.")
	fs.IntVar(&o.Bitrate, "can.bitrate", o.Bitrate, "Bus bitrate programmed into an SLCAN adapter.")

	fs.IntVar(&o.ConnectRetries, "can.connect-retries", o.ConnectRetries, "Connect attempts before falling back to the slow retry cadence.")
	fs.DurationVar(&o.RetryDelay, "can.retry-delay", o.RetryDelay, "Delay between the initial connect attempts.")
	fs.DurationVar(&o.RetrySlowDelay, "can.retry-slow-delay", o.RetrySlowDelay, "Delay between connect attempts once the initial attempts are exhausted.")
	fs.DurationVar(&o.ReceiveTimeout, "can.receive-timeout", o.ReceiveTimeout, "Upper bound of one bus receive wait.")
	fs.DurationVar(&o.StatsInterval, "can.stats-interval", o.StatsInterval, "Interval of the throughput log.")
}
