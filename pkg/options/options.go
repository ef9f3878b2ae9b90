package options

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group.
type IOptions interface {
	// Validate checks the options and returns every problem found.
	Validate() []error

	// AddFlags registers the options on fs.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port pair with a usable port.
func ValidateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid address %q: port must be 1-65535", addr)
	}
	return nil
}
