package hal

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures how actions reach the host.
type Options struct {
	// DryRun logs every action instead of executing it.
	DryRun bool `json:"dry-run" mapstructure:"dry-run"`

	KeyCommand      string `json:"key-command" mapstructure:"key-command"`
	DayNightScript  string `json:"daynight-script" mapstructure:"daynight-script"`
	ShutdownCommand string `json:"shutdown-command" mapstructure:"shutdown-command"`

	// SystemCommands maps system action names to command lines.
	SystemCommands map[string]string `json:"system-commands" mapstructure:"system-commands"`

	CommandTimeout time.Duration `json:"command-timeout" mapstructure:"command-timeout"`
}

func NewOptions() *Options {
	return &Options{
		KeyCommand:      "xdotool key",
		DayNightScript:  "/opt/crankshaft/service_daynight.sh",
		ShutdownCommand: "sudo shutdown -h now",
		SystemCommands: map[string]string{
			string(core.Reboot):          "sudo reboot",
			string(core.Poweroff):        "sudo shutdown -h now",
			string(core.RestartFrontend): "sudo systemctl restart crankshaft",
		},
		CommandTimeout: 10 * time.Second,
	}
}

func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if len(strings.Fields(o.KeyCommand)) == 0 {
		errs = append(errs, fmt.Errorf("actions.key-command must not be empty"))
	}
	if len(strings.Fields(o.ShutdownCommand)) == 0 {
		errs = append(errs, fmt.Errorf("actions.shutdown-command must not be empty"))
	}
	for name := range o.SystemCommands {
		a, err := core.ParseAction(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("actions.system-commands: %w", err))
			continue
		}
		if !a.IsSystem() {
			errs = append(errs, fmt.Errorf("actions.system-commands: %q is not a system action", name))
		}
	}
	if o.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("actions.command-timeout must be positive"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.DryRun, "actions.dry-run", o.DryRun, "Log actions instead of executing them.")
	fs.StringVar(&o.KeyCommand, "actions.key-command", o.KeyCommand, "Command line that injects one key; the keysym is appended.")
	fs.StringVar(&o.DayNightScript, "actions.daynight-script", o.DayNightScript, "Script called as '<script> app <day|night>'.")
	fs.StringVar(&o.ShutdownCommand, "actions.shutdown-command", o.ShutdownCommand, "Command line that powers the host off.")
	fs.DurationVar(&o.CommandTimeout, "actions.command-timeout", o.CommandTimeout, "Upper bound of one action command.")
}

// command returns the command line configured for a system action.
func (o *Options) command(a core.Action) ([]string, error) {
	line, ok := o.SystemCommands[string(a)]
	if !ok || len(strings.Fields(line)) == 0 {
		return nil, fmt.Errorf("no command configured for %s", a)
	}
	return strings.Fields(line), nil
}

// NewSink returns the platform sink, or a logging sink in dry-run mode.
func NewSink(o *Options) core.ActionSink {
	if o.DryRun {
		return NewLogSink()
	}
	return newPlatformSink(o)
}
