package app

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"

	"github.com/autopeer-io/canbridge/pkg/log"
)

// RunFunc is the main body of an application.
type RunFunc func() error

// ReloadRunFunc is a RunFunc that can re-read its configuration at runtime.
type ReloadRunFunc func(r *Reloader) error

// NamedFlagSetOptions is implemented by the root options struct of a binary.
type NamedFlagSetOptions interface {
	// Flags returns the option groups as named flag sets.
	Flags() cliflag.NamedFlagSets

	// Complete fills in derived fields after flags and config are applied.
	Complete() error

	// Validate checks the completed options.
	Validate() error
}

// App is a cobra command whose options come from flags and an optional config file.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	reloadFunc  ReloadRunFunc
	args        cobra.PositionalArgs
	commands    []*cobra.Command

	configFile string

	// mu serializes Load; viper is not safe for concurrent use.
	mu sync.Mutex
	v  *viper.Viper

	// errLog configures the logger used when the command fails before
	// log.Init ran. log.Init is a no-op once a run func has called it.
	errLog *log.Options
	cmd        *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long description of the command.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions sets the root options; their flags are registered on the command.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the main body.
func WithRunFunc(fn RunFunc) Option {
	return func(a *App) { a.runFunc = fn }
}

// WithReloadRunFunc sets a main body that receives a Reloader.
func WithReloadRunFunc(fn ReloadRunFunc) Option {
	return func(a *App) { a.reloadFunc = fn }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithCommand adds a subcommand. It can use App.Load to read the shared configuration.
func WithCommand(cmd *cobra.Command) Option {
	return func(a *App) { a.commands = append(a.commands, cmd) }
}

// NewApp builds the cobra command and binds every option flag into viper.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		v:         viper.New(),
		errLog:    fallbackLogOptions(name),
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

func fallbackLogOptions(name string) *log.Options {
	opts := log.NewOptions()
	opts.Name = name
	opts.EnableColor = false
	opts.OutputPaths = []string{"stderr"}
	return opts
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
		RunE:          a.runCommand,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Read configuration from the specified file (yaml, json or toml).")

	if a.options != nil {
		namedfs := a.options.Flags()
		globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
		for _, f := range namedfs.FlagSets {
			cmd.Flags().AddFlagSet(f)
		}
		// Flag names double as config keys: --mqtt.broker <-> mqtt.broker.
		_ = a.v.BindPFlags(cmd.Flags())
	}

	for _, sub := range a.commands {
		cmd.AddCommand(sub)
	}

	a.v.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(a.name), "-", "_"))
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	a.cmd = cmd
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits non-zero on failure.
func (a *App) Run() {
	if err := a.execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the command and logs a failure at error level. Errors raised
// before the run func configured logging go to stderr through a default logger.
func (a *App) execute() error {
	err := a.cmd.Execute()
	if err == nil {
		return nil
	}
	log.Init(a.errLog)
	log.Error(err, "Command failed", "command", a.name)
	_ = log.Sync()
	return err
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	if a.options != nil {
		if err := a.Load(a.options); err != nil {
			return err
		}
	}

	switch {
	case a.reloadFunc != nil:
		return a.reloadFunc(newReloader(a))
	case a.runFunc != nil:
		return a.runFunc()
	}
	return nil
}

// Load reads the configuration file, if any, and decodes file values and flags
// into opts, then completes and validates it. Changed flags win over the file.
func (a *App) Load(opts NamedFlagSetOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file %s: %w", a.configFile, err)
		}
	}

	if err := a.v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := opts.Complete(); err != nil {
		return err
	}

	return opts.Validate()
}

// ConfigFile returns the path given with --config.
func (a *App) ConfigFile() string {
	return a.configFile
}
