package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/canbridge/cmd/cbr-agent/app/options"
	"github.com/autopeer-io/canbridge/internal/agent"
	"github.com/autopeer-io/canbridge/internal/pkg/server"
	"github.com/autopeer-io/canbridge/pkg/app"
	"github.com/autopeer-io/canbridge/pkg/log"
)

const (
	commandName = "cbr-agent"
	commandDesc = `The canbridge agent subscribes to the frames its enabled modules care
about and turns them into head unit actions: key presses for the MMI panel
and the steering wheel, play/pause on audio source changes, system clock
updates, day/night theme switches and a delayed shutdown after ignition off.

Send SIGHUP or edit the --config file to reload. Use "cbr-agent mappings"
to print the effective button tables.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	mappings := &mappingsCommand{}
	a := app.NewApp(
		commandName,
		"Launch the canbridge head unit agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithReloadRunFunc(run(opts)),
		app.WithCommand(mappings.command()),
	)
	mappings.app = a
	return a
}

func run(opts *options.AgentOptions) app.ReloadRunFunc {
	return func(r *app.Reloader) error {
		ctx := genericapiserver.SetupSignalContext()

		log.Init(opts.Log)
		defer log.Sync()

		ag, err := opts.Config().NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		r.Start(ctx)
		ag.WithReloadSource(&reloadSource{r: r})

		mgr := server.NewManager(server.RunnerFunc(ag.Run))
		if opts.HttpOptions.Enabled {
			mgr.Add(server.NewHTTPServer(opts.HttpOptions, ag.Ready))
		}
		return mgr.Start(ctx)
	}
}

type reloadSource struct {
	r *app.Reloader
}

func (s *reloadSource) Next() (*agent.Config, bool) {
	if !s.r.Pending() {
		return nil, false
	}
	opts := options.NewAgentOptions()
	if err := s.r.Load(opts); err != nil {
		log.Error(err, "Reloaded configuration is invalid")
		return nil, false
	}
	return opts.Config(), true
}
