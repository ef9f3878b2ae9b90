package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/canbridge/cmd/cbr-gateway/app/options"
	"github.com/autopeer-io/canbridge/internal/gateway"
	"github.com/autopeer-io/canbridge/internal/pkg/server"
	"github.com/autopeer-io/canbridge/pkg/app"
	"github.com/autopeer-io/canbridge/pkg/log"
)

const (
	commandName = "cbr-gateway"
	commandDesc = `The canbridge gateway owns the CAN bus connection. It publishes every
received frame on the message channel under its CAN_XXX topic and transmits
the frames other processes place on the outgoing send queue.

Hardware absence is not fatal: the gateway keeps reconnecting until the bus
comes back. Send SIGHUP or edit the --config file to reload.`
)

func NewApp() *app.App {
	opts := options.NewGatewayOptions()
	return app.NewApp(
		commandName,
		"Launch the canbridge CAN bus gateway",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithReloadRunFunc(run(opts)),
	)
}

func run(opts *options.GatewayOptions) app.ReloadRunFunc {
	return func(r *app.Reloader) error {
		ctx := genericapiserver.SetupSignalContext()

		log.Init(opts.Log)
		defer log.Sync()

		gw, err := opts.Config().NewGateway()
		if err != nil {
			return fmt.Errorf("failed to create gateway: %w", err)
		}
		r.Start(ctx)
		gw.WithReloadSource(&reloadSource{r: r})

		mgr := server.NewManager(server.RunnerFunc(gw.Run))
		if opts.HttpOptions.Enabled {
			mgr.Add(server.NewHTTPServer(opts.HttpOptions, gw.Ready))
		}
		return mgr.Start(ctx)
	}
}

// reloadSource reads a fresh option tree whenever a reload is pending.
type reloadSource struct {
	r *app.Reloader
}

func (s *reloadSource) Next() (*gateway.Config, bool) {
	if !s.r.Pending() {
		return nil, false
	}
	opts := options.NewGatewayOptions()
	if err := s.r.Load(opts); err != nil {
		log.Error(err, "Reloaded configuration is invalid")
		return nil, false
	}
	return opts.Config(), true
}

func (s *reloadSource) Notify() <-chan struct{} {
	return s.r.Notify()
}
