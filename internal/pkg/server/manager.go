package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/canbridge/pkg/log"
)

// Server is anything with a blocking, context-bound Start.
type Server interface {
	Start(ctx context.Context) error
}

// RunnerFunc adapts a function to Server.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Start(ctx context.Context) error { return f(ctx) }

// Manager runs a set of servers and stops all of them when one returns.
type Manager struct {
	servers []Server
}

func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Add appends a server; nil is ignored.
func (m *Manager) Add(s Server) {
	if s != nil {
		m.servers = append(m.servers, s)
	}
}

// Start launches all servers in parallel and waits for termination.
// The first server to return, with or without error, cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, s := range m.servers {
		g.Go(func() error {
			defer cancel()
			return s.Start(ctx)
		})
	}

	log.Debug("All servers starting", "count", len(m.servers))
	return g.Wait()
}
