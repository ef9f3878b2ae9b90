// Package agent hosts the feature modules. One goroutine receives frames,
// dispatches them, runs module ticks and logs status.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/agent/dispatch"
	"github.com/autopeer-io/canbridge/internal/agent/hal"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/log"
)

type Agent struct {
	rt      *runtime
	reloads ReloadSource

	newBroker func(*Config) (pubsub.Broker, error)
	newSink   func(*hal.Options) core.ActionSink

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	ready      atomic.Bool
	lastStatus time.Time
}

// runtime is everything built from one configuration. A reload replaces it
// as a whole, so decoder state starts fresh.
type runtime struct {
	cfg        *Config
	broker     pubsub.Broker
	modules    []core.Module
	dispatcher *dispatch.Dispatcher
	tickers    []*ticker
	reporters  []core.Reporter
}

type ticker struct {
	core.Ticker
	next time.Time
}

func (a *Agent) init() *Agent {
	if a.now == nil {
		a.now = time.Now
	}
	if a.sleep == nil {
		a.sleep = sleep
	}
	return a
}

// build resolves cfg without touching the running configuration.
func (a *Agent) build(cfg *Config) (*runtime, error) {
	broker, err := a.newBroker(cfg)
	if err != nil {
		return nil, fmt.Errorf("build pubsub broker: %w", err)
	}
	modules, err := cfg.Modules(a.newSink(cfg.Actions), broker)
	if err != nil {
		_ = broker.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:        cfg,
		broker:     broker,
		modules:    modules,
		dispatcher: dispatch.New(modules...),
	}
	for _, m := range modules {
		if t, ok := m.(core.Ticker); ok {
			rt.tickers = append(rt.tickers, &ticker{Ticker: t})
		}
		if r, ok := m.(core.Reporter); ok {
			rt.reporters = append(rt.reporters, r)
		}
	}
	return rt, nil
}

// WithReloadSource enables configuration reload at the loop's safe point.
func (a *Agent) WithReloadSource(r ReloadSource) *Agent {
	a.reloads = r
	return a
}

// Ready reports nil once the agent is subscribed.
func (a *Agent) Ready() error {
	if !a.ready.Load() {
		return errors.New("agent not subscribed")
	}
	return nil
}

// Run loops until ctx is canceled.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting cbr-agent", "modules", a.rt.names(), "pubsub", a.rt.cfg.PubSub.Driver)
	a.applyLogLevel(a.rt.cfg)

	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.teardown()

	a.lastStatus = a.now()
	for ctx.Err() == nil {
		a.step(ctx)
	}

	log.Info("Shutting down cbr-agent")
	return nil
}

// step is one loop iteration.
func (a *Agent) step(ctx context.Context) {
	m, err := a.rt.broker.Receive(ctx, a.waitTimeout())
	switch {
	case err == nil && m != nil:
		a.rt.dispatcher.Dispatch(ctx, m, a.now())
	case err == nil:
	case ctx.Err() != nil:
		return
	default:
		log.Warn("Receive failed", "error", err)
		_ = a.sleep(ctx, a.rt.cfg.Loop.ReceiveTimeout)
	}

	a.tick(ctx)
	a.reportStatus()
	a.reload(ctx)
}

// waitTimeout bounds the receive wait by the receive timeout and the next due tick.
func (a *Agent) waitTimeout() time.Duration {
	timeout := a.rt.cfg.Loop.ReceiveTimeout
	now := a.now()
	for _, t := range a.rt.tickers {
		if d := t.next.Sub(now); d < timeout {
			timeout = d
		}
	}
	if timeout < 0 {
		return 0
	}
	return timeout
}

func (a *Agent) tick(ctx context.Context) {
	for _, t := range a.rt.tickers {
		now := a.now()
		if now.Before(t.next) {
			continue
		}
		t.Tick(ctx, now)
		t.next = now.Add(t.TickInterval())
	}
}

func (a *Agent) reportStatus() {
	now := a.now()
	if now.Sub(a.lastStatus) < a.rt.cfg.Loop.StatusInterval {
		return
	}
	a.lastStatus = now

	kv := []any{"modules", a.rt.names()}
	for _, r := range a.rt.reporters {
		kv = append(kv, r.Status(now)...)
	}
	log.Info("Status", kv...)
}

// reload replaces the whole runtime. An invalid replacement leaves the
// running configuration untouched.
func (a *Agent) reload(ctx context.Context) {
	if a.reloads == nil {
		return
	}
	cfg, ok := a.reloads.Next()
	if !ok {
		return
	}

	next, err := a.build(cfg)
	if err != nil {
		log.Error(err, "Reload rejected, keeping the previous configuration")
		return
	}

	log.Info("Reloading agent configuration", "modules", next.names())
	prev := a.rt
	a.ready.Store(false)
	if err := prev.broker.Close(); err != nil {
		log.Debug("Closing previous broker", "error", err)
	}

	a.rt = next
	if err := a.start(ctx); err != nil {
		log.Error(err, "New configuration failed to start, restoring the previous one")
		_ = next.broker.Close()
		restored, err := a.build(prev.cfg)
		if err != nil {
			log.Error(err, "Restoring the previous configuration failed")
			return
		}
		a.rt = restored
		if err := a.start(ctx); err != nil {
			log.Error(err, "Previous configuration failed to restart")
			return
		}
	}
	a.applyLogLevel(a.rt.cfg)
}

func (a *Agent) start(ctx context.Context) error {
	if err := a.rt.broker.Start(ctx); err != nil {
		return fmt.Errorf("start pubsub broker: %w", err)
	}
	topics := a.rt.dispatcher.Topics()
	if len(topics) > 0 {
		if err := a.rt.broker.Subscribe(ctx, topics...); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	log.Info("Subscribed", "topics", topics)
	a.ready.Store(true)
	return nil
}

func (a *Agent) teardown() {
	a.ready.Store(false)
	if err := a.rt.broker.Close(); err != nil {
		log.Error(err, "Closing pubsub broker")
	}
}

func (a *Agent) applyLogLevel(cfg *Config) {
	if cfg.Loop.DebugMode {
		log.SetLevel("debug")
		return
	}
	log.SetLevel(cfg.LogLevel)
}

func (rt *runtime) names() []string {
	names := make([]string, 0, len(rt.modules))
	for _, m := range rt.modules {
		names = append(names, m.Name())
	}
	return names
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
