// Package gateway owns the bus connection. It publishes every received frame
// and transmits send requests taken from the outgoing queue.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autopeer-io/canbridge/internal/gateway/transport"
	"github.com/autopeer-io/canbridge/internal/pkg/metrics"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/options"
)

type Gateway struct {
	cfg    *Config
	bus    transport.Transport
	broker pubsub.Broker
	link   *LinkStateMachine

	reloads ReloadSource

	newTransport func(*options.CANOptions) (transport.Transport, error)
	newBroker    func(*Config) (pubsub.Broker, error)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// failures counts consecutive connect failures since the last success.
	failures int

	published  int
	statsStart time.Time
}

func (g *Gateway) init() *Gateway {
	g.link = NewLinkStateMachine()
	if g.now == nil {
		g.now = time.Now
	}
	if g.sleep == nil {
		g.sleep = sleep
	}
	return g
}

// apply builds the transport and broker for cfg without touching the current ones.
func (g *Gateway) apply(cfg *Config) error {
	bus, err := g.newTransport(cfg.CAN)
	if err != nil {
		return fmt.Errorf("build can transport: %w", err)
	}
	broker, err := g.newBroker(cfg)
	if err != nil {
		_ = bus.Close()
		return fmt.Errorf("build pubsub broker: %w", err)
	}
	g.cfg, g.bus, g.broker = cfg, bus, broker
	return nil
}

// WithReloadSource enables configuration reload at the loop's safe point.
func (g *Gateway) WithReloadSource(r ReloadSource) *Gateway {
	g.reloads = r
	return g
}

// Ready reports nil while the bus link is up.
func (g *Gateway) Ready() error {
	if !g.link.Connected() {
		return errors.New("can bus disconnected")
	}
	return nil
}

// Run loops until ctx is canceled. Hardware absence is never fatal.
func (g *Gateway) Run(ctx context.Context) error {
	log.Info("Starting cbr-gateway",
		"driver", g.cfg.CAN.Driver,
		"interface", g.cfg.CAN.Interface,
		"pubsub", g.cfg.PubSub.Driver)

	if err := g.startBroker(ctx); err != nil {
		return err
	}
	defer g.teardown(context.Background())

	g.statsStart = g.now()
	for ctx.Err() == nil {
		g.step(ctx)
	}

	log.Info("Shutting down cbr-gateway")
	return nil
}

// step is one loop iteration.
func (g *Gateway) step(ctx context.Context) {
	if !g.link.Connected() {
		g.reconnect(ctx)
	} else {
		g.receive(ctx)
		if g.link.Connected() {
			g.drain(ctx)
		}
	}
	g.reportStats()
	g.reload(ctx)
}

// reconnect makes one connect attempt and, on failure, waits the fast delay
// for the first ConnectRetries failures and the slow delay afterwards.
func (g *Gateway) reconnect(ctx context.Context) {
	metrics.ReconnectAttempts.Inc()
	err := g.bus.Connect(ctx)
	if err == nil {
		if g.failures > 0 {
			log.Info("CAN bus reconnected", "failedAttempts", g.failures)
		}
		g.failures = 0
		g.link.Fire(ctx, EventConnect)
		return
	}

	metrics.ErrorsTotal.WithLabelValues("connect").Inc()
	g.failures++
	delay := g.cfg.CAN.RetryDelay
	switch {
	case g.failures < g.cfg.CAN.ConnectRetries:
		log.Warn("CAN connect failed, retrying",
			"attempt", g.failures, "of", g.cfg.CAN.ConnectRetries, "delay", delay, "error", err)
	case g.failures == g.cfg.CAN.ConnectRetries:
		delay = g.cfg.CAN.RetrySlowDelay
		log.Error(err, "CAN connect retries exhausted, continuing at slow cadence", "delay", delay)
	default:
		delay = g.cfg.CAN.RetrySlowDelay
		log.Debug("CAN still unavailable", "attempt", g.failures, "error", err)
	}
	g.wait(ctx, delay)
}

// wait sleeps d. A reload request ends the wait so the new configuration
// does not sit out a slow retry.
func (g *Gateway) wait(ctx context.Context, d time.Duration) {
	if g.reloads == nil {
		_ = g.sleep(ctx, d)
		return
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-g.reloads.Notify():
			log.Debug("Reload requested, ending the reconnect wait")
			cancel()
		case <-wctx.Done():
		}
	}()
	_ = g.sleep(wctx, d)
}

func (g *Gateway) receive(ctx context.Context) {
	f, err := g.bus.Receive(ctx, g.cfg.CAN.ReceiveTimeout)
	switch {
	case err == nil && f == nil:
		return
	case err == nil:
		metrics.FramesTotal.WithLabelValues("received").Inc()
		g.publish(ctx, *f)
	case ctx.Err() != nil:
		return
	case transport.IsFault(err):
		metrics.ErrorsTotal.WithLabelValues("receive").Inc()
		g.fault(ctx, err)
	default:
		metrics.ErrorsTotal.WithLabelValues("receive").Inc()
		log.Warn("CAN receive failed", "error", err)
	}
}

func (g *Gateway) publish(ctx context.Context, f can.Frame) {
	payload, err := can.Encode(f)
	if err != nil {
		log.Warn("Dropping unencodable frame", "frame", f.String(), "error", err)
		return
	}
	if err := g.broker.Publish(ctx, can.Topic(f.ID), payload); err != nil {
		metrics.ErrorsTotal.WithLabelValues("publish").Inc()
		log.Warn("Publish failed", "topic", can.Topic(f.ID), "error", err)
		return
	}
	metrics.FramesTotal.WithLabelValues("published").Inc()
	g.published++
}

// drain transmits at most one queued send request.
func (g *Gateway) drain(ctx context.Context) {
	f, err := g.broker.Dequeue(ctx)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("dequeue").Inc()
		if errors.Is(err, can.ErrInvalidFrame) {
			log.Warn("Dropping malformed send request", "error", err)
		} else {
			log.Warn("Reading the send queue failed", "error", err)
		}
		return
	}
	if f == nil {
		return
	}

	if err := g.bus.Send(ctx, *f); err != nil {
		metrics.ErrorsTotal.WithLabelValues("send").Inc()
		if transport.IsFault(err) {
			g.fault(ctx, err)
			return
		}
		log.Error(err, "CAN send failed", "frame", f.String())
		return
	}
	metrics.FramesTotal.WithLabelValues("sent").Inc()
	log.Debug("Frame sent", "frame", f.String())
}

func (g *Gateway) fault(ctx context.Context, err error) {
	if cerr := g.bus.Close(); cerr != nil {
		log.Debug("Closing faulted transport", "error", cerr)
	}
	g.link.Fire(ctx, EventFault, err)
}

func (g *Gateway) reportStats() {
	now := g.now()
	if now.Sub(g.statsStart) < g.cfg.CAN.StatsInterval {
		return
	}
	log.Info("Gateway throughput", "published", g.published, "interval", now.Sub(g.statsStart).Round(time.Second))
	g.published = 0
	g.statsStart = now
}

// reload replaces the transport and broker with a full teardown. An invalid
// replacement leaves the running configuration untouched.
func (g *Gateway) reload(ctx context.Context) {
	if g.reloads == nil {
		return
	}
	cfg, ok := g.reloads.Next()
	if !ok {
		return
	}

	oldBus, oldBroker, oldCfg := g.bus, g.broker, g.cfg
	if err := g.apply(cfg); err != nil {
		log.Error(err, "Reload rejected, keeping the previous configuration")
		return
	}

	log.Info("Reloading gateway configuration")
	_ = oldBus.Close()
	g.link.Fire(ctx, EventFault)
	if err := oldBroker.Close(); err != nil {
		log.Debug("Closing previous broker", "error", err)
	}
	g.failures = 0

	if err := g.startBroker(ctx); err != nil {
		log.Error(err, "New broker failed to start, restoring the previous configuration")
		_ = g.broker.Close()
		_ = g.bus.Close()
		if err := g.apply(oldCfg); err != nil {
			log.Error(err, "Restoring the previous configuration failed")
			return
		}
		if err := g.startBroker(ctx); err != nil {
			log.Error(err, "Previous broker failed to restart")
		}
	}
}

func (g *Gateway) startBroker(ctx context.Context) error {
	if err := g.broker.Start(ctx); err != nil {
		return fmt.Errorf("start pubsub broker: %w", err)
	}
	if err := g.broker.ConsumeQueue(ctx); err != nil {
		return fmt.Errorf("consume send queue: %w", err)
	}
	return nil
}

func (g *Gateway) teardown(ctx context.Context) {
	if err := g.bus.Close(); err != nil {
		log.Error(err, "Closing CAN transport")
	}
	g.link.Fire(ctx, EventFault)
	if err := g.broker.Close(); err != nil {
		log.Error(err, "Closing pubsub broker")
	}
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
