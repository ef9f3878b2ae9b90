// Package tvsim makes the head unit believe a TV tuner is attached by
// repeating the tuner's presence frame.
package tvsim

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

type Options struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	ID       string        `json:"id" mapstructure:"id"`
	Payload  string        `json:"payload" mapstructure:"payload"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

func NewOptions() *Options {
	return &Options{
		Enabled:  false,
		ID:       "0x602",
		Payload:  "0912300000000000",
		Interval: 500 * time.Millisecond,
	}
}

func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}
	if _, err := can.ParseID(o.ID); err != nil {
		errs = append(errs, fmt.Errorf("tvsim.id: %w", err))
	}
	if b, err := hex.DecodeString(o.Payload); err != nil || len(b) > can.MaxDataLen {
		errs = append(errs, fmt.Errorf("tvsim.payload %q is not a hex payload of at most 8 bytes", o.Payload))
	}
	if o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("tvsim.interval must be positive"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "tvsim.enabled", o.Enabled, "Send the TV tuner presence frame.")
	fs.StringVar(&o.ID, "tvsim.id", o.ID, "Frame identifier of the TV tuner presence frame.")
	fs.StringVar(&o.Payload, "tvsim.payload", o.Payload, "Hex payload of the presence frame.")
	fs.DurationVar(&o.Interval, "tvsim.interval", o.Interval, "Interval between two presence frames.")
}

var (
	_ core.Module = (*Module)(nil)
	_ core.Ticker = (*Module)(nil)
)

type Module struct {
	id       uint32
	payload  []byte
	interval time.Duration
	queue    pubsub.Queue
}

func New(o *Options, queue pubsub.Queue) (*Module, error) {
	id, err := can.ParseID(o.ID)
	if err != nil {
		return nil, err
	}
	payload, err := hex.DecodeString(o.Payload)
	if err != nil {
		return nil, err
	}
	return &Module{id: id, payload: payload, interval: o.Interval, queue: queue}, nil
}

func (m *Module) Name() string { return "tvsim" }

// Routes is empty: the module only sends.
func (m *Module) Routes() map[uint32]core.HandlerFunc { return nil }

func (m *Module) TickInterval() time.Duration { return m.interval }

func (m *Module) Tick(ctx context.Context, _ time.Time) {
	if err := m.queue.Enqueue(ctx, m.id, m.payload); err != nil {
		log.Error(err, "Failed to enqueue TV presence frame")
	}
}
