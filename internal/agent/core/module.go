package core

import (
	"context"
	"time"

	"github.com/autopeer-io/canbridge/pkg/can"
)

// HandlerFunc handles one decoded frame. now is the agent's wall clock at delivery.
type HandlerFunc func(ctx context.Context, f can.Frame, now time.Time)

// Module is one enabled feature.
type Module interface {
	Name() string

	// Routes maps frame identifiers to handlers. The agent subscribes to
	// exactly these identifiers.
	Routes() map[uint32]HandlerFunc
}

// Ticker is implemented by modules that need periodic work.
type Ticker interface {
	TickInterval() time.Duration
	Tick(ctx context.Context, now time.Time)
}

// Reporter is implemented by modules that contribute to the periodic status log.
type Reporter interface {
	// Status returns key/value pairs describing the module state.
	Status(now time.Time) []any
}
