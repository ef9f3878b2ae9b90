// Package dispatch routes decoded frames to the handlers of enabled modules.
package dispatch

import (
	"context"
	"sort"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/pkg/metrics"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/log"
)

// Dispatcher holds the routing table of one set of modules. It is built
// once per configuration and never changes afterwards.
type Dispatcher struct {
	routes map[uint32][]core.HandlerFunc
}

// New builds the routing table. Handlers of one identifier run in module order.
func New(modules ...core.Module) *Dispatcher {
	d := &Dispatcher{routes: make(map[uint32][]core.HandlerFunc)}
	for _, m := range modules {
		ids := make([]uint32, 0)
		for id := range m.Routes() {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			d.routes[id] = append(d.routes[id], m.Routes()[id])
		}
		log.Debug("Registered module", "module", m.Name(), "ids", len(ids))
	}
	return d
}

// Topics returns the sorted subscription set: exactly the topics some handler consumes.
func (d *Dispatcher) Topics() []string {
	topics := make([]string, 0, len(d.routes))
	for id := range d.routes {
		topics = append(topics, can.Topic(id))
	}
	sort.Strings(topics)
	return topics
}

// Dispatch decodes m and runs the handlers of its identifier. A message that
// does not decode is logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, m *pubsub.Message, now time.Time) {
	f, err := can.Decode(m.Payload)
	if err != nil {
		metrics.DecodeErrors.Inc()
		log.Warn("Dropping undecodable message", "topic", m.Topic, "err", err)
		return
	}

	handlers, ok := d.routes[f.ID]
	if !ok {
		log.Debug("No handler for frame", "topic", m.Topic, "id", f.ID)
		return
	}
	metrics.DispatchedTotal.WithLabelValues(can.Topic(f.ID)).Inc()
	for _, h := range handlers {
		h(ctx, f, now)
	}
}
