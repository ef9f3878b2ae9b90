package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BusConnected is 1 while the gateway holds an open bus transport.
	BusConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "canbridge_bus_connected",
			Help: "Bus link state of the gateway (1=connected, 0=disconnected).",
		},
	)

	// FramesTotal counts frames by direction: received, published, sent.
	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canbridge_frames_total",
			Help: "Frames handled by the gateway, by direction.",
		},
		[]string{"direction"},
	)

	// ErrorsTotal counts gateway failures by stage: receive, publish, send, dequeue, connect.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canbridge_errors_total",
			Help: "Gateway errors, by stage.",
		},
		[]string{"stage"},
	)

	// ReconnectAttempts counts bus connect attempts.
	ReconnectAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "canbridge_reconnect_attempts_total",
			Help: "Bus connect attempts made by the gateway.",
		},
	)

	// DispatchedTotal counts messages delivered to agent handlers, by topic.
	DispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canbridge_dispatched_total",
			Help: "Messages routed to agent handlers, by topic.",
		},
		[]string{"topic"},
	)

	// DecodeErrors counts dropped messages the agent could not decode.
	DecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "canbridge_decode_errors_total",
			Help: "Messages dropped by the agent because they could not be decoded.",
		},
	)

	// ActionsTotal counts actions fired by the agent, by module and tier.
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canbridge_actions_total",
			Help: "Actions fired by agent modules.",
		},
		[]string{"module", "tier"},
	)

	// ActionLatency records how long the action sink takes per call.
	ActionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canbridge_action_latency_seconds",
			Help:    "Latency of action sink calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(BusConnected)
	prometheus.MustRegister(FramesTotal)
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(ReconnectAttempts)
	prometheus.MustRegister(DispatchedTotal)
	prometheus.MustRegister(DecodeErrors)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ActionLatency)
}
