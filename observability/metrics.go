package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pair_relay"

// Metrics groups every counter exposed on /metrics.
// A dedicated Registerer lets tests build as many coordinators as they need.
type Metrics struct {
	Connections      prometheus.Gauge
	Participants     prometheus.Gauge
	Logins           *prometheus.CounterVec
	Messages         *prometheus.CounterVec
	MessageErrors    *prometheus.CounterVec
	RelayedEvents    *prometheus.CounterVec
	EphemeralRemoved *prometheus.CounterVec
	ProtocolErrors   *prometheus.CounterVec
	DroppedFrames    prometheus.Counter
	LedgerSize       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open transport connections, authenticated or not",
		}),
		Participants: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants",
			Help:      "Identities currently registered in presence",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result code",
		}, []string{"result"}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages stored in the ledger",
		}, []string{"kind"}),
		MessageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_errors_total",
			Help:      "Messages rejected by validation",
		}, []string{"code"}),
		RelayedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_events_total",
			Help:      "Signaling and interaction events forwarded to the other participant",
		}, []string{"event"}),
		EphemeralRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ephemeral_removed_total",
			Help:      "Disappearing messages removed, by trigger",
		}, []string{"reason"}),
		ProtocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Frames rejected at the transport boundary or received out of order",
		}, []string{"code"}),
		DroppedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped because a connection buffer was full",
		}),
		LedgerSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_size",
			Help:      "Messages currently held in memory",
		}),
	}
}
