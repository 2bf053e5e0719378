package node

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "gossipledger"

// Metrics holds the Prometheus metrics of a node. Each node registers them
// with its own registry so that several nodes can live in the same process.
type Metrics struct {
	registry *prometheus.Registry

	// Gossip metrics
	GossipTicks    prometheus.Counter
	SyncErrors     *prometheus.CounterVec
	AcceptedEvents prometheus.Counter
	RosterSize     prometheus.Gauge

	// Consensus metrics
	ConsensusEvents   prometheus.Counter
	UndecidedEvents   prometheus.Gauge
	ConsensusDuration prometheus.Histogram

	// Ledger metrics
	Receipts        *prometheus.CounterVec
	TransactionPool prometheus.Gauge
}

// NewMetrics creates a Metrics instance with a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		GossipTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "gossip_ticks_total",
			Help:      "Total number of gossip ticks",
		}),
		SyncErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_errors_total",
			Help:      "Total number of failed syncs by kind",
		}, []string{"kind"}),
		AcceptedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accepted_events_total",
			Help:      "Total number of events accepted by the gossip engine",
		}),
		RosterSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "roster_size",
			Help:      "Number of peers in the roster, self included",
		}),

		ConsensusEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "consensus_events_total",
			Help:      "Total number of events that reached consensus",
		}),
		UndecidedEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "undecided_events",
			Help:      "Number of events waiting for consensus",
		}),
		ConsensusDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "consensus_duration_seconds",
			Help:      "Duration of consensus passes in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),

		Receipts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "receipts_total",
			Help:      "Total number of ledger receipts by status",
		}, []string{"status"}),
		TransactionPool: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "transaction_pool",
			Help:      "Number of transactions waiting to be gossiped",
		}),
	}
}

// Registry returns the registry holding the node's metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the node's metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
