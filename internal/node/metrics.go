package node

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this package.
	MetricsSubsystem = "ledger"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Height of the latest block.
	Height metrics.Gauge
	// Transactions processed, labelled by status (committed or failed).
	Transactions metrics.Counter
	// Transactions waiting for the next block.
	MempoolSize metrics.Gauge
	// Messages stored on the ledger.
	Messages metrics.Counter
	// Open websocket subscriptions.
	Subscribers metrics.Gauge
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Height of the latest block.",
		}, labels).With(labelsAndValues...),
		Transactions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "transactions",
			Help:      "Number of transactions processed.",
		}, append(labels, "status")).With(labelsAndValues...),
		MempoolSize: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "mempool_size",
			Help:      "Number of pending transactions.",
		}, labels).With(labelsAndValues...),
		Messages: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "messages",
			Help:      "Number of messages posted since start.",
		}, labels).With(labelsAndValues...),
		Subscribers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "subscribers",
			Help:      "Number of open websocket subscriptions.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:       discard.NewGauge(),
		Transactions: discard.NewCounter(),
		MempoolSize:  discard.NewGauge(),
		Messages:     discard.NewCounter(),
		Subscribers:  discard.NewGauge(),
	}
}
