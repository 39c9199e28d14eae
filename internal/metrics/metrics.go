// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spares"

var (
	// LedgerMutations counts successful inventory mutations.
	// Labels: op (create, update, delete, bulk_import, edit_transaction, clear, request_create, request_resolve)
	LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "mutations_total",
		Help:      "Successful inventory mutations by operation",
	}, []string{"op"})

	// LedgerTransactions counts ledger entries written.
	// Labels: type (added, taken, deleted)
	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "transactions_total",
		Help:      "Ledger entries recorded by type",
	}, []string{"type"})

	// PartialFailures counts best-effort steps that failed without failing the operation.
	// Labels: step (broadcast, request_cascade, alert_mail)
	PartialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_failures_total",
		Help:      "Best-effort steps that failed and were logged",
	}, []string{"step"})

	// HTTPRequests measures API latency.
	// Labels: method, status
	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	// RealtimeClients tracks connected websocket clients.
	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "clients",
		Help:      "Connected websocket clients",
	})

	// RealtimeEvents counts broadcast events.
	// Labels: event
	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "events_total",
		Help:      "Events broadcast to subscribers",
	}, []string{"event"})

	// RealtimeDropped counts messages dropped for slow or full clients.
	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "dropped_total",
		Help:      "Messages dropped because a client could not keep up",
	})

	// AlertRuns counts low-stock digest runs.
	// Labels: result (sent, skipped, error)
	AlertRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "runs_total",
		Help:      "Low-stock digest runs by result",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
