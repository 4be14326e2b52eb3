// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "solana_airdrop"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Airdrop metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	RecipientsTotal   *prometheus.CounterVec
	TransfersTotal    *prometheus.CounterVec
	TransfersSkipped  prometheus.Counter
	TransferLatency   prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge

	// Solana metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBWriteErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Airdrop metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "airdrop",
			Name:      "runs_total",
			Help:      "Total number of airdrop runs by method and status",
		}, []string{"method", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "airdrop",
			Name:      "run_duration_seconds",
			Help:      "Airdrop run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"method"}),
		RecipientsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "airdrop",
			Name:      "recipients_total",
			Help:      "Total number of validated recipients submitted by method",
		}, []string{"method"}),
		TransfersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "airdrop",
			Name:      "transfers_total",
			Help:      "Total number of recipient transfers by method and status",
		}, []string{"method", "status"}),
		TransfersSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "airdrop",
			Name:      "transfers_skipped_total",
			Help:      "Total number of recipients skipped as already paid under the same idempotency key",
		}),
		TransferLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "airdrop",
			Name:      "transfer_latency_seconds",
			Help:      "Direct transfer latency including confirmation, in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last completed airdrop run",
		}),

		// Solana metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Database metrics
		DBWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "write_errors_total",
			Help:      "Total number of failed ledger writes by store and operation",
		}, []string{"store", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
// A nil gatherer serves the default Prometheus registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordRun records a finished airdrop run.
func (m *Metrics) RecordRun(method, status string, recipients int, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(method, status).Inc()
	m.RunDuration.WithLabelValues(method).Observe(d.Seconds())
	m.RecipientsTotal.WithLabelValues(method).Add(float64(recipients))
	if status == "completed" {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordTransfers counts n recipient transfers with the given status.
func (m *Metrics) RecordTransfers(method, status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TransfersTotal.WithLabelValues(method, status).Add(float64(n))
}

// RecordTransferLatency records one direct transfer attempt.
func (m *Metrics) RecordTransferLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.TransferLatency.Observe(d.Seconds())
}

// RecordSkipped increments the idempotent skip counter.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.TransfersSkipped.Inc()
}

// RecordRPCCall records RPC call latency and failures.
// Its signature matches solana.CallObserver.
func (m *Metrics) RecordRPCCall(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordDBWriteError counts a failed ledger write.
func (m *Metrics) RecordDBWriteError(store, operation string) {
	if m == nil {
		return
	}
	m.DBWriteErrors.WithLabelValues(store, operation).Inc()
}
