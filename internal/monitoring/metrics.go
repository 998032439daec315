// Package monitoring exposes ledger Prometheus metrics. A nil *Metrics is
// valid and records nothing, so components can be built without metrics.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ledger_transactions_total.
const (
	OutcomeAccepted = "accepted"
	OutcomeReplayed = "replayed"
)

type Metrics struct {
	transactionsTotal   *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	lockWait            prometheus.Histogram
	cacheRequests       *prometheus.CounterVec
	suspiciousTotal     prometheus.Counter
	asyncInflight       prometheus.Gauge
	dailyPruned         prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the ledger metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Ledger operations by change type and outcome (accepted, replayed or error code)",
			},
			[]string{"type", "outcome"},
		),
		transactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_transaction_duration_seconds",
				Help:    "Ledger operation latency including lock wait",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_lock_wait_seconds",
				Help:    "Time spent waiting for account locks",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_balance_cache_requests_total",
				Help: "Balance cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		suspiciousTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_suspicious_transactions_total",
				Help: "Accepted transactions above the suspicious amount threshold",
			},
		),
		asyncInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledger_async_inflight",
				Help: "Ledger operations currently running on async workers",
			},
		),
		dailyPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_daily_counters_pruned_total",
				Help: "Stale daily transaction counters removed at day boundaries",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Collaborator API requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_request_duration_seconds",
				Help:    "Collaborator API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.transactionsTotal,
		m.transactionDuration,
		m.lockWait,
		m.cacheRequests,
		m.suspiciousTotal,
		m.asyncInflight,
		m.dailyPruned,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// RecordTransaction counts one ledger operation outcome.
func (m *Metrics) RecordTransaction(changeType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues(changeType, outcome).Inc()
	m.transactionDuration.WithLabelValues(changeType).Observe(duration.Seconds())
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSuspicious() {
	if m == nil {
		return
	}
	m.suspiciousTotal.Inc()
}

// AsyncStarted and AsyncFinished bracket a worker execution.
func (m *Metrics) AsyncStarted() {
	if m == nil {
		return
	}
	m.asyncInflight.Inc()
}

func (m *Metrics) AsyncFinished() {
	if m == nil {
		return
	}
	m.asyncInflight.Dec()
}

func (m *Metrics) AddDailyPruned(n int) {
	if m == nil {
		return
	}
	m.dailyPruned.Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
