// Package metrics provides optional Prometheus instrumentation for the ESM client.
//
// Collectors are registered on a caller supplied registerer so that several
// clients, or tests, never collide on the default registry. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Relogins        prometheus.Counter
	QuerySplits     prometheus.Counter
	PartialResults  prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_client_requests_total",
				Help: "Total number of ESM API requests",
			},
			[]string{"dialect", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esm_client_request_duration_seconds",
				Help:    "Duration of ESM API round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"dialect"},
		),
		Relogins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esm_client_relogins_total",
			Help: "Number of logins triggered by an expired session",
		}),
		QuerySplits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esm_client_query_splits_total",
			Help: "Number of time windows split into sub-queries",
		}),
		PartialResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esm_client_partial_results_total",
			Help: "Queries that exhausted their split depth while still truncated",
		}),
	}

	for _, c := range []prometheus.Collector{m.Requests, m.RequestDuration, m.Relogins, m.QuerySplits, m.PartialResults} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one round trip.
func (m *Metrics) ObserveRequest(dialect, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(dialect, outcome).Inc()
	m.RequestDuration.WithLabelValues(dialect).Observe(d.Seconds())
}

// IncRelogin counts a session re-login.
func (m *Metrics) IncRelogin() {
	if m == nil {
		return
	}
	m.Relogins.Inc()
}

// IncSplit counts a query split.
func (m *Metrics) IncSplit() {
	if m == nil {
		return
	}
	m.QuerySplits.Inc()
}

// IncPartial counts a best-effort partial result.
func (m *Metrics) IncPartial() {
	if m == nil {
		return
	}
	m.PartialResults.Inc()
}
