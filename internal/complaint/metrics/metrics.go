package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the complaint registry and its read side.
type Metrics struct {
	// Registry writes by operation and outcome code
	Operations *prometheus.CounterVec

	// Stake settlements by kind (returned, slashed)
	Settlements *prometheus.CounterVec

	// Classifier outcomes by category
	Classifications *prometheus.CounterVec

	// Synchronizer
	SyncDuration      prometheus.Histogram
	SyncRecordsFailed prometheus.Counter
	SyncOutcomes      *prometheus.CounterVec
	SnapshotServed    *prometheus.CounterVec
	BreakerOpen       prometheus.Gauge
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_registry_operations_total",
			Help: "Registry operations by name and outcome",
		}, []string{"operation", "outcome"}),

		Settlements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_registry_settlements_total",
			Help: "Stake settlements by kind",
		}, []string{"kind"}),

		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_classifier_results_total",
			Help: "Classifier results by category",
		}, []string{"category"}),

		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civic_sync_duration_seconds",
			Help:    "Duration of a full window synchronization against the registry",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		SyncRecordsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "civic_sync_records_failed_total",
			Help: "Individual record fetches that failed during synchronization",
		}),

		SyncOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_sync_outcomes_total",
			Help: "Synchronization outcomes (complete, partial, unavailable)",
		}, []string{"outcome"}),

		SnapshotServed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_snapshot_served_total",
			Help: "Snapshots served by source (registry, cache, stale)",
		}, []string{"source"}),

		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "civic_sync_breaker_open",
			Help: "1 while the registry source circuit breaker is open",
		}),
	}
}

// IncrementOperation records a registry write outcome.
func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) IncrementSettlement(kind string) {
	if m != nil {
		m.Settlements.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementClassification(category string) {
	if m != nil {
		m.Classifications.WithLabelValues(category).Inc()
	}
}

// ObserveSync records one synchronization attempt.
func (m *Metrics) ObserveSync(outcome string, failed int, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncDuration.Observe(d.Seconds())
	m.SyncOutcomes.WithLabelValues(outcome).Inc()
	m.SyncRecordsFailed.Add(float64(failed))
}

func (m *Metrics) IncrementSnapshotServed(source string) {
	if m != nil {
		m.SnapshotServed.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
	} else {
		m.BreakerOpen.Set(0)
	}
}
