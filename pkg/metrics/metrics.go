// Package metrics holds the controller's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts reconciliation passes and device operations. One instance
// is shared between the reconciler and the metrics endpoint.
type Metrics struct {
	Reconciles    *prometheus.CounterVec
	Applies       *prometheus.CounterVec
	ApplyDuration prometheus.Histogram
	InFlight      prometheus.Gauge
	LockRetries   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deviceconfig",
			Name:      "reconciles_total",
			Help:      "Total reconciliation passes, partitioned by result.",
		}, []string{"result"}),
		Applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deviceconfig",
			Name:      "applies_total",
			Help:      "Total device apply attempts, partitioned by outcome.",
		}, []string{"outcome"}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deviceconfig",
			Name:      "apply_duration_seconds",
			Help:      "End to end duration of a device apply, lock to unlock.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "deviceconfig",
			Name:      "inflight_applies",
			Help:      "Device applies currently holding a per-device slot.",
		}),
		LockRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deviceconfig",
			Name:      "lock_retries_total",
			Help:      "Reconciliations requeued because the device was busy.",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.Reconciles,
		m.Applies,
		m.ApplyDuration,
		m.InFlight,
		m.LockRetries,
	)
}
