// Package metrics holds the process-wide Prometheus instruments for the
// registry, selector, classifier, and resource pool.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocrd",
			Subsystem: "registry",
			Name:      "dispatches_total",
			Help:      "Total recognition dispatches by engine and outcome",
		},
		[]string{"engine", "status"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocrd",
			Subsystem: "registry",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of recognition dispatches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	selectorFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocrd",
			Subsystem: "selector",
			Name:      "fallback_total",
			Help:      "Selections that fell through to the static preference order",
		},
		[]string{"reason"},
	)

	classifierFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ocrd",
			Subsystem: "classifier",
			Name:      "failures_total",
			Help:      "Classifications that degraded to the default verdict",
		},
	)

	poolHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ocrd",
			Subsystem: "pool",
			Name:      "hits_total",
			Help:      "Resource pool lookups that found a resident handle",
		},
	)

	poolMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ocrd",
			Subsystem: "pool",
			Name:      "misses_total",
			Help:      "Resource pool lookups that missed",
		},
	)

	poolEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocrd",
			Subsystem: "pool",
			Name:      "evictions_total",
			Help:      "Handles removed by optimization or idle cleanup",
		},
		[]string{"reason"},
	)

	poolResidentBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ocrd",
			Subsystem: "pool",
			Name:      "resident_bytes",
			Help:      "Sum of resident resource footprints in bytes",
		},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchesTotal, dispatchDuration, selectorFallbackTotal,
		classifierFailuresTotal, poolHitsTotal, poolMissesTotal,
		poolEvictionsTotal, poolResidentBytes,
	)
}

// ObserveDispatch records one dispatch outcome and its duration.
func ObserveDispatch(engine, status string, dur time.Duration) {
	dispatchesTotal.WithLabelValues(engine, status).Inc()
	dispatchDuration.WithLabelValues(engine).Observe(dur.Seconds())
}

// IncSelectorFallback is called when auto-selection falls back to the static
// preference order.
func IncSelectorFallback(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	selectorFallbackTotal.WithLabelValues(reason).Inc()
}

// IncClassifierFailure is called when Analyze degrades to its default verdict.
func IncClassifierFailure() { classifierFailuresTotal.Inc() }

func IncPoolHit()  { poolHitsTotal.Inc() }
func IncPoolMiss() { poolMissesTotal.Inc() }

// IncEviction records one handle removal; reason is "optimize" or "idle".
func IncEviction(reason string) { poolEvictionsTotal.WithLabelValues(reason).Inc() }

// SetResidentBytes updates the resident footprint gauge.
func SetResidentBytes(v float64) { poolResidentBytes.Set(v) }
