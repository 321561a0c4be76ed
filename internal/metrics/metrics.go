// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fintrack"

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route pattern and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method and route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the per-IP rate limiter.",
})

var Exports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "export",
	Name:      "artifacts_total",
	Help:      "Export attempts by format and outcome (ok, invalid, exhausted, error).",
}, []string{"format", "outcome"})

var ExportSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "export",
	Name:      "skipped_records_total",
	Help:      "Malformed records left out of export artifacts.",
})

var MirrorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "sheet_writes_total",
	Help:      "Spreadsheet mirror rewrites by outcome.",
}, []string{"outcome"})

var MirrorPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "pending_users",
	Help:      "Users whose mirror is waiting for the next resync.",
})

// RegisterCacheStats exposes hit and miss counters of a named cache. Calling
// it twice for the same name is a no-op.
func RegisterCacheStats(reg prometheus.Registerer, name string, stats func() (hits, misses uint64)) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "cache",
		Name:        "hits_total",
		Help:        "Cache hits.",
		ConstLabels: prometheus.Labels{"cache": name},
	}, func() float64 { h, _ := stats(); return float64(h) })
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "cache",
		Name:        "misses_total",
		Help:        "Cache misses.",
		ConstLabels: prometheus.Labels{"cache": name},
	}, func() float64 { _, m := stats(); return float64(m) })

	for _, c := range []prometheus.Collector{hits, misses} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}
