// Package metrics exposes Prometheus instruments for the job pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileconv",
		Name:      "uploads_total",
		Help:      "Uploads by outcome (accepted or the rejection reason).",
	}, []string{"outcome"})

	UploadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fileconv",
		Name:      "upload_bytes",
		Help:      "Size of accepted uploads.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})

	Conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileconv",
		Name:      "conversions_total",
		Help:      "Conversions by dispatch rule and outcome.",
	}, []string{"rule", "outcome"})

	ConversionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fileconv",
		Name:      "conversion_duration_seconds",
		Help:      "Time spent inside conversion strategies.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"rule"})

	Downloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileconv",
		Name:      "downloads_total",
		Help:      "Downloads by outcome.",
	}, []string{"outcome"})

	SweptObjects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fileconv",
		Name:      "swept_objects_total",
		Help:      "Objects deleted by the expiry sweep.",
	})

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fileconv",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

func init() {
	registry.MustRegister(
		Uploads, UploadBytes, Conversions, ConversionDuration,
		Downloads, SweptObjects, RateLimited,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// ObserveConversion records one dispatched conversion
func ObserveConversion(rule, outcome string, took time.Duration) {
	Conversions.WithLabelValues(rule, outcome).Inc()
	ConversionDuration.WithLabelValues(rule).Observe(took.Seconds())
}

// Registry exposes the registry, mainly so tests can gather from it
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
