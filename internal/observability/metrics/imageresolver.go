// Package metrics provides custom Prometheus metrics for the dashboard's
// components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageResolverMetrics contains all Prometheus metrics related to image
// resolution: cache behavior and remote fetches.
type ImageResolverMetrics struct {
	CacheEntries  prometheus.Gauge
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Fetches       prometheus.Counter
	FetchFailures prometheus.Counter
	FetchDuration prometheus.Histogram
	Preloads      prometheus.Counter
}

// NewImageResolverMetrics creates a new instance of ImageResolverMetrics
// registered against the given registry.
func NewImageResolverMetrics(registry *prometheus.Registry) (*ImageResolverMetrics, error) {
	m := &ImageResolverMetrics{
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_resolver_cache_entries",
			Help: "Current number of cached resolution results, including negative ones.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_resolver_cache_hits_total",
			Help: "Total number of cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_resolver_cache_misses_total",
			Help: "Total number of cache misses.",
		}),
		Fetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_resolver_fetches_total",
			Help: "Total number of image fetch attempts.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_resolver_fetch_failures_total",
			Help: "Total number of failed image fetches cached as negative results.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "image_resolver_fetch_duration_seconds",
			Help:    "Duration of image fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		Preloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_resolver_preload_windows_total",
			Help: "Total number of preload windows processed.",
		}),
	}

	collectors := []prometheus.Collector{
		m.CacheEntries, m.CacheHits, m.CacheMisses,
		m.Fetches, m.FetchFailures, m.FetchDuration, m.Preloads,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register ImageResolver metrics: %w", err)
		}
	}
	return m, nil
}

// SetCacheEntries updates the current cache entry count.
func (m *ImageResolverMetrics) SetCacheEntries(n float64) {
	m.CacheEntries.Set(n)
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ImageResolverMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ImageResolverMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// IncrementFetches increases the fetch attempt counter by one.
func (m *ImageResolverMetrics) IncrementFetches() {
	m.Fetches.Inc()
}

// IncrementFetchFailures increases the failed fetch counter by one.
func (m *ImageResolverMetrics) IncrementFetchFailures() {
	m.FetchFailures.Inc()
}

// ObserveFetchDuration records the duration of a fetch in seconds.
func (m *ImageResolverMetrics) ObserveFetchDuration(seconds float64) {
	m.FetchDuration.Observe(seconds)
}

// IncrementPreloads increases the processed preload window counter by one.
func (m *ImageResolverMetrics) IncrementPreloads() {
	m.Preloads.Inc()
}
