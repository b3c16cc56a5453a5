package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lunch"

// CacheStats reports the local cache counters at scrape time.
type CacheStats func() (hits, misses int64, entries int)

// Prometheus records fetch and HTTP telemetry on a dedicated registry.
type Prometheus struct {
	registry        *prometheus.Registry
	attempts        *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus registers the collectors. A nil stats func skips the cache
// gauges.
func NewPrometheus(stats CacheStats) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Upstream fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Responses served from a fallback value.",
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by source and result.",
		}, []string{"source", "result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		}, []string{"method", "endpoint"}),
	}
	p.registry.MustRegister(
		p.attempts,
		p.fallbacks,
		p.cacheLookups,
		p.requestsTotal,
		p.requestDuration,
		collectors.NewGoCollector(),
	)
	if stats != nil {
		p.registry.MustRegister(newCacheCollector(stats))
	}
	return p
}

// Attempt counts one upstream call.
func (p *Prometheus) Attempt(source, outcome string) {
	p.attempts.WithLabelValues(source, outcome).Inc()
}

// Fallback counts a response that degraded to its fallback value.
func (p *Prometheus) Fallback(source string) {
	p.fallbacks.WithLabelValues(source).Inc()
}

// CacheLookup counts one cache read and whether it hit.
func (p *Prometheus) CacheLookup(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(source, result).Inc()
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// GinMiddleware collects request counts and latencies per route template.
func (p *Prometheus) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		p.requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		p.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// cacheCollector exports the local cache counters as gauges, since clearing
// the cache resets them.
type cacheCollector struct {
	stats   CacheStats
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	entries *prometheus.Desc
}

func newCacheCollector(stats CacheStats) *cacheCollector {
	return &cacheCollector{
		stats:   stats,
		hits:    prometheus.NewDesc(namespace+"_local_cache_hits", "Local cache hits since the last clear.", nil, nil),
		misses:  prometheus.NewDesc(namespace+"_local_cache_misses", "Local cache misses since the last clear.", nil, nil),
		entries: prometheus.NewDesc(namespace+"_local_cache_entries", "Entries held by the local cache.", nil, nil),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.entries
}

// Collect reads a fresh snapshot of the cache on every scrape.
func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	hits, misses, entries := c.stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.GaugeValue, float64(hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.GaugeValue, float64(misses))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(entries))
}
