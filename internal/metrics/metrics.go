// Package metrics exposes Prometheus collectors for the content service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"method", "route"},
	)

	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentd_probes_total",
			Help: "Total liveness probes, labeled by probe kind and result.",
		},
		[]string{"kind", "result"},
	)

	sourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentd_source_failures_total",
			Help: "Total source calls that failed, labeled by category and source.",
		},
		[]string{"category", "source"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentd_cache_lookups_total",
			Help: "Cache lookups, labeled by tier and result (hit/miss).",
		},
		[]string{"tier", "result"},
	)

	sharedCacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentd_shared_cache_errors_total",
			Help: "Shared cache tier errors absorbed, labeled by operation.",
		},
		[]string{"op"},
	)

	aggregationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentd_aggregation_duration_seconds",
			Help:    "Histogram of aggregation latencies, labeled by category and outcome.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"category", "outcome"},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentd_rate_limit_delays_seconds",
			Help:    "Histogram of per-origin rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveProbe records the outcome of a single liveness probe.
func ObserveProbe(kind string, alive bool) {
	result := "dead"
	if alive {
		result = "alive"
	}
	probesTotal.WithLabelValues(kind, result).Inc()
}

// ObserveSourceFailure records a source that contributed no candidates because it failed.
func ObserveSourceFailure(category, source string) {
	sourceFailuresTotal.WithLabelValues(category, source).Inc()
}

// ObserveCacheLookup records a hit or miss on a cache tier.
func ObserveCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

// ObserveSharedCacheError records a swallowed shared-tier failure.
func ObserveSharedCacheError(op string) {
	sharedCacheErrorsTotal.WithLabelValues(op).Inc()
}

// ObserveAggregation records how long one aggregation call took.
func ObserveAggregation(category, outcome string, duration time.Duration) {
	aggregationDurationSeconds.WithLabelValues(category, outcome).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
