// Package metrics exposes Prometheus collectors for the discovery pipeline.
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
	pagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_pages_fetched_total",
			Help: "Total number of pages fetched, labeled by site and status code.",
		},
		[]string{"site", "status"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_fetch_bytes_total",
			Help: "Total number of bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_fetch_duration_seconds",
			Help:    "Histogram of fetch latencies, labeled by site.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"site"},
	)

	fetchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_fetch_retries_total",
			Help: "Total fetch retry attempts, labeled by source.",
		},
		[]string{"source"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_rate_limit_delay_seconds",
			Help:    "Histogram of rate limit wait durations, labeled by source.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	eventsFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_events_found_total",
			Help: "Total event candidates accepted, labeled by source.",
		},
		[]string{"source"},
	)

	eventsPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_events_persisted_total",
			Help: "Total events written to the sink, labeled by source.",
		},
		[]string{"source"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_runs_total",
			Help: "Total discovery runs, labeled by terminal status.",
		},
		[]string{"status"},
	)
)

// SanitizeSite extracts a lowercase hostname from a URL, or "unknown".
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

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records a completed fetch.
func ObserveFetch(rawURL string, status int, bytesFetched int, duration time.Duration) {
	site := SanitizeSite(rawURL)
	pagesFetchedTotal.WithLabelValues(site, strconv.Itoa(status)).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveFetchRetry increments the retry counter for a source.
func ObserveFetchRetry(source string) {
	fetchRetriesTotal.WithLabelValues(source).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(source string, duration time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveEventsFound adds accepted candidates for a source.
func ObserveEventsFound(source string, count int) {
	if count > 0 {
		eventsFoundTotal.WithLabelValues(source).Add(float64(count))
	}
}

// ObserveEventPersisted increments the persisted counter for a source.
func ObserveEventPersisted(source string) {
	eventsPersistedTotal.WithLabelValues(source).Inc()
}

// ObserveRun increments the run counter for the given terminal status.
func ObserveRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}
