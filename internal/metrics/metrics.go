// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_http_requests_total",
			Help: "Total HTTP requests by method, route template and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Feeds
	FeedResultSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_feed_result_size",
			Help:    "Number of movies returned per feed request",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 24, 50},
		},
		[]string{"feed"}, // last_seen, new, recommendations, most_popular
	)

	// Feed cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_feed_cache_lookups_total",
			Help: "Feed cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// Watch events
	WatchEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_watch_events_published_total",
			Help: "movie.watched events handed to the broker, by outcome",
		},
		[]string{"result"}, // ok, error
	)
)

// RecordHTTPRequest records one finished request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordFeed records how many movies a feed produced.
func RecordFeed(feed string, n int) {
	FeedResultSize.WithLabelValues(feed).Observe(float64(n))
}
