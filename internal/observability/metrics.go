// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts posts created by mood.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soulspark_posts_created_total",
		Help: "Total number of posts created, by mood",
	}, []string{"mood"})

	// PostsRemoved counts posts removed after reaching the report threshold.
	PostsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soulspark_posts_removed_total",
		Help: "Total number of posts removed by community reports",
	})

	// ReportsFiled counts accepted (non-duplicate) reports.
	ReportsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soulspark_reports_filed_total",
		Help: "Total number of distinct reports filed against posts",
	})

	// QuotaRejections counts posts refused by the daily limit.
	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soulspark_quota_rejections_total",
		Help: "Total number of post attempts rejected by the daily limit",
	})

	// GenerationRequests counts generative provider calls by kind and outcome.
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soulspark_generation_requests_total",
		Help: "Total number of generative provider calls by kind and outcome",
	}, []string{"kind", "outcome"})

	// GenerationLatency records generative provider latency by kind.
	GenerationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soulspark_generation_latency_seconds",
		Help:    "Generative provider latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"kind"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soulspark_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// FeedStreams tracks open live feed websockets.
	FeedStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soulspark_feed_streams_active",
		Help: "Number of open live feed websocket connections",
	})

	// MediaUploads counts stored background images by backend.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soulspark_media_uploads_total",
		Help: "Total number of stored background images by backend",
	}, []string{"backend"})
)

// TrackGeneration returns a function that records latency and outcome for one
// provider call. Pass the call's error to the returned function.
func TrackGeneration(kind string) func(err error) {
	start := time.Now()
	return func(err error) {
		GenerationLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		GenerationRequests.WithLabelValues(kind, outcome).Inc()
	}
}
