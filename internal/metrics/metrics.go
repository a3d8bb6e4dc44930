// Package metrics registers and exposes Prometheus collectors for the
// HTTP surface and the engagement pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Engagement metrics
	PostsCreatedTotal   prometheus.Counter
	PostsDeletedTotal   prometheus.Counter
	LikesToggledTotal   prometheus.CounterVec
	CommentsAddedTotal  prometheus.Counter
	ViewsRecordedTotal  prometheus.Counter
	FollowsChangedTotal prometheus.CounterVec

	// Notification metrics
	NotificationsDispatched prometheus.CounterVec
	ActiveSubscriptions     prometheus.Gauge

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			PostsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "posts_created_total",
				Help: "Total number of posts created",
			}),
			PostsDeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "posts_deleted_total",
				Help: "Total number of posts deleted",
			}),
			LikesToggledTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "likes_toggled_total",
					Help: "Total number of like toggles",
				},
				[]string{"state"},
			),
			CommentsAddedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "comments_added_total",
				Help: "Total number of comments added",
			}),
			ViewsRecordedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "views_recorded_total",
				Help: "Total number of post views recorded",
			}),
			FollowsChangedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "follows_changed_total",
					Help: "Total number of follow graph changes",
				},
				[]string{"action"},
			),

			NotificationsDispatched: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_dispatched_total",
					Help: "Total number of notifications dispatched",
				},
				[]string{"kind"},
			),
			ActiveSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "notification_subscriptions_active",
				Help: "Number of live notification subscriptions",
			}),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing on first use
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
