package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Application lifecycle
	ApplicationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteer_applications_submitted_total",
			Help: "Total number of applications created",
		},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_application_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"to"}, // "accepted", "rejected", "cancelled"
	)

	// Reviews
	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_reviews_submitted_total",
			Help: "Total number of reviews persisted",
		},
		[]string{"direction"},
	)

	ReviewsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_reviews_rejected_total",
			Help: "Total number of review submissions refused by eligibility checks",
		},
		[]string{"reason"}, // "not_found", "not_finished", "not_accepted", "duplicate"
	)

	// Notifications
	NotificationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteer_notifications_published_total",
			Help: "Total number of notifications persisted",
		},
	)

	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_notification_deliveries_total",
			Help: "Live delivery attempts per outcome",
		},
		[]string{"outcome"}, // "sent", "failed"
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "volunteer_live_connections",
			Help: "Current number of registered live notification channels",
		},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "volunteer_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRequest observes one finished request. The route is gin's full path
// template so ids do not blow up label cardinality.
func RecordRequest(c *gin.Context, start time.Time) {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	APIRequestDuration.WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).
		Observe(time.Since(start).Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
