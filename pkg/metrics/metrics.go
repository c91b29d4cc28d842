package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Business metrics
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Total number of bookings entering each status",
		},
		[]string{"status"},
	)

	ActiveBookingsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_bookings",
			Help: "Current number of bookings in an active status",
		},
	)

	DispatchRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_rounds_total",
			Help: "Search rounds executed per dispatch outcome",
		},
		[]string{"outcome"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Time from request to reservation or exhaustion",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReservationConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_conflicts_total",
			Help: "Reservation attempts lost to a concurrent claim",
		},
	)

	LocationReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_reports_total",
			Help: "Driver position reports ingested",
		},
		[]string{"status"},
	)

	DriversOnlineGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drivers_online",
			Help: "Current number of available drivers",
		},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket subscribers",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_published_total",
			Help: "Outbound events published by the notification relay",
		},
		[]string{"event_type", "status"},
	)
)

// RecordHTTPMetrics records request count and latency for one HTTP request.
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordRelayPublish records the outcome of one outbound event publish.
// Status is one of published, failed, deduplicated.
func RecordRelayPublish(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
