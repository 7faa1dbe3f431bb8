package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcome label values.
const (
	OutcomeDelivered = "delivered"
	OutcomeQueued    = "queued"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kychat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kychat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kychat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"scope"}, // "auth" or "realtime"
	)

	// Realtime metrics
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kychat_realtime_connections",
			Help: "Currently registered realtime connections",
		},
	)

	DeliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kychat_delivery_total",
			Help: "Routed messages by outcome",
		},
		[]string{"outcome"},
	)

	QueueDrainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kychat_queue_drained_total",
			Help: "Queued messages flushed to reconnecting recipients",
		},
	)

	MalformedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kychat_malformed_events_total",
			Help: "Inbound realtime events dropped as malformed",
		},
	)

	// Files
	FilesExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kychat_files_expired_total",
			Help: "Expired shared files removed by the cleanup worker",
		},
	)
)
