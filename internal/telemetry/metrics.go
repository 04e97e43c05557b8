package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IPC surface.
var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playcore_api_request_duration_seconds",
		Help:    "IPC HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_api_requests_total",
		Help: "IPC HTTP requests served.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_api_active_connections",
		Help: "In-flight IPC HTTP requests.",
	})

	IPCWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_ipc_websocket_connections",
		Help: "Open websocket IPC sessions.",
	})
)

// Clients and events.
var (
	ClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_clients_active",
		Help: "Registered client handles.",
	})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_events_delivered_total",
		Help: "Events returned by wait_event.",
	}, []string{"event"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_events_dropped_total",
		Help: "Events dropped because a client queue was full.",
	}, []string{"event"})

	DispatchJobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_dispatch_jobs_total",
		Help: "Jobs executed on the core goroutine.",
	})

	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_dispatch_queue_depth",
		Help: "Jobs waiting for the core goroutine.",
	})
)

// Playback.
var (
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_lifecycle_transitions_total",
		Help: "Per-file lifecycle state transitions.",
	}, []string{"from", "to"})

	FilesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_files_ended_total",
		Help: "Files that finished, by end reason.",
	}, []string{"reason"})

	SeeksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_seeks_total",
		Help: "Executed seeks.",
	})

	PlaybackPosition = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_playback_position_seconds",
		Help: "Current playback position.",
	})
)

// Persistence and bridging.
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playcore_database_query_duration_seconds",
		Help:    "Watch-later database operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_database_errors_total",
		Help: "Failed watch-later database operations.",
	}, []string{"operation"})

	EventBusPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_eventbus_published_total",
		Help: "Events mirrored to the external bus.",
	}, []string{"backend"})

	EventBusErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_eventbus_errors_total",
		Help: "Failed publishes to the external bus.",
	}, []string{"backend"})
)
