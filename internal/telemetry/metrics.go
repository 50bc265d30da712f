package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreg_api_requests_total",
		Help: "Total HTTP requests handled.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "protoreg_api_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "protoreg_api_active_connections",
		Help: "HTTP requests currently being served.",
	})

	// BlobOperationsTotal counts blob store calls by backend, operation and result.
	BlobOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreg_blob_operations_total",
		Help: "Blob store operations.",
	}, []string{"backend", "operation", "result"})

	// BlobOperationDuration observes blob store latency.
	BlobOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "protoreg_blob_operation_duration_seconds",
		Help:    "Blob store operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// SubmissionsTotal counts form submissions by kind and result.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreg_submissions_total",
		Help: "Form submissions processed.",
	}, []string{"kind", "result"})

	// ParticipantIDRedraws counts random ID draws rejected for colliding with an existing ID.
	ParticipantIDRedraws = promauto.NewCounter(prometheus.CounterOpts{
		Name: "protoreg_participant_id_redraws_total",
		Help: "Participant ID draws rejected as duplicates.",
	})

	// LockWaitDuration observes time spent acquiring the per-blob write lock.
	LockWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "protoreg_lock_wait_seconds",
		Help:    "Time spent waiting for a blob write lock.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"backend"})

	// DatabaseQueryDuration tracks ledger database latency.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "protoreg_database_query_duration_seconds",
		Help:    "Submission ledger query duration in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed ledger operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protoreg_database_errors_total",
		Help: "Submission ledger database errors.",
	}, []string{"operation", "error_type"})

	// DatabaseConnectionsActive reports open ledger connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "protoreg_database_connections_active",
		Help: "Open submission ledger database connections.",
	})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
