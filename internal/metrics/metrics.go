// Package metrics provides Prometheus metrics collection for nebulaio.
//
// The package exposes metrics at /metrics for monitoring:
//
// Request Metrics:
//   - nebulaio_requests_total: Total requests by operation and status
//   - nebulaio_request_duration_seconds: Request latency histogram
//
// Storage Metrics:
//   - nebulaio_objects_total: Total objects by bucket
//   - nebulaio_buckets_total: Total number of buckets
//   - nebulaio_storage_bytes_used: Total bytes stored
//   - nebulaio_multipart_uploads_active: In-progress multipart uploads
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts total number of requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulaio_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "operation", "status"},
	)

	// RequestDuration tracks request duration in seconds
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebulaio_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "operation"},
	)

	// ObjectsTotal tracks total number of objects per bucket
	ObjectsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nebulaio_objects_total",
			Help: "Total number of objects per bucket",
		},
		[]string{"bucket"},
	)

	// BucketsTotal tracks total number of buckets
	BucketsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebulaio_buckets_total",
			Help: "Total number of buckets",
		},
	)

	// StorageBytesUsed tracks total storage bytes used
	StorageBytesUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebulaio_storage_bytes_used",
			Help: "Total storage bytes used",
		},
	)

	// ActiveConnections tracks number of active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebulaio_active_connections",
			Help: "Number of active connections",
		},
	)

	// MultipartUploadsActive tracks number of active multipart uploads
	MultipartUploadsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nebulaio_multipart_uploads_active",
			Help: "Number of active multipart uploads",
		},
	)

	// BytesReceived tracks total bytes received
	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebulaio_bytes_received_total",
			Help: "Total bytes received",
		},
	)

	// BytesSent tracks total bytes sent
	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebulaio_bytes_sent_total",
			Help: "Total bytes sent",
		},
	)

	// ErrorsTotal tracks total number of errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulaio_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"operation", "error_type"},
	)

	// S3OperationsTotal tracks S3 operations by type
	S3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulaio_s3_operations_total",
			Help: "Total number of S3 operations by type",
		},
		[]string{"operation", "bucket"},
	)
)

// RecordRequest records a request with its method, operation, status, and duration
func RecordRequest(method, operation string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	RequestsTotal.WithLabelValues(method, operation, statusStr).Inc()
	RequestDuration.WithLabelValues(method, operation).Observe(duration.Seconds())
}

// RecordS3Operation records an S3 operation
func RecordS3Operation(operation, bucket string) {
	S3OperationsTotal.WithLabelValues(operation, bucket).Inc()
}

// RecordError records an error
func RecordError(operation, errorType string) {
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// IncrementActiveConnections increments active connections counter
func IncrementActiveConnections() {
	ActiveConnections.Inc()
}

// DecrementActiveConnections decrements active connections counter
func DecrementActiveConnections() {
	ActiveConnections.Dec()
}

// AddBytesReceived adds to bytes received counter
func AddBytesReceived(bytes int64) {
	BytesReceived.Add(float64(bytes))
}

// AddBytesSent adds to bytes sent counter
func AddBytesSent(bytes int64) {
	BytesSent.Add(float64(bytes))
}

// SetStorageBytesUsed sets the total storage bytes used
func SetStorageBytesUsed(used int64) {
	StorageBytesUsed.Set(float64(used))
}

// SetBucketsTotal sets total number of buckets
func SetBucketsTotal(count int) {
	BucketsTotal.Set(float64(count))
}

// SetObjectsTotal sets total number of objects for a bucket
func SetObjectsTotal(bucket string, count int) {
	ObjectsTotal.WithLabelValues(bucket).Set(float64(count))
}

// SetMultipartUploadsActive sets number of active multipart uploads
func SetMultipartUploadsActive(count int) {
	MultipartUploadsActive.Set(float64(count))
}

// statusCodeToString converts HTTP status code to a string category
func statusCodeToString(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
