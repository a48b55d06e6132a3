package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Writer metrics
	CommitAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcore_commit_attempts_total",
			Help: "Total number of write transaction attempts by outcome",
		},
		[]string{"outcome"},
	)

	CommitRetries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailcore_commit_retries",
			Help:    "Number of retries consumed per successful write",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 20},
		},
	)

	WriteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailcore_write_duration_seconds",
			Help:    "Time taken to commit a write batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Allocator metrics
	AllocatorCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailcore_allocator_collisions_total",
			Help: "Total number of document id reservation collisions observed during allocation",
		},
	)

	AllocatorReservationsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailcore_allocator_reservations_expired_total",
			Help: "Total number of expired reservation rows reclaimed by the allocator",
		},
	)

	// Blob metrics
	BlobCompressionRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailcore_blob_compression_ratio",
			Help:    "Ratio of compressed size to uncompressed size for stored blobs",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	BlobOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailcore_blob_operation_duration_seconds",
			Help:    "Time taken to perform a blob store operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "backend"},
	)

	BlobBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcore_blob_bytes_total",
			Help: "Total bytes read or written through the blob store by direction",
		},
		[]string{"direction"},
	)

	// ACL metrics
	AclResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailcore_acl_resolution_duration_seconds",
			Help:    "Time taken to resolve an ACL query in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AclRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailcore_acl_refreshes_total",
			Help: "Total number of acl_set/acl_patch operations that changed effective permissions",
		},
	)

	// Notifier metrics
	PrincipalRevisionBumpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailcore_principal_revision_bumps_total",
			Help: "Total number of principal revision counter increments",
		},
	)

	NotifierSubscribersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailcore_notifier_subscribers_active",
			Help: "Current number of active notifier subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(CommitAttemptsTotal)
	prometheus.MustRegister(CommitRetries)
	prometheus.MustRegister(WriteLatency)
	prometheus.MustRegister(AllocatorCollisions)
	prometheus.MustRegister(AllocatorReservationsExpired)
	prometheus.MustRegister(BlobCompressionRatio)
	prometheus.MustRegister(BlobOperationDuration)
	prometheus.MustRegister(BlobBytesTotal)
	prometheus.MustRegister(AclResolutionDuration)
	prometheus.MustRegister(AclRefreshesTotal)
	prometheus.MustRegister(PrincipalRevisionBumpsTotal)
	prometheus.MustRegister(NotifierSubscribersActive)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
