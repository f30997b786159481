// Package webmetrics instruments the manager/worker/response-writer
// hot paths with Prometheus collectors (github.com/prometheus/client_golang).
// pkg/web never imports
// net/http, so callers mount promhttp.Handler() on their own mux and
// pass a *Recorder in as web.Config.Metrics (it implements
// web.MetricsRecorder directly).
package webmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder records server-runtime events into a fixed set of
// Prometheus collectors.
type Recorder struct {
	ActiveConnections prometheus.Gauge
	TotalRequests     prometheus.Counter
	RequestsByStatus  *prometheus.CounterVec
	WorkerPoolSize    prometheus.Gauge
	LockWaitSeconds   prometheus.Histogram
}

// NewRecorder constructs and registers a Recorder's collectors with
// reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fooweb_active_connections",
			Help: "Number of currently active connections.",
		}),
		TotalRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fooweb_requests_total",
			Help: "Total number of requests handled.",
		}),
		RequestsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fooweb_requests_by_status_total",
			Help: "Total number of requests handled, by status class.",
		}, []string{"class"}),
		WorkerPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fooweb_worker_pool_size",
			Help: "Current number of live workers.",
		}),
		LockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fooweb_resource_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a resource lock.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.ActiveConnections, r.TotalRequests, r.RequestsByStatus, r.WorkerPoolSize, r.LockWaitSeconds)
	return r
}

// StatusClass returns the "NxX" bucket label for a status code, e.g.
// 404 -> "4xx".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return string(rune('0'+code/100)) + "xx"
}

// IncRequestsByStatus implements web.MetricsRecorder.
func (r *Recorder) IncRequestsByStatus(code int) {
	r.TotalRequests.Inc()
	r.RequestsByStatus.WithLabelValues(StatusClass(code)).Inc()
}

// SetWorkerPoolSize implements web.MetricsRecorder.
func (r *Recorder) SetWorkerPoolSize(n int) {
	r.WorkerPoolSize.Set(float64(n))
}

// SetActiveConnections implements web.MetricsRecorder.
func (r *Recorder) SetActiveConnections(n int) {
	r.ActiveConnections.Set(float64(n))
}

// ObserveLockWait implements web.MetricsRecorder.
func (r *Recorder) ObserveLockWait(d time.Duration) {
	r.LockWaitSeconds.Observe(d.Seconds())
}
