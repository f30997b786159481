package web

import "time"

// MetricsRecorder receives lightweight runtime signals from the
// response pipeline, the worker pool, and the resource coordinator. A
// nil Recorder in Config disables all of it; Config.applyDefaults
// substitutes noopMetrics so call sites never need a nil check.
type MetricsRecorder interface {
	IncRequestsByStatus(code int)
	SetWorkerPoolSize(n int)
	SetActiveConnections(n int)
	ObserveLockWait(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncRequestsByStatus(int)       {}
func (noopMetrics) SetWorkerPoolSize(int)         {}
func (noopMetrics) SetActiveConnections(int)      {}
func (noopMetrics) ObserveLockWait(time.Duration) {}
