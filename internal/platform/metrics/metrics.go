package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the recorder.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	recordingsStartedTotal prometheus.Counter
	recordingsFailedTotal  prometheus.Counter
	activeRecordings       prometheus.Gauge
	usedPorts              prometheus.Gauge
	errorsTotal            prometheus.Counter
}

// New creates and registers Prometheus metrics for the recorder.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorder_requests_total",
		Help: "Total number of HTTP requests received",
	})
	recordingsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorder_recordings_started_total",
		Help: "Total number of captures successfully started",
	})
	recordingsFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorder_recordings_failed_total",
		Help: "Total number of captures that failed to start",
	})
	activeRecordings := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recorder_active_recordings",
		Help: "Number of captures currently running",
	})
	usedPorts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recorder_used_ports",
		Help: "Number of listener ports currently allocated",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorder_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		recordingsStartedTotal,
		recordingsFailedTotal,
		activeRecordings,
		usedPorts,
		errorsTotal,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		recordingsStartedTotal: recordingsStartedTotal,
		recordingsFailedTotal:  recordingsFailedTotal,
		activeRecordings:       activeRecordings,
		usedPorts:              usedPorts,
		errorsTotal:            errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncRecordingsStarted increments the started-captures counter.
func (m *Metrics) IncRecordingsStarted() {
	m.recordingsStartedTotal.Inc()
}

// IncRecordingsFailed increments the failed-captures counter.
func (m *Metrics) IncRecordingsFailed() {
	m.recordingsFailedTotal.Inc()
}

// IncActiveRecordings increments the running-captures gauge.
func (m *Metrics) IncActiveRecordings() {
	m.activeRecordings.Inc()
}

// DecActiveRecordings decrements the running-captures gauge.
func (m *Metrics) DecActiveRecordings() {
	m.activeRecordings.Dec()
}

// SetUsedPorts sets the allocated-ports gauge.
func (m *Metrics) SetUsedPorts(n int) {
	m.usedPorts.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. used ports).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
