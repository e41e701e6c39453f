// Package metrics provides Prometheus metrics for an inactivity report run.
//
// The report is a batch job, so metrics are exported once at the end of a run
// either to a node_exporter textfile or to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName groups pushed metrics on the Pushgateway.
const JobName = "inactivity_report"

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	ClassifiedTotal    *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
	LastRunDuration    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inactivity_api_requests_total",
				Help: "Total number of wiki API requests by endpoint and status.",
			},
			[]string{"endpoint", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inactivity_api_request_duration_seconds",
				Help:    "Wiki API request duration by endpoint.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ClassifiedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inactivity_users_classified_total",
				Help: "Role holders classified, by role and result.",
			},
			[]string{"role", "result"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inactivity_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inactivity_last_run_timestamp_seconds",
				Help: "Unix time the last report run finished.",
			},
		),
		LastRunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inactivity_last_run_duration_seconds",
				Help: "Wall time of the last report run.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.APIRequestsTotal)
	reg.MustRegister(m.APIRequestDuration)
	reg.MustRegister(m.ClassifiedTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.LastRunTimestamp)
	reg.MustRegister(m.LastRunDuration)

	return m
}

// ObserveRequest records one API round trip.
func (m *Metrics) ObserveRequest(endpoint, status string, elapsed time.Duration) {
	m.APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordClassification counts one role holder as active or inactive.
func (m *Metrics) RecordClassification(role string, active bool) {
	result := "inactive"
	if active {
		result = "active"
	}
	m.ClassifiedTotal.WithLabelValues(role, result).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

// FinishRun stamps the completion time and duration of a run.
func (m *Metrics) FinishRun(started, finished time.Time) {
	m.LastRunTimestamp.Set(float64(finished.Unix()))
	m.LastRunDuration.Set(finished.Sub(started).Seconds())
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Push sends all metrics to the Pushgateway at url, replacing the job's
// previous group.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if err := push.New(url, JobName).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
