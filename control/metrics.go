// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus counters for one engine instance. Each Metrics owns its own
// registry, so several engines in a process never collide.

package control

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hello"

// Metrics holds the collectors updated by an engine.
type Metrics struct {
	registry *prometheus.Registry

	RequestsSent      prometheus.Counter
	Retries           prometheus.Counter
	ResponsesAccepted prometheus.Counter
	ResponsesRejected prometheus.Counter
	RequestsReceived  prometheus.Counter
	AnswersSent       prometheus.Counter
	Backpressure      prometheus.Counter
	TransientErrors   prometheus.Counter
	Outstanding       prometheus.Gauge
}

// NewMetrics builds collectors labelled with engine and registers them.
func NewMetrics(engine string) *Metrics {
	labels := prometheus.Labels{"engine": engine}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		RequestsSent:      counter("requests_sent_total", "Requests sent by client workers, retries included."),
		Retries:           counter("retries_total", "Requests resent for an index already sent."),
		ResponsesAccepted: counter("responses_accepted_total", "Responses that verified against the outstanding request."),
		ResponsesRejected: counter("responses_rejected_total", "Responses that did not contain the outstanding request."),
		RequestsReceived:  counter("requests_received_total", "Requests received by the server."),
		AnswersSent:       counter("answers_sent_total", "Answers sent by the server."),
		Backpressure:      counter("backpressure_total", "Reads deferred because every buffer slot was borrowed."),
		TransientErrors:   counter("transient_errors_total", "Send or receive failures that were logged and skipped."),
		Outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "outstanding_requests",
			Help:        "Requests received but not yet answered.",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.RequestsSent, m.Retries, m.ResponsesAccepted, m.ResponsesRejected,
		m.RequestsReceived, m.AnswersSent, m.Backpressure, m.TransientErrors,
		m.Outstanding,
	)
	return m
}

// Registry returns the registry holding this engine's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherers merges the registries of several engines.
func Gatherers(ms ...*Metrics) prometheus.Gatherers {
	out := make(prometheus.Gatherers, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.registry)
	}
	return out
}
