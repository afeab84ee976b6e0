// Package metrics holds the Prometheus collectors for the server. All methods
// are safe on a nil *Metrics so tests can skip instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_hub"

type Metrics struct {
	registry         *prometheus.Registry
	upstreamRequests *prometheus.CounterVec
	authAttempts     *prometheus.CounterVec
	engagementWrites *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Recipe catalog calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login and registration attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		engagementWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_writes_total",
			Help:      "Rating and favorite writes by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.authAttempts,
		m.engagementWrites,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveUpstream(endpoint string, err error) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, outcome(err)).Inc()
}

func (m *Metrics) ObserveAuth(kind string, err error) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) ObserveEngagement(kind string, err error) {
	if m == nil {
		return
	}
	m.engagementWrites.WithLabelValues(kind, outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
