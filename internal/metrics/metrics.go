// Package metrics holds the Prometheus collectors of the fare-card server.
// Collectors live on a private registry owned by the App so that several
// servers (tests) can run in one process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farecard"

type Metrics struct {
	registry *prometheus.Registry

	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ActiveConnections prometheus.Gauge
	AcceptErrors      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Protocol requests handled, by verb and outcome.",
		}, []string{"verb", "outcome"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent executing a protocol request.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"verb"}),

		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Client connections currently being served.",
		}),

		AcceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Failed accepts on the protocol listener.",
		}),
	}
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(verb, outcome string, took time.Duration) {
	m.Requests.WithLabelValues(verb, outcome).Inc()
	m.RequestDuration.WithLabelValues(verb).Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
