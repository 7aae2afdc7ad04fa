package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the limiter collectors on a private registry.
type Metrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	errors    prometheus.Counter
}

// NewMetrics registers the collectors. clients is sampled on every scrape.
func NewMetrics(clients func() int) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fixedwindow",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by outcome.",
		}, []string{"outcome"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixedwindow",
			Name:      "store_errors_total",
			Help:      "Checks that failed open because the store returned an error.",
		}),
	}

	reg.MustRegister(
		m.decisions,
		m.errors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if clients != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "fixedwindow",
			Name:      "tracked_clients",
			Help:      "Client entries held in the registry. Entries are never evicted.",
		}, func() float64 { return float64(clients()) }))
	}
	return m
}

func (m *Metrics) ObserveDecision(admitted bool) {
	if m == nil {
		return
	}
	outcome := "admitted"
	if !admitted {
		outcome = "rejected"
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStoreError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
