package main

import (
	"net/http"
	"time"

	"github.com/CTAG07/Addressline/pkg/formatter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. Each server cycle
// registers them on its own registry so a restart never re-registers.
type Metrics struct {
	registry           *prometheus.Registry
	AddressesFormatted *prometheus.CounterVec
	LookupErrors       prometheus.Counter
	RenderDuration     *prometheus.HistogramVec
	FormatOverrides    prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		AddressesFormatted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "addressline_addresses_formatted_total",
			Help: "Total number of formatted addresses by country and format variant",
		}, []string{"country", "variant"}),
		LookupErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "addressline_lookup_errors_total",
			Help: "Total number of addresses rejected for an unknown country code",
		}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "addressline_render_duration_seconds",
			Help:    "Time spent formatting and rendering one address to HTML",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"display"}),
		FormatOverrides: factory.NewGauge(prometheus.GaugeOpts{
			Name: "addressline_format_overrides",
			Help: "Number of countries with a stored format override",
		}),
	}
}

// ObserveFormatted counts one formatted address.
func (m *Metrics) ObserveFormatted(el formatter.Element) {
	variant := "generic"
	if el.Local {
		variant = "local"
	}
	m.AddressesFormatted.WithLabelValues(el.CountryCode, variant).Inc()
}

// IncrementLookupErrors increments the lookup error counter by 1.
func (m *Metrics) IncrementLookupErrors() {
	m.LookupErrors.Inc()
}

// ObserveRender records the duration of one render since start.
func (m *Metrics) ObserveRender(display string, start time.Time) {
	m.RenderDuration.WithLabelValues(display).Observe(time.Since(start).Seconds())
}

// SetOverrides records the current number of format overrides.
func (m *Metrics) SetOverrides(n int) {
	m.FormatOverrides.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
