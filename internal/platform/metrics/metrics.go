// Package metrics exposes timeline and server counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry. It satisfies
// timeline.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	passesTotal   prometheus.Counter
	abortedTotal  prometheus.Counter
	passDuration  prometheus.Histogram
	primitives    prometheus.Gauge
	gesturesTotal *prometheus.CounterVec
	reloadsTotal  *prometheus.CounterVec
	bands         prometheus.Gauge
	requestsTotal prometheus.Counter
	requestErrors prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tlv_render_passes_total",
			Help: "Render passes run, aborted ones included",
		}),
		abortedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tlv_render_passes_aborted_total",
			Help: "Render passes aborted by a failing band",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tlv_render_pass_duration_seconds",
			Help:    "Duration of render passes",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		primitives: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tlv_scene_primitives",
			Help: "Primitives in the last rendered scene",
		}),
		gesturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tlv_gestures_total",
			Help: "Recognised gestures by kind",
		}, []string{"kind"}),
		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tlv_data_reloads_total",
			Help: "Band data reloads by outcome",
		}, []string{"outcome"}),
		bands: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tlv_bands",
			Help: "Bands in the current data snapshot",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tlv_http_requests_total",
			Help: "HTTP requests served",
		}),
		requestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tlv_http_errors_total",
			Help: "HTTP responses with status 4xx or 5xx",
		}),
	}
	m.registry.MustRegister(
		m.passesTotal, m.abortedTotal, m.passDuration, m.primitives,
		m.gesturesTotal, m.reloadsTotal, m.bands, m.requestsTotal, m.requestErrors,
	)
	return m
}

// ObservePass records one render pass.
func (m *Metrics) ObservePass(d time.Duration, primitives int, err error) {
	m.passesTotal.Inc()
	m.passDuration.Observe(d.Seconds())
	if err != nil {
		m.abortedTotal.Inc()
		return
	}
	m.primitives.Set(float64(primitives))
}

// ObserveGesture counts a gesture such as "pan", "grab" or "wheel".
func (m *Metrics) ObserveGesture(kind string) {
	m.gesturesTotal.WithLabelValues(kind).Inc()
}

// ObserveReload records a data reload and the band count it produced.
func (m *Metrics) ObserveReload(bands int, err error) {
	if err != nil {
		m.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.reloadsTotal.WithLabelValues("ok").Inc()
	m.bands.Set(float64(bands))
}

// Handler serves the registry. updateGauges, if set, runs before each
// scrape.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
