// Package metrics exposes label engine counters to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketlabels"

// Collector records pass and edit metrics on its own registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	passes      *prometheus.CounterVec
	passLatency *prometheus.HistogramVec
	visible     prometheus.Gauge
	suppressed  prometheus.Gauge
	overrideOps *prometheus.CounterVec
	zoomToggles *prometheus.CounterVec
	coalesced   prometheus.Counter
}

// New creates a collector with Go and process metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Layout passes run, by placement strategy.",
		}, []string{"strategy"}),
		passLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Layout pass duration, by placement strategy.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"strategy"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_labels",
			Help:      "Labels visible after the last pass.",
		}),
		suppressed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suppressed_duplicates",
			Help:      "Duplicate labels suppressed after the last pass.",
		}),
		overrideOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "override_operations_total",
			Help:      "Override store operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		zoomToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zoom_gate_toggles_total",
			Help:      "Graphics toggled by zoom gating, by layer.",
		}, []string{"layer"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_triggers_total",
			Help:      "Triggers that arrived during a running pass.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.passes, c.passLatency, c.visible, c.suppressed, c.overrideOps, c.zoomToggles, c.coalesced,
	)
	return c
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObservePass records one completed layout pass.
func (c *Collector) ObservePass(strategy string, d time.Duration, visible, suppressed int) {
	if c == nil {
		return
	}
	c.passes.WithLabelValues(strategy).Inc()
	c.passLatency.WithLabelValues(strategy).Observe(d.Seconds())
	c.visible.Set(float64(visible))
	c.suppressed.Set(float64(suppressed))
}

// ObserveOverride records an override store operation.
func (c *Collector) ObserveOverride(op string, success bool) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "failed"
	}
	c.overrideOps.WithLabelValues(op, outcome).Inc()
}

// ObserveZoomToggles records graphics toggled by a zoom gate change.
func (c *Collector) ObserveZoomToggles(layer string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.zoomToggles.WithLabelValues(layer).Add(float64(n))
}

// ObserveCoalesced records a trigger folded into a follow-up pass.
func (c *Collector) ObserveCoalesced() {
	if c == nil {
		return
	}
	c.coalesced.Inc()
}
