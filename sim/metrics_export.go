// Prometheus bridge for live observation of a running simulation. The
// exporter mirrors the mandatory metric set as gauges; it is purely an
// observer and plays no part in run semantics or determinism.

package sim

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter publishes the latest tick's mandatory metrics as prometheus
// gauges on its own registry.
type Exporter struct {
	registry *prometheus.Registry
	tick     prometheus.Gauge
	gauges   map[string]prometheus.Gauge
}

// NewExporter builds an exporter with one gauge per mandatory metric.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		registry: reg,
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "citysim",
			Name:      "current_tick",
			Help:      "Index of the most recently committed tick.",
		}),
		gauges: make(map[string]prometheus.Gauge, len(MandatoryMetrics)),
	}
	reg.MustRegister(e.tick)
	for _, key := range MandatoryMetrics {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "citysim",
			Name:      promName(key),
			Help:      "Simulation metric " + key + ".",
		})
		reg.MustRegister(g)
		e.gauges[key] = g
	}
	return e
}

// Registry exposes the exporter's registry for an HTTP handler.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe updates every gauge from the collector's values for the tick.
func (e *Exporter) Observe(m *MetricsCollector, tick int64) {
	e.tick.Set(float64(tick))
	for key, g := range e.gauges {
		if v, ok := m.Value(key, tick); ok {
			g.Set(v)
		}
	}
}

// promName converts a namespaced metric key to a prometheus metric name.
func promName(key string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(key)
}
