// Tracks per-tick simulation metrics under namespaced keys.

package sim

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// Mandatory metric keys, recorded every tick regardless of which optional
// subsystems are active.
const (
	MetricTickDuration    = "sim.tick_duration_us"
	MetricBudget          = "finance.budget"
	MetricRevenue         = "finance.revenue"
	MetricExpenses        = "finance.expenses"
	MetricPopulation      = "population.count"
	MetricHappiness       = "population.happiness"
	MetricBirths          = "population.births"
	MetricDeaths          = "population.deaths"
	MetricMigrationIn     = "population.migration_in"
	MetricMigrationOut    = "population.migration_out"
	MetricCoverageWater   = "coverage.water"
	MetricCoverageElec    = "coverage.electricity"
	MetricCoverageHousing = "coverage.housing"
	MetricQualityRoads    = "quality.roads"
	MetricQualityUtils    = "quality.utilities"
	MetricCongestion      = "transport.congestion_index"
)

// MandatoryMetrics is the fixed minimum set every tick must record.
var MandatoryMetrics = []string{
	MetricTickDuration,
	MetricBudget, MetricRevenue, MetricExpenses,
	MetricPopulation, MetricHappiness,
	MetricBirths, MetricDeaths, MetricMigrationIn, MetricMigrationOut,
	MetricCoverageWater, MetricCoverageElec, MetricCoverageHousing,
	MetricQualityRoads, MetricQualityUtils,
	MetricCongestion,
}

// MetricsCollector accumulates namespaced metric series keyed by tick index.
// Recording failures go to a dedicated side-channel logger and never halt
// the simulation.
type MetricsCollector struct {
	series map[string]map[int64]float64
	side   *logrus.Logger
}

// NewMetricsCollector creates a collector whose side channel writes to w.
func NewMetricsCollector(w io.Writer) *MetricsCollector {
	side := logrus.New()
	side.SetOutput(w)
	side.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &MetricsCollector{
		series: make(map[string]map[int64]float64),
		side:   side,
	}
}

// Record stores one value for key at the given tick. A malformed key or a
// duplicate write for the same (key, tick) is reported on the side channel
// and otherwise ignored.
func (m *MetricsCollector) Record(key string, value float64, tick int64) {
	if key == "" {
		m.side.Warnf("metrics: empty key at tick %d", tick)
		return
	}
	s, ok := m.series[key]
	if !ok {
		s = make(map[int64]float64)
		m.series[key] = s
	}
	if _, dup := s[tick]; dup {
		m.side.Warnf("metrics: duplicate record for %s at tick %d", key, tick)
		return
	}
	s[tick] = value
}

// RecordDict stores every entry of the mapping at the given tick.
func (m *MetricsCollector) RecordDict(values map[string]float64, tick int64) {
	// Sorted key order so side-channel output is stable across runs.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Record(k, values[k], tick)
	}
}

// Value returns the recorded value for (key, tick).
func (m *MetricsCollector) Value(key string, tick int64) (float64, bool) {
	s, ok := m.series[key]
	if !ok {
		return 0, false
	}
	v, ok := s[tick]
	return v, ok
}

// Series returns the full series for a key as a tick-ordered slice of values
// from tick 0 through the last recorded tick. Missing ticks read as 0.
func (m *MetricsCollector) Series(key string) []float64 {
	s, ok := m.series[key]
	if !ok || len(s) == 0 {
		return nil
	}
	var last int64
	for t := range s {
		if t > last {
			last = t
		}
	}
	out := make([]float64, last+1)
	for t, v := range s {
		out[t] = v
	}
	return out
}

// Print displays final aggregates at the end of a run.
func (m *MetricsCollector) Print(w io.Writer, horizon int64) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Ticks simulated      : %d\n", horizon)
	for _, key := range []string{MetricPopulation, MetricBudget, MetricHappiness, MetricCongestion} {
		series := m.Series(key)
		if len(series) == 0 {
			continue
		}
		fmt.Fprintf(w, "%-21s: final %.4f, mean %.4f\n", key, series[len(series)-1], mean(series))
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
