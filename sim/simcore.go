// SimCore drives the tick loop: build TickContext, run the CityManager,
// record metrics, append the structured trace record, flush the event bus,
// check termination. Cancellation is honored only at tick boundaries; a tick
// always completes or the whole run halts fatally.

package sim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jm0rt1/city-sim-sub002/sim/trace"
)

// Options are the deployment-level knobs for a run. Scenario parameters
// always win for simulation concerns; these cover everything else.
type Options struct {
	Strict      bool
	Parallel    bool
	TraceWriter io.Writer // JSONL trace destination; nil collects in memory
	SideWriter  io.Writer // metrics side channel; nil discards
	Exporter    *Exporter // optional live gauge exporter
}

// RunError wraps a fatal mid-run failure with everything needed to
// reproduce it: seed, tick index, and the last valid committed state.
type RunError struct {
	Tick      int64
	Seed      int64
	LastState CityState
	Err       error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run halted at tick %d (seed %d): %v", e.Tick, e.Seed, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// SimCore owns the loop and the run-scoped services.
type SimCore struct {
	scenario Scenario
	manager  *CityManager
	metrics  *MetricsCollector
	bus      *EventBus
	random   *RandomService
	policies []Policy
	trace    *trace.RunTrace
	exporter *Exporter
}

// NewSimCore validates the scenario and assembles the engine. All
// configuration failures surface here, before tick 0.
func NewSimCore(scenario Scenario, opts Options) (*SimCore, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	policies, err := scenario.ResolvePolicies()
	if err != nil {
		return nil, err
	}

	side := opts.SideWriter
	if side == nil {
		side = io.Discard
	}

	registry := NewRegistry(NewFinance(), NewPopulation(), NewTransport())
	manager := NewCityManager(scenario.InitialCityState(), registry, NewPolicyEngine(policies),
		WithStrictMode(opts.Strict), WithParallelSubsystems(opts.Parallel))

	return &SimCore{
		scenario: scenario,
		manager:  manager,
		metrics:  NewMetricsCollector(side),
		bus:      NewEventBus(),
		random:   NewRandomService(*scenario.Seed),
		policies: policies,
		trace:    trace.NewRunTrace(opts.TraceWriter),
		exporter: opts.Exporter,
	}, nil
}

// Metrics returns the run's metrics collector.
func (c *SimCore) Metrics() *MetricsCollector { return c.metrics }

// Trace returns the run's structured trace.
func (c *SimCore) Trace() *trace.RunTrace { return c.trace }

// Bus returns the run's event bus, for observer subscription before Run.
func (c *SimCore) Bus() *EventBus { return c.bus }

// State returns the last committed state.
func (c *SimCore) State() CityState { return c.manager.State() }

// Run executes ticks until the horizon, a fatal error, or cancellation.
// Returns the number of completed ticks and, on fatal error, a RunError
// carrying the reproduction context.
func (c *SimCore) Run(ctx context.Context) (int64, error) {
	logrus.Infof("starting run: scenario=%s seed=%d horizon=%d policies=%d",
		c.scenario.ID, *c.scenario.Seed, c.scenario.Horizon, len(c.policies))

	var completed int64
	for tick := int64(0); tick < c.scenario.Horizon; tick++ {
		select {
		case <-ctx.Done():
			logrus.Infof("[tick %07d] run cancelled at tick boundary", tick)
			return completed, nil
		default:
		}

		tctx := NewTickContext(tick, c.random, c.bus, c.policies)
		start := time.Now()
		result, err := c.manager.RunTick(tctx)
		elapsed := time.Since(start)

		if err != nil {
			// The bus may hold events from the failed tick; deliver them so
			// observers see the violation before the halt. The failed tick
			// itself is not recorded: only committed state enters the trace.
			c.flush(tick)
			return completed, &RunError{
				Tick:      tick,
				Seed:      *c.scenario.Seed,
				LastState: c.manager.State(),
				Err:       err,
			}
		}

		c.recordTick(result, tick, elapsed)
		if err := c.bus.Publish(Event{Name: EventTickComplete, Tick: tick}); err != nil {
			logrus.Warnf("publishing tick_complete: %v", err)
		}
		c.flush(tick)
		completed++

		logrus.Debugf("[tick %07d] committed: pop=%d budget=%.2f happiness=%.2f",
			tick, result.State.Population, result.State.Budget, result.State.Happiness)
	}

	logrus.Infof("run complete: %d ticks", completed)
	return completed, nil
}

// recordTick writes the mandatory metric set and the structured trace record
// for one tick. Neither path may halt the run; failures go to side channels.
func (c *SimCore) recordTick(result TickResult, tick int64, elapsed time.Duration) {
	if result.Delta == nil {
		return
	}
	d, s := result.Delta, result.State

	c.metrics.Record(MetricTickDuration, float64(elapsed.Microseconds()), tick)
	c.metrics.RecordDict(map[string]float64{
		MetricBudget:          s.Budget,
		MetricRevenue:         d.Revenue(),
		MetricExpenses:        d.Expenses(),
		MetricPopulation:      float64(s.Population),
		MetricHappiness:       s.Happiness,
		MetricBirths:          d.Add(FieldBirths),
		MetricDeaths:          d.Add(FieldDeaths),
		MetricMigrationIn:     d.Add(FieldMigrationIn),
		MetricMigrationOut:    d.Add(FieldMigrationOut),
		MetricCoverageWater:   s.ServiceCoverage.Water,
		MetricCoverageElec:    s.ServiceCoverage.Electricity,
		MetricCoverageHousing: s.ServiceCoverage.Housing,
		MetricQualityRoads:    s.InfrastructureQuality.Roads,
		MetricQualityUtils:    s.InfrastructureQuality.Utilities,
		MetricCongestion:      s.CongestionIndex,
	}, tick)

	if c.exporter != nil {
		c.exporter.Observe(c.metrics, tick)
	}

	violations := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		violations = append(violations, v.Name)
	}
	decisions := d.DecisionIDs
	if decisions == nil {
		decisions = []string{}
	}
	rec := trace.TickRecord{
		Tick:         tick,
		Budget:       s.Budget,
		Revenue:      d.Revenue(),
		Expenses:     d.Expenses(),
		Population:   s.Population,
		Births:       int64(d.Add(FieldBirths)),
		Deaths:       int64(d.Add(FieldDeaths)),
		MigrationIn:  int64(d.Add(FieldMigrationIn)),
		MigrationOut: int64(d.Add(FieldMigrationOut)),
		Happiness:    s.Happiness,
		CovWater:     s.ServiceCoverage.Water,
		CovElec:      s.ServiceCoverage.Electricity,
		CovHousing:   s.ServiceCoverage.Housing,
		QualRoads:    s.InfrastructureQuality.Roads,
		QualUtils:    s.InfrastructureQuality.Utilities,
		Congestion:   s.CongestionIndex,
		Decisions:    decisions,
		Violations:   violations,
	}
	if err := c.trace.Append(rec); err != nil {
		logrus.Warnf("trace append failed at tick %d: %v", tick, err)
	}
}

// flush dispatches the tick's events. Handler failures are logged and the
// run continues; observability is never on the critical path.
func (c *SimCore) flush(tick int64) {
	for _, err := range c.bus.Flush() {
		logrus.Warnf("[tick %07d] event dispatch: %v", tick, err)
	}
}
