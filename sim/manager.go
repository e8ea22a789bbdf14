// CityManager: the per-tick orchestrator.
//
// Canonical tick order, fixed and not reorderable by any collaborator:
//  1. Stage decisions from the PolicyEngine.
//  2. Run each subsystem against the pre-commit snapshot (identical for all).
//  3. Aggregate staged decision effects and all deltas per the ownership
//     table.
//  4. Commit the aggregate atomically; advance the tick index.
//  5. Validate invariants against the post-commit state.

package sim

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// CityManager exclusively owns the live CityState. Everything else sees
// snapshots.
type CityManager struct {
	state    CityState
	registry *Registry
	engine   *PolicyEngine
	strict   bool
	parallel bool
}

// ManagerOption configures a CityManager.
type ManagerOption func(*CityManager)

// WithStrictMode makes any invariant violation fatal.
func WithStrictMode(strict bool) ManagerOption {
	return func(m *CityManager) { m.strict = strict }
}

// WithParallelSubsystems fans subsystem updates out across goroutines. Safe
// because every subsystem reads the same immutable snapshot and writes only
// its own delta; aggregation stays single-writer and ordered either way.
func WithParallelSubsystems(parallel bool) ManagerOption {
	return func(m *CityManager) { m.parallel = parallel }
}

// NewCityManager creates the orchestrator over an initial state.
func NewCityManager(initial CityState, registry *Registry, engine *PolicyEngine, opts ...ManagerOption) *CityManager {
	m := &CityManager{state: initial, registry: registry, engine: engine}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the committed state.
func (m *CityManager) State() CityState {
	return m.state.Snapshot()
}

// TickResult reports one committed tick.
type TickResult struct {
	Delta      *CityDelta
	State      CityState // post-commit snapshot
	Violations []InvariantViolation
}

// RunTick executes one full tick. On any fatal error the live state is left
// exactly as the last successful commit; a tick either commits whole or not
// at all.
func (m *CityManager) RunTick(ctx TickContext) (TickResult, error) {
	snapshot := m.state.Snapshot()
	delta := NewCityDelta(ctx.Tick)

	// 1. Stage decisions. Conflicts are fatal before any subsystem runs.
	decisions, err := m.engine.Evaluate(snapshot, ctx)
	if err != nil {
		return TickResult{}, err
	}
	for _, d := range decisions {
		fds, err := d.Contributions()
		if err != nil {
			return TickResult{}, err
		}
		if err := delta.MergeAll(fds); err != nil {
			return TickResult{}, fmt.Errorf("staging decision %s: %w", d.ID(), err)
		}
		delta.DecisionIDs = append(delta.DecisionIDs, d.ID())
	}

	// 2. Run subsystems against the identical pre-commit snapshot.
	deltas, err := m.runSubsystems(snapshot, ctx)
	if err != nil {
		return TickResult{}, err
	}

	// 3. Aggregate in canonical order.
	for _, sd := range deltas {
		if err := delta.MergeAll(sd.Contributions()); err != nil {
			return TickResult{}, fmt.Errorf("aggregating %s delta: %w", sd.Subsystem(), err)
		}
	}

	// 4. Atomic commit.
	pre := m.state.Snapshot()
	delta.apply(&m.state)

	// 5. Post-commit validation. Lenient mode clamps the live state; strict
	// mode halts the run with the first fatal violation.
	violations := validateCommit(&pre, &m.state, delta, m.strict)
	for _, v := range violations {
		logrus.Warnf("%s", v)
		if pubErr := ctx.Bus.Publish(Event{
			Name: EventInvariantViolation,
			Tick: ctx.Tick,
			Payload: map[string]float64{
				"observed": v.Observed,
				"expected": v.Expected,
			},
		}); pubErr != nil {
			logrus.Warnf("publishing violation event: %v", pubErr)
		}
	}

	if fatal := firstFatal(violations); fatal != nil {
		// Roll the commit back so the live state is the last valid one. No
		// update events either: nothing this tick produced became durable.
		m.state = pre
		return TickResult{Delta: delta, State: pre, Violations: violations},
			&InvariantError{Violation: *fatal}
	}

	m.publishUpdates(ctx, deltas, delta)
	return TickResult{Delta: delta, State: m.state.Snapshot(), Violations: violations}, nil
}

// runSubsystems executes every registered subsystem over the snapshot and
// returns deltas in canonical order. An unexpected subsystem failure is
// wrapped with its name and tick and halts the run.
func (m *CityManager) runSubsystems(snapshot CityState, ctx TickContext) ([]SubsystemDelta, error) {
	subs := m.registry.Subsystems()
	deltas := make([]SubsystemDelta, len(subs))
	errs := make([]error, len(subs))

	run := func(i int) {
		sd, err := subs[i].Update(snapshot, ctx)
		if err != nil {
			errs[i] = &SubsystemError{Subsystem: subs[i].Name(), TickIndex: ctx.Tick, Err: err}
			return
		}
		deltas[i] = sd
	}

	if m.parallel {
		// Derive every subsystem stream up front: Stream caches lazily and
		// the cache map must not grow concurrently.
		for _, sub := range subs {
			ctx.Random.Stream(sub.Name())
		}
		var wg sync.WaitGroup
		for i := range subs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range subs {
			run(i)
		}
	}

	for i, err := range errs {
		if err != nil {
			logrus.Errorf("subsystem %s failed at tick %d: %v", subs[i].Name(), ctx.Tick, err)
			return nil, err
		}
	}
	return deltas, nil
}

// publishUpdates queues the required observability events: one
// "<subsystem>.updated" per active subsystem, and the finance budget signal.
func (m *CityManager) publishUpdates(ctx TickContext, deltas []SubsystemDelta, delta *CityDelta) {
	for _, sd := range deltas {
		payload := make(map[string]float64, 4)
		for _, fd := range sd.Contributions() {
			payload[fd.Field] = fd.Value
		}
		if err := ctx.Bus.Publish(Event{Name: UpdatedEvent(sd.Subsystem()), Tick: ctx.Tick, Payload: payload}); err != nil {
			logrus.Warnf("publishing %s update: %v", sd.Subsystem(), err)
		}
	}
	if err := ctx.Bus.Publish(Event{
		Name: "finance.budget_updated",
		Tick: ctx.Tick,
		Payload: map[string]float64{
			"budget":   m.state.Budget,
			"revenue":  delta.Revenue(),
			"expenses": delta.Expenses(),
		},
	}); err != nil {
		logrus.Warnf("publishing budget update: %v", err)
	}
}
