// Package sim provides a deterministic, tick-driven city simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - state.go: CityState and its single-owner commit rule
//   - manager.go: the canonical tick order (stage → update → aggregate →
//     commit → validate)
//   - simcore.go: the tick loop, metrics, trace, and termination
//
// # Architecture
//
// One tick flows: SimCore builds a TickContext → PolicyEngine stages
// Decisions → CityManager runs every Subsystem against the same pre-commit
// snapshot → the deltas and decision effects aggregate into one CityDelta →
// one atomic commit → invariant validation → metrics, trace record, event
// flush.
//
// Subsystems never see each other's same-tick output; cross-subsystem
// influence arrives with exactly one tick of lag through committed state.
// All randomness flows through the TickContext's RandomService, so a run is
// a pure function of (scenario, seed): repeating it produces byte-identical
// trace output.
//
// # Key Interfaces
//
// The extension points are small:
//   - Subsystem: propose a typed delta from a state snapshot
//   - Policy: emit ordered decisions from start-of-tick state
//   - Handler: observe namespaced events (read-only)
//
// The sub-package sim/trace holds the structured per-tick records and run
// summaries.
package sim
