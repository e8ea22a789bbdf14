package sim

// TickContext bundles everything a policy or subsystem may touch during one
// tick: the tick index, the RandomService, the EventBus, and the resolved
// policy set. It is constructed fresh by SimCore each tick and never mutated
// afterwards; its lifetime is exactly one tick.
//
// TickContext is the only path to randomness. Subsystems draw from
// Random.Stream(<their name>) so sibling draw counts cannot interleave.
type TickContext struct {
	Tick     int64
	Random   *RandomService
	Bus      *EventBus
	Policies []Policy
}

// NewTickContext builds the context for one tick.
func NewTickContext(tick int64, random *RandomService, bus *EventBus, policies []Policy) TickContext {
	return TickContext{
		Tick:     tick,
		Random:   random,
		Bus:      bus,
		Policies: policies,
	}
}
