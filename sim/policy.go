// Policy evaluation and decision staging.
//
// Policies are pure functions of start-of-tick state and TickContext. Any
// randomness they need comes from the context's RandomService; nothing else.
// The engine sorts the decisions they emit by (priority ascending,
// registration order ascending) so ties are broken by registration order,
// never by map iteration.

package sim

import (
	"fmt"
	"sort"
)

// DecisionKind identifies what a decision does to the state.
type DecisionKind string

const (
	DecisionSetTaxRate     DecisionKind = "set_tax_rate"
	DecisionBuildFacility  DecisionKind = "build_facility"
	DecisionBuildHousing   DecisionKind = "build_housing"
	DecisionDisasterStrike DecisionKind = "disaster_strike"
	DecisionDisasterRelief DecisionKind = "disaster_relief"
)

// Decision is a typed instruction produced by policy evaluation. Slot names
// the state target it acts on; two decisions that Set the same slot to
// different values are mutually exclusive and fail staging.
type Decision struct {
	Kind     DecisionKind
	Slot     string
	Priority int
	PolicyID string
	Params   map[string]float64

	// regOrder is assigned by the engine during collection and is the
	// deterministic tie-breaker for equal priorities.
	regOrder int
}

// ID returns a stable identifier for logs and trace records.
func (d Decision) ID() string {
	return fmt.Sprintf("%s/%s@%s", d.PolicyID, d.Kind, d.Slot)
}

// Policy is a registered decision producer. Implementations must not mutate
// the state they are given and must draw randomness only through ctx.Random.
type Policy interface {
	ID() string
	Evaluate(state CityState, ctx TickContext) ([]Decision, error)
}

// PolicyEngine evaluates registered policies in registration order and
// produces one deterministically ordered decision list per tick.
type PolicyEngine struct {
	policies []Policy
}

// NewPolicyEngine builds an engine over the given policies. Registration
// order is the order of the slice and is part of run semantics.
func NewPolicyEngine(policies []Policy) *PolicyEngine {
	return &PolicyEngine{policies: policies}
}

// Policies returns the registered policy set.
func (e *PolicyEngine) Policies() []Policy {
	return e.policies
}

// Evaluate runs every policy against the start-of-tick state and returns the
// staged decision list sorted by (priority, registration order). A conflict
// between staged decisions is fatal and reported before any subsystem runs.
func (e *PolicyEngine) Evaluate(state CityState, ctx TickContext) ([]Decision, error) {
	var staged []Decision
	for _, p := range e.policies {
		decisions, err := p.Evaluate(state, ctx)
		if err != nil {
			return nil, fmt.Errorf("policy %s at tick %d: %w", p.ID(), ctx.Tick, err)
		}
		for _, d := range decisions {
			d.regOrder = len(staged)
			staged = append(staged, d)
		}
	}

	sort.SliceStable(staged, func(i, j int) bool {
		if staged[i].Priority != staged[j].Priority {
			return staged[i].Priority < staged[j].Priority
		}
		return staged[i].regOrder < staged[j].regOrder
	})

	if err := detectConflicts(staged, ctx.Tick); err != nil {
		return nil, err
	}
	return staged, nil
}

// detectConflicts rejects mutually exclusive decisions: two absolute sets of
// the same slot with different values. Additive decisions on a shared slot
// compose and are applied in staged order.
func detectConflicts(decisions []Decision, tick int64) error {
	type setter struct {
		id    string
		value float64
	}
	seen := make(map[string]setter)
	for _, d := range decisions {
		if !d.Kind.isAbsoluteSet() {
			continue
		}
		v := d.Params["value"]
		if prev, ok := seen[d.Slot]; ok {
			if prev.value != v {
				return &PolicyConflictError{
					Slot:      d.Slot,
					FirstID:   prev.id,
					SecondID:  d.ID(),
					TickIndex: tick,
				}
			}
			continue
		}
		seen[d.Slot] = setter{id: d.ID(), value: v}
	}
	return nil
}

func (k DecisionKind) isAbsoluteSet() bool {
	return k == DecisionSetTaxRate
}
