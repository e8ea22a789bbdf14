// Built-in policies.
//
// The shipped set covers the four concerns the scenario format can name:
// scheduled tax changes, reactive infrastructure building, disaster rolls,
// and disaster relief. Further policies register through NewPolicySet's
// extras or a custom PolicyEngine.

package sim

import "fmt"

// Policy ids accepted in scenario policy lists.
const (
	PolicyTaxSchedule    = "tax-schedule"
	PolicyInfrastructure = "infrastructure-plan"
	PolicyDisasterRoll   = "disaster-roll"
	PolicyDisasterRelief = "disaster-relief"
)

// TaxChange schedules one rate change at one tick.
type TaxChange struct {
	Tick  int64   `yaml:"tick"`
	Slot  string  `yaml:"slot"`
	Value float64 `yaml:"value"`
}

// TaxSchedulePolicy stages SetTaxRate decisions at configured ticks.
type TaxSchedulePolicy struct {
	Changes []TaxChange
}

func (p *TaxSchedulePolicy) ID() string { return PolicyTaxSchedule }

func (p *TaxSchedulePolicy) Evaluate(state CityState, ctx TickContext) ([]Decision, error) {
	var out []Decision
	for _, c := range p.Changes {
		if c.Tick != ctx.Tick {
			continue
		}
		if _, ok := taxSlotField[c.Slot]; !ok {
			return nil, fmt.Errorf("tax schedule: unknown slot %q", c.Slot)
		}
		if c.Value < 0 || c.Value > 1 {
			return nil, fmt.Errorf("tax schedule: rate %v for %s out of [0,1]", c.Value, c.Slot)
		}
		out = append(out, Decision{
			Kind:     DecisionSetTaxRate,
			Slot:     c.Slot,
			Priority: 10,
			PolicyID: p.ID(),
			Params:   map[string]float64{"value": c.Value},
		})
	}
	return out, nil
}

// InfrastructurePolicy builds facilities and housing when coverage drops
// below target, as long as the budget can fund the build.
type InfrastructurePolicy struct {
	CoverageTarget float64 // build below this coverage; default 0.9
}

func (p *InfrastructurePolicy) ID() string { return PolicyInfrastructure }

func (p *InfrastructurePolicy) target() float64 {
	if p.CoverageTarget > 0 {
		return p.CoverageTarget
	}
	return 0.9
}

func (p *InfrastructurePolicy) Evaluate(state CityState, ctx TickContext) ([]Decision, error) {
	var out []Decision
	budget := state.Budget

	build := func(kind DecisionKind, slot string, count, cost float64) {
		if budget < count*cost {
			return
		}
		budget -= count * cost
		out = append(out, Decision{
			Kind:     kind,
			Slot:     slot,
			Priority: 20,
			PolicyID: p.ID(),
			Params:   map[string]float64{"count": count},
		})
	}

	if state.ServiceCoverage.Water < p.target() {
		build(DecisionBuildFacility, SlotWaterFac, 1, FacilityBuildCost)
	}
	if state.ServiceCoverage.Electricity < p.target() {
		build(DecisionBuildFacility, SlotElecFac, 1, FacilityBuildCost)
	}
	if state.ServiceCoverage.Housing < p.target() {
		build(DecisionBuildHousing, SlotHousing, 5, HousingUnitBuildCost)
	}
	return out, nil
}

// DisasterRollPolicy rolls a 1% chance per tick that a disaster strikes,
// shocking happiness and damaging infrastructure.
type DisasterRollPolicy struct {
	Chance float64 // default 0.01
}

func (p *DisasterRollPolicy) ID() string { return PolicyDisasterRoll }

func (p *DisasterRollPolicy) Evaluate(state CityState, ctx TickContext) ([]Decision, error) {
	chance := p.Chance
	if chance == 0 {
		chance = 0.01
	}
	if ctx.Random.Stream("policy."+p.ID()).Float64() >= chance {
		return nil, nil
	}
	return []Decision{{
		Kind:     DecisionDisasterStrike,
		Slot:     SlotDisaster,
		Priority: 5,
		PolicyID: p.ID(),
		Params: map[string]float64{
			"happiness_shock": -50,
			"road_damage":     -0.2,
			"utility_damage":  -0.2,
		},
	}}, nil
}

// DisasterReliefPolicy reacts to a disaster committed on the previous tick.
// The one-tick lag is inherent: it reads DisasterStruck from committed state.
type DisasterReliefPolicy struct{}

func (p *DisasterReliefPolicy) ID() string { return PolicyDisasterRelief }

func (p *DisasterReliefPolicy) Evaluate(state CityState, ctx TickContext) ([]Decision, error) {
	if !state.DisasterStruck {
		return nil, nil
	}
	return []Decision{{
		Kind:     DecisionDisasterRelief,
		Slot:     SlotDisaster,
		Priority: 15,
		PolicyID: p.ID(),
		Params: map[string]float64{
			"happiness_recovery": 10,
			"road_repair":        0.1,
			"utility_repair":     0.1,
		},
	}}, nil
}

// NewPolicySet resolves scenario policy ids against the built-in registry,
// preserving list order as registration order. Unknown ids fail with
// ConfigurationError before tick 0.
func NewPolicySet(ids []string) ([]Policy, error) {
	var out []Policy
	for _, id := range ids {
		switch id {
		case PolicyTaxSchedule:
			out = append(out, &TaxSchedulePolicy{})
		case PolicyInfrastructure:
			out = append(out, &InfrastructurePolicy{})
		case PolicyDisasterRoll:
			out = append(out, &DisasterRollPolicy{})
		case PolicyDisasterRelief:
			out = append(out, &DisasterReliefPolicy{})
		default:
			return nil, &ConfigurationError{Field: "policies", Reason: fmt.Sprintf("unknown policy id %q", id)}
		}
	}
	return out, nil
}
