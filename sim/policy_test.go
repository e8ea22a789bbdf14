package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPolicy emits a fixed decision list.
type stubPolicy struct {
	id        string
	decisions []Decision
	err       error
}

func (p *stubPolicy) ID() string { return p.id }
func (p *stubPolicy) Evaluate(state CityState, ctx TickContext) ([]Decision, error) {
	return p.decisions, p.err
}

func testCtx(tick int64) TickContext {
	return NewTickContext(tick, NewRandomService(42), NewEventBus(), nil)
}

func buildDecision(policyID, slot string, priority int, count float64) Decision {
	return Decision{
		Kind:     DecisionBuildHousing,
		Slot:     slot,
		Priority: priority,
		PolicyID: policyID,
		Params:   map[string]float64{"count": count},
	}
}

func TestPolicyEngine_PriorityOrdering(t *testing.T) {
	engine := NewPolicyEngine([]Policy{
		&stubPolicy{id: "p1", decisions: []Decision{buildDecision("p1", SlotHousing, 30, 1)}},
		&stubPolicy{id: "p2", decisions: []Decision{buildDecision("p2", SlotHousing, 10, 1)}},
	})

	out, err := engine.Evaluate(CityState{}, testCtx(0))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "p2", out[0].PolicyID, "lower priority value runs first")
	assert.Equal(t, "p1", out[1].PolicyID)
}

func TestPolicyEngine_RegistrationOrderBreaksTies(t *testing.T) {
	// Equal priority, same slot: the earlier-registered policy's decision
	// is applied first, and repeated runs agree.
	mk := func() *PolicyEngine {
		return NewPolicyEngine([]Policy{
			&stubPolicy{id: "early", decisions: []Decision{buildDecision("early", SlotHousing, 10, 1)}},
			&stubPolicy{id: "late", decisions: []Decision{buildDecision("late", SlotHousing, 10, 2)}},
		})
	}

	for run := 0; run < 5; run++ {
		out, err := mk().Evaluate(CityState{}, testCtx(0))
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "early", out[0].PolicyID)
		assert.Equal(t, "late", out[1].PolicyID)
	}
}

func TestPolicyEngine_ConflictingSetsAreFatal(t *testing.T) {
	set := func(policyID string, value float64) Decision {
		return Decision{
			Kind:     DecisionSetTaxRate,
			Slot:     SlotTaxIncome,
			PolicyID: policyID,
			Params:   map[string]float64{"value": value},
		}
	}
	engine := NewPolicyEngine([]Policy{
		&stubPolicy{id: "a", decisions: []Decision{set("a", 0.10)}},
		&stubPolicy{id: "b", decisions: []Decision{set("b", 0.15)}},
	})

	_, err := engine.Evaluate(CityState{}, testCtx(3))
	var conflict *PolicyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, SlotTaxIncome, conflict.Slot)
	assert.Equal(t, int64(3), conflict.TickIndex)
}

func TestPolicyEngine_AgreeingSetsAreNotConflicts(t *testing.T) {
	set := func(policyID string) Decision {
		return Decision{
			Kind:     DecisionSetTaxRate,
			Slot:     SlotTaxIncome,
			PolicyID: policyID,
			Params:   map[string]float64{"value": 0.12},
		}
	}
	engine := NewPolicyEngine([]Policy{
		&stubPolicy{id: "a", decisions: []Decision{set("a")}},
		&stubPolicy{id: "b", decisions: []Decision{set("b")}},
	})

	_, err := engine.Evaluate(CityState{}, testCtx(0))
	assert.NoError(t, err)
}

func TestPolicyEngine_PolicyErrorPropagates(t *testing.T) {
	engine := NewPolicyEngine([]Policy{
		&stubPolicy{id: "broken", err: errors.New("bad input")},
	})
	_, err := engine.Evaluate(CityState{}, testCtx(0))
	assert.ErrorContains(t, err, "broken")
}

// === Built-in policies ===

func TestTaxSchedulePolicy_FiresOnlyAtItsTick(t *testing.T) {
	p := &TaxSchedulePolicy{Changes: []TaxChange{{Tick: 5, Slot: SlotTaxIncome, Value: 0.2}}}

	out, err := p.Evaluate(CityState{}, testCtx(4))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = p.Evaluate(CityState{}, testCtx(5))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, DecisionSetTaxRate, out[0].Kind)
	assert.Equal(t, 0.2, out[0].Params["value"])
}

func TestTaxSchedulePolicy_RejectsBadRates(t *testing.T) {
	p := &TaxSchedulePolicy{Changes: []TaxChange{{Tick: 0, Slot: SlotTaxIncome, Value: 1.5}}}
	_, err := p.Evaluate(CityState{}, testCtx(0))
	assert.Error(t, err)
}

func TestInfrastructurePolicy_BuildsOnlyWithinBudget(t *testing.T) {
	p := &InfrastructurePolicy{}
	state := CityState{
		Budget:          10, // cannot afford anything
		ServiceCoverage: ServiceCoverage{Water: 0.5, Electricity: 0.5, Housing: 0.5},
	}
	out, err := p.Evaluate(state, testCtx(0))
	require.NoError(t, err)
	assert.Empty(t, out)

	state.Budget = 100000
	out, err = p.Evaluate(state, testCtx(0))
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestDisasterReliefPolicy_ReactsWithOneTickLag(t *testing.T) {
	p := &DisasterReliefPolicy{}

	out, err := p.Evaluate(CityState{DisasterStruck: false}, testCtx(0))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = p.Evaluate(CityState{DisasterStruck: true}, testCtx(1))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, DecisionDisasterRelief, out[0].Kind)
}

func TestDisasterRollPolicy_Deterministic(t *testing.T) {
	p := &DisasterRollPolicy{Chance: 0.5}
	var first []bool
	for run := 0; run < 2; run++ {
		rng := NewRandomService(42)
		var hits []bool
		for tick := int64(0); tick < 20; tick++ {
			ctx := NewTickContext(tick, rng, NewEventBus(), nil)
			out, err := p.Evaluate(CityState{}, ctx)
			require.NoError(t, err)
			hits = append(hits, len(out) == 1)
		}
		if run == 0 {
			first = hits
		} else {
			assert.Equal(t, first, hits)
		}
	}
}

func TestNewPolicySet_UnknownID(t *testing.T) {
	_, err := NewPolicySet([]string{"no-such-policy"})
	var cfg *ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

// === Decision contributions ===

func TestDecisionContributions(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		fields   []string
		wantErr  bool
	}{
		{
			name: "set tax rate",
			decision: Decision{Kind: DecisionSetTaxRate, Slot: SlotTaxIncome,
				Params: map[string]float64{"value": 0.15}},
			fields: []string{FieldTaxIncome},
		},
		{
			name: "build facility charges expenses",
			decision: Decision{Kind: DecisionBuildFacility, Slot: SlotWaterFac,
				Params: map[string]float64{"count": 2}},
			fields: []string{FieldWaterFac, FieldExpenses},
		},
		{
			name: "disaster strike",
			decision: Decision{Kind: DecisionDisasterStrike, Slot: SlotDisaster,
				Params: map[string]float64{"happiness_shock": -50}},
			fields: []string{FieldDisaster, FieldHappiness, FieldRoadQuality, FieldUtilityQuality},
		},
		{
			name:     "zero count build rejected",
			decision: Decision{Kind: DecisionBuildHousing, Slot: SlotHousing, Params: map[string]float64{}},
			wantErr:  true,
		},
		{
			name:     "unknown slot rejected",
			decision: Decision{Kind: DecisionSetTaxRate, Slot: "tax.unknown", Params: map[string]float64{}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fds, err := tt.decision.Contributions()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, fd := range fds {
				got = append(got, fd.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestBuildFacilityCost(t *testing.T) {
	d := Decision{Kind: DecisionBuildFacility, Slot: SlotElecFac, Params: map[string]float64{"count": 3}}
	fds, err := d.Contributions()
	require.NoError(t, err)
	require.Len(t, fds, 2)
	assert.Equal(t, 3*FacilityBuildCost, fds[1].Value)
}
