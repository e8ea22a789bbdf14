package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCityDelta_OwnershipExclusivity(t *testing.T) {
	tests := []struct {
		name    string
		fd      FieldDelta
		wantErr string
	}{
		{
			name:    "undeclared writer rejected",
			fd:      FieldDelta{FieldRevenue, OpAdd, 100, SubsystemTransport},
			wantErr: "not a declared writer",
		},
		{
			name:    "unknown field rejected",
			fd:      FieldDelta{"finance.profit", OpAdd, 100, SubsystemFinance},
			wantErr: "unknown field",
		},
		{
			name:    "wrong op rejected",
			fd:      FieldDelta{FieldCongestion, OpAdd, 0.5, SubsystemTransport},
			wantErr: "requires op",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cd := NewCityDelta(0)
			err := cd.Merge(tt.fd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCityDelta_DoubleSetRejected(t *testing.T) {
	cd := NewCityDelta(0)
	require.NoError(t, cd.Merge(FieldDelta{FieldCongestion, OpSet, 0.4, SubsystemTransport}))
	err := cd.Merge(FieldDelta{FieldCongestion, OpSet, 0.6, SubsystemTransport})
	assert.Error(t, err, "no silent double-write of a set field")
}

func TestCityDelta_MergeRuleSums(t *testing.T) {
	// Expenses is the declared finance+decision merge rule.
	cd := NewCityDelta(0)
	require.NoError(t, cd.Merge(FieldDelta{FieldExpenses, OpAdd, 300, SubsystemFinance}))
	require.NoError(t, cd.Merge(FieldDelta{FieldExpenses, OpAdd, 500, SourceDecision}))

	assert.Equal(t, 800.0, cd.Expenses())
	assert.Equal(t, []string{SubsystemFinance, SourceDecision}, cd.Writers[FieldExpenses])
}

func TestCityDelta_BudgetChangeIsRevenueMinusExpenses(t *testing.T) {
	cd := NewCityDelta(0)
	require.NoError(t, cd.Merge(FieldDelta{FieldRevenue, OpAdd, 1000, SubsystemFinance}))
	require.NoError(t, cd.Merge(FieldDelta{FieldExpenses, OpAdd, 400, SubsystemFinance}))
	assert.Equal(t, 600.0, cd.BudgetChange())
}

func TestCityDelta_PopulationChange(t *testing.T) {
	cd := NewCityDelta(0)
	require.NoError(t, cd.MergeAll(PopulationDelta{
		Births: 12, Deaths: 8, MigrationIn: 20, MigrationOut: 5,
	}.Contributions()))
	assert.Equal(t, int64(19), cd.PopulationChange())
}

func TestCityDelta_ApplyCommitsAtomically(t *testing.T) {
	state := CityState{
		Budget:     1000,
		Population: 100,
		Happiness:  5,
		TaxRates:   TaxRates{Income: 0.1},
	}
	cd := NewCityDelta(0)
	require.NoError(t, cd.MergeAll(FinanceDelta{Revenue: 500, Expenses: 200}.Contributions()))
	require.NoError(t, cd.MergeAll(PopulationDelta{
		Births: 2, Coverage: ServiceCoverage{Water: 0.9, Electricity: 0.8, Housing: 0.7},
	}.Contributions()))
	require.NoError(t, cd.Merge(FieldDelta{FieldTaxIncome, OpSet, 0.2, SourceDecision}))

	cd.apply(&state)

	assert.Equal(t, 1300.0, state.Budget)
	assert.Equal(t, int64(102), state.Population)
	assert.Equal(t, 0.2, state.TaxRates.Income)
	assert.Equal(t, 0.9, state.ServiceCoverage.Water)
	assert.Equal(t, int64(1), state.Tick)
}

func TestCityDelta_DisasterFlagResetsWhenNotSet(t *testing.T) {
	state := CityState{DisasterStruck: true}
	NewCityDelta(0).apply(&state)
	assert.False(t, state.DisasterStruck, "flag lives exactly one tick")
}

func TestSubsystemDeltas_DeclareOnlyOwnedFields(t *testing.T) {
	// Every contribution from the three concrete deltas must pass the
	// ownership table.
	deltas := []SubsystemDelta{
		FinanceDelta{Revenue: 1, Expenses: 1},
		PopulationDelta{Births: 1},
		TrafficDelta{CongestionIndex: 0.5, RoadQualityChange: -0.01},
	}
	cd := NewCityDelta(0)
	for _, d := range deltas {
		assert.NoError(t, cd.MergeAll(d.Contributions()), "%s delta", d.Subsystem())
	}
}
