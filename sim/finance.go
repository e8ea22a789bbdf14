// Finance subsystem: tax revenue and maintenance expenses.

package sim

// Per-capita tax bases and maintenance costs. Maintenance constants follow
// the municipal model: 50 per facility, 5 per housing unit.
const (
	IncomeTaxBase   = 100.0 // taxable income per employed resident per tick
	PropertyTaxBase = 200.0 // taxable property value per housed resident
	UtilityTaxBase  = 50.0  // taxable utility spend per served resident

	FacilityMaintenanceCost = 50.0
	HousingMaintenanceCost  = 5.0
)

// Finance computes revenue from the three tax streams and expenses from
// infrastructure maintenance. Housed residents count as employed; utility
// taxpayers are residents served by water or electricity.
type Finance struct{}

func NewFinance() *Finance { return &Finance{} }

func (f *Finance) Name() string { return SubsystemFinance }

func (f *Finance) Update(state CityState, ctx TickContext) (SubsystemDelta, error) {
	pop := float64(state.Population)
	employed := pop * state.ServiceCoverage.Housing
	utilityCov := state.ServiceCoverage.Water
	if state.ServiceCoverage.Electricity > utilityCov {
		utilityCov = state.ServiceCoverage.Electricity
	}
	utilityUsers := pop * utilityCov

	revenue := employed*state.TaxRates.Income*IncomeTaxBase +
		employed*state.TaxRates.Property*PropertyTaxBase +
		utilityUsers*state.TaxRates.Utility*UtilityTaxBase

	// Degraded utilities collect less; quality scales the utility stream.
	revenue -= utilityUsers * state.TaxRates.Utility * UtilityTaxBase *
		(1 - state.InfrastructureQuality.Utilities) * 0.5

	expenses := float64(state.WaterFacilities+state.ElectricityFacilities)*FacilityMaintenanceCost +
		float64(state.HousingUnits)*HousingMaintenanceCost

	// Collection efficiency jitter, +/-2%, from the finance stream only.
	jitter := 1 + (ctx.Random.Stream(f.Name()).Float64()-0.5)*0.04
	revenue *= jitter

	return FinanceDelta{Revenue: revenue, Expenses: expenses}, nil
}
