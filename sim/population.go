// Population subsystem: demographic flows, happiness, service coverage.

package sim

import "math"

// Demographic rates per tick.
const (
	BirthRate     = 0.012
	DeathRate     = 0.008
	SicknessDrag  = 0.15 // mean happiness cost of the background sickness rate
	BaseLeaveRate = 0.002

	// ResidentsPerHousingUnit is the housing capacity of one unit.
	ResidentsPerHousingUnit = 4
)

// Population models births, deaths, migration, and the happiness adjustment
// toward what current service coverage supports. Each unmet need pulls the
// happiness target down by the same weight it pulls it up when met: 10 points
// each for water, electricity, and housing.
type Population struct{}

func NewPopulation() *Population { return &Population{} }

func (p *Population) Name() string { return SubsystemPopulation }

func (p *Population) Update(state CityState, ctx TickContext) (SubsystemDelta, error) {
	rng := ctx.Random.Stream(p.Name())
	pop := float64(state.Population)

	births := stochasticCount(pop*BirthRate, rng)
	deaths := stochasticCount(pop*DeathRate, rng)

	// Newcomer influx keyed on happiness bands: above 70, a 20% chance of
	// 20 arrivals; above 50, a 10% chance of 10.
	var migrationIn int64
	switch {
	case state.Happiness > 70:
		if rng.Float64() < 0.20 {
			migrationIn = 20
		}
	case state.Happiness > 50:
		if rng.Float64() < 0.10 {
			migrationIn = 10
		}
	}

	// Leave pressure grows with unmet needs and negative happiness.
	leaveRate := BaseLeaveRate +
		0.010*(1-state.ServiceCoverage.Housing) +
		0.005*(1-state.ServiceCoverage.Water) +
		0.005*(1-state.ServiceCoverage.Electricity)
	if state.Happiness < 0 {
		leaveRate += 0.010
	}
	migrationOut := stochasticCount(pop*leaveRate, rng)

	newPop := state.Population + births + migrationIn - deaths - migrationOut
	if newPop < 0 {
		// Can't lose more people than exist; shrink the outflow.
		migrationOut += newPop
		newPop = 0
	}

	coverage := ServiceCoverage{
		Water:       coverageFor(state.WaterFacilities*ResidentsPerFacility, newPop),
		Electricity: coverageFor(state.ElectricityFacilities*ResidentsPerFacility, newPop),
		Housing:     coverageFor(state.HousingUnits*ResidentsPerHousingUnit, newPop),
	}

	// Happiness relaxes halfway toward the coverage-implied target each
	// tick. Per-need weight is 10 points, scaled by how much of the
	// population is covered versus not: 10*(2c-1) per need.
	target := 10*(2*coverage.Water-1) +
		10*(2*coverage.Electricity-1) +
		10*(2*coverage.Housing-1) -
		SicknessDrag
	happinessChange := (target - state.Happiness) * 0.5
	if state.DisasterStruck {
		// Lingering unease the tick after a disaster.
		happinessChange -= 5
	}

	return PopulationDelta{
		Births:          births,
		Deaths:          deaths,
		MigrationIn:     migrationIn,
		MigrationOut:    migrationOut,
		HappinessChange: happinessChange,
		Coverage:        coverage,
	}, nil
}

// stochasticCount converts an expected value into an integer count: the
// floor, plus one with probability equal to the fractional part. Exactly one
// draw per call, so the draw count is state-independent.
func stochasticCount(expected float64, rng *RandomService) int64 {
	if expected <= 0 {
		// Burn the draw anyway to keep the sequence length fixed.
		rng.Float64()
		return 0
	}
	base := math.Floor(expected)
	n := int64(base)
	if rng.Float64() < expected-base {
		n++
	}
	return n
}
