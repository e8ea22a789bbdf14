package sim

// Service and infrastructure domain names. These key the per-domain coverage
// and quality fields and the namespaced metric/event identifiers.
const (
	DomainWater       = "water"
	DomainElectricity = "electricity"
	DomainHousing     = "housing"
	DomainRoads       = "roads"
	DomainUtilities   = "utilities"
)

// ResidentsPerFacility is the service capacity of one water or electricity
// facility.
const ResidentsPerFacility = 20

// Happiness bounds for CityState.Happiness.
const (
	HappinessMin = -100.0
	HappinessMax = 100.0
)

// TaxRates holds the three municipal tax rates.
type TaxRates struct {
	Income   float64 `yaml:"income"`
	Property float64 `yaml:"property"`
	Utility  float64 `yaml:"utility"`
}

// ServiceCoverage is the fraction of the population served, per domain,
// each in [0, 1].
type ServiceCoverage struct {
	Water       float64 `yaml:"water"`
	Electricity float64 `yaml:"electricity"`
	Housing     float64 `yaml:"housing"`
}

// InfrastructureQuality is the condition of physical infrastructure, per
// domain, each in [0, 1].
type InfrastructureQuality struct {
	Roads     float64 `yaml:"roads"`
	Utilities float64 `yaml:"utilities"`
}

// CityState is the shared world state. Its single logical owner is the
// CityManager: all mutation happens through one atomic delta commit at the
// end of a tick, never incrementally. Subsystems and policies only ever see
// a Snapshot.
type CityState struct {
	Tick       int64
	Budget     float64
	Population int64
	Happiness  float64

	TaxRates              TaxRates
	WaterFacilities       int64
	ElectricityFacilities int64
	HousingUnits          int64

	ServiceCoverage       ServiceCoverage
	InfrastructureQuality InfrastructureQuality
	CongestionIndex       float64

	// DisasterStruck is set by a committed disaster decision and read by
	// the following tick (relief policy, happiness drag). One-tick lag by
	// construction: it is only ever visible post-commit.
	DisasterStruck bool
}

// Snapshot returns a copy of the state. CityState holds no reference fields,
// so a value copy is a full defensive copy.
func (s *CityState) Snapshot() CityState {
	return *s
}

// coverageFor computes the service coverage a facility count provides for
// the given population.
func coverageFor(capacity, population int64) float64 {
	if population <= 0 {
		return 1.0
	}
	c := float64(capacity) / float64(population)
	if c > 1.0 {
		return 1.0
	}
	return c
}
