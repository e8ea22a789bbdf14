package sim

import "fmt"

// InitialState is the scenario-supplied starting CityState, YAML-mappable.
type InitialState struct {
	Budget                float64               `yaml:"budget"`
	Population            int64                 `yaml:"population"`
	Happiness             float64               `yaml:"happiness"`
	TaxRates              TaxRates              `yaml:"tax_rates"`
	WaterFacilities       int64                 `yaml:"water_facilities"`
	ElectricityFacilities int64                 `yaml:"electricity_facilities"`
	HousingUnits          int64                 `yaml:"housing_units"`
	InfrastructureQuality InfrastructureQuality `yaml:"infrastructure_quality"`
}

// Scenario is a self-contained run description: seed, horizon, initial state,
// and the policy set. Created once by the scenario loader before tick 0 and
// read-only for the remainder of the run.
type Scenario struct {
	ID         string       `yaml:"id"`
	Seed       *int64       `yaml:"seed"`
	Horizon    int64        `yaml:"horizon"`
	Initial    InitialState `yaml:"initial"`
	PolicyIDs  []string     `yaml:"policies"`
	TaxChanges []TaxChange  `yaml:"tax_changes"`
}

// Validate checks the scenario for malformed data. All failures are
// ConfigurationError: fatal before the loop starts.
func (s *Scenario) Validate() error {
	if s.Seed == nil {
		return &ConfigurationError{Field: "seed", Reason: "scenario must supply an explicit seed"}
	}
	if s.Horizon <= 0 {
		return &ConfigurationError{Field: "horizon", Reason: fmt.Sprintf("must be positive, got %d", s.Horizon)}
	}
	if s.Initial.Population < 0 {
		return &ConfigurationError{Field: "initial.population", Reason: "must be non-negative"}
	}
	if s.Initial.Happiness < HappinessMin || s.Initial.Happiness > HappinessMax {
		return &ConfigurationError{Field: "initial.happiness",
			Reason: fmt.Sprintf("must be in [%v, %v]", HappinessMin, HappinessMax)}
	}
	for slot, rate := range map[string]float64{
		"income":   s.Initial.TaxRates.Income,
		"property": s.Initial.TaxRates.Property,
		"utility":  s.Initial.TaxRates.Utility,
	} {
		if rate < 0 || rate > 1 {
			return &ConfigurationError{Field: "initial.tax_rates." + slot, Reason: "must be in [0, 1]"}
		}
	}
	for domain, q := range map[string]float64{
		"roads":     s.Initial.InfrastructureQuality.Roads,
		"utilities": s.Initial.InfrastructureQuality.Utilities,
	} {
		if q < 0 || q > 1 {
			return &ConfigurationError{Field: "initial.infrastructure_quality." + domain, Reason: "must be in [0, 1]"}
		}
	}
	if s.Initial.WaterFacilities < 0 || s.Initial.ElectricityFacilities < 0 || s.Initial.HousingUnits < 0 {
		return &ConfigurationError{Field: "initial", Reason: "facility and housing counts must be non-negative"}
	}
	return nil
}

// InitialCityState builds the tick-0 CityState from the scenario, with
// coverage derived from the initial facility counts.
func (s *Scenario) InitialCityState() CityState {
	st := CityState{
		Budget:                s.Initial.Budget,
		Population:            s.Initial.Population,
		Happiness:             s.Initial.Happiness,
		TaxRates:              s.Initial.TaxRates,
		WaterFacilities:       s.Initial.WaterFacilities,
		ElectricityFacilities: s.Initial.ElectricityFacilities,
		HousingUnits:          s.Initial.HousingUnits,
		InfrastructureQuality: s.Initial.InfrastructureQuality,
	}
	st.ServiceCoverage = ServiceCoverage{
		Water:       coverageFor(st.WaterFacilities*ResidentsPerFacility, st.Population),
		Electricity: coverageFor(st.ElectricityFacilities*ResidentsPerFacility, st.Population),
		Housing:     coverageFor(st.HousingUnits*ResidentsPerHousingUnit, st.Population),
	}
	return st
}

// ResolvePolicies builds the scenario's policy set in list order. The tax
// schedule policy, when named, receives the scenario's tax_changes.
func (s *Scenario) ResolvePolicies() ([]Policy, error) {
	policies, err := NewPolicySet(s.PolicyIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		if ts, ok := p.(*TaxSchedulePolicy); ok {
			ts.Changes = s.TaxChanges
		}
	}
	return policies, nil
}
