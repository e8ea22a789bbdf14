// Typed deltas, the field-ownership table, and per-tick aggregation.
//
// Every CityState field has exactly one declared owner, or an explicit merge
// rule naming the contributors allowed to combine on it. Aggregation rejects
// anything else, so a double-write is a hard error, never a silent overwrite.

package sim

import "fmt"

// Op is how a contribution combines into the aggregate.
type Op string

const (
	// OpAdd accumulates; multiple allowed contributors sum.
	OpAdd Op = "add"
	// OpSet writes an absolute value; at most one contributor per tick.
	OpSet Op = "set"
)

// FieldDelta is one field contribution from a subsystem or decision source.
type FieldDelta struct {
	Field  string
	Op     Op
	Value  float64
	Source string
}

// Field names. These are the units of ownership, not CityState struct fields;
// derived quantities (budget change, population change) are computed by the
// manager-owned merge rules at commit.
const (
	FieldRevenue         = "finance.revenue"
	FieldExpenses        = "finance.expenses"
	FieldBirths          = "population.births"
	FieldDeaths          = "population.deaths"
	FieldMigrationIn     = "population.migration_in"
	FieldMigrationOut    = "population.migration_out"
	FieldHappiness       = "population.happiness"
	FieldCoverageWater   = "coverage.water"
	FieldCoverageElec    = "coverage.electricity"
	FieldCoverageHousing = "coverage.housing"
	FieldCongestion      = "transport.congestion_index"
	FieldRoadQuality     = "quality.roads"
	FieldUtilityQuality  = "quality.utilities"
	FieldTaxIncome       = "tax.income"
	FieldTaxProperty     = "tax.property"
	FieldTaxUtility      = "tax.utility"
	FieldWaterFac        = "infra.water_facilities"
	FieldElecFac         = "infra.electricity_facilities"
	FieldHousingUnits    = "infra.housing_units"
	FieldDisaster        = "hazard.disaster_struck"
)

// fieldRule declares the op and the allowed contributors for one field.
// Fields with more than one writer are the explicit merge rules (sum).
type fieldRule struct {
	op      Op
	writers []string
}

var ownershipTable = map[string]fieldRule{
	FieldRevenue:         {OpAdd, []string{SubsystemFinance}},
	FieldExpenses:        {OpAdd, []string{SubsystemFinance, SourceDecision}},
	FieldBirths:          {OpAdd, []string{SubsystemPopulation}},
	FieldDeaths:          {OpAdd, []string{SubsystemPopulation}},
	FieldMigrationIn:     {OpAdd, []string{SubsystemPopulation}},
	FieldMigrationOut:    {OpAdd, []string{SubsystemPopulation}},
	FieldHappiness:       {OpAdd, []string{SubsystemPopulation, SourceDecision}},
	FieldCoverageWater:   {OpSet, []string{SubsystemPopulation}},
	FieldCoverageElec:    {OpSet, []string{SubsystemPopulation}},
	FieldCoverageHousing: {OpSet, []string{SubsystemPopulation}},
	FieldCongestion:      {OpSet, []string{SubsystemTransport}},
	FieldRoadQuality:     {OpAdd, []string{SubsystemTransport, SourceDecision}},
	FieldUtilityQuality:  {OpAdd, []string{SubsystemTransport, SourceDecision}},
	FieldTaxIncome:       {OpSet, []string{SourceDecision}},
	FieldTaxProperty:     {OpSet, []string{SourceDecision}},
	FieldTaxUtility:      {OpSet, []string{SourceDecision}},
	FieldWaterFac:        {OpAdd, []string{SourceDecision}},
	FieldElecFac:         {OpAdd, []string{SourceDecision}},
	FieldHousingUnits:    {OpAdd, []string{SourceDecision}},
	FieldDisaster:        {OpSet, []string{SourceDecision}},
}

// === Concrete subsystem deltas ===

// FinanceDelta carries the finance subsystem's per-tick contribution.
// BudgetChange is derived as Revenue - Expenses at commit; finance never
// writes the budget directly.
type FinanceDelta struct {
	Revenue  float64
	Expenses float64
}

func (d FinanceDelta) Subsystem() string { return SubsystemFinance }

func (d FinanceDelta) Contributions() []FieldDelta {
	return []FieldDelta{
		{FieldRevenue, OpAdd, d.Revenue, SubsystemFinance},
		{FieldExpenses, OpAdd, d.Expenses, SubsystemFinance},
	}
}

// PopulationDelta carries demographic flows, the happiness adjustment, and
// the recomputed per-domain service coverage.
type PopulationDelta struct {
	Births          int64
	Deaths          int64
	MigrationIn     int64
	MigrationOut    int64
	HappinessChange float64
	Coverage        ServiceCoverage
}

func (d PopulationDelta) Subsystem() string { return SubsystemPopulation }

func (d PopulationDelta) Contributions() []FieldDelta {
	return []FieldDelta{
		{FieldBirths, OpAdd, float64(d.Births), SubsystemPopulation},
		{FieldDeaths, OpAdd, float64(d.Deaths), SubsystemPopulation},
		{FieldMigrationIn, OpAdd, float64(d.MigrationIn), SubsystemPopulation},
		{FieldMigrationOut, OpAdd, float64(d.MigrationOut), SubsystemPopulation},
		{FieldHappiness, OpAdd, d.HappinessChange, SubsystemPopulation},
		{FieldCoverageWater, OpSet, d.Coverage.Water, SubsystemPopulation},
		{FieldCoverageElec, OpSet, d.Coverage.Electricity, SubsystemPopulation},
		{FieldCoverageHousing, OpSet, d.Coverage.Housing, SubsystemPopulation},
	}
}

// TrafficDelta carries the congestion index (absolute, bounded [0,1]) and
// infrastructure wear.
type TrafficDelta struct {
	CongestionIndex      float64
	RoadQualityChange    float64
	UtilityQualityChange float64
}

func (d TrafficDelta) Subsystem() string { return SubsystemTransport }

func (d TrafficDelta) Contributions() []FieldDelta {
	return []FieldDelta{
		{FieldCongestion, OpSet, d.CongestionIndex, SubsystemTransport},
		{FieldRoadQuality, OpAdd, d.RoadQualityChange, SubsystemTransport},
		{FieldUtilityQuality, OpAdd, d.UtilityQualityChange, SubsystemTransport},
	}
}

// === CityDelta ===

// CityDelta is the per-tick aggregate of all subsystem deltas plus staged
// decision effects. Every value in it traces to exactly one contributor, or
// to an explicit merge rule from the ownership table.
type CityDelta struct {
	Tick int64

	adds map[string]float64
	sets map[string]float64

	// Writers records which contributors wrote each field, in aggregation
	// order. Validation and tests read it; commit does not.
	Writers map[string][]string

	DecisionIDs []string
}

// NewCityDelta creates an empty aggregate for the given tick.
func NewCityDelta(tick int64) *CityDelta {
	return &CityDelta{
		Tick:    tick,
		adds:    make(map[string]float64),
		sets:    make(map[string]float64),
		Writers: make(map[string][]string),
	}
}

// Merge folds one contribution into the aggregate, enforcing the ownership
// table: unknown fields, undeclared writers, repeated writes by the same
// contributor, and second setters are all hard errors.
func (cd *CityDelta) Merge(fd FieldDelta) error {
	rule, ok := ownershipTable[fd.Field]
	if !ok {
		return fmt.Errorf("delta merge: unknown field %q from %s", fd.Field, fd.Source)
	}
	if !contains(rule.writers, fd.Source) {
		return fmt.Errorf("delta merge: %s is not a declared writer of %q (owners: %v)",
			fd.Source, fd.Field, rule.writers)
	}
	if fd.Op != rule.op {
		return fmt.Errorf("delta merge: field %q requires op %s, got %s", fd.Field, rule.op, fd.Op)
	}
	if contains(cd.Writers[fd.Field], fd.Source) && fd.Op == OpSet {
		return fmt.Errorf("delta merge: %s wrote %q twice in one tick", fd.Source, fd.Field)
	}

	switch fd.Op {
	case OpAdd:
		cd.adds[fd.Field] += fd.Value
	case OpSet:
		if len(cd.Writers[fd.Field]) > 0 {
			return fmt.Errorf("delta merge: field %q set twice in one tick (%s after %s)",
				fd.Field, fd.Source, cd.Writers[fd.Field][0])
		}
		cd.sets[fd.Field] = fd.Value
	}
	cd.Writers[fd.Field] = append(cd.Writers[fd.Field], fd.Source)
	return nil
}

// MergeAll folds a contribution list in order.
func (cd *CityDelta) MergeAll(fds []FieldDelta) error {
	for _, fd := range fds {
		if err := cd.Merge(fd); err != nil {
			return err
		}
	}
	return nil
}

// Add returns the accumulated additive value for a field.
func (cd *CityDelta) Add(field string) float64 {
	return cd.adds[field]
}

// Set returns the absolute value written for a field, if any.
func (cd *CityDelta) Set(field string) (float64, bool) {
	v, ok := cd.sets[field]
	return v, ok
}

// Revenue, Expenses and BudgetChange expose the manager-owned budget merge
// rule: budget change is revenue minus expenses, nothing else.
func (cd *CityDelta) Revenue() float64  { return cd.adds[FieldRevenue] }
func (cd *CityDelta) Expenses() float64 { return cd.adds[FieldExpenses] }
func (cd *CityDelta) BudgetChange() float64 {
	return cd.Revenue() - cd.Expenses()
}

// PopulationChange exposes the demographic merge rule:
// births + migration_in - deaths - migration_out.
func (cd *CityDelta) PopulationChange() int64 {
	return int64(cd.adds[FieldBirths]) + int64(cd.adds[FieldMigrationIn]) -
		int64(cd.adds[FieldDeaths]) - int64(cd.adds[FieldMigrationOut])
}

// apply commits the aggregate onto the state. Called exactly once per tick by
// the CityManager; nothing else mutates CityState.
func (cd *CityDelta) apply(s *CityState) {
	s.Budget += cd.BudgetChange()
	s.Population += cd.PopulationChange()
	s.Happiness += cd.adds[FieldHappiness]

	if v, ok := cd.sets[FieldCoverageWater]; ok {
		s.ServiceCoverage.Water = v
	}
	if v, ok := cd.sets[FieldCoverageElec]; ok {
		s.ServiceCoverage.Electricity = v
	}
	if v, ok := cd.sets[FieldCoverageHousing]; ok {
		s.ServiceCoverage.Housing = v
	}
	if v, ok := cd.sets[FieldCongestion]; ok {
		s.CongestionIndex = v
	}
	s.InfrastructureQuality.Roads += cd.adds[FieldRoadQuality]
	s.InfrastructureQuality.Utilities += cd.adds[FieldUtilityQuality]

	if v, ok := cd.sets[FieldTaxIncome]; ok {
		s.TaxRates.Income = v
	}
	if v, ok := cd.sets[FieldTaxProperty]; ok {
		s.TaxRates.Property = v
	}
	if v, ok := cd.sets[FieldTaxUtility]; ok {
		s.TaxRates.Utility = v
	}
	s.WaterFacilities += int64(cd.adds[FieldWaterFac])
	s.ElectricityFacilities += int64(cd.adds[FieldElecFac])
	s.HousingUnits += int64(cd.adds[FieldHousingUnits])

	if v, ok := cd.sets[FieldDisaster]; ok {
		s.DisasterStruck = v != 0
	} else {
		s.DisasterStruck = false
	}

	s.Tick++
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
