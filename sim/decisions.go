// Translation of staged decisions into field contributions.

package sim

import "fmt"

// Capital costs charged when a decision builds or repairs something. Charged
// through the expenses merge rule so budget reconciliation still holds.
const (
	FacilityBuildCost    = 500.0
	HousingUnitBuildCost = 100.0
	DisasterReliefCost   = 250.0
)

// Slot names targeted by decisions.
const (
	SlotTaxIncome   = "tax.income"
	SlotTaxProperty = "tax.property"
	SlotTaxUtility  = "tax.utility"
	SlotWaterFac    = "infra.water_facilities"
	SlotElecFac     = "infra.electricity_facilities"
	SlotHousing     = "infra.housing_units"
	SlotDisaster    = "hazard.disaster"
)

var taxSlotField = map[string]string{
	SlotTaxIncome:   FieldTaxIncome,
	SlotTaxProperty: FieldTaxProperty,
	SlotTaxUtility:  FieldTaxUtility,
}

var buildSlotField = map[string]string{
	SlotWaterFac: FieldWaterFac,
	SlotElecFac:  FieldElecFac,
	SlotHousing:  FieldHousingUnits,
}

// Contributions expands a decision into its direct state edits. Capital
// costs ride on the expenses field; everything else lands on decision-owned
// slots, so no decision can collide with a subsystem write.
func (d Decision) Contributions() ([]FieldDelta, error) {
	switch d.Kind {
	case DecisionSetTaxRate:
		field, ok := taxSlotField[d.Slot]
		if !ok {
			return nil, fmt.Errorf("decision %s: unknown tax slot %q", d.ID(), d.Slot)
		}
		return []FieldDelta{{field, OpSet, d.Params["value"], SourceDecision}}, nil

	case DecisionBuildFacility, DecisionBuildHousing:
		field, ok := buildSlotField[d.Slot]
		if !ok {
			return nil, fmt.Errorf("decision %s: unknown build slot %q", d.ID(), d.Slot)
		}
		count := d.Params["count"]
		if count <= 0 {
			return nil, fmt.Errorf("decision %s: build count must be positive, got %v", d.ID(), count)
		}
		unitCost := FacilityBuildCost
		if d.Kind == DecisionBuildHousing {
			unitCost = HousingUnitBuildCost
		}
		return []FieldDelta{
			{field, OpAdd, count, SourceDecision},
			{FieldExpenses, OpAdd, count * unitCost, SourceDecision},
		}, nil

	case DecisionDisasterStrike:
		return []FieldDelta{
			{FieldDisaster, OpSet, 1, SourceDecision},
			{FieldHappiness, OpAdd, d.Params["happiness_shock"], SourceDecision},
			{FieldRoadQuality, OpAdd, d.Params["road_damage"], SourceDecision},
			{FieldUtilityQuality, OpAdd, d.Params["utility_damage"], SourceDecision},
		}, nil

	case DecisionDisasterRelief:
		return []FieldDelta{
			{FieldHappiness, OpAdd, d.Params["happiness_recovery"], SourceDecision},
			{FieldRoadQuality, OpAdd, d.Params["road_repair"], SourceDecision},
			{FieldUtilityQuality, OpAdd, d.Params["utility_repair"], SourceDecision},
			{FieldExpenses, OpAdd, DisasterReliefCost, SourceDecision},
		}, nil

	default:
		return nil, fmt.Errorf("decision %s: unknown kind %q", d.ID(), d.Kind)
	}
}
