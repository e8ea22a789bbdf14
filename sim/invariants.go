// Post-commit invariant validation.
//
// Strict mode turns any violation into a fatal halt; lenient mode logs it,
// clamps the offending value to its nearest valid bound, and lets the run
// continue. Reconciliation violations have no bound to clamp to and are
// fatal in both modes: they mean a subsystem lied about its own delta.

package sim

import "math"

// BudgetEpsilon is the tolerance for the budget reconciliation invariant.
const BudgetEpsilon = 1e-6

// Invariant names reported in violations.
const (
	InvariantBudget     = "budget_reconciliation"
	InvariantPopulation = "population_reconciliation"
	InvariantCongestion = "congestion_bounds"
	InvariantHappiness  = "happiness_bounds"
	InvariantCoverage   = "coverage_bounds"
	InvariantQuality    = "quality_bounds"
	InvariantHeadcount  = "population_nonnegative"
)

// boundCheck is one clampable scalar bound on committed state.
type boundCheck struct {
	name   string
	lo, hi float64
	get    func(*CityState) float64
	set    func(*CityState, float64)
}

var boundChecks = []boundCheck{
	{InvariantCongestion, 0, 1,
		func(s *CityState) float64 { return s.CongestionIndex },
		func(s *CityState, v float64) { s.CongestionIndex = v }},
	{InvariantHappiness, HappinessMin, HappinessMax,
		func(s *CityState) float64 { return s.Happiness },
		func(s *CityState, v float64) { s.Happiness = v }},
	{InvariantCoverage, 0, 1,
		func(s *CityState) float64 { return s.ServiceCoverage.Water },
		func(s *CityState, v float64) { s.ServiceCoverage.Water = v }},
	{InvariantCoverage, 0, 1,
		func(s *CityState) float64 { return s.ServiceCoverage.Electricity },
		func(s *CityState, v float64) { s.ServiceCoverage.Electricity = v }},
	{InvariantCoverage, 0, 1,
		func(s *CityState) float64 { return s.ServiceCoverage.Housing },
		func(s *CityState, v float64) { s.ServiceCoverage.Housing = v }},
	{InvariantQuality, 0, 1,
		func(s *CityState) float64 { return s.InfrastructureQuality.Roads },
		func(s *CityState, v float64) { s.InfrastructureQuality.Roads = v }},
	{InvariantQuality, 0, 1,
		func(s *CityState) float64 { return s.InfrastructureQuality.Utilities },
		func(s *CityState, v float64) { s.InfrastructureQuality.Utilities = v }},
	{InvariantHeadcount, 0, math.MaxFloat64,
		func(s *CityState) float64 { return float64(s.Population) },
		func(s *CityState, v float64) { s.Population = int64(v) }},
}

// validateCommit checks all invariants on the just-committed state. In
// lenient mode it clamps bound violations in place. The returned violations
// carry severity per mode; reconciliation failures are always fatal.
func validateCommit(pre, post *CityState, delta *CityDelta, strict bool) []InvariantViolation {
	var out []InvariantViolation
	tick := delta.Tick

	severity := SeverityWarning
	if strict {
		severity = SeverityFatal
	}

	budgetChange := post.Budget - pre.Budget
	expected := delta.Revenue() - delta.Expenses()
	if math.Abs(budgetChange-expected) >= BudgetEpsilon {
		out = append(out, InvariantViolation{
			Name: InvariantBudget, Severity: SeverityFatal,
			Observed: budgetChange, Expected: expected, TickIndex: tick,
		})
	}

	popChange := post.Population - pre.Population
	if popChange != delta.PopulationChange() {
		out = append(out, InvariantViolation{
			Name: InvariantPopulation, Severity: SeverityFatal,
			Observed: float64(popChange), Expected: float64(delta.PopulationChange()), TickIndex: tick,
		})
	}

	for _, c := range boundChecks {
		v := c.get(post)
		if v >= c.lo && v <= c.hi {
			continue
		}
		clamped := math.Min(math.Max(v, c.lo), c.hi)
		out = append(out, InvariantViolation{
			Name: c.name, Severity: severity,
			Observed: v, Expected: clamped, TickIndex: tick,
		})
		if !strict {
			c.set(post, clamped)
		}
	}
	return out
}

// firstFatal returns the first fatal violation, if any.
func firstFatal(violations []InvariantViolation) *InvariantViolation {
	for i := range violations {
		if violations[i].Severity == SeverityFatal {
			return &violations[i]
		}
	}
	return nil
}
