package trace

import (
	"fmt"
	"io"
)

// Summary aggregates a finished trace for end-of-run reporting.
type Summary struct {
	Ticks           int
	FinalBudget     float64
	FinalPopulation int64
	FinalHappiness  float64
	TotalRevenue    float64
	TotalExpenses   float64
	TotalBirths     int64
	TotalDeaths     int64
	NetMigration    int64
	ViolationCount  int
	DecisionCount   int
}

// Summarize computes the run summary from collected records.
func Summarize(rt *RunTrace) Summary {
	var s Summary
	s.Ticks = len(rt.Records)
	for _, r := range rt.Records {
		s.TotalRevenue += r.Revenue
		s.TotalExpenses += r.Expenses
		s.TotalBirths += r.Births
		s.TotalDeaths += r.Deaths
		s.NetMigration += r.MigrationIn - r.MigrationOut
		s.ViolationCount += len(r.Violations)
		s.DecisionCount += len(r.Decisions)
	}
	if s.Ticks > 0 {
		last := rt.Records[s.Ticks-1]
		s.FinalBudget = last.Budget
		s.FinalPopulation = last.Population
		s.FinalHappiness = last.Happiness
	}
	return s
}

// Print writes the summary in the standard end-of-run report format.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Run Summary ===")
	fmt.Fprintf(w, "Ticks completed      : %d\n", s.Ticks)
	fmt.Fprintf(w, "Final population     : %d\n", s.FinalPopulation)
	fmt.Fprintf(w, "Final budget         : %.2f\n", s.FinalBudget)
	fmt.Fprintf(w, "Final happiness      : %.2f\n", s.FinalHappiness)
	fmt.Fprintf(w, "Total revenue        : %.2f\n", s.TotalRevenue)
	fmt.Fprintf(w, "Total expenses       : %.2f\n", s.TotalExpenses)
	fmt.Fprintf(w, "Births / deaths      : %d / %d\n", s.TotalBirths, s.TotalDeaths)
	fmt.Fprintf(w, "Net migration        : %d\n", s.NetMigration)
	fmt.Fprintf(w, "Decisions applied    : %d\n", s.DecisionCount)
	fmt.Fprintf(w, "Invariant violations : %d\n", s.ViolationCount)
}
