package trace

// TickRecord is the structured log entry emitted once per tick. Field order
// is fixed by the struct, so marshaling the same run twice yields
// byte-identical output. Wall-clock quantities are deliberately absent;
// everything here derives from committed simulation state.
type TickRecord struct {
	Tick         int64    `json:"tick"`
	Budget       float64  `json:"budget"`
	Revenue      float64  `json:"revenue"`
	Expenses     float64  `json:"expenses"`
	Population   int64    `json:"population"`
	Births       int64    `json:"births"`
	Deaths       int64    `json:"deaths"`
	MigrationIn  int64    `json:"migration_in"`
	MigrationOut int64    `json:"migration_out"`
	Happiness    float64  `json:"happiness"`
	CovWater     float64  `json:"coverage_water"`
	CovElec      float64  `json:"coverage_electricity"`
	CovHousing   float64  `json:"coverage_housing"`
	QualRoads    float64  `json:"quality_roads"`
	QualUtils    float64  `json:"quality_utilities"`
	Congestion   float64  `json:"congestion_index"`
	Decisions    []string `json:"decisions"`
	Violations   []string `json:"violations,omitempty"`
}
