package sim

// Canonical subsystem names. These key RNG streams, event namespaces, and the
// field-ownership table.
const (
	SubsystemFinance    = "finance"
	SubsystemPopulation = "population"
	SubsystemTransport  = "transport"

	// SourceDecision is the contributor name for decision-driven direct
	// state edits in the ownership table. It is not a subsystem.
	SourceDecision = "decision"
)

// Subsystem is the pluggable unit contract. Update consumes the immutable
// start-of-tick snapshot and the TickContext and proposes a typed delta.
//
// Constraints on implementations:
//   - state is a snapshot; there is nothing to write to. All effects go
//     through the returned delta.
//   - no visibility into a sibling's delta for the same tick; cross-subsystem
//     influence arrives with exactly one tick of lag, through committed state.
//   - randomness only via ctx.Random.Stream(Name()).
type Subsystem interface {
	Name() string
	Update(state CityState, ctx TickContext) (SubsystemDelta, error)
}

// SubsystemDelta is the typed change-set a subsystem proposes for one tick.
// Contributions lists every field it writes; the aggregation step checks each
// against the ownership table.
type SubsystemDelta interface {
	Subsystem() string
	Contributions() []FieldDelta
}

// Registry holds subsystems in canonical execution order:
// Finance → Population → Transport → further registrations in registration
// order. The order is fixed at construction and not reorderable by any
// collaborator.
type Registry struct {
	subsystems []Subsystem
}

// NewRegistry builds the canonical registry. The variadic extras run after
// the three core subsystems, in registration order.
func NewRegistry(finance, population, transport Subsystem, extras ...Subsystem) *Registry {
	subs := []Subsystem{finance, population, transport}
	subs = append(subs, extras...)
	return &Registry{subsystems: subs}
}

// NewRegistryFromSlice builds a registry directly from an ordered slice.
// Used by tests that need synthetic subsystems.
func NewRegistryFromSlice(subsystems []Subsystem) *Registry {
	return &Registry{subsystems: subsystems}
}

// Subsystems returns the subsystems in canonical order.
func (r *Registry) Subsystems() []Subsystem {
	return r.subsystems
}
