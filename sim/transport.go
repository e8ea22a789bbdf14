// Transport subsystem: congestion and infrastructure wear.

package sim

// RoadCapacityBase is the resident count a fully maintained road network
// carries before congestion saturates.
const RoadCapacityBase = 2000.0

// Transport computes the congestion index from population load against
// quality-scaled road capacity, and applies wear to roads and utilities.
// Congestion feeds back into wear: heavily loaded roads decay faster.
type Transport struct{}

func NewTransport() *Transport { return &Transport{} }

func (t *Transport) Name() string { return SubsystemTransport }

func (t *Transport) Update(state CityState, ctx TickContext) (SubsystemDelta, error) {
	capacity := RoadCapacityBase * (0.5 + 0.5*state.InfrastructureQuality.Roads)
	congestion := float64(state.Population) / capacity
	if congestion > 1 {
		congestion = 1
	}
	if congestion < 0 {
		congestion = 0
	}

	// Small demand noise from the transport stream; result stays bounded.
	noise := (ctx.Random.Stream(t.Name()).Float64() - 0.5) * 0.02
	congestion += noise
	if congestion > 1 {
		congestion = 1
	}
	if congestion < 0 {
		congestion = 0
	}

	// Wear cannot take more quality than remains; floor it against the
	// snapshot so a long run never drives quality below zero on its own.
	roadWear := 0.001 + 0.004*congestion
	if roadWear > state.InfrastructureQuality.Roads {
		roadWear = state.InfrastructureQuality.Roads
	}
	utilityWear := 0.001
	if utilityWear > state.InfrastructureQuality.Utilities {
		utilityWear = state.InfrastructureQuality.Utilities
	}

	return TrafficDelta{
		CongestionIndex:      congestion,
		RoadQualityChange:    -roadWear,
		UtilityQualityChange: -utilityWear,
	}, nil
}
