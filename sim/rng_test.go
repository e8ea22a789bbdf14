package sim

import (
	"math"
	"testing"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === RandomService Tests ===

func TestRandomService_DeterministicSequence(t *testing.T) {
	r1 := NewRandomService(42)
	r2 := NewRandomService(42)

	for i := 0; i < 100; i++ {
		if v1, v2 := r1.Float64(), r2.Float64(); v1 != v2 {
			t.Fatalf("draw %d diverged: %v vs %v", i, v1, v2)
		}
	}
}

func TestRandomService_DifferentSeedsDiverge(t *testing.T) {
	r1 := NewRandomService(1)
	r2 := NewRandomService(2)

	same := 0
	for i := 0; i < 10; i++ {
		if r1.Float64() == r2.Float64() {
			same++
		}
	}
	if same == 10 {
		t.Error("seeds 1 and 2 produced identical 10-draw sequences")
	}
}

func TestRandomService_Float64Range(t *testing.T) {
	r := NewRandomService(7)
	for i := 0; i < 10000; i++ {
		v := r.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %v, want [0, 1)", v)
		}
	}
}

func TestRandomService_IntNBounds(t *testing.T) {
	r := NewRandomService(7)
	tests := []struct {
		name   string
		lo, hi int
	}{
		{"small range", 0, 9},
		{"single value", 5, 5},
		{"negative bounds", -10, -1},
		{"spanning zero", -3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				v := r.IntN(tt.lo, tt.hi)
				if v < tt.lo || v > tt.hi {
					t.Fatalf("IntN(%d, %d) = %d", tt.lo, tt.hi, v)
				}
			}
		})
	}
}

func TestRandomService_CheckpointRestore(t *testing.T) {
	r := NewRandomService(42)
	for i := 0; i < 17; i++ {
		r.Float64()
	}

	state := r.Checkpoint()
	want := make([]float64, 20)
	for i := range want {
		want[i] = r.Float64()
	}

	r.Restore(state)
	for i := range want {
		if got := r.Float64(); got != want[i] {
			t.Fatalf("post-restore draw %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestRandomService_CheckpointIsValueCopy(t *testing.T) {
	r := NewRandomService(42)
	state := r.Checkpoint()
	r.Float64() // advance past the checkpoint

	r2 := NewRandomService(42)
	r2.Restore(state)
	if r2.Float64() == r.Float64() {
		// Both advanced one draw from different points; equality would mean
		// Restore aliased live state.
		t.Error("restored stream tracks the live stream")
	}
}

func TestRandomService_StreamIsolation(t *testing.T) {
	// Draws on one stream must not perturb a sibling stream.
	a := NewRandomService(42)
	b := NewRandomService(42)

	a.Stream(SubsystemFinance).Float64()
	a.Stream(SubsystemFinance).Float64()

	v1 := a.Stream(SubsystemPopulation).Float64()
	v2 := b.Stream(SubsystemPopulation).Float64()
	if v1 != v2 {
		t.Errorf("population stream perturbed by finance draws: %v vs %v", v1, v2)
	}
}

func TestRandomService_StreamCached(t *testing.T) {
	r := NewRandomService(42)
	if r.Stream("x") != r.Stream("x") {
		t.Error("Stream returned distinct instances for the same name")
	}
}

func TestRandomService_NeverReadsAmbientEntropy(t *testing.T) {
	// Two services constructed at different times with the same seed must
	// agree; any wall-clock or OS entropy input would break this.
	r1 := NewRandomService(1234)
	sum1 := 0.0
	for i := 0; i < 50; i++ {
		sum1 += r1.Float64()
	}

	r2 := NewRandomService(1234)
	sum2 := 0.0
	for i := 0; i < 50; i++ {
		sum2 += r2.Float64()
	}
	if sum1 != sum2 {
		t.Errorf("sequences diverged: %v vs %v", sum1, sum2)
	}
}
