package sim

import (
	"math/rand"
	"testing"
)

func TestDistribution_Validate(t *testing.T) {
	tests := []struct {
		name    string
		dist    Distribution
		wantErr bool
	}{
		{"constant", Distribution{Dist: "constant", Value: 3}, false},
		{"uniform", Distribution{Dist: "uniform", Min: 0, Max: 1}, false},
		{"uniform inverted bounds", Distribution{Dist: "uniform", Min: 2, Max: 1}, true},
		{"normal", Distribution{Dist: "normal", Mean: 1, Std: 0.5}, false},
		{"normal negative std", Distribution{Dist: "normal", Mean: 1, Std: -1}, true},
		{"unknown kind", Distribution{Dist: "exponential"}, true},
		{"empty kind", Distribution{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.dist.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDistribution_Sample_Constant(t *testing.T) {
	// GIVEN a constant distribution
	d := Distribution{Dist: "constant", Value: 2.5}
	rng := rand.New(rand.NewSource(1))

	// WHEN sampled repeatedly
	// THEN it always returns the value
	for i := 0; i < 5; i++ {
		if got := d.Sample(rng); got != 2.5 {
			t.Fatalf("Sample() = %v, want 2.5", got)
		}
	}
}

func TestDistribution_Sample_UniformStaysInBounds(t *testing.T) {
	// GIVEN a uniform distribution on [3, 7]
	d := Distribution{Dist: "uniform", Min: 3, Max: 7}
	rng := rand.New(rand.NewSource(42))

	// WHEN sampled many times
	// THEN every draw lies in the interval
	for i := 0; i < 1000; i++ {
		if got := d.Sample(rng); got < 3 || got > 7 {
			t.Fatalf("Sample() = %v, outside [3, 7]", got)
		}
	}
}
