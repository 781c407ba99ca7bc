package sim

import (
	"fmt"
	"math/rand"
)

// Distribution is a tagged sampling descriptor parsed from configuration.
// Arrival offsets and any other configurable random quantity are described
// by one of three variants; configuration text is never evaluated as code.
type Distribution struct {
	Dist string `yaml:"dist"` // "constant", "uniform" or "normal"

	// constant
	Value float64 `yaml:"value,omitempty"`

	// uniform
	Min float64 `yaml:"min,omitempty"`
	Max float64 `yaml:"max,omitempty"`

	// normal
	Mean float64 `yaml:"mean,omitempty"`
	Std  float64 `yaml:"std,omitempty"`
}

// Validate reports a descriptive error for an unusable descriptor.
func (d Distribution) Validate() error {
	switch d.Dist {
	case "constant":
		return nil
	case "uniform":
		if d.Max < d.Min {
			return fmt.Errorf("uniform distribution: max %v < min %v", d.Max, d.Min)
		}
		return nil
	case "normal":
		if d.Std < 0 {
			return fmt.Errorf("normal distribution: negative std %v", d.Std)
		}
		return nil
	default:
		return fmt.Errorf("unknown distribution kind %q", d.Dist)
	}
}

// Sample draws one value from the distribution using the supplied source.
func (d Distribution) Sample(rng *rand.Rand) float64 {
	switch d.Dist {
	case "uniform":
		return d.Min + rng.Float64()*(d.Max-d.Min)
	case "normal":
		return rng.NormFloat64()*d.Std + d.Mean
	default: // constant
		return d.Value
	}
}
