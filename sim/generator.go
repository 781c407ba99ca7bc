package sim

import (
	"math/rand"
)

// Arrival is one generated patient arrival.
type Arrival struct {
	Time      float64
	Diagnosis string
}

// Generator produces the initial patient arrivals for a self-contained run.
// Each patient family yields one arrival per simulated hour, offset inside
// the hour by the family's configured distribution and refined to a concrete
// diagnosis.
type Generator struct {
	types []PatientTypeConfig
	rng   *rand.Rand
}

// NewGenerator builds a Generator drawing from rng.
func NewGenerator(types []PatientTypeConfig, rng *rand.Rand) *Generator {
	return &Generator{types: types, rng: rng}
}

// Arrivals generates every arrival in [0, runtime) hours.
func (g *Generator) Arrivals(runtime float64) ([]Arrival, error) {
	// One arrival distribution per family; the table repeats it per
	// diagnosis row.
	families := make([]string, 0, 3)
	arrival := make(map[string]Distribution)
	for _, pt := range g.types {
		if _, seen := arrival[pt.Type]; !seen {
			families = append(families, pt.Type)
			arrival[pt.Type] = pt.Arrival
		}
	}

	var arrivals []Arrival
	for hour := 0.0; hour < runtime; hour++ {
		for _, family := range families {
			at := hour + arrival[family].Sample(g.rng)
			diagnosis, err := DrawSubDiagnosis(family, g.rng)
			if err != nil {
				return nil, err
			}
			arrivals = append(arrivals, Arrival{Time: at, Diagnosis: diagnosis})
		}
	}
	return arrivals, nil
}

// SeedArrivals schedules a creation event per arrival. Patient ids are
// assigned at admission.
func (s *Simulator) SeedArrivals(arrivals []Arrival) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range arrivals {
		s.schedule(&CreationEvent{Time: a.Time, Diagnosis: a.Diagnosis})
	}
}
