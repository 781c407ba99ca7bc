package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// Fixed service-time distributions for the resources that do not depend on
// the diagnosis table (hours).
const (
	erTreatmentMean = 2.0
	erTreatmentStd  = 0.5
	intakeMean      = 1.0
	intakeStd       = 0.125
)

// sampleNormal draws normal(mean, std) floored at zero; service times are
// never negative.
func sampleNormal(mean, std float64, rng *rand.Rand) float64 {
	return math.Max(0, rng.NormFloat64()*std+mean)
}

// TaskDuration samples the service time for one resource grant. Surgery and
// nursing durations come from the diagnosis row of the patient-type table;
// intake and ER treatment use fixed distributions.
func TaskDuration(types []PatientTypeConfig, diagnosis, resource string, rng *rand.Rand) (float64, error) {
	switch resource {
	case ResourceERTreatment:
		return sampleNormal(erTreatmentMean, erTreatmentStd, rng), nil
	case ResourceIntake:
		return sampleNormal(intakeMean, intakeStd, rng), nil
	case ResourceSurgery, ResourceNursing, ResourceNursingA, ResourceNursingB:
		base := BaseDiagnosis(diagnosis)
		for _, pt := range types {
			if pt.Diagnosis != base {
				continue
			}
			if resource == ResourceSurgery {
				return sampleNormal(pt.OperationTimeMean, pt.OperationTimeStd, rng), nil
			}
			return sampleNormal(pt.NursingTimeMean, pt.NursingTimeStd, rng), nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidDiagnosis, diagnosis)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownResourceType, resource)
}

// NeedsSurgery reports whether the diagnosis row carries an operation time.
func NeedsSurgery(types []PatientTypeConfig, diagnosis string) bool {
	base := BaseDiagnosis(diagnosis)
	for _, pt := range types {
		if pt.Diagnosis == base {
			return pt.OperationTimeMean > 0
		}
	}
	return false
}
