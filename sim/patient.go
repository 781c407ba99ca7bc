package sim

import (
	"fmt"
	"math/rand"
	"strings"
)

// Resource type names as used by the ledger and the workflow engine.
const (
	ResourceIntake      = "intake"
	ResourceERTreatment = "er_treatment"
	ResourceSurgery     = "surgery"
	ResourceNursing     = "nursing" // split into nursing_a / nursing_b on request
	ResourceNursingA    = "nursing_a"
	ResourceNursingB    = "nursing_b"
)

// KnownResourceType reports whether name is in the fixed resource set.
func KnownResourceType(name string) bool {
	switch name {
	case ResourceIntake, ResourceERTreatment, ResourceSurgery,
		ResourceNursing, ResourceNursingA, ResourceNursingB:
		return true
	}
	return false
}

// DiagnosisPhantomPain is the ER outcome that needs no further treatment.
const DiagnosisPhantomPain = "ER_phantom_pain"

// Patient is the mutable record of one patient known to the system,
// referenced everywhere by its id, never embedded.
type Patient struct {
	ID                   string
	Diagnosis            string
	SentHomeCounter      int
	FirstAdmissionTime   float64
	LastReplanTime       float64
	CurrentAdmissionTime float64
	MinReplanTime        float64
}

// ValidDiagnosis reports whether code is one of ER, A1-A4, B1-B4 or an
// ER-prefixed variant thereof.
func ValidDiagnosis(code string) bool {
	if code == "ER" || code == DiagnosisPhantomPain {
		return true
	}
	base := BaseDiagnosis(code)
	switch base {
	case "A1", "A2", "A3", "A4", "B1", "B2", "B3", "B4":
		return true
	}
	return false
}

// IsEmergency reports whether the diagnosis is ER-prefixed. Emergency
// requests queue at priority 0 and bypass the admission feasibility check.
func IsEmergency(code string) bool {
	return strings.HasPrefix(code, "ER")
}

// BaseDiagnosis strips an ER prefix: "ER_B2" yields "B2". Plain diagnoses
// pass through unchanged.
func BaseDiagnosis(code string) string {
	if strings.HasPrefix(code, "ER_") && len(code) >= 2 {
		return code[len(code)-2:]
	}
	return code
}

// BedResource maps a diagnosis to its nursing resource class.
func BedResource(code string) (string, error) {
	base := BaseDiagnosis(code)
	switch {
	case strings.HasPrefix(base, "A"):
		return ResourceNursingA, nil
	case strings.HasPrefix(base, "B"):
		return ResourceNursingB, nil
	}
	return "", fmt.Errorf("%w: %q has no bed class", ErrInvalidDiagnosis, code)
}

// DrawSubDiagnosis refines a patient family into a concrete diagnosis.
// A and B families split 0.5 / 0.25 / 0.125 / 0.125 across their four
// sub-diagnoses; EM always yields ER.
func DrawSubDiagnosis(family string, rng *rand.Rand) (string, error) {
	if family == "EM" || family == "ER" {
		return "ER", nil
	}
	if family != "A" && family != "B" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDiagnosis, family)
	}
	v := rng.Float64()
	switch {
	case v < 0.5:
		return family + "1", nil
	case v < 0.75:
		return family + "2", nil
	case v < 0.875:
		return family + "3", nil
	default:
		return family + "4", nil
	}
}

// DrawERDiagnosis draws the outcome of an ER treatment: phantom pain half
// the time, otherwise an ER-prefixed B diagnosis.
func DrawERDiagnosis(rng *rand.Rand) string {
	if rng.Intn(2) == 0 {
		return DiagnosisPhantomPain
	}
	sub, _ := DrawSubDiagnosis("B", rng)
	return "ER_" + sub
}

// DrawComplication draws the stochastic nursing complication flag at the
// fixed low probability of the diagnosis severity class.
func DrawComplication(code string, rng *rand.Rand) (bool, error) {
	base := BaseDiagnosis(code)
	var p float64
	switch base {
	case "B1":
		p = 0.001
	case "A1", "A2", "B2":
		p = 0.01
	case "A3", "A4", "B3", "B4":
		p = 0.02
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidDiagnosis, code)
	}
	return rng.Float64() < p, nil
}
