package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pathway is the built-in workflow driver: it walks each created patient
// through the care sequence the external orchestration engine would
// otherwise drive. Electives go intake -> surgery (when the diagnosis has
// one) -> nursing -> release; emergencies start at ER treatment and follow
// the drawn diagnosis from there. A nursing complication repeats nursing.
type Pathway struct {
	sim   *Simulator
	types []PatientTypeConfig

	mu        sync.Mutex
	diagnoses map[string]string // patient id -> current diagnosis
}

// NewPathway builds the driver over the simulator's command surface.
func NewPathway(s *Simulator, types []PatientTypeConfig) *Pathway {
	return &Pathway{
		sim:       s,
		types:     types,
		diagnoses: make(map[string]string),
	}
}

func callbackRef(patientID, task string) string {
	return patientID + "/" + task
}

func splitCallbackRef(ref string) (patientID, task string, err error) {
	patientID, task, ok := strings.Cut(ref, "/")
	if !ok {
		return "", "", fmt.Errorf("malformed callback ref %q", ref)
	}
	return patientID, task, nil
}

// ProcessCreated admits the patient and requests its first resource.
func (pw *Pathway) ProcessCreated(patientID, diagnosis string, start float64) error {
	res, err := pw.sim.AdmitPatient(diagnosis, patientID, start)
	if err != nil {
		return err
	}
	pw.mu.Lock()
	pw.diagnoses[res.PatientID] = diagnosis
	pw.mu.Unlock()

	if !res.Feasible {
		// The admission event replans the patient; a fresh creation will
		// arrive at the new time.
		return nil
	}
	first := ResourceIntake
	if IsEmergency(diagnosis) {
		first = ResourceERTreatment
	}
	return pw.sim.RequestResource(res.PatientID, diagnosis, first, start, callbackRef(res.PatientID, first))
}

// TaskCompleted advances the patient to its next task.
func (pw *Pathway) TaskCompleted(ref string, result TaskResult) error {
	patientID, task, err := splitCallbackRef(ref)
	if err != nil {
		return err
	}
	pw.mu.Lock()
	diagnosis := pw.diagnoses[patientID]
	pw.mu.Unlock()
	at := result.FinishTime

	switch task {
	case ResourceIntake:
		return pw.requestTreatment(patientID, diagnosis, at)

	case ResourceERTreatment:
		diagnosis = result.ERDiagnosis
		pw.mu.Lock()
		pw.diagnoses[patientID] = diagnosis
		pw.mu.Unlock()
		if diagnosis == DiagnosisPhantomPain {
			return pw.release(patientID, diagnosis, at)
		}
		return pw.requestTreatment(patientID, diagnosis, at)

	case ResourceSurgery:
		return pw.sim.RequestResource(patientID, diagnosis, ResourceNursing, at, callbackRef(patientID, ResourceNursing))

	case ResourceNursing:
		if result.Complication {
			logrus.Infof("patient %s: nursing complication, repeating nursing", patientID)
			return pw.sim.RequestResource(patientID, diagnosis, ResourceNursing, at, callbackRef(patientID, ResourceNursing))
		}
		return pw.release(patientID, diagnosis, at)
	}
	return fmt.Errorf("%w: callback for task %q", ErrUnknownResourceType, task)
}

// requestTreatment routes a diagnosed patient to surgery or straight to
// nursing.
func (pw *Pathway) requestTreatment(patientID, diagnosis string, at float64) error {
	if NeedsSurgery(pw.types, diagnosis) {
		return pw.sim.RequestResource(patientID, diagnosis, ResourceSurgery, at, callbackRef(patientID, ResourceSurgery))
	}
	return pw.sim.RequestResource(patientID, diagnosis, ResourceNursing, at, callbackRef(patientID, ResourceNursing))
}

func (pw *Pathway) release(patientID, diagnosis string, at float64) error {
	pw.mu.Lock()
	delete(pw.diagnoses, patientID)
	pw.mu.Unlock()
	return pw.sim.ReleasePatient(patientID, diagnosis, at)
}
