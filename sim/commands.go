package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hospital-sim/hospital-sim/sim/planner"
)

// AdmitResult is the synchronous answer to an AdmitPatient command.
type AdmitResult struct {
	PatientID string
	Feasible  bool
}

// AdmitPatient records an admission request. The feasibility verdict is
// computed immediately against the ledger; the admission itself is an event
// at admissionTime. A missing patient id means a new patient.
func (s *Simulator) AdmitPatient(diagnosis, patientID string, admissionTime float64) (AdmitResult, error) {
	if !ValidDiagnosis(diagnosis) {
		return AdmitResult{}, fmt.Errorf("%w: %q", ErrInvalidDiagnosis, diagnosis)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if patientID == "" {
		patientID = uuid.NewString()
	}
	p, known := s.patients[patientID]
	if !known {
		p = &Patient{
			ID:                 patientID,
			Diagnosis:          diagnosis,
			FirstAdmissionTime: admissionTime,
		}
		s.patients[patientID] = p
	}
	p.Diagnosis = diagnosis
	p.CurrentAdmissionTime = admissionTime

	feasible, err := s.admissionFeasible(diagnosis, admissionTime)
	if err != nil {
		return AdmitResult{}, err
	}
	s.schedule(&AdmissionEvent{Time: admissionTime, PatientID: patientID, Diagnosis: diagnosis})
	return AdmitResult{PatientID: patientID, Feasible: feasible}, nil
}

// RequestResource asks for a unit of the resource type at requestTime. The
// command acknowledges synchronously; the grant result arrives later through
// the workflow collaborator's TaskCompleted, keyed by callbackRef.
func (s *Simulator) RequestResource(patientID, diagnosis, resource string, requestTime float64, callbackRef string) error {
	if !ValidDiagnosis(diagnosis) {
		return fmt.Errorf("%w: %q", ErrInvalidDiagnosis, diagnosis)
	}
	if !KnownResourceType(resource) {
		return fmt.Errorf("%w: %q", ErrUnknownResourceType, resource)
	}
	s.Schedule(&RequestResourceEvent{
		Time:        requestTime,
		PatientID:   patientID,
		Diagnosis:   diagnosis,
		Resource:    resource,
		CallbackRef: callbackRef,
	})
	return nil
}

// ReleasePatient schedules the terminal release event for a patient.
func (s *Simulator) ReleasePatient(patientID, diagnosis string, releaseTime float64) error {
	s.Schedule(&ReleasePatientEvent{Time: releaseTime, PatientID: patientID, Diagnosis: diagnosis})
	return nil
}

// ReplanPatient computes a new admission time for a patient from an
// externally supplied system snapshot, schedules the deferral and returns
// the chosen time. Callers that want the engine's own live snapshot should
// let an infeasible ADMISSION event trigger replanning instead.
func (s *Simulator) ReplanPatient(patientID, diagnosis string, decisionTime float64, snapshot []StateItem) (float64, error) {
	if !ValidDiagnosis(diagnosis) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDiagnosis, diagnosis)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	occs := make([]planner.Occupation, 0, len(snapshot))
	for _, item := range snapshot {
		occs = append(occs, planner.Occupation{
			PatientID: item.PatientID,
			Task:      item.Task,
			Start:     ToWallClock(item.Start),
			Diagnosis: item.Diagnosis,
			Waiting:   item.Waiting,
		})
	}
	decision := ToWallClock(decisionTime)
	newTime := FromWallClock(s.planner.PlanPatient(patientID, BaseDiagnosis(diagnosis), decision, occs))
	if p, ok := s.patients[patientID]; ok {
		p.MinReplanTime = FromWallClock(decision.Add(24*time.Hour + time.Second))
	}
	s.schedule(&ReplanPatientEvent{
		Time:      decisionTime,
		NewTime:   newTime,
		PatientID: patientID,
		Diagnosis: diagnosis,
	})
	return newTime, nil
}
