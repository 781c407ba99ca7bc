package sim

// Event is the interface for all simulation events. Each event carries a
// Timestamp (hours since Epoch) and a fixed Rank used to break ties between
// events scheduled at the same instant, keeping interleavings reproducible.
type Event interface {
	Timestamp() float64
	Rank() int
	Execute(s *Simulator) error
}

// Event ranks. The order is fixed; two events at the same timestamp always
// execute in this order.
const (
	rankCreation = iota
	rankAdmission
	rankRequestResource
	rankEnterQueue
	rankReleaseResource
	rankReleasePatient
	rankReplanPatient
)

// TaskResult is the asynchronous payload delivered to the workflow engine
// when a granted resource is released.
type TaskResult struct {
	Resource     string  `json:"resource_type"`
	FinishTime   float64 `json:"finish_time"`
	ERDiagnosis  string  `json:"patient_type,omitempty"` // er_treatment only
	Complication bool    `json:"complication,omitempty"` // nursing only
}

// CreationEvent starts (or restarts, after a replan) a patient's process
// instance at its admission time.
type CreationEvent struct {
	Time      float64
	PatientID string
	Diagnosis string
}

func (e *CreationEvent) Timestamp() float64 { return e.Time }
func (e *CreationEvent) Rank() int          { return rankCreation }
func (e *CreationEvent) Execute(s *Simulator) error {
	return s.handleCreation(e)
}

// AdmissionEvent records the admission decision instant for a patient.
type AdmissionEvent struct {
	Time      float64
	PatientID string
	Diagnosis string
}

func (e *AdmissionEvent) Timestamp() float64 { return e.Time }
func (e *AdmissionEvent) Rank() int          { return rankAdmission }
func (e *AdmissionEvent) Execute(s *Simulator) error {
	return s.handleAdmission(e)
}

// RequestResourceEvent asks for one unit of a resource type at its time,
// either granting it or queueing the patient.
type RequestResourceEvent struct {
	Time        float64
	PatientID   string
	Diagnosis   string
	Resource    string
	CallbackRef string
}

func (e *RequestResourceEvent) Timestamp() float64 { return e.Time }
func (e *RequestResourceEvent) Rank() int          { return rankRequestResource }
func (e *RequestResourceEvent) Execute(s *Simulator) error {
	return s.handleRequestResource(e)
}

// EnterQueueEvent is the audit record of a request that had to wait.
type EnterQueueEvent struct {
	Time      float64
	PatientID string
	Diagnosis string
	Resource  string
}

func (e *EnterQueueEvent) Timestamp() float64 { return e.Time }
func (e *EnterQueueEvent) Rank() int          { return rankEnterQueue }
func (e *EnterQueueEvent) Execute(s *Simulator) error {
	return s.handleEnterQueue(e)
}

// ReleaseResourceEvent fires when a granted task ends: the unit becomes
// free, the queue head (if any) is re-dispatched, and the original
// requester's asynchronous result is delivered.
type ReleaseResourceEvent struct {
	Time        float64 // release instant
	Start       float64 // original grant instant
	PatientID   string
	Diagnosis   string
	Resource    string
	CallbackRef string
	Payload     TaskResult
}

func (e *ReleaseResourceEvent) Timestamp() float64 { return e.Time }
func (e *ReleaseResourceEvent) Rank() int          { return rankReleaseResource }
func (e *ReleaseResourceEvent) Execute(s *Simulator) error {
	return s.handleReleaseResource(e)
}

// ReleasePatientEvent is terminal for a patient.
type ReleasePatientEvent struct {
	Time      float64
	PatientID string
	Diagnosis string
}

func (e *ReleasePatientEvent) Timestamp() float64 { return e.Time }
func (e *ReleasePatientEvent) Rank() int          { return rankReleasePatient }
func (e *ReleasePatientEvent) Execute(s *Simulator) error {
	return s.handleReleasePatient(e)
}

// ReplanPatientEvent defers a patient to a search-selected future admission
// time; a fresh CreationEvent is scheduled at NewTime.
type ReplanPatientEvent struct {
	Time      float64
	NewTime   float64
	PatientID string
	Diagnosis string
}

func (e *ReplanPatientEvent) Timestamp() float64 { return e.Time }
func (e *ReplanPatientEvent) Rank() int          { return rankReplanPatient }
func (e *ReplanPatientEvent) Execute(s *Simulator) error {
	return s.handleReplanPatient(e)
}
