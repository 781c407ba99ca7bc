package sim

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hospital-sim/hospital-sim/metrics"
	"github.com/hospital-sim/hospital-sim/sim/planner"
)

// EventQueue implements heap.Interface and orders events by timestamp,
// breaking ties by event rank so equal-time interleavings are reproducible.
type EventQueue []Event

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].Timestamp() != eq[j].Timestamp() {
		return eq[i].Timestamp() < eq[j].Timestamp()
	}
	return eq[i].Rank() < eq[j].Rank()
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(Event))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// Workflow is the external orchestration collaborator driving a patient's
// task sequence. The engine invokes it asynchronously; an in-flight call
// gates the event loop so causal ordering between internally generated and
// externally triggered events is preserved.
type Workflow interface {
	// ProcessCreated instantiates the care process for a patient. Failure is
	// reported, not retried.
	ProcessCreated(patientID, diagnosis string, start float64) error

	// TaskCompleted delivers the asynchronous result of a granted resource.
	TaskCompleted(callbackRef string, result TaskResult) error
}

// PatientState is one row of the live system snapshot: the task a patient
// currently holds or waits for.
type PatientState struct {
	Task      string
	Start     float64
	Diagnosis string
	Waiting   bool
}

// StateItem is the boundary form of a PatientState row.
type StateItem struct {
	PatientID string  `json:"cid"`
	Task      string  `json:"task"`
	Start     float64 `json:"start"`
	Diagnosis string  `json:"diagnosis"`
	Waiting   bool    `json:"wait"`
}

// admissionQueueThreshold is the longest surgery/nursing queue an elective
// admission tolerates before the patient is sent home.
const admissionQueueThreshold = 2

// ledgerToCapacity maps ledger resource names to planner capacity names.
var ledgerToCapacity = map[string]string{
	ResourceIntake:      planner.CapIntake,
	ResourceERTreatment: planner.CapERPractitioner,
	ResourceSurgery:     planner.CapOR,
	ResourceNursingA:    planner.CapABed,
	ResourceNursingB:    planner.CapBBed,
}

// Options configures a Simulator.
type Options struct {
	Ledger       Ledger
	Resources    *ResourceConfig
	PatientTypes []PatientTypeConfig
	Seed         int64

	// ExitWhenIdle makes Run return once the event queue is drained, no
	// callbacks are outstanding and no patients remain in system. Server
	// mode leaves it false and blocks for further commands.
	ExitWhenIdle bool
}

// Simulator holds simulation time, system state and the event loop. It is
// the single writer of the ledger and the event queue; command handlers and
// workflow callbacks only enqueue under the mutex, and one consumer
// goroutine (Run) drains events in causal order.
type Simulator struct {
	mu   sync.Mutex
	cond *sync.Cond

	clock  float64
	events EventQueue

	ledger       Ledger
	capacities   map[string]int // ledger resource name -> capacity
	patientTypes []PatientTypeConfig

	patients      map[string]*Patient
	patientStates map[string]*PatientState

	patientsInSystem int
	outstanding      int // in-flight workflow callbacks gating the loop

	rng      *PartitionedRNG
	workflow Workflow
	planner  *planner.Planner

	exitWhenIdle bool
}

// New constructs a Simulator over the given ledger and configuration.
func New(opts Options) *Simulator {
	capacities := opts.Resources.Capacities()
	plannerCaps := make(map[string]int, len(capacities))
	for name, c := range capacities {
		plannerCaps[ledgerToCapacity[name]] = c
	}
	rng := NewPartitionedRNG(opts.Seed)
	s := &Simulator{
		ledger:        opts.Ledger,
		capacities:    capacities,
		patientTypes:  opts.PatientTypes,
		patients:      make(map[string]*Patient),
		patientStates: make(map[string]*PatientState),
		rng:           rng,
		planner:       planner.New(plannerCaps, rng.ForSubsystem(SubsystemEvolution)),
		exitWhenIdle:  opts.ExitWhenIdle,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetWorkflow attaches the orchestration collaborator. Must be called before
// Run; a nil workflow means creations are recorded but drive nothing.
func (s *Simulator) SetWorkflow(w Workflow) {
	s.workflow = w
}

// Clock returns the current simulation time.
func (s *Simulator) Clock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// PatientsInSystem returns the current active-patient count.
func (s *Simulator) PatientsInSystem() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patientsInSystem
}

// Patient returns a copy of the patient record, if known.
func (s *Simulator) Patient(id string) (Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return Patient{}, false
	}
	return *p, true
}

// Schedule inserts an event into the queue and wakes the consumer.
func (s *Simulator) Schedule(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule(ev)
}

func (s *Simulator) schedule(ev Event) {
	heap.Push(&s.events, ev)
	s.cond.Broadcast()
}

// Run drains the event queue in causal order until the context is cancelled
// or, with ExitWhenIdle, until the system is fully drained. The loop never
// pops an event while a workflow callback is in flight: an event scheduled
// by that callback must not be skipped past.
func (s *Simulator) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for ctx.Err() == nil && (s.outstanding > 0 || (len(s.events) == 0 && !s.drained())) {
			s.cond.Wait()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(s.events) == 0 {
			logrus.Info("simulation finished: event queue drained, no patients in system")
			return nil
		}
		ev := heap.Pop(&s.events).(Event)
		s.clock = ev.Timestamp()
		if err := ev.Execute(s); err != nil {
			// The current event is aborted; state mutations before the
			// failure point stand, later ones were not applied.
			logrus.Errorf("event at t=%.4f failed: %v", s.clock, err)
		}
	}
}

func (s *Simulator) drained() bool {
	return s.exitWhenIdle && s.patientsInSystem <= 0
}

// === event handlers (mutex held) ===

func (s *Simulator) handleCreation(ev *CreationEvent) error {
	logrus.Infof("t=%.4f CREATION patient=%s diagnosis=%s", ev.Time, ev.PatientID, ev.Diagnosis)
	if s.workflow == nil {
		return nil
	}
	s.invokeCallback(func(w Workflow) error {
		return w.ProcessCreated(ev.PatientID, ev.Diagnosis, ev.Time)
	})
	return nil
}

func (s *Simulator) handleAdmission(ev *AdmissionEvent) error {
	s.patientsInSystem++
	metrics.PatientsInSystem.Set(float64(s.patientsInSystem))

	feasible, err := s.admissionFeasible(ev.Diagnosis, ev.Time)
	if err != nil {
		return err
	}
	if feasible {
		metrics.AdmissionsTotal.WithLabelValues("admitted").Inc()
		logrus.Infof("t=%.4f ADMISSION patient=%s diagnosis=%s admitted", ev.Time, ev.PatientID, ev.Diagnosis)
		return nil
	}

	metrics.AdmissionsTotal.WithLabelValues("sent_home").Inc()
	logrus.Infof("t=%.4f ADMISSION patient=%s diagnosis=%s infeasible, replanning", ev.Time, ev.PatientID, ev.Diagnosis)
	newTime := s.replan(ev.PatientID, ev.Diagnosis, ev.Time)
	s.schedule(&ReplanPatientEvent{
		Time:      ev.Time,
		NewTime:   newTime,
		PatientID: ev.PatientID,
		Diagnosis: ev.Diagnosis,
	})
	return nil
}

func (s *Simulator) handleRequestResource(ev *RequestResourceEvent) error {
	resource, err := s.normalizeResource(ev.Resource, ev.Diagnosis)
	if err != nil {
		return err
	}

	unit, free, err := s.ledger.TryAcquire(resource, ev.Time)
	if err != nil {
		return err
	}
	if !free {
		priority := 1
		if IsEmergency(ev.Diagnosis) {
			priority = 0
		}
		if err := s.ledger.Enqueue(QueueEntry{
			Priority:    priority,
			RequestTime: ev.Time,
			PatientID:   ev.PatientID,
			Diagnosis:   ev.Diagnosis,
			Resource:    resource,
			CallbackRef: ev.CallbackRef,
		}); err != nil {
			return err
		}
		s.updateQueueMetric(resource)
		s.schedule(&EnterQueueEvent{Time: ev.Time, PatientID: ev.PatientID, Diagnosis: ev.Diagnosis, Resource: resource})
		logrus.Infof("t=%.4f REQUEST_RESOURCE patient=%s resource=%s busy, queued at priority %d",
			ev.Time, ev.PatientID, resource, priority)
		return nil
	}

	duration, err := TaskDuration(s.patientTypes, ev.Diagnosis, resource, s.rng.ForSubsystem(SubsystemDurations))
	if err != nil {
		return err
	}
	end := ev.Time + duration
	if err := s.ledger.Reserve(unit, end); err != nil {
		return err
	}
	payload, err := s.taskResult(resource, ev.Diagnosis, end)
	if err != nil {
		return err
	}
	s.patientStates[ev.PatientID] = &PatientState{Task: resource, Start: ev.Time, Diagnosis: ev.Diagnosis}
	metrics.TasksGrantedTotal.WithLabelValues(resource).Inc()
	logrus.Infof("t=%.4f REQUEST_RESOURCE patient=%s resource=%s granted unit=%s until t=%.4f",
		ev.Time, ev.PatientID, resource, unit, end)
	s.schedule(&ReleaseResourceEvent{
		Time:        end,
		Start:       ev.Time,
		PatientID:   ev.PatientID,
		Diagnosis:   ev.Diagnosis,
		Resource:    resource,
		CallbackRef: ev.CallbackRef,
		Payload:     payload,
	})
	return nil
}

func (s *Simulator) handleEnterQueue(ev *EnterQueueEvent) error {
	s.patientStates[ev.PatientID] = &PatientState{Task: ev.Resource, Start: ev.Time, Diagnosis: ev.Diagnosis, Waiting: true}
	return nil
}

func (s *Simulator) handleReleaseResource(ev *ReleaseResourceEvent) error {
	delete(s.patientStates, ev.PatientID)
	logrus.Infof("t=%.4f RELEASE_RESOURCE patient=%s resource=%s", ev.Time, ev.PatientID, ev.Resource)

	waiting, err := s.ledger.QueueLength(ev.Resource)
	if err != nil {
		return err
	}
	if waiting > 0 {
		entry, ok, err := s.ledger.DequeueHead(ev.Resource)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s queue reported %d waiting entries", ErrLedgerDesync, ev.Resource, waiting)
		}
		s.updateQueueMetric(ev.Resource)
		s.schedule(&RequestResourceEvent{
			Time:        ev.Time,
			PatientID:   entry.PatientID,
			Diagnosis:   entry.Diagnosis,
			Resource:    entry.Resource,
			CallbackRef: entry.CallbackRef,
		})
	}

	if s.workflow != nil {
		ref, payload := ev.CallbackRef, ev.Payload
		s.invokeCallback(func(w Workflow) error {
			return w.TaskCompleted(ref, payload)
		})
	}
	return nil
}

func (s *Simulator) handleReleasePatient(ev *ReleasePatientEvent) error {
	s.patientsInSystem--
	metrics.PatientsInSystem.Set(float64(s.patientsInSystem))
	metrics.ReleasesTotal.Inc()
	delete(s.patientStates, ev.PatientID)
	if err := s.ledger.DropPatient(ev.PatientID); err != nil {
		return err
	}
	logrus.Infof("t=%.4f RELEASE_PATIENT patient=%s", ev.Time, ev.PatientID)
	return nil
}

func (s *Simulator) handleReplanPatient(ev *ReplanPatientEvent) error {
	s.patientsInSystem--
	metrics.PatientsInSystem.Set(float64(s.patientsInSystem))
	metrics.ReplansTotal.Inc()
	if p, ok := s.patients[ev.PatientID]; ok {
		p.SentHomeCounter++
		p.LastReplanTime = ev.NewTime
		p.CurrentAdmissionTime = ev.NewTime
	}
	logrus.Infof("t=%.4f REPLAN_PATIENT patient=%s new admission t=%.4f", ev.Time, ev.PatientID, ev.NewTime)
	s.schedule(&CreationEvent{Time: ev.NewTime, PatientID: ev.PatientID, Diagnosis: ev.Diagnosis})
	return nil
}

// === helpers (mutex held) ===

// invokeCallback runs a workflow call on its own goroutine while holding the
// outstanding gate, so the event loop cannot advance past it.
func (s *Simulator) invokeCallback(call func(Workflow) error) {
	s.outstanding++
	w := s.workflow
	go func() {
		if err := call(w); err != nil {
			logrus.Errorf("workflow callback failed: %v", err)
		}
		s.mu.Lock()
		s.outstanding--
		s.cond.Broadcast()
		s.mu.Unlock()
	}()
}

func (s *Simulator) normalizeResource(resource, diagnosis string) (string, error) {
	if resource == ResourceNursing {
		return BedResource(diagnosis)
	}
	if !KnownResourceType(resource) {
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, resource)
	}
	return resource, nil
}

// admissionFeasible applies the admission rules: emergencies always enter;
// elective patients need a free intake unit at the admission instant, and
// neither the surgery queue nor their bed-class queue may exceed the
// threshold.
func (s *Simulator) admissionFeasible(diagnosis string, at float64) (bool, error) {
	if IsEmergency(diagnosis) {
		return true, nil
	}
	if _, free, err := s.ledger.TryAcquire(ResourceIntake, at); err != nil {
		return false, err
	} else if !free {
		return false, nil
	}
	surgeryQueue, err := s.ledger.QueueLength(ResourceSurgery)
	if err != nil {
		return false, err
	}
	bed, err := BedResource(diagnosis)
	if err != nil {
		return false, err
	}
	bedQueue, err := s.ledger.QueueLength(bed)
	if err != nil {
		return false, err
	}
	return surgeryQueue <= admissionQueueThreshold && bedQueue <= admissionQueueThreshold, nil
}

// replan runs the evolutionary search against the live snapshot and updates
// the patient's bounds. Returns the chosen admission time.
func (s *Simulator) replan(patientID, diagnosis string, decisionTime float64) float64 {
	decision := ToWallClock(decisionTime)
	newTime := s.planner.PlanPatient(patientID, BaseDiagnosis(diagnosis), decision, s.snapshot())
	if p, ok := s.patients[patientID]; ok {
		p.MinReplanTime = FromWallClock(decision.Add(24*time.Hour + time.Second))
	}
	return FromWallClock(newTime)
}

// snapshot converts the live patient states into planner occupations,
// ordered by patient id for determinism.
func (s *Simulator) snapshot() []planner.Occupation {
	ids := make([]string, 0, len(s.patientStates))
	for id := range s.patientStates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	occs := make([]planner.Occupation, 0, len(ids))
	for _, id := range ids {
		st := s.patientStates[id]
		occs = append(occs, planner.Occupation{
			PatientID: id,
			Task:      st.Task,
			Start:     ToWallClock(st.Start),
			Diagnosis: st.Diagnosis,
			Waiting:   st.Waiting,
		})
	}
	return occs
}

func (s *Simulator) updateQueueMetric(resource string) {
	if n, err := s.ledger.QueueLength(resource); err == nil {
		metrics.QueueLength.WithLabelValues(resource).Set(float64(n))
	}
}

// SystemState returns the live occupation rows for the snapshot probe.
func (s *Simulator) SystemState() []StateItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]StateItem, 0, len(s.patientStates))
	for id, st := range s.patientStates {
		items = append(items, StateItem{
			PatientID: id,
			Task:      st.Task,
			Start:     st.Start,
			Diagnosis: st.Diagnosis,
			Waiting:   st.Waiting,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PatientID < items[j].PatientID })
	return items
}

// taskResult builds the asynchronous payload delivered on release. The ER
// re-diagnosis and the nursing complication flag are drawn at grant time.
func (s *Simulator) taskResult(resource, diagnosis string, finish float64) (TaskResult, error) {
	result := TaskResult{Resource: resource, FinishTime: finish}
	switch resource {
	case ResourceERTreatment:
		result.ERDiagnosis = DrawERDiagnosis(s.rng.ForSubsystem(SubsystemComplications))
	case ResourceNursingA, ResourceNursingB:
		complication, err := DrawComplication(diagnosis, s.rng.ForSubsystem(SubsystemComplications))
		if err != nil {
			return TaskResult{}, err
		}
		result.Complication = complication
	}
	return result, nil
}
