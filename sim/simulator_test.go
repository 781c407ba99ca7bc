package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullResourceConfig() *ResourceConfig {
	return &ResourceConfig{Resources: []ResourceSpec{
		{ResourceType: ResourceIntake, Capacity: 4},
		{ResourceType: ResourceERTreatment, Capacity: 9},
		{ResourceType: ResourceSurgery, Capacity: 5},
		{ResourceType: ResourceNursingA, Capacity: 30},
		{ResourceType: ResourceNursingB, Capacity: 40},
	}}
}

func newTestSimulator(t *testing.T, cfg *ResourceConfig, seed int64) *Simulator {
	t.Helper()
	s := New(Options{
		Ledger:       NewMemoryLedger(cfg),
		Resources:    cfg,
		PatientTypes: testPatientTypes,
		Seed:         seed,
		ExitWhenIdle: true,
	})
	s.SetWorkflow(NewPathway(s, testPatientTypes))
	return s
}

func runToCompletion(t *testing.T, s *Simulator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
}

func TestSimulator_SinglePatient_FullStay(t *testing.T) {
	// GIVEN an empty hospital and one elective patient without surgery
	s := newTestSimulator(t, fullResourceConfig(), 42)
	s.Schedule(&CreationEvent{Time: 10, PatientID: "p1", Diagnosis: "A1"})

	// WHEN the simulation runs until idle
	runToCompletion(t, s)

	// THEN the patient passed through intake and nursing and left
	assert.Equal(t, 0, s.PatientsInSystem())
	assert.Empty(t, s.SystemState())

	p, ok := s.Patient("p1")
	require.True(t, ok)
	assert.Equal(t, 0, p.SentHomeCounter)

	// Intake takes about an hour, nursing about four.
	assert.Greater(t, s.Clock(), 12.0)
}

func TestSimulator_SurgicalPatient_VisitsSurgery(t *testing.T) {
	// GIVEN one elective patient whose diagnosis carries an operation
	s := newTestSimulator(t, fullResourceConfig(), 7)
	s.Schedule(&CreationEvent{Time: 0, PatientID: "p1", Diagnosis: "A2"})

	// WHEN the simulation runs until idle
	runToCompletion(t, s)

	// THEN the stay covers intake, surgery and nursing
	assert.Equal(t, 0, s.PatientsInSystem())
	assert.Greater(t, s.Clock(), 2.0)
}

func TestSimulator_EmergencyPatient_AlwaysAdmitted(t *testing.T) {
	// GIVEN a hospital with every intake desk reserved far into the future
	cfg := fullResourceConfig()
	ledger := NewMemoryLedger(cfg)
	for _, unit := range []string{"intake_0", "intake_1", "intake_2", "intake_3"} {
		require.NoError(t, ledger.Reserve(unit, 1e6))
	}
	s := New(Options{
		Ledger:       ledger,
		Resources:    cfg,
		PatientTypes: testPatientTypes,
		Seed:         3,
		ExitWhenIdle: true,
	})
	s.SetWorkflow(NewPathway(s, testPatientTypes))
	s.Schedule(&CreationEvent{Time: 1, PatientID: "er1", Diagnosis: "ER"})

	// WHEN the simulation runs until idle
	runToCompletion(t, s)

	// THEN the emergency patient was treated despite blocked intake
	p, ok := s.Patient("er1")
	require.True(t, ok)
	assert.Equal(t, 0, p.SentHomeCounter)
	assert.Equal(t, 0, s.PatientsInSystem())
}

func TestSimulator_CapacityOne_RequestsQueueInOrder(t *testing.T) {
	// GIVEN a single nursing bed and two patients needing it
	cfg := &ResourceConfig{Resources: []ResourceSpec{
		{ResourceType: ResourceIntake, Capacity: 4},
		{ResourceType: ResourceNursingA, Capacity: 1},
	}}
	s := newTestSimulator(t, cfg, 11)
	s.Schedule(&CreationEvent{Time: 0, PatientID: "first", Diagnosis: "A1"})
	s.Schedule(&CreationEvent{Time: 0.1, PatientID: "second", Diagnosis: "A1"})

	// WHEN the simulation runs until idle
	runToCompletion(t, s)

	// THEN both stays complete; the second waited for the bed, so the run
	// lasts roughly two nursing stints
	assert.Equal(t, 0, s.PatientsInSystem())
	assert.Greater(t, s.Clock(), 5.0)
}

func TestSimulator_InfeasibleAdmission_SentHomeAndReadmitted(t *testing.T) {
	// GIVEN every intake desk reserved until t=80
	cfg := fullResourceConfig()
	ledger := NewMemoryLedger(cfg)
	for _, unit := range []string{"intake_0", "intake_1", "intake_2", "intake_3"} {
		require.NoError(t, ledger.Reserve(unit, 80))
	}
	s := New(Options{
		Ledger:       ledger,
		Resources:    cfg,
		PatientTypes: testPatientTypes,
		Seed:         5,
		ExitWhenIdle: true,
	})
	s.SetWorkflow(NewPathway(s, testPatientTypes))
	s.Schedule(&CreationEvent{Time: 10, PatientID: "p1", Diagnosis: "A1"})

	// WHEN the simulation runs until idle
	runToCompletion(t, s)

	// THEN the patient was sent home at least once and later treated
	p, ok := s.Patient("p1")
	require.True(t, ok)
	assert.GreaterOrEqual(t, p.SentHomeCounter, 1)
	assert.Equal(t, 0, s.PatientsInSystem())

	// AND every deferral respected the day-and-a-bit minimum notice
	assert.GreaterOrEqual(t, p.LastReplanTime, 10.0+24.0)
	assert.Greater(t, s.Clock(), 34.0)
}

func TestSimulator_SameSeed_SameTrace(t *testing.T) {
	// GIVEN two simulators with identical seed and scenario
	run := func() float64 {
		s := newTestSimulator(t, fullResourceConfig(), 99)
		s.Schedule(&CreationEvent{Time: 0, PatientID: "a", Diagnosis: "A2"})
		s.Schedule(&CreationEvent{Time: 0.5, PatientID: "b", Diagnosis: "B3"})
		s.Schedule(&CreationEvent{Time: 1, PatientID: "c", Diagnosis: "ER"})
		runToCompletion(t, s)
		return s.Clock()
	}

	// WHEN both run to completion
	// THEN the final clocks are bit-identical
	assert.Equal(t, run(), run())
}

func TestAdmitPatient_InvalidDiagnosis_Rejected(t *testing.T) {
	s := newTestSimulator(t, fullResourceConfig(), 1)
	_, err := s.AdmitPatient("Z9", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidDiagnosis)
}

func TestAdmitPatient_AssignsIDWhenMissing(t *testing.T) {
	// GIVEN an admission without a patient id
	s := newTestSimulator(t, fullResourceConfig(), 1)

	// WHEN the patient is admitted
	res, err := s.AdmitPatient("A1", "", 0)

	// THEN a fresh id is assigned and the admission is feasible
	require.NoError(t, err)
	assert.NotEmpty(t, res.PatientID)
	assert.True(t, res.Feasible)
}

func TestAdmitPatient_BlockedIntake_Infeasible(t *testing.T) {
	// GIVEN every intake desk busy
	cfg := fullResourceConfig()
	ledger := NewMemoryLedger(cfg)
	for _, unit := range []string{"intake_0", "intake_1", "intake_2", "intake_3"} {
		require.NoError(t, ledger.Reserve(unit, 50))
	}
	s := New(Options{Ledger: ledger, Resources: cfg, PatientTypes: testPatientTypes, Seed: 1})

	// WHEN an elective admission is attempted
	res, err := s.AdmitPatient("A1", "p1", 5)

	// THEN the verdict is infeasible
	require.NoError(t, err)
	assert.False(t, res.Feasible)
}

func TestAdmitPatient_LongQueue_Infeasible(t *testing.T) {
	// GIVEN free intake but a surgery queue beyond the threshold
	cfg := fullResourceConfig()
	ledger := NewMemoryLedger(cfg)
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Enqueue(QueueEntry{
			Priority: 1, RequestTime: float64(i), PatientID: "q", Resource: ResourceSurgery,
		}))
	}
	s := New(Options{Ledger: ledger, Resources: cfg, PatientTypes: testPatientTypes, Seed: 1})

	// WHEN an elective admission is attempted
	res, err := s.AdmitPatient("A2", "p1", 0)

	// THEN the queue pressure makes it infeasible
	require.NoError(t, err)
	assert.False(t, res.Feasible)
}

func TestReplanPatient_RespectsBounds(t *testing.T) {
	// GIVEN a simulator and an externally supplied empty snapshot
	s := newTestSimulator(t, fullResourceConfig(), 21)

	// WHEN a replan is requested at t=10
	newTime, err := s.ReplanPatient("p1", "A1", 10, nil)

	// THEN the chosen time keeps the minimum notice and stays near the
	// seven-day window
	require.NoError(t, err)
	assert.GreaterOrEqual(t, newTime, 10.0+24.0)
	assert.LessOrEqual(t, newTime, 10.0+8*24.0)
}

func TestRequestResource_Validation(t *testing.T) {
	s := newTestSimulator(t, fullResourceConfig(), 1)

	err := s.RequestResource("p1", "bogus", ResourceIntake, 0, "p1/intake")
	assert.ErrorIs(t, err, ErrInvalidDiagnosis)

	err = s.RequestResource("p1", "A1", "x_ray", 0, "p1/x_ray")
	assert.ErrorIs(t, err, ErrUnknownResourceType)
}
